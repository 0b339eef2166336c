package domain

import (
	"context"
	"time"
)

// CredentialStore defines principal persistence and atomic counter updates
type CredentialStore interface {
	Create(ctx context.Context, p *Principal) error
	FindByID(ctx context.Context, id uint) (*Principal, error)
	// FindByIdentity matches case-insensitively regardless of login state
	// (administrative lookup).
	FindByIdentity(ctx context.Context, address string) (*Principal, error)
	// FindForLogin additionally requires the principal to be login-enabled.
	FindForLogin(ctx context.Context, address string) (*Principal, error)
	// RecordFailedAttempt increments the failure counter in a single
	// statement and sets the lock when the new count crosses threshold and
	// no unexpired lock exists. Returns the post-increment state.
	RecordFailedAttempt(ctx context.Context, id uint, threshold int, lockFor time.Duration) (*AttemptState, error)
	// ResetOnSuccess zeroes the counter, clears the lock and stamps the
	// last login, atomically.
	ResetOnSuccess(ctx context.Context, id uint) error
	SetPassword(ctx context.Context, id uint, hash string) error
	SetVerified(ctx context.Context, id uint, verified bool) error
	SetVerificationToken(ctx context.Context, id uint, tokenHash string, expiresAt time.Time) error
	MarkVerificationTokenUsed(ctx context.Context, id uint) error
	FindByVerificationTokenHash(ctx context.Context, hash string) (*Principal, error)
}

// ResetTokenRepository defines password reset token persistence
type ResetTokenRepository interface {
	// Replace deletes all prior tokens for the principal and inserts the
	// new one, keeping at most one live token per principal.
	Replace(ctx context.Context, token *ResetToken) error
	FindByHash(ctx context.Context, hash string) (*ResetToken, error)
	// MarkUsed performs a conditional update (used_at IS NULL); returns
	// false when another redemption won.
	MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error)
	// ClearUsed reopens a token whose downstream password write failed,
	// so the same link can be redeemed again.
	ClearUsed(ctx context.Context, id string) error
	DeleteForPrincipal(ctx context.Context, principalID uint) error
}

// SessionRepository defines active session persistence
type SessionRepository interface {
	Create(ctx context.Context, session *ActiveSession) error
	FindByTokenHash(ctx context.Context, hash string) (*ActiveSession, error)
	DeleteByTokenHash(ctx context.Context, hash string) error
}

// SessionTokenIssuer issues, validates and revokes opaque bearer tokens
type SessionTokenIssuer interface {
	Issue(ctx context.Context, p *Principal, meta RequestMeta) (*IssuedToken, error)
	// Revoke is idempotent; revoking an unknown token is not an error.
	Revoke(ctx context.Context, token string) error
	// Validate resolves the principal for a presented token. No implicit
	// renewal.
	Validate(ctx context.Context, token string) (*Principal, error)
}

// AuditRepository defines append-only audit persistence
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *AuditEvent) error
	InsertLoginAttempt(ctx context.Context, attempt *LoginAttempt) error
	CountEventsSince(ctx context.Context, principalID uint, kind AuditEventKind, since time.Time) (int64, error)
}

// AnomalyCheck parameterizes a detection pass over recent audit events
type AnomalyCheck struct {
	Kind        AuditEventKind
	Window      time.Duration
	MaxAttempts int64
	Amount      float64
	MaxAmount   float64
}

// AuditTrail records sanitized security events and detects anomalies.
// Recording failures must never abort the operation being described.
type AuditTrail interface {
	Record(ctx context.Context, event *AuditEvent) (string, error)
	RecordLoginAttempt(ctx context.Context, attempt *LoginAttempt) error
	DetectAnomalies(ctx context.Context, principalID uint, check AnomalyCheck) ([]Anomaly, error)
}

// RateLimiter throttles requests by (purpose, origin, identity)
type RateLimiter interface {
	Allow(ctx context.Context, purpose, origin, identity string) (bool, time.Duration, error)
}

// MessageKind selects the notification template
type MessageKind string

const (
	MessageVerification MessageKind = "verification"
	MessageReset        MessageKind = "reset"
	MessageConfirmation MessageKind = "confirmation"
)

// Notifier dispatches templated messages. Pass/fail only; this subsystem
// supplies fully resolved parameters.
type Notifier interface {
	Send(ctx context.Context, kind MessageKind, address string, params map[string]string) error
}

// PasswordService defines password hashing operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenGenerator produces opaque high-entropy tokens and lookup hashes
type TokenGenerator interface {
	Generate() (raw string, hash string, err error)
	HashOf(raw string) string
}

// AuthService defines the login/logout gateway
type AuthService interface {
	Login(ctx context.Context, address, password string, meta RequestMeta) (*LoginResult, error)
	Logout(ctx context.Context, token string) error
	Introspect(ctx context.Context, token string) (*Principal, error)
}

// VerificationService defines the email verification token lifecycle
type VerificationService interface {
	Initiate(ctx context.Context, address string, meta RequestMeta) error
	Resend(ctx context.Context, address string, meta RequestMeta) error
	Redeem(ctx context.Context, token string) (*VerificationResult, error)
}

// ResetService defines the password reset token lifecycle
type ResetService interface {
	Request(ctx context.Context, address string, meta RequestMeta) error
	Redeem(ctx context.Context, token, newPassword string, meta RequestMeta) error
}

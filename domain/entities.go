package domain

import "time"

// Principal represents an authenticable account (primary user or branch account)
type Principal struct {
	ID                   uint
	IdentityAddress      string // unique, stored lower-case
	PasswordHash         *string
	LoginEnabled         bool
	EmailVerified        bool
	FailedAttempts       int
	LockedUntil          *time.Time
	LastLoginAt          *time.Time
	VerifyTokenHash      *string
	VerifyTokenExpiresAt *time.Time
	VerifyTokenUsedAt    *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// HasPassword reports whether the principal has completed provisioning
func (p *Principal) HasPassword() bool {
	return p.PasswordHash != nil && *p.PasswordHash != ""
}

// ResetToken represents a single-use password reset token
type ResetToken struct {
	ID          string
	PrincipalID uint
	TokenHash   string
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// ActiveSession represents a live bearer session, keyed by token hash
type ActiveSession struct {
	TokenHash   string    `json:"token_hash"`
	PrincipalID uint      `json:"principal_id"`
	DeviceInfo  string    `json:"device_info,omitempty"`
	Origin      string    `json:"origin,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IssuedToken is the caller-visible result of session issuance.
// The raw token exists only here; the store keeps its hash.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// AttemptOutcome classifies a login attempt record
type AttemptOutcome string

const (
	AttemptSuccess AttemptOutcome = "success"
	AttemptFailed  AttemptOutcome = "failed"
)

// LoginAttempt is an append-only record of a credential check.
// PrincipalID is nil when the identity did not resolve to an account.
type LoginAttempt struct {
	ID          uint
	PrincipalID *uint
	Origin      string
	UserAgent   string
	Outcome     AttemptOutcome
	Reason      string
	OccurredAt  time.Time
}

// AttemptState is the post-increment counter state returned by the store
type AttemptState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// RequestMeta carries client information captured at the boundary
type RequestMeta struct {
	Origin     string
	UserAgent  string
	DeviceInfo string
}

// LoginResult represents a successful authentication outcome
type LoginResult struct {
	Principal *Principal
	Token     string
	ExpiresAt time.Time
}

// VerificationResult represents a verification token redemption outcome
type VerificationResult struct {
	Principal       *Principal
	AlreadyVerified bool
}

package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/you/branchauth/domain"
)

// AuthServiceImpl implements domain.AuthService. Login walks a fixed state
// machine: rate limit, principal lookup, verification gate, lock gate,
// password check. Not-found and wrong-password are indistinguishable to the
// caller; unverified and locked are not, since the identity was already
// disclosed at registration.
type AuthServiceImpl struct {
	store     domain.CredentialStore
	issuer    domain.SessionTokenIssuer
	passwords domain.PasswordService
	audit     domain.AuditTrail
	limiter   domain.RateLimiter
	policy    LockoutPolicy
	anomaly   domain.AnomalyCheck
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService creates the auth gateway
func NewAuthService(
	store domain.CredentialStore,
	issuer domain.SessionTokenIssuer,
	passwords domain.PasswordService,
	audit domain.AuditTrail,
	limiter domain.RateLimiter,
	policy LockoutPolicy,
	anomaly domain.AnomalyCheck,
	logger *zap.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		store:     store,
		issuer:    issuer,
		passwords: passwords,
		audit:     audit,
		limiter:   limiter,
		policy:    policy,
		anomaly:   anomaly,
		logger:    logger,
		now:       time.Now,
	}
}

// Login implements domain.AuthService
func (s *AuthServiceImpl) Login(ctx context.Context, address, password string, meta domain.RequestMeta) (*domain.LoginResult, error) {
	if address == "" || password == "" {
		return nil, &domain.ValidationError{Field: "credentials", Reason: "are required"}
	}

	allowed, retryAfter, err := s.limiter.Allow(ctx, "login", meta.Origin, address)
	if err != nil {
		s.logger.Error("login rate limit check failed", zap.Error(err))
	}
	if !allowed {
		event := domain.NewAuditEvent(domain.LoginRateLimitedEvent, domain.SeverityWarning).
			WithOrigin(meta.Origin).
			WithDetail("address", address)
		s.recordEvent(ctx, event)
		return nil, &domain.RateLimitedError{RetryAfter: retryAfter}
	}

	principal, err := s.store.FindForLogin(ctx, address)
	if err != nil {
		// Store errors and unknown identities both surface as invalid
		// credentials; nothing externally observable may differ.
		if !errors.Is(err, domain.ErrPrincipalNotFound) {
			s.logger.Error("principal lookup failed", zap.Error(err))
		}
		s.recordAttempt(ctx, nil, meta, domain.AttemptFailed, "unknown_identity")
		return nil, domain.ErrInvalidCredentials
	}

	if !principal.EmailVerified {
		s.recordAttempt(ctx, &principal.ID, meta, domain.AttemptFailed, "unverified")
		return nil, domain.ErrAccountUnverified
	}

	// The lock is evaluated before any password comparison, so a locked
	// principal costs no bcrypt work.
	if decision := s.policy.Decide(principal.FailedAttempts, principal.LockedUntil, s.now()); decision.Locked {
		s.recordAttempt(ctx, &principal.ID, meta, domain.AttemptFailed, "locked")
		return nil, &domain.AccountLockedError{RetryAfter: decision.RetryAfter}
	}

	if !principal.HasPassword() || !s.passwords.Verify(*principal.PasswordHash, password) {
		return nil, s.handleWrongPassword(ctx, principal, meta)
	}

	if err := s.store.ResetOnSuccess(ctx, principal.ID); err != nil {
		s.logger.Error("failed to reset counters on successful login", zap.Error(err))
		return nil, domain.ErrInvalidCredentials
	}

	issued, err := s.issuer.Issue(ctx, principal, meta)
	if err != nil {
		s.logger.Error("failed to issue session", zap.Error(err))
		return nil, domain.ErrInvalidCredentials
	}

	s.recordAttempt(ctx, &principal.ID, meta, domain.AttemptSuccess, "")
	event := domain.NewAuditEvent(domain.LoginSuccessEvent, domain.SeverityInfo).
		WithPrincipal(principal.ID).
		WithOrigin(meta.Origin).
		WithMetadata("user_agent", meta.UserAgent)
	s.recordEvent(ctx, event)

	return &domain.LoginResult{
		Principal: principal,
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

// handleWrongPassword records the failed attempt through the store's atomic
// increment and reports invalid credentials. The attempt that crosses the
// lock threshold still reports invalid credentials; the lock applies from
// the next attempt on.
func (s *AuthServiceImpl) handleWrongPassword(ctx context.Context, principal *domain.Principal, meta domain.RequestMeta) error {
	state, err := s.store.RecordFailedAttempt(ctx, principal.ID, s.policy.Threshold, s.policy.Duration)
	if err != nil {
		s.logger.Error("failed to record failed attempt", zap.Error(err))
	}

	s.recordAttempt(ctx, &principal.ID, meta, domain.AttemptFailed, "wrong_password")
	event := domain.NewAuditEvent(domain.LoginFailedEvent, domain.SeverityWarning).
		WithPrincipal(principal.ID).
		WithOrigin(meta.Origin)
	if state != nil {
		event.WithMetadata("failed_attempts", state.FailedAttempts)
	}
	s.recordEvent(ctx, event)

	if state != nil && state.FailedAttempts == s.policy.Threshold && state.LockedUntil != nil {
		lockEvent := domain.NewAuditEvent(domain.AccountLockedEvent, domain.SeverityWarning).
			WithPrincipal(principal.ID).
			WithOrigin(meta.Origin).
			WithStateChange("active", "locked").
			WithMetadata("locked_until", state.LockedUntil.Format(time.RFC3339))
		s.recordEvent(ctx, lockEvent)
	}

	// Advisory only; detection failures never affect the response.
	check := s.anomaly
	check.Kind = domain.LoginFailedEvent
	if _, err := s.audit.DetectAnomalies(ctx, principal.ID, check); err != nil {
		s.logger.Error("anomaly detection failed", zap.Error(err))
	}

	return domain.ErrInvalidCredentials
}

// Logout implements domain.AuthService. Always succeeds.
func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	if err := s.issuer.Revoke(ctx, token); err != nil {
		s.logger.Error("failed to revoke session", zap.Error(err))
		return nil
	}
	event := domain.NewAuditEvent(domain.SessionRevokedEvent, domain.SeverityInfo)
	s.recordEvent(ctx, event)
	return nil
}

// Introspect implements domain.AuthService
func (s *AuthServiceImpl) Introspect(ctx context.Context, token string) (*domain.Principal, error) {
	return s.issuer.Validate(ctx, token)
}

func (s *AuthServiceImpl) recordAttempt(ctx context.Context, principalID *uint, meta domain.RequestMeta, outcome domain.AttemptOutcome, reason string) {
	attempt := &domain.LoginAttempt{
		PrincipalID: principalID,
		Origin:      meta.Origin,
		UserAgent:   meta.UserAgent,
		Outcome:     outcome,
		Reason:      reason,
	}
	if err := s.audit.RecordLoginAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt", zap.Error(err))
	}
}

func (s *AuthServiceImpl) recordEvent(ctx context.Context, event *domain.AuditEvent) {
	if _, err := s.audit.Record(ctx, event); err != nil {
		s.logger.Error("failed to record audit event", zap.String("kind", string(event.Kind)), zap.Error(err))
	}
}

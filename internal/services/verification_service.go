package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/you/branchauth/domain"
)

// VerificationServiceImpl implements domain.VerificationService.
//
// State machine per principal:
//
//	unverified --(issue)--> pending --(redeem, valid)--> verified
//	pending --(redeem, expired)--> pending (caller must re-issue)
//	verified is terminal; re-issuing reports success without sending.
//
// Initiate and Resend are enumeration-safe: the caller-visible response is
// identical whether the address is unknown, unprovisioned or already
// verified. Only the audit trail distinguishes the cases.
type VerificationServiceImpl struct {
	store    domain.CredentialStore
	tokens   domain.TokenGenerator
	notifier domain.Notifier
	audit    domain.AuditTrail
	limiter  domain.RateLimiter
	ttl      time.Duration
	baseURL  string
	logger   *zap.Logger
	now      func() time.Time
}

// NewVerificationService creates a new email verification service
func NewVerificationService(
	store domain.CredentialStore,
	tokens domain.TokenGenerator,
	notifier domain.Notifier,
	audit domain.AuditTrail,
	limiter domain.RateLimiter,
	ttl time.Duration,
	baseURL string,
	logger *zap.Logger,
) *VerificationServiceImpl {
	return &VerificationServiceImpl{
		store:    store,
		tokens:   tokens,
		notifier: notifier,
		audit:    audit,
		limiter:  limiter,
		ttl:      ttl,
		baseURL:  baseURL,
		logger:   logger,
		now:      time.Now,
	}
}

// Initiate implements domain.VerificationService
func (s *VerificationServiceImpl) Initiate(ctx context.Context, address string, meta domain.RequestMeta) error {
	return s.issue(ctx, address, meta, false)
}

// Resend implements domain.VerificationService
func (s *VerificationServiceImpl) Resend(ctx context.Context, address string, meta domain.RequestMeta) error {
	return s.issue(ctx, address, meta, true)
}

func (s *VerificationServiceImpl) issue(ctx context.Context, address string, meta domain.RequestMeta, resend bool) error {
	if address == "" {
		return &domain.ValidationError{Field: "address", Reason: "is required"}
	}

	allowed, retryAfter, err := s.limiter.Allow(ctx, "verification", meta.Origin, address)
	if err != nil {
		s.logger.Error("verification rate limit check failed", zap.Error(err))
	}
	if !allowed {
		return &domain.RateLimitedError{RetryAfter: retryAfter}
	}

	principal, err := s.store.FindByIdentity(ctx, address)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			s.suppress(ctx, nil, address, meta, "unknown_address", resend)
			return nil
		}
		return err
	}

	if !principal.HasPassword() {
		s.suppress(ctx, principal, address, meta, "not_provisioned", resend)
		return nil
	}
	if principal.EmailVerified {
		s.suppress(ctx, principal, address, meta, "already_verified", resend)
		return nil
	}

	raw, hash, err := s.tokens.Generate()
	if err != nil {
		return err
	}

	expiresAt := s.now().UTC().Add(s.ttl)
	if err := s.store.SetVerificationToken(ctx, principal.ID, hash, expiresAt); err != nil {
		return err
	}

	event := domain.NewAuditEvent(domain.VerificationRequestedEvent, domain.SeverityInfo).
		WithPrincipal(principal.ID).
		WithOrigin(meta.Origin).
		WithDetail("token", raw).
		WithStateChange("unverified", "pending").
		WithMetadata("resend", resend)
	if _, err := s.audit.Record(ctx, event); err != nil {
		s.logger.Error("failed to audit verification request", zap.Error(err))
	}

	params := map[string]string{
		"display_name": principal.IdentityAddress,
		"link":         fmt.Sprintf("%s/auth/verify/redeem?token=%s", s.baseURL, raw),
		"expires_at":   expiresAt.Format(time.RFC3339),
	}
	if err := s.notifier.Send(ctx, domain.MessageVerification, address, params); err != nil {
		// The token is already persisted and stays valid; report the
		// dispatch failure distinctly.
		return fmt.Errorf("%w: %v", domain.ErrNotifierFailed, err)
	}

	return nil
}

// Redeem implements domain.VerificationService
func (s *VerificationServiceImpl) Redeem(ctx context.Context, token string) (*domain.VerificationResult, error) {
	if token == "" {
		return nil, &domain.ValidationError{Field: "token", Reason: "is required"}
	}

	principal, err := s.store.FindByVerificationTokenHash(ctx, s.tokens.HashOf(token))
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}

	// Redeeming an already-consumed token for a verified principal reports
	// success, not an error.
	if principal.EmailVerified {
		return &domain.VerificationResult{Principal: principal, AlreadyVerified: true}, nil
	}

	if principal.VerifyTokenExpiresAt == nil || principal.VerifyTokenExpiresAt.Before(s.now()) {
		return nil, domain.ErrTokenExpired
	}

	if err := s.store.SetVerified(ctx, principal.ID, true); err != nil {
		return nil, err
	}
	if err := s.store.MarkVerificationTokenUsed(ctx, principal.ID); err != nil {
		return nil, err
	}
	principal.EmailVerified = true

	event := domain.NewAuditEvent(domain.VerificationRedeemedEvent, domain.SeverityInfo).
		WithPrincipal(principal.ID).
		WithStateChange("pending", "verified")
	if _, err := s.audit.Record(ctx, event); err != nil {
		s.logger.Error("failed to audit verification redemption", zap.Error(err))
	}

	return &domain.VerificationResult{Principal: principal}, nil
}

func (s *VerificationServiceImpl) suppress(ctx context.Context, principal *domain.Principal, address string, meta domain.RequestMeta, reason string, resend bool) {
	event := domain.NewAuditEvent(domain.VerificationSuppressedEvent, domain.SeverityInfo).
		WithOrigin(meta.Origin).
		WithDetail("address", address).
		WithDetail("reason", reason).
		WithMetadata("resend", resend)
	if principal != nil {
		event.WithPrincipal(principal.ID)
	}
	if _, err := s.audit.Record(ctx, event); err != nil {
		s.logger.Error("failed to audit suppressed verification", zap.Error(err))
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/you/branchauth/domain"
)

// ResetServiceImpl implements domain.ResetService. Request is
// enumeration-safe; Redeem is single-use via a conditional update so two
// concurrent redemptions of the same token yield exactly one success.
type ResetServiceImpl struct {
	store       domain.CredentialStore
	resetTokens domain.ResetTokenRepository
	passwords   domain.PasswordService
	tokens      domain.TokenGenerator
	notifier    domain.Notifier
	audit       domain.AuditTrail
	limiter     domain.RateLimiter
	ttl         time.Duration
	minLength   int
	baseURL     string
	logger      *zap.Logger
	now         func() time.Time
}

// NewResetService creates a new password reset service
func NewResetService(
	store domain.CredentialStore,
	resetTokens domain.ResetTokenRepository,
	passwords domain.PasswordService,
	tokens domain.TokenGenerator,
	notifier domain.Notifier,
	audit domain.AuditTrail,
	limiter domain.RateLimiter,
	ttl time.Duration,
	minLength int,
	baseURL string,
	logger *zap.Logger,
) *ResetServiceImpl {
	return &ResetServiceImpl{
		store:       store,
		resetTokens: resetTokens,
		passwords:   passwords,
		tokens:      tokens,
		notifier:    notifier,
		audit:       audit,
		limiter:     limiter,
		ttl:         ttl,
		minLength:   minLength,
		baseURL:     baseURL,
		logger:      logger,
		now:         time.Now,
	}
}

// Request implements domain.ResetService
func (s *ResetServiceImpl) Request(ctx context.Context, address string, meta domain.RequestMeta) error {
	if address == "" {
		return &domain.ValidationError{Field: "address", Reason: "is required"}
	}

	allowed, retryAfter, err := s.limiter.Allow(ctx, "reset", meta.Origin, address)
	if err != nil {
		s.logger.Error("reset rate limit check failed", zap.Error(err))
	}
	if !allowed {
		return &domain.RateLimitedError{RetryAfter: retryAfter}
	}

	principal, err := s.store.FindByIdentity(ctx, address)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			s.suppress(ctx, nil, address, meta, "unknown_address")
			return nil
		}
		return err
	}

	if !principal.LoginEnabled {
		s.suppress(ctx, principal, address, meta, "login_disabled")
		return nil
	}
	// No password means registration never completed; nothing to reset.
	if !principal.HasPassword() {
		s.suppress(ctx, principal, address, meta, "not_provisioned")
		return nil
	}

	raw, hash, err := s.tokens.Generate()
	if err != nil {
		return err
	}

	now := s.now().UTC()
	token := &domain.ResetToken{
		ID:          uuid.NewString(),
		PrincipalID: principal.ID,
		TokenHash:   hash,
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
	}
	// Replace drops every prior token for this principal.
	if err := s.resetTokens.Replace(ctx, token); err != nil {
		return err
	}

	event := domain.NewAuditEvent(domain.ResetRequestedEvent, domain.SeverityInfo).
		WithPrincipal(principal.ID).
		WithOrigin(meta.Origin).
		WithDetail("token", raw)
	if _, err := s.audit.Record(ctx, event); err != nil {
		s.logger.Error("failed to audit reset request", zap.Error(err))
	}

	params := map[string]string{
		"display_name": principal.IdentityAddress,
		"link":         fmt.Sprintf("%s/auth/password/reset?token=%s", s.baseURL, raw),
		"expires_at":   token.ExpiresAt.Format(time.RFC3339),
	}
	if err := s.notifier.Send(ctx, domain.MessageReset, address, params); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotifierFailed, err)
	}

	return nil
}

// Redeem implements domain.ResetService
func (s *ResetServiceImpl) Redeem(ctx context.Context, token, newPassword string, meta domain.RequestMeta) error {
	if token == "" {
		return &domain.ValidationError{Field: "token", Reason: "is required"}
	}
	// Password policy is checked before the store is touched.
	if len(newPassword) < s.minLength {
		return &domain.ValidationError{
			Field:  "new_password",
			Reason: fmt.Sprintf("must be at least %d characters", s.minLength),
		}
	}

	resetToken, err := s.resetTokens.FindByHash(ctx, s.tokens.HashOf(token))
	if err != nil {
		return err
	}

	now := s.now().UTC()
	if resetToken.UsedAt != nil {
		return domain.ErrTokenInvalidOrUsed
	}
	if resetToken.ExpiresAt.Before(now) {
		return domain.ErrTokenExpired
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ok, err := s.resetTokens.MarkUsed(ctx, resetToken.ID, now)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrTokenInvalidOrUsed
	}

	if err := s.store.SetPassword(ctx, resetToken.PrincipalID, hash); err != nil {
		// Reopen the token so the same link stays redeemable after a store failure.
		if clearErr := s.resetTokens.ClearUsed(ctx, resetToken.ID); clearErr != nil {
			s.logger.Error("failed to reopen reset token", zap.String("token_id", resetToken.ID), zap.Error(clearErr))
		}
		return err
	}

	event := domain.NewAuditEvent(domain.ResetCompletedEvent, domain.SeverityInfo).
		WithPrincipal(resetToken.PrincipalID).
		WithOrigin(meta.Origin)
	if _, err := s.audit.Record(ctx, event); err != nil {
		s.logger.Error("failed to audit reset completion", zap.Error(err))
	}

	principal, err := s.store.FindByID(ctx, resetToken.PrincipalID)
	if err == nil {
		params := map[string]string{"display_name": principal.IdentityAddress}
		if err := s.notifier.Send(ctx, domain.MessageConfirmation, principal.IdentityAddress, params); err != nil {
			s.logger.Warn("failed to send reset confirmation", zap.Error(err))
		}
	}

	return nil
}

func (s *ResetServiceImpl) suppress(ctx context.Context, principal *domain.Principal, address string, meta domain.RequestMeta, reason string) {
	event := domain.NewAuditEvent(domain.ResetSuppressedEvent, domain.SeverityInfo).
		WithOrigin(meta.Origin).
		WithDetail("address", address).
		WithDetail("reason", reason)
	if principal != nil {
		event.WithPrincipal(principal.ID)
	}
	if _, err := s.audit.Record(ctx, event); err != nil {
		s.logger.Error("failed to audit suppressed reset", zap.Error(err))
	}
}

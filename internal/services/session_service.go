package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/you/branchauth/domain"
)

// SessionServiceImpl implements domain.SessionTokenIssuer. Tokens are
// opaque random strings; the repository only ever sees their hash, so a
// read of the session store cannot be used to forge a session.
type SessionServiceImpl struct {
	sessions domain.SessionRepository
	store    domain.CredentialStore
	tokens   domain.TokenGenerator
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionService creates a new session token issuer
func NewSessionService(
	sessions domain.SessionRepository,
	store domain.CredentialStore,
	tokens domain.TokenGenerator,
	ttl time.Duration,
	logger *zap.Logger,
) *SessionServiceImpl {
	return &SessionServiceImpl{
		sessions: sessions,
		store:    store,
		tokens:   tokens,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Issue implements domain.SessionTokenIssuer. Multiple concurrent sessions
// per principal are allowed.
func (s *SessionServiceImpl) Issue(ctx context.Context, p *domain.Principal, meta domain.RequestMeta) (*domain.IssuedToken, error) {
	raw, hash, err := s.tokens.Generate()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	session := &domain.ActiveSession{
		TokenHash:   hash,
		PrincipalID: p.ID,
		DeviceInfo:  meta.DeviceInfo,
		Origin:      meta.Origin,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return &domain.IssuedToken{Token: raw, ExpiresAt: session.ExpiresAt}, nil
}

// Revoke implements domain.SessionTokenIssuer. Idempotent: revoking an
// unknown or already-revoked token is not an error.
func (s *SessionServiceImpl) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.sessions.DeleteByTokenHash(ctx, s.tokens.HashOf(token))
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}
	return nil
}

// Validate implements domain.SessionTokenIssuer. Consults the store on
// every call so forced logout takes effect immediately. Never renews.
func (s *SessionServiceImpl) Validate(ctx context.Context, token string) (*domain.Principal, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	session, err := s.sessions.FindByTokenHash(ctx, s.tokens.HashOf(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrSessionExpired) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}

	if session.ExpiresAt.Before(s.now()) {
		return nil, domain.ErrTokenInvalid
	}

	principal, err := s.store.FindByID(ctx, session.PrincipalID)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}
	if !principal.LoginEnabled {
		return nil, domain.ErrTokenInvalid
	}

	return principal, nil
}

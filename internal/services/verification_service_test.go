package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/you/branchauth/domain"
	"github.com/you/branchauth/internal/mocks"
)

type verificationDeps struct {
	store    *mocks.MockCredentialStore
	tokens   *mocks.MockTokenGenerator
	notifier *mocks.MockNotifier
	audit    *mocks.MockAuditTrail
	limiter  *mocks.MockRateLimiter
}

func newTestVerificationService(t *testing.T) (*VerificationServiceImpl, *verificationDeps) {
	t.Helper()
	deps := &verificationDeps{
		store:    mocks.NewMockCredentialStore(),
		tokens:   mocks.NewMockTokenGenerator(),
		notifier: mocks.NewMockNotifier(),
		audit:    mocks.NewMockAuditTrail(),
		limiter:  mocks.NewMockRateLimiter(),
	}
	svc := NewVerificationService(
		deps.store,
		deps.tokens,
		deps.notifier,
		deps.audit,
		deps.limiter,
		24*time.Hour,
		"https://app.example.com",
		zap.NewNop(),
	)
	return svc, deps
}

func TestVerificationServiceImpl_Initiate(t *testing.T) {
	tests := []struct {
		name          string
		address       string
		setupMocks    func(deps *verificationDeps)
		expectedError error
		validate      func(t *testing.T, deps *verificationDeps)
	}{
		{
			name:    "eligible principal receives a token",
			address: "branch@example.com",
			setupMocks: func(deps *verificationDeps) {
				deps.store.FindByIdentityFunc = func(ctx context.Context, address string) (*domain.Principal, error) {
					p := testPrincipal(t)
					p.EmailVerified = false
					return p, nil
				}
			},
			validate: func(t *testing.T, deps *verificationDeps) {
				if len(deps.notifier.Sent) != 1 {
					t.Fatalf("expected one notification, got %d", len(deps.notifier.Sent))
				}
				msg := deps.notifier.Sent[0]
				if msg.Kind != domain.MessageVerification {
					t.Errorf("expected verification message, got %s", msg.Kind)
				}
				if !strings.Contains(msg.Params["link"], "token=raw_token") {
					t.Errorf("expected raw token in link, got %q", msg.Params["link"])
				}
				if len(deps.audit.Events) != 1 || deps.audit.Events[0].Kind != domain.VerificationRequestedEvent {
					t.Errorf("expected VERIFICATION_REQUESTED event, got %+v", deps.audit.Events)
				}
			},
		},
		{
			name:          "empty address",
			address:       "",
			setupMocks:    func(deps *verificationDeps) {},
			expectedError: &domain.ValidationError{},
		},
		{
			name:    "unknown address is suppressed",
			address: "nobody@example.com",
			setupMocks: func(deps *verificationDeps) {
				deps.store.FindByIdentityFunc = func(ctx context.Context, address string) (*domain.Principal, error) {
					return nil, domain.ErrPrincipalNotFound
				}
			},
			validate: func(t *testing.T, deps *verificationDeps) {
				if len(deps.notifier.Sent) != 0 {
					t.Error("expected no notification for unknown address")
				}
				if len(deps.audit.Events) != 1 || deps.audit.Events[0].Kind != domain.VerificationSuppressedEvent {
					t.Errorf("expected VERIFICATION_SUPPRESSED event, got %+v", deps.audit.Events)
				}
				if deps.audit.Events[0].Details["reason"] != "unknown_address" {
					t.Errorf("expected unknown_address reason, got %v", deps.audit.Events[0].Details["reason"])
				}
			},
		},
		{
			name:    "principal without password is suppressed",
			address: "branch@example.com",
			setupMocks: func(deps *verificationDeps) {
				deps.store.FindByIdentityFunc = func(ctx context.Context, address string) (*domain.Principal, error) {
					p := testPrincipal(t)
					p.PasswordHash = nil
					p.EmailVerified = false
					return p, nil
				}
			},
			validate: func(t *testing.T, deps *verificationDeps) {
				if len(deps.notifier.Sent) != 0 {
					t.Error("expected no notification for unprovisioned principal")
				}
				if deps.audit.Events[0].Details["reason"] != "not_provisioned" {
					t.Errorf("expected not_provisioned reason, got %v", deps.audit.Events[0].Details["reason"])
				}
			},
		},
		{
			name:    "already verified is suppressed",
			address: "branch@example.com",
			setupMocks: func(deps *verificationDeps) {
				deps.store.FindByIdentityFunc = func(ctx context.Context, address string) (*domain.Principal, error) {
					return testPrincipal(t), nil
				}
			},
			validate: func(t *testing.T, deps *verificationDeps) {
				if len(deps.notifier.Sent) != 0 {
					t.Error("expected no notification for verified principal")
				}
				if deps.audit.Events[0].Details["reason"] != "already_verified" {
					t.Errorf("expected already_verified reason, got %v", deps.audit.Events[0].Details["reason"])
				}
			},
		},
		{
			name:    "rate limited",
			address: "branch@example.com",
			setupMocks: func(deps *verificationDeps) {
				deps.limiter.AllowFunc = func(ctx context.Context, purpose, origin, identity string) (bool, time.Duration, error) {
					return false, time.Minute, nil
				}
			},
			expectedError: domain.ErrRateLimited,
		},
		{
			name:    "notifier failure surfaces after token persisted",
			address: "branch@example.com",
			setupMocks: func(deps *verificationDeps) {
				deps.store.FindByIdentityFunc = func(ctx context.Context, address string) (*domain.Principal, error) {
					p := testPrincipal(t)
					p.EmailVerified = false
					return p, nil
				}
				deps.notifier.SendFunc = func(ctx context.Context, kind domain.MessageKind, address string, params map[string]string) error {
					return errors.New("twilio unavailable")
				}
			},
			expectedError: domain.ErrNotifierFailed,
			validate: func(t *testing.T, deps *verificationDeps) {
				// Token must have been written before the dispatch attempt.
				if len(deps.audit.Events) != 1 || deps.audit.Events[0].Kind != domain.VerificationRequestedEvent {
					t.Errorf("expected VERIFICATION_REQUESTED event, got %+v", deps.audit.Events)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestVerificationService(t)
			tt.setupMocks(deps)

			err := svc.Initiate(context.Background(), tt.address, testMeta())

			if tt.expectedError != nil {
				if err == nil {
					t.Fatalf("expected error %v, got nil", tt.expectedError)
				}
				var vErr *domain.ValidationError
				if errors.As(tt.expectedError, &vErr) {
					if !domain.IsValidation(err) {
						t.Errorf("expected validation error, got %v", err)
					}
				} else if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.validate != nil {
				tt.validate(t, deps)
			}
		})
	}
}

func TestVerificationServiceImpl_Resend_StoresExpiryFromNow(t *testing.T) {
	svc, deps := newTestVerificationService(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	var storedExpiry time.Time
	deps.store.FindByIdentityFunc = func(ctx context.Context, address string) (*domain.Principal, error) {
		p := testPrincipal(t)
		p.EmailVerified = false
		return p, nil
	}
	deps.store.SetVerificationTokenFunc = func(ctx context.Context, id uint, tokenHash string, expiresAt time.Time) error {
		if tokenHash != "hash_raw_token" {
			t.Errorf("expected token hash at rest, got %q", tokenHash)
		}
		storedExpiry = expiresAt
		return nil
	}

	if err := svc.Resend(context.Background(), "branch@example.com", testMeta()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !storedExpiry.Equal(fixed.Add(24 * time.Hour)) {
		t.Errorf("expected expiry 24h from now, got %v", storedExpiry)
	}
}

func TestVerificationServiceImpl_Redeem(t *testing.T) {
	pending := func() *domain.Principal {
		p := testPrincipal(t)
		p.EmailVerified = false
		p.VerifyTokenHash = strPtr("hash_raw_token")
		p.VerifyTokenExpiresAt = timePtr(time.Now().Add(time.Hour))
		return p
	}

	tests := []struct {
		name          string
		token         string
		setupMocks    func(deps *verificationDeps)
		expectedError error
		validate      func(t *testing.T, result *domain.VerificationResult, deps *verificationDeps)
	}{
		{
			name:  "valid token verifies the principal",
			token: "raw_token",
			setupMocks: func(deps *verificationDeps) {
				deps.store.FindByVerificationTokenHashFunc = func(ctx context.Context, hash string) (*domain.Principal, error) {
					if hash != "hash_raw_token" {
						return nil, domain.ErrPrincipalNotFound
					}
					return pending(), nil
				}
			},
			validate: func(t *testing.T, result *domain.VerificationResult, deps *verificationDeps) {
				if result.AlreadyVerified {
					t.Error("expected fresh verification")
				}
				if !result.Principal.EmailVerified {
					t.Error("expected principal marked verified")
				}
				if len(deps.audit.Events) != 1 || deps.audit.Events[0].Kind != domain.VerificationRedeemedEvent {
					t.Errorf("expected VERIFICATION_REDEEMED event, got %+v", deps.audit.Events)
				}
			},
		},
		{
			name:          "empty token",
			token:         "",
			setupMocks:    func(deps *verificationDeps) {},
			expectedError: &domain.ValidationError{},
		},
		{
			name:  "unknown token",
			token: "bogus",
			setupMocks: func(deps *verificationDeps) {
				deps.store.FindByVerificationTokenHashFunc = func(ctx context.Context, hash string) (*domain.Principal, error) {
					return nil, domain.ErrPrincipalNotFound
				}
			},
			expectedError: domain.ErrTokenInvalid,
		},
		{
			name:  "expired token",
			token: "raw_token",
			setupMocks: func(deps *verificationDeps) {
				deps.store.FindByVerificationTokenHashFunc = func(ctx context.Context, hash string) (*domain.Principal, error) {
					p := pending()
					p.VerifyTokenExpiresAt = timePtr(time.Now().Add(-time.Minute))
					return p, nil
				}
			},
			expectedError: domain.ErrTokenExpired,
		},
		{
			name:  "redeeming again after verification reports success",
			token: "raw_token",
			setupMocks: func(deps *verificationDeps) {
				deps.store.FindByVerificationTokenHashFunc = func(ctx context.Context, hash string) (*domain.Principal, error) {
					p := pending()
					p.EmailVerified = true
					p.VerifyTokenUsedAt = timePtr(time.Now().Add(-time.Minute))
					return p, nil
				}
				deps.store.SetVerifiedFunc = func(ctx context.Context, id uint, verified bool) error {
					t.Error("unexpected SetVerified call for already-verified principal")
					return nil
				}
			},
			validate: func(t *testing.T, result *domain.VerificationResult, deps *verificationDeps) {
				if !result.AlreadyVerified {
					t.Error("expected AlreadyVerified")
				}
				if len(deps.audit.Events) != 0 {
					t.Errorf("expected no audit event on idempotent redemption, got %+v", deps.audit.Events)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestVerificationService(t)
			tt.setupMocks(deps)

			result, err := svc.Redeem(context.Background(), tt.token)

			if tt.expectedError != nil {
				if err == nil {
					t.Fatalf("expected error %v, got nil", tt.expectedError)
				}
				var vErr *domain.ValidationError
				if errors.As(tt.expectedError, &vErr) {
					if !domain.IsValidation(err) {
						t.Errorf("expected validation error, got %v", err)
					}
				} else if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.validate != nil {
				tt.validate(t, result, deps)
			}
		})
	}
}

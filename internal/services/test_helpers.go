package services

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/you/branchauth/domain"
	"github.com/you/branchauth/internal/mocks"
)

// Shared helpers for service tests.

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

// testPrincipal returns a verified, enabled principal with a password set
func testPrincipal(t *testing.T) *domain.Principal {
	t.Helper()
	return &domain.Principal{
		ID:              1,
		IdentityAddress: "branch@example.com",
		PasswordHash:    strPtr("hashed_correct-password"),
		LoginEnabled:    true,
		EmailVerified:   true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func testMeta() domain.RequestMeta {
	return domain.RequestMeta{
		Origin:    "203.0.113.10",
		UserAgent: "test-agent",
	}
}

type authServiceDeps struct {
	store   *mocks.MockCredentialStore
	issuer  *mocks.MockSessionTokenIssuer
	pass    *mocks.MockPasswordService
	audit   *mocks.MockAuditTrail
	limiter *mocks.MockRateLimiter
}

// newTestAuthService wires an auth gateway over fresh mocks with the
// standard 5-attempt / 15-minute policy
func newTestAuthService(t *testing.T) (*AuthServiceImpl, *authServiceDeps) {
	t.Helper()
	deps := &authServiceDeps{
		store:   mocks.NewMockCredentialStore(),
		issuer:  mocks.NewMockSessionTokenIssuer(),
		pass:    mocks.NewMockPasswordService(),
		audit:   mocks.NewMockAuditTrail(),
		limiter: mocks.NewMockRateLimiter(),
	}
	svc := NewAuthService(
		deps.store,
		deps.issuer,
		deps.pass,
		deps.audit,
		deps.limiter,
		NewLockoutPolicy(5, 15*time.Minute),
		domain.AnomalyCheck{Window: 5 * time.Minute, MaxAttempts: 3, MaxAmount: 10000},
		zap.NewNop(),
	)
	return svc, deps
}

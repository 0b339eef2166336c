package mocks

import (
	"context"
	"time"

	"github.com/you/branchauth/domain"
)

// MockCredentialStore implements domain.CredentialStore for testing
type MockCredentialStore struct {
	CreateFunc                      func(ctx context.Context, p *domain.Principal) error
	FindByIDFunc                    func(ctx context.Context, id uint) (*domain.Principal, error)
	FindByIdentityFunc              func(ctx context.Context, address string) (*domain.Principal, error)
	FindForLoginFunc                func(ctx context.Context, address string) (*domain.Principal, error)
	RecordFailedAttemptFunc         func(ctx context.Context, id uint, threshold int, lockFor time.Duration) (*domain.AttemptState, error)
	ResetOnSuccessFunc              func(ctx context.Context, id uint) error
	SetPasswordFunc                 func(ctx context.Context, id uint, hash string) error
	SetVerifiedFunc                 func(ctx context.Context, id uint, verified bool) error
	SetVerificationTokenFunc        func(ctx context.Context, id uint, tokenHash string, expiresAt time.Time) error
	MarkVerificationTokenUsedFunc   func(ctx context.Context, id uint) error
	FindByVerificationTokenHashFunc func(ctx context.Context, hash string) (*domain.Principal, error)
}

// NewMockCredentialStore creates a new MockCredentialStore with default behaviors
func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{}
}

func (m *MockCredentialStore) Create(ctx context.Context, p *domain.Principal) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	return nil
}

func (m *MockCredentialStore) FindByID(ctx context.Context, id uint) (*domain.Principal, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrPrincipalNotFound
}

func (m *MockCredentialStore) FindByIdentity(ctx context.Context, address string) (*domain.Principal, error) {
	if m.FindByIdentityFunc != nil {
		return m.FindByIdentityFunc(ctx, address)
	}
	return nil, domain.ErrPrincipalNotFound
}

func (m *MockCredentialStore) FindForLogin(ctx context.Context, address string) (*domain.Principal, error) {
	if m.FindForLoginFunc != nil {
		return m.FindForLoginFunc(ctx, address)
	}
	return nil, domain.ErrPrincipalNotFound
}

func (m *MockCredentialStore) RecordFailedAttempt(ctx context.Context, id uint, threshold int, lockFor time.Duration) (*domain.AttemptState, error) {
	if m.RecordFailedAttemptFunc != nil {
		return m.RecordFailedAttemptFunc(ctx, id, threshold, lockFor)
	}
	return &domain.AttemptState{FailedAttempts: 1}, nil
}

func (m *MockCredentialStore) ResetOnSuccess(ctx context.Context, id uint) error {
	if m.ResetOnSuccessFunc != nil {
		return m.ResetOnSuccessFunc(ctx, id)
	}
	return nil
}

func (m *MockCredentialStore) SetPassword(ctx context.Context, id uint, hash string) error {
	if m.SetPasswordFunc != nil {
		return m.SetPasswordFunc(ctx, id, hash)
	}
	return nil
}

func (m *MockCredentialStore) SetVerified(ctx context.Context, id uint, verified bool) error {
	if m.SetVerifiedFunc != nil {
		return m.SetVerifiedFunc(ctx, id, verified)
	}
	return nil
}

func (m *MockCredentialStore) SetVerificationToken(ctx context.Context, id uint, tokenHash string, expiresAt time.Time) error {
	if m.SetVerificationTokenFunc != nil {
		return m.SetVerificationTokenFunc(ctx, id, tokenHash, expiresAt)
	}
	return nil
}

func (m *MockCredentialStore) MarkVerificationTokenUsed(ctx context.Context, id uint) error {
	if m.MarkVerificationTokenUsedFunc != nil {
		return m.MarkVerificationTokenUsedFunc(ctx, id)
	}
	return nil
}

func (m *MockCredentialStore) FindByVerificationTokenHash(ctx context.Context, hash string) (*domain.Principal, error) {
	if m.FindByVerificationTokenHashFunc != nil {
		return m.FindByVerificationTokenHashFunc(ctx, hash)
	}
	return nil, domain.ErrPrincipalNotFound
}

// Compile-time interface compliance verification
var _ domain.CredentialStore = (*MockCredentialStore)(nil)

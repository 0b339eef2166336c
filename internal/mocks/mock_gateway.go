package mocks

import (
	"context"

	"github.com/you/branchauth/domain"
)

// MockAuthService implements domain.AuthService for handler tests
type MockAuthService struct {
	LoginFunc      func(ctx context.Context, address, password string, meta domain.RequestMeta) (*domain.LoginResult, error)
	LogoutFunc     func(ctx context.Context, token string) error
	IntrospectFunc func(ctx context.Context, token string) (*domain.Principal, error)
}

func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

func (m *MockAuthService) Login(ctx context.Context, address, password string, meta domain.RequestMeta) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, address, password, meta)
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, token)
	}
	return nil
}

func (m *MockAuthService) Introspect(ctx context.Context, token string) (*domain.Principal, error) {
	if m.IntrospectFunc != nil {
		return m.IntrospectFunc(ctx, token)
	}
	return nil, domain.ErrTokenInvalid
}

// MockVerificationService implements domain.VerificationService for handler tests
type MockVerificationService struct {
	InitiateFunc func(ctx context.Context, address string, meta domain.RequestMeta) error
	ResendFunc   func(ctx context.Context, address string, meta domain.RequestMeta) error
	RedeemFunc   func(ctx context.Context, token string) (*domain.VerificationResult, error)
}

func NewMockVerificationService() *MockVerificationService {
	return &MockVerificationService{}
}

func (m *MockVerificationService) Initiate(ctx context.Context, address string, meta domain.RequestMeta) error {
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, address, meta)
	}
	return nil
}

func (m *MockVerificationService) Resend(ctx context.Context, address string, meta domain.RequestMeta) error {
	if m.ResendFunc != nil {
		return m.ResendFunc(ctx, address, meta)
	}
	return nil
}

func (m *MockVerificationService) Redeem(ctx context.Context, token string) (*domain.VerificationResult, error) {
	if m.RedeemFunc != nil {
		return m.RedeemFunc(ctx, token)
	}
	return nil, domain.ErrTokenInvalid
}

// MockResetService implements domain.ResetService for handler tests
type MockResetService struct {
	RequestFunc func(ctx context.Context, address string, meta domain.RequestMeta) error
	RedeemFunc  func(ctx context.Context, token, newPassword string, meta domain.RequestMeta) error
}

func NewMockResetService() *MockResetService {
	return &MockResetService{}
}

func (m *MockResetService) Request(ctx context.Context, address string, meta domain.RequestMeta) error {
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, address, meta)
	}
	return nil
}

func (m *MockResetService) Redeem(ctx context.Context, token, newPassword string, meta domain.RequestMeta) error {
	if m.RedeemFunc != nil {
		return m.RedeemFunc(ctx, token, newPassword, meta)
	}
	return nil
}

// Compile-time interface compliance verification
var (
	_ domain.AuthService         = (*MockAuthService)(nil)
	_ domain.VerificationService = (*MockVerificationService)(nil)
	_ domain.ResetService        = (*MockResetService)(nil)
)

package mocks

import (
	"context"
	"time"

	"github.com/you/branchauth/domain"
)

// MockPasswordService implements domain.PasswordService for testing
type MockPasswordService struct {
	HashFunc   func(password string) (string, error)
	VerifyFunc func(hashedPassword, password string) bool
}

func NewMockPasswordService() *MockPasswordService {
	return &MockPasswordService{}
}

func (m *MockPasswordService) Hash(password string) (string, error) {
	if m.HashFunc != nil {
		return m.HashFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *MockPasswordService) Verify(hashedPassword, password string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(hashedPassword, password)
	}
	return hashedPassword == "hashed_"+password
}

// MockTokenGenerator implements domain.TokenGenerator for testing.
// Deterministic: hash is "hash_" + raw.
type MockTokenGenerator struct {
	GenerateFunc func() (string, string, error)
	HashOfFunc   func(raw string) string
}

func NewMockTokenGenerator() *MockTokenGenerator {
	return &MockTokenGenerator{}
}

func (m *MockTokenGenerator) Generate() (string, string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	return "raw_token", "hash_raw_token", nil
}

func (m *MockTokenGenerator) HashOf(raw string) string {
	if m.HashOfFunc != nil {
		return m.HashOfFunc(raw)
	}
	return "hash_" + raw
}

// MockNotifier implements domain.Notifier for testing
type MockNotifier struct {
	SendFunc func(ctx context.Context, kind domain.MessageKind, address string, params map[string]string) error
	Sent     []SentMessage
}

// SentMessage captures a dispatched notification for assertions
type SentMessage struct {
	Kind    domain.MessageKind
	Address string
	Params  map[string]string
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Send(ctx context.Context, kind domain.MessageKind, address string, params map[string]string) error {
	m.Sent = append(m.Sent, SentMessage{Kind: kind, Address: address, Params: params})
	if m.SendFunc != nil {
		return m.SendFunc(ctx, kind, address, params)
	}
	return nil
}

// MockRateLimiter implements domain.RateLimiter for testing
type MockRateLimiter struct {
	AllowFunc func(ctx context.Context, purpose, origin, identity string) (bool, time.Duration, error)
}

func NewMockRateLimiter() *MockRateLimiter {
	return &MockRateLimiter{}
}

func (m *MockRateLimiter) Allow(ctx context.Context, purpose, origin, identity string) (bool, time.Duration, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, purpose, origin, identity)
	}
	return true, 0, nil
}

// MockAuditTrail implements domain.AuditTrail for testing
type MockAuditTrail struct {
	RecordFunc             func(ctx context.Context, event *domain.AuditEvent) (string, error)
	RecordLoginAttemptFunc func(ctx context.Context, attempt *domain.LoginAttempt) error
	DetectAnomaliesFunc    func(ctx context.Context, principalID uint, check domain.AnomalyCheck) ([]domain.Anomaly, error)
	Events                 []*domain.AuditEvent
	Attempts               []*domain.LoginAttempt
}

func NewMockAuditTrail() *MockAuditTrail {
	return &MockAuditTrail{}
}

func (m *MockAuditTrail) Record(ctx context.Context, event *domain.AuditEvent) (string, error) {
	m.Events = append(m.Events, event)
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, event)
	}
	return "event-id", nil
}

func (m *MockAuditTrail) RecordLoginAttempt(ctx context.Context, attempt *domain.LoginAttempt) error {
	m.Attempts = append(m.Attempts, attempt)
	if m.RecordLoginAttemptFunc != nil {
		return m.RecordLoginAttemptFunc(ctx, attempt)
	}
	return nil
}

func (m *MockAuditTrail) DetectAnomalies(ctx context.Context, principalID uint, check domain.AnomalyCheck) ([]domain.Anomaly, error) {
	if m.DetectAnomaliesFunc != nil {
		return m.DetectAnomaliesFunc(ctx, principalID, check)
	}
	return nil, nil
}

// MockSessionTokenIssuer implements domain.SessionTokenIssuer for testing
type MockSessionTokenIssuer struct {
	IssueFunc    func(ctx context.Context, p *domain.Principal, meta domain.RequestMeta) (*domain.IssuedToken, error)
	RevokeFunc   func(ctx context.Context, token string) error
	ValidateFunc func(ctx context.Context, token string) (*domain.Principal, error)
}

func NewMockSessionTokenIssuer() *MockSessionTokenIssuer {
	return &MockSessionTokenIssuer{}
}

func (m *MockSessionTokenIssuer) Issue(ctx context.Context, p *domain.Principal, meta domain.RequestMeta) (*domain.IssuedToken, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, p, meta)
	}
	return &domain.IssuedToken{Token: "session_token", ExpiresAt: time.Now().Add(24 * time.Hour)}, nil
}

func (m *MockSessionTokenIssuer) Revoke(ctx context.Context, token string) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, token)
	}
	return nil
}

func (m *MockSessionTokenIssuer) Validate(ctx context.Context, token string) (*domain.Principal, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, token)
	}
	return nil, domain.ErrTokenInvalid
}

// Compile-time interface compliance verification
var (
	_ domain.PasswordService    = (*MockPasswordService)(nil)
	_ domain.TokenGenerator     = (*MockTokenGenerator)(nil)
	_ domain.Notifier           = (*MockNotifier)(nil)
	_ domain.RateLimiter        = (*MockRateLimiter)(nil)
	_ domain.AuditTrail         = (*MockAuditTrail)(nil)
	_ domain.SessionTokenIssuer = (*MockSessionTokenIssuer)(nil)
)

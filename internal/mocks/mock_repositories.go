package mocks

import (
	"context"
	"time"

	"github.com/you/branchauth/domain"
)

// MockResetTokenRepository implements domain.ResetTokenRepository for testing
type MockResetTokenRepository struct {
	ReplaceFunc            func(ctx context.Context, token *domain.ResetToken) error
	FindByHashFunc         func(ctx context.Context, hash string) (*domain.ResetToken, error)
	MarkUsedFunc           func(ctx context.Context, id string, usedAt time.Time) (bool, error)
	ClearUsedFunc          func(ctx context.Context, id string) error
	DeleteForPrincipalFunc func(ctx context.Context, principalID uint) error
}

func NewMockResetTokenRepository() *MockResetTokenRepository {
	return &MockResetTokenRepository{}
}

func (m *MockResetTokenRepository) Replace(ctx context.Context, token *domain.ResetToken) error {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, token)
	}
	return nil
}

func (m *MockResetTokenRepository) FindByHash(ctx context.Context, hash string) (*domain.ResetToken, error) {
	if m.FindByHashFunc != nil {
		return m.FindByHashFunc(ctx, hash)
	}
	return nil, domain.ErrTokenInvalidOrUsed
}

func (m *MockResetTokenRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error) {
	if m.MarkUsedFunc != nil {
		return m.MarkUsedFunc(ctx, id, usedAt)
	}
	return true, nil
}

func (m *MockResetTokenRepository) ClearUsed(ctx context.Context, id string) error {
	if m.ClearUsedFunc != nil {
		return m.ClearUsedFunc(ctx, id)
	}
	return nil
}

func (m *MockResetTokenRepository) DeleteForPrincipal(ctx context.Context, principalID uint) error {
	if m.DeleteForPrincipalFunc != nil {
		return m.DeleteForPrincipalFunc(ctx, principalID)
	}
	return nil
}

// MockSessionRepository implements domain.SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc            func(ctx context.Context, session *domain.ActiveSession) error
	FindByTokenHashFunc   func(ctx context.Context, hash string) (*domain.ActiveSession, error)
	DeleteByTokenHashFunc func(ctx context.Context, hash string) error
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{}
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.ActiveSession) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionRepository) FindByTokenHash(ctx context.Context, hash string) (*domain.ActiveSession, error) {
	if m.FindByTokenHashFunc != nil {
		return m.FindByTokenHashFunc(ctx, hash)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) DeleteByTokenHash(ctx context.Context, hash string) error {
	if m.DeleteByTokenHashFunc != nil {
		return m.DeleteByTokenHashFunc(ctx, hash)
	}
	return nil
}

// MockAuditRepository implements domain.AuditRepository for testing
type MockAuditRepository struct {
	InsertEventFunc        func(ctx context.Context, event *domain.AuditEvent) error
	InsertLoginAttemptFunc func(ctx context.Context, attempt *domain.LoginAttempt) error
	CountEventsSinceFunc   func(ctx context.Context, principalID uint, kind domain.AuditEventKind, since time.Time) (int64, error)
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) InsertEvent(ctx context.Context, event *domain.AuditEvent) error {
	if m.InsertEventFunc != nil {
		return m.InsertEventFunc(ctx, event)
	}
	return nil
}

func (m *MockAuditRepository) InsertLoginAttempt(ctx context.Context, attempt *domain.LoginAttempt) error {
	if m.InsertLoginAttemptFunc != nil {
		return m.InsertLoginAttemptFunc(ctx, attempt)
	}
	return nil
}

func (m *MockAuditRepository) CountEventsSince(ctx context.Context, principalID uint, kind domain.AuditEventKind, since time.Time) (int64, error) {
	if m.CountEventsSinceFunc != nil {
		return m.CountEventsSinceFunc(ctx, principalID, kind, since)
	}
	return 0, nil
}

// Compile-time interface compliance verification
var (
	_ domain.ResetTokenRepository = (*MockResetTokenRepository)(nil)
	_ domain.SessionRepository    = (*MockSessionRepository)(nil)
	_ domain.AuditRepository      = (*MockAuditRepository)(nil)
)

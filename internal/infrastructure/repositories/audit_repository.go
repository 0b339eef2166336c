package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/you/branchauth/domain"
)

// AuditRepositoryImpl implements domain.AuditRepository using GORM.
// Both tables are append-only; rows are never updated or deleted here.
type AuditRepositoryImpl struct {
	db *gorm.DB
}

// DBAuditEvent represents the database model for AuditEvent
type DBAuditEvent struct {
	ID            string `gorm:"primaryKey;size:36"`
	Kind          string `gorm:"index;size:64"`
	PrincipalID   *uint  `gorm:"index"`
	Origin        string `gorm:"size:64"`
	Details       string `gorm:"type:text"`
	Severity      string `gorm:"index;size:16"`
	PreviousState *string
	NewState      *string
	Metadata      string    `gorm:"type:text"`
	OccurredAt    time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBAuditEvent) TableName() string {
	return "audit_events"
}

// DBLoginAttempt represents the database model for LoginAttempt
type DBLoginAttempt struct {
	ID          uint   `gorm:"primaryKey"`
	PrincipalID *uint  `gorm:"index"`
	Origin      string `gorm:"size:64"`
	UserAgent   string `gorm:"size:255"`
	Outcome     string `gorm:"index;size:16"`
	Reason      string `gorm:"size:64"`
	OccurredAt  time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBLoginAttempt) TableName() string {
	return "login_attempts"
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) domain.AuditRepository {
	return &AuditRepositoryImpl{db: db}
}

// InsertEvent implements domain.AuditRepository
func (r *AuditRepositoryImpl) InsertEvent(ctx context.Context, event *domain.AuditEvent) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	row := &DBAuditEvent{
		ID:            event.ID,
		Kind:          string(event.Kind),
		PrincipalID:   event.PrincipalID,
		Origin:        event.Origin,
		Details:       string(details),
		Severity:      string(event.Severity),
		PreviousState: event.PreviousState,
		NewState:      event.NewState,
		Metadata:      string(metadata),
		OccurredAt:    event.OccurredAt,
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}

// InsertLoginAttempt implements domain.AuditRepository
func (r *AuditRepositoryImpl) InsertLoginAttempt(ctx context.Context, attempt *domain.LoginAttempt) error {
	row := &DBLoginAttempt{
		PrincipalID: attempt.PrincipalID,
		Origin:      attempt.Origin,
		UserAgent:   attempt.UserAgent,
		Outcome:     string(attempt.Outcome),
		Reason:      attempt.Reason,
		OccurredAt:  attempt.OccurredAt,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	attempt.ID = row.ID
	return nil
}

// CountEventsSince implements domain.AuditRepository
func (r *AuditRepositoryImpl) CountEventsSince(ctx context.Context, principalID uint, kind domain.AuditEventKind, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&DBAuditEvent{}).
		Where("principal_id = ? AND kind = ? AND occurred_at >= ?", principalID, string(kind), since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return count, nil
}

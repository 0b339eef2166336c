package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/you/branchauth/domain"
)

// ResetTokenRepositoryImpl implements domain.ResetTokenRepository using GORM
type ResetTokenRepositoryImpl struct {
	db *gorm.DB
}

// DBResetToken represents the database model for ResetToken
type DBResetToken struct {
	ID          string `gorm:"primaryKey;size:36"`
	PrincipalID uint   `gorm:"index;not null"`
	TokenHash   string `gorm:"uniqueIndex;size:64"`
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (DBResetToken) TableName() string {
	return "password_reset_tokens"
}

// NewResetTokenRepository creates a new reset token repository
func NewResetTokenRepository(db *gorm.DB) domain.ResetTokenRepository {
	return &ResetTokenRepositoryImpl{db: db}
}

// Replace implements domain.ResetTokenRepository. Deleting prior rows and
// inserting the new one run in one transaction so at most one unused,
// unexpired token exists per principal.
func (r *ResetTokenRepositoryImpl) Replace(ctx context.Context, token *domain.ResetToken) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("principal_id = ?", token.PrincipalID).Delete(&DBResetToken{}).Error; err != nil {
			return err
		}
		return tx.Create(r.domainToDB(token)).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}

// FindByHash implements domain.ResetTokenRepository
func (r *ResetTokenRepositoryImpl) FindByHash(ctx context.Context, hash string) (*domain.ResetToken, error) {
	var dbToken DBResetToken
	err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&dbToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenInvalidOrUsed
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return r.dbToDomain(&dbToken), nil
}

// MarkUsed implements domain.ResetTokenRepository. The conditional update
// guarantees exactly one of two concurrent redemptions wins.
func (r *ResetTokenRepositoryImpl) MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&DBResetToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", usedAt)
	if res.Error != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStore, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ClearUsed implements domain.ResetTokenRepository
func (r *ResetTokenRepositoryImpl) ClearUsed(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&DBResetToken{}).
		Where("id = ?", id).
		Update("used_at", nil).Error
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}

// DeleteForPrincipal implements domain.ResetTokenRepository
func (r *ResetTokenRepositoryImpl) DeleteForPrincipal(ctx context.Context, principalID uint) error {
	err := r.db.WithContext(ctx).Where("principal_id = ?", principalID).Delete(&DBResetToken{}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}

func (r *ResetTokenRepositoryImpl) domainToDB(token *domain.ResetToken) *DBResetToken {
	return &DBResetToken{
		ID:          token.ID,
		PrincipalID: token.PrincipalID,
		TokenHash:   token.TokenHash,
		ExpiresAt:   token.ExpiresAt,
		UsedAt:      token.UsedAt,
		CreatedAt:   token.CreatedAt,
	}
}

func (r *ResetTokenRepositoryImpl) dbToDomain(dbToken *DBResetToken) *domain.ResetToken {
	return &domain.ResetToken{
		ID:          dbToken.ID,
		PrincipalID: dbToken.PrincipalID,
		TokenHash:   dbToken.TokenHash,
		ExpiresAt:   dbToken.ExpiresAt,
		UsedAt:      dbToken.UsedAt,
		CreatedAt:   dbToken.CreatedAt,
	}
}

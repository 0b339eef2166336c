package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/you/branchauth/domain"
)

// PrincipalRepositoryImpl implements domain.CredentialStore using GORM
type PrincipalRepositoryImpl struct {
	db *gorm.DB
}

// DBPrincipal represents the database model for Principal (with GORM tags)
type DBPrincipal struct {
	ID                   uint       `gorm:"primaryKey"`
	IdentityAddress      string     `gorm:"uniqueIndex;size:255"`
	PasswordHash         *string    `gorm:"size:255"`
	LoginEnabled         bool       `gorm:"index"`
	EmailVerified        bool       `gorm:"index"`
	FailedAttempts       int        `gorm:"not null;default:0"`
	LockedUntil          *time.Time `gorm:"index"`
	LastLoginAt          *time.Time
	VerifyTokenHash      *string `gorm:"index;size:64"`
	VerifyTokenExpiresAt *time.Time
	VerifyTokenUsedAt    *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName returns the table name for GORM
func (DBPrincipal) TableName() string {
	return "principals"
}

// NewPrincipalRepository creates a new principal repository
func NewPrincipalRepository(db *gorm.DB) domain.CredentialStore {
	return &PrincipalRepositoryImpl{db: db}
}

// Create implements domain.CredentialStore
func (r *PrincipalRepositoryImpl) Create(ctx context.Context, p *domain.Principal) error {
	dbPrincipal := r.domainToDB(p)
	dbPrincipal.IdentityAddress = strings.ToLower(dbPrincipal.IdentityAddress)
	if err := r.db.WithContext(ctx).Create(dbPrincipal).Error; err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	p.ID = dbPrincipal.ID
	return nil
}

// FindByID implements domain.CredentialStore
func (r *PrincipalRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Principal, error) {
	var dbPrincipal DBPrincipal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dbPrincipal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return r.dbToDomain(&dbPrincipal), nil
}

// FindByIdentity implements domain.CredentialStore
func (r *PrincipalRepositoryImpl) FindByIdentity(ctx context.Context, address string) (*domain.Principal, error) {
	var dbPrincipal DBPrincipal
	err := r.db.WithContext(ctx).
		Where("identity_address = ?", strings.ToLower(address)).
		First(&dbPrincipal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return r.dbToDomain(&dbPrincipal), nil
}

// FindForLogin implements domain.CredentialStore. A disabled principal is
// invisible to the login path.
func (r *PrincipalRepositoryImpl) FindForLogin(ctx context.Context, address string) (*domain.Principal, error) {
	var dbPrincipal DBPrincipal
	err := r.db.WithContext(ctx).
		Where("identity_address = ? AND login_enabled = ?", strings.ToLower(address), true).
		First(&dbPrincipal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return r.dbToDomain(&dbPrincipal), nil
}

// RecordFailedAttempt implements domain.CredentialStore. The increment and
// lock evaluation happen in a single statement so concurrent failures never
// lose an update. The lock clock starts at the crossing failure and is not
// extended while an unexpired lock exists.
func (r *PrincipalRepositoryImpl) RecordFailedAttempt(ctx context.Context, id uint, threshold int, lockFor time.Duration) (*domain.AttemptState, error) {
	now := time.Now().UTC()
	lockUntil := now.Add(lockFor)

	row := r.db.WithContext(ctx).Raw(`
		UPDATE principals
		SET failed_attempts = failed_attempts + 1,
		    locked_until = CASE
		        WHEN failed_attempts + 1 >= ? AND (locked_until IS NULL OR locked_until <= ?) THEN ?
		        ELSE locked_until
		    END,
		    updated_at = ?
		WHERE id = ?
		RETURNING failed_attempts, locked_until`,
		threshold, now, lockUntil, now, id).Row()

	var state domain.AttemptState
	if err := row.Scan(&state.FailedAttempts, &state.LockedUntil); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return &state, nil
}

// ResetOnSuccess implements domain.CredentialStore
func (r *PrincipalRepositoryImpl) ResetOnSuccess(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&DBPrincipal{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"failed_attempts": 0,
			"locked_until":    nil,
			"last_login_at":   time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}

// SetPassword implements domain.CredentialStore
func (r *PrincipalRepositoryImpl) SetPassword(ctx context.Context, id uint, hash string) error {
	err := r.db.WithContext(ctx).Model(&DBPrincipal{}).Where("id = ?", id).
		Update("password_hash", hash).Error
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}

// SetVerified implements domain.CredentialStore
func (r *PrincipalRepositoryImpl) SetVerified(ctx context.Context, id uint, verified bool) error {
	err := r.db.WithContext(ctx).Model(&DBPrincipal{}).Where("id = ?", id).
		Update("email_verified", verified).Error
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}

// SetVerificationToken implements domain.CredentialStore. Overwrites any
// prior token in place, keeping one live token per principal.
func (r *PrincipalRepositoryImpl) SetVerificationToken(ctx context.Context, id uint, tokenHash string, expiresAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&DBPrincipal{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"verify_token_hash":       tokenHash,
			"verify_token_expires_at": expiresAt,
			"verify_token_used_at":    nil,
		}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}

// MarkVerificationTokenUsed implements domain.CredentialStore
func (r *PrincipalRepositoryImpl) MarkVerificationTokenUsed(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&DBPrincipal{}).Where("id = ?", id).
		Update("verify_token_used_at", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}

// FindByVerificationTokenHash implements domain.CredentialStore
func (r *PrincipalRepositoryImpl) FindByVerificationTokenHash(ctx context.Context, hash string) (*domain.Principal, error) {
	var dbPrincipal DBPrincipal
	err := r.db.WithContext(ctx).Where("verify_token_hash = ?", hash).First(&dbPrincipal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return r.dbToDomain(&dbPrincipal), nil
}

// domainToDB converts a domain principal to the database model
func (r *PrincipalRepositoryImpl) domainToDB(p *domain.Principal) *DBPrincipal {
	return &DBPrincipal{
		ID:                   p.ID,
		IdentityAddress:      p.IdentityAddress,
		PasswordHash:         p.PasswordHash,
		LoginEnabled:         p.LoginEnabled,
		EmailVerified:        p.EmailVerified,
		FailedAttempts:       p.FailedAttempts,
		LockedUntil:          p.LockedUntil,
		LastLoginAt:          p.LastLoginAt,
		VerifyTokenHash:      p.VerifyTokenHash,
		VerifyTokenExpiresAt: p.VerifyTokenExpiresAt,
		VerifyTokenUsedAt:    p.VerifyTokenUsedAt,
	}
}

// dbToDomain converts a database model to the domain principal
func (r *PrincipalRepositoryImpl) dbToDomain(dbPrincipal *DBPrincipal) *domain.Principal {
	return &domain.Principal{
		ID:                   dbPrincipal.ID,
		IdentityAddress:      dbPrincipal.IdentityAddress,
		PasswordHash:         dbPrincipal.PasswordHash,
		LoginEnabled:         dbPrincipal.LoginEnabled,
		EmailVerified:        dbPrincipal.EmailVerified,
		FailedAttempts:       dbPrincipal.FailedAttempts,
		LockedUntil:          dbPrincipal.LockedUntil,
		LastLoginAt:          dbPrincipal.LastLoginAt,
		VerifyTokenHash:      dbPrincipal.VerifyTokenHash,
		VerifyTokenExpiresAt: dbPrincipal.VerifyTokenExpiresAt,
		VerifyTokenUsedAt:    dbPrincipal.VerifyTokenUsedAt,
		CreatedAt:            dbPrincipal.CreatedAt,
		UpdatedAt:            dbPrincipal.UpdatedAt,
	}
}

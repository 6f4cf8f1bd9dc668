package repository

import (
	"context"
	"errors"
	"time"

	"civicboard/internal/models"
	"civicboard/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BanRepository defines the interface for ban registry operations.
// Activity is always derived from expires_at at read time; there is no
// stored "banned" boolean and no background expiry job.
type BanRepository interface {
	// Issue creates a ban for the user, replacing any existing row.
	Issue(ctx context.Context, userID, issuedBy uint, duration models.BanDuration, reason string) (*models.Ban, error)
	// Status is a pure read of the user's ban state at the current instant.
	Status(ctx context.Context, userID uint) (*models.BanStatus, error)
	// Revoke lifts the user's ban. Idempotent when no ban exists.
	Revoke(ctx context.Context, userID uint) error
}

type banRepository struct {
	db *gorm.DB
	// now is injectable so boundary behavior is testable to the minute.
	now func() time.Time
}

// NewBanRepository creates a new ban repository
func NewBanRepository(db *gorm.DB) BanRepository {
	return &banRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// NewBanRepositoryWithClock creates a ban repository with a custom clock.
// Intended for tests exercising expiry boundaries.
func NewBanRepositoryWithClock(db *gorm.DB, now func() time.Time) BanRepository {
	return &banRepository{db: db, now: now}
}

func (r *banRepository) Issue(ctx context.Context, userID, issuedBy uint, duration models.BanDuration, reason string) (*models.Ban, error) {
	issuedAt := r.now()
	expiresAt, ok := duration.ExpiryFrom(issuedAt)
	if !ok {
		return nil, models.NewValidationError("Duration must be one of 24h, 7d, permanent")
	}

	ban := models.Ban{
		UserID:    userID,
		IssuedBy:  issuedBy,
		Reason:    reason,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}

	// One row per user: a second ban replaces the first, active or not.
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"issued_by":  issuedBy,
			"reason":     reason,
			"issued_at":  issuedAt,
			"expires_at": expiresAt,
			"updated_at": issuedAt,
		}),
	}).Create(&ban).Error; err != nil {
		return nil, err
	}

	observability.BansIssued.WithLabelValues(string(duration)).Inc()
	return &ban, nil
}

func (r *banRepository) Status(ctx context.Context, userID uint) (*models.BanStatus, error) {
	var ban models.Ban
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&ban).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.BanStatus{Active: false}, nil
		}
		return nil, err
	}

	if !ban.ActiveAt(r.now()) {
		// Expired rows stay in place until replaced or revoked; they just
		// read as inactive.
		return &models.BanStatus{Active: false}, nil
	}

	return &models.BanStatus{
		Active:    true,
		ExpiresAt: ban.ExpiresAt,
		Reason:    ban.Reason,
		IssuedBy:  ban.IssuedBy,
	}, nil
}

func (r *banRepository) Revoke(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Ban{}).Error
}

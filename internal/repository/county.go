package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"civicboard/internal/models"

	"gorm.io/gorm"
)

// CountyRepository defines the interface for county assignment operations.
type CountyRepository interface {
	// Assign commits the batch of counties to the admin, all-or-nothing.
	// A county held by a different admin aborts the whole batch with a
	// Conflict naming that county. Re-assigning a county the admin already
	// holds is a no-op. Returns the admin's full post-commit set.
	Assign(ctx context.Context, adminID uint, counties []string) ([]string, error)
	// ListByAdmin returns the counties currently held by the admin.
	ListByAdmin(ctx context.Context, adminID uint) ([]string, error)
	// Holds reports whether the admin currently holds the county.
	Holds(ctx context.Context, adminID uint, county string) (bool, error)
}

type countyRepository struct {
	db *gorm.DB
}

// NewCountyRepository creates a new county assignment repository
func NewCountyRepository(db *gorm.DB) CountyRepository {
	return &countyRepository{db: db}
}

func (r *countyRepository) Assign(ctx context.Context, adminID uint, counties []string) ([]string, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, raw := range counties {
			county := strings.TrimSpace(raw)
			if county == "" {
				return models.NewValidationError("County name must not be empty")
			}

			// Conditional insert against the unique index on county. Two
			// admins racing for the same free county cannot both win: the
			// loser's insert matches zero rows and the follow-up read sees
			// the winner.
			if err := tx.Exec(
				`INSERT INTO county_assignments (county, admin_id, created_at, updated_at)
				 VALUES (?, ?, ?, ?)
				 ON CONFLICT (county) DO NOTHING`,
				county, adminID, now, now,
			).Error; err != nil {
				return err
			}

			var holder models.CountyAssignment
			if err := tx.Where("county = ?", county).First(&holder).Error; err != nil {
				return err
			}
			if holder.AdminID != adminID {
				return models.NewConflictError(county)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.ListByAdmin(ctx, adminID)
}

func (r *countyRepository) ListByAdmin(ctx context.Context, adminID uint) ([]string, error) {
	var counties []string
	err := r.db.WithContext(ctx).
		Model(&models.CountyAssignment{}).
		Where("admin_id = ?", adminID).
		Pluck("county", &counties).Error
	if err != nil {
		return nil, err
	}
	sort.Strings(counties)
	return counties, nil
}

func (r *countyRepository) Holds(ctx context.Context, adminID uint, county string) (bool, error) {
	var assignment models.CountyAssignment
	err := r.db.WithContext(ctx).
		Where("county = ? AND admin_id = ?", county, adminID).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

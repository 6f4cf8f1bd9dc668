package repository

import (
	"context"
	"time"

	"civicboard/internal/cache"
	"civicboard/internal/models"
	"civicboard/internal/observability"

	"gorm.io/gorm"
)

// AppraisalRepository defines the interface for appraisal data operations.
type AppraisalRepository interface {
	// Toggle flips the caller's appraisal of the item and returns the
	// post-toggle flag together with the freshly recomputed count. The flip
	// and the recount run in one transaction so concurrent toggles serialize
	// to a deterministic final state.
	Toggle(ctx context.Context, userID, itemID uint, kind models.ItemKind) (*models.AppraisalStatus, error)
	// Status is a pure read: the caller's current flag and the live count.
	Status(ctx context.Context, userID, itemID uint, kind models.ItemKind) (*models.AppraisalStatus, error)
}

type appraisalRepository struct {
	db *gorm.DB
}

// NewAppraisalRepository creates a new appraisal repository
func NewAppraisalRepository(db *gorm.DB) AppraisalRepository {
	return &appraisalRepository{db: db}
}

// itemExists verifies the (id, kind) pair names a real item.
func (r *appraisalRepository) itemExists(ctx context.Context, tx *gorm.DB, itemID uint, kind models.ItemKind) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND kind = ?", itemID, kind).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return models.NewNotFoundError("item", itemID)
	}
	return nil
}

func (r *appraisalRepository) Toggle(ctx context.Context, userID, itemID uint, kind models.ItemKind) (*models.AppraisalStatus, error) {
	status := &models.AppraisalStatus{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.itemExists(ctx, tx, itemID, kind); err != nil {
			return err
		}

		// Hard delete first: if a row was there, this toggle turns the
		// appraisal off.
		res := tx.Where("user_id = ? AND item_id = ? AND item_kind = ?", userID, itemID, kind).
			Delete(&models.Appraisal{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			status.Liked = false
		} else {
			// Nothing to delete, so this toggle turns the appraisal on.
			// ON CONFLICT DO NOTHING absorbs a same-instant duplicate from a
			// racing request: either way the row exists afterwards.
			if err := tx.Exec(
				`INSERT INTO appraisals (user_id, item_id, item_kind, created_at)
				 VALUES (?, ?, ?, ?)
				 ON CONFLICT (user_id, item_id, item_kind) DO NOTHING`,
				userID, itemID, kind, time.Now().UTC(),
			).Error; err != nil {
				return err
			}
			status.Liked = true
		}

		// Recount inside the same transaction; never trust a cached tally.
		return tx.Model(&models.Appraisal{}).
			Where("item_id = ? AND item_kind = ?", itemID, kind).
			Count(&status.Count).Error
	})
	if err != nil {
		return nil, err
	}

	cache.Invalidate(ctx, cache.ItemKey(itemID))
	if status.Liked {
		observability.AppraisalToggles.WithLabelValues("liked").Inc()
	} else {
		observability.AppraisalToggles.WithLabelValues("unliked").Inc()
	}
	return status, nil
}

func (r *appraisalRepository) Status(ctx context.Context, userID, itemID uint, kind models.ItemKind) (*models.AppraisalStatus, error) {
	if err := r.itemExists(ctx, r.db, itemID, kind); err != nil {
		return nil, err
	}

	status := &models.AppraisalStatus{}
	if err := r.db.WithContext(ctx).
		Model(&models.Appraisal{}).
		Where("item_id = ? AND item_kind = ?", itemID, kind).
		Count(&status.Count).Error; err != nil {
		return nil, err
	}

	if userID != 0 {
		var mine int64
		if err := r.db.WithContext(ctx).
			Model(&models.Appraisal{}).
			Where("user_id = ? AND item_id = ? AND item_kind = ?", userID, itemID, kind).
			Count(&mine).Error; err != nil {
			return nil, err
		}
		status.Liked = mine > 0
	}

	return status, nil
}

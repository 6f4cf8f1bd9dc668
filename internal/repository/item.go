// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"civicboard/internal/cache"
	"civicboard/internal/models"

	"gorm.io/gorm"
)

// ItemFilter narrows public item listings.
type ItemFilter struct {
	Kind   models.ItemKind // empty = both kinds
	County string          // empty = all counties
}

// ItemRepository defines the interface for item data operations
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Item, error)
	List(ctx context.Context, filter ItemFilter, limit, offset int, currentUserID uint) ([]*models.Item, error)
	// TrendingCandidates returns public, non-rejected items of the given
	// kinds with their current appraisal counts. Ranking happens in the
	// trending service; this is just the eligible row set.
	TrendingCandidates(ctx context.Context, kinds []models.ItemKind) ([]*models.Item, error)
}

// itemRepository implements ItemRepository
type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Item, error) {
	var item models.Item

	var err error
	if currentUserID == 0 {
		// Anonymous reads share one cached representation.
		err = cache.Aside(ctx, cache.ItemKey(id), &item, cache.ItemTTL, func() error {
			return r.applyItemDetails(r.db.WithContext(ctx), 0).First(&item, id).Error
		})
	} else {
		err = r.applyItemDetails(r.db.WithContext(ctx), currentUserID).First(&item, id).Error
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("item", id)
		}
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) List(ctx context.Context, filter ItemFilter, limit, offset int, currentUserID uint) ([]*models.Item, error) {
	var items []*models.Item
	q := r.applyItemDetails(r.db.WithContext(ctx), currentUserID).
		Where("items.visibility = ?", models.VisibilityPublic)
	if filter.Kind != "" {
		q = q.Where("items.kind = ?", filter.Kind)
	}
	if filter.County != "" {
		q = q.Where("items.county = ?", filter.County)
	}
	err := q.Order("items.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	return items, err
}

func (r *itemRepository) TrendingCandidates(ctx context.Context, kinds []models.ItemKind) ([]*models.Item, error) {
	var items []*models.Item
	err := r.applyItemDetails(r.db.WithContext(ctx), 0).
		Where("items.visibility = ?", models.VisibilityPublic).
		Where("items.status <> ?", models.StatusRejected).
		Where("items.kind IN ?", kinds).
		Find(&items).Error
	return items, err
}

// applyItemDetails adds subqueries to fetch the appraisal count and the
// requesting user's liked flag in a single query.
func (r *itemRepository) applyItemDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	selectQuery := "items.*, " +
		"(SELECT COUNT(*) FROM appraisals WHERE appraisals.item_id = items.id AND appraisals.item_kind = items.kind) as appraisal_count"

	if currentUserID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM appraisals WHERE appraisals.item_id = items.id AND appraisals.item_kind = items.kind AND appraisals.user_id = ?) as liked", currentUserID)
	}

	return db.Select(selectQuery + ", false as liked")
}

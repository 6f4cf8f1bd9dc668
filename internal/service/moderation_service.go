package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"civicboard/internal/cache"
	"civicboard/internal/models"
	"civicboard/internal/observability"
	"civicboard/internal/repository"

	"gorm.io/gorm"
)

// ModerationService moves items through their status lifecycle. It is the
// only writer of status, admin_note, admin_action_at and admin_action_by.
type ModerationService struct {
	db       *gorm.DB
	counties repository.CountyRepository
	now      func() time.Time
}

// NewModerationService returns a new ModerationService.
func NewModerationService(db *gorm.DB, counties repository.CountyRepository) *ModerationService {
	return &ModerationService{
		db:       db,
		counties: counties,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Transition attempts to move the item to targetStatus on behalf of actorID.
//
// The actor must hold the item's county. targetStatus must be a legal direct
// successor of the current status. Transitions into accepted or rejected
// require a non-empty note; the note and the status commit atomically. Under
// concurrent transitions from the same starting status, the update's WHERE
// clause guards the current status so the loser observes InvalidTransition
// rather than silently overwriting the winner.
func (s *ModerationService) Transition(ctx context.Context, itemID, actorID uint, targetStatus models.ItemStatus, note string) (*models.Item, error) {
	if !targetStatus.Valid() {
		return nil, models.NewValidationError("Unknown target status")
	}

	var item models.Item
	if err := s.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("item", itemID)
		}
		return nil, err
	}

	holds, err := s.counties.Holds(ctx, actorID, item.County)
	if err != nil {
		return nil, err
	}
	if !holds {
		return nil, models.NewForbiddenError("Item is outside your assigned counties")
	}

	if !item.Status.CanTransitionTo(targetStatus) {
		return nil, models.NewInvalidTransitionError(item.Status, targetStatus)
	}

	note = strings.TrimSpace(note)
	if targetStatus.RequiresNote() && note == "" {
		return nil, models.NewValidationError("A justification note is required for this decision")
	}

	actionAt := s.now()
	updates := map[string]interface{}{
		"status":          targetStatus,
		"admin_action_at": actionAt,
		"admin_action_by": actorID,
		"updated_at":      actionAt,
	}
	if note != "" {
		updates["admin_note"] = note
	}

	// Optimistic concurrency: the current status is part of the WHERE
	// clause, so a racing transition that committed first leaves this
	// update with zero matched rows.
	res := s.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND status = ?", itemID, item.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var current models.Item
		if err := s.db.WithContext(ctx).First(&current, itemID).Error; err == nil {
			slog.WarnContext(ctx, "stale moderation transition lost the race",
				"item_id", itemID, "seen_status", item.Status, "current_status", current.Status)
			return nil, models.NewInvalidTransitionError(current.Status, targetStatus)
		}
		return nil, models.NewInvalidTransitionError(item.Status, targetStatus)
	}

	cache.Invalidate(ctx, cache.ItemKey(itemID))
	observability.ModerationTransitions.WithLabelValues(string(targetStatus)).Inc()

	if err := s.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

package models

import "time"

// Appraisal represents a user's endorsement of an item.
// Existence of the row means "this user currently endorses this item";
// the combination of UserID, ItemID and ItemKind must be unique.
// Rows are only ever created or hard-deleted by the toggle, never updated.
type Appraisal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_item_kind" json:"user_id"`
	ItemID    uint      `gorm:"not null;uniqueIndex:idx_user_item_kind" json:"item_id"`
	ItemKind  ItemKind  `gorm:"not null;uniqueIndex:idx_user_item_kind" json:"item_kind"`
	CreatedAt time.Time `json:"created_at"`
}

// AppraisalStatus is the authoritative post-read or post-toggle view returned
// to the caller: the requesting user's flag and the freshly recomputed count.
type AppraisalStatus struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

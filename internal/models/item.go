// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// ItemKind distinguishes the two kinds of resident submissions.
type ItemKind string

const (
	KindIssue      ItemKind = "issue"
	KindSuggestion ItemKind = "suggestion"
)

// Valid reports whether the kind is one of the two known values.
func (k ItemKind) Valid() bool {
	return k == KindIssue || k == KindSuggestion
}

// Visibility controls whether an item appears in public listings and trending.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether the visibility is one of the two known values.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Item is a resident-filed issue or suggestion against a county.
// County and visibility are fixed at creation. Status and the admin_* fields
// are written only by the moderation service.
type Item struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Kind        ItemKind   `gorm:"not null;index" json:"kind"`
	County      string     `gorm:"not null;index" json:"county"`
	Visibility  Visibility `gorm:"not null;default:public" json:"visibility"`
	Status      ItemStatus `gorm:"not null;default:under_review;index" json:"status"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`

	AdminNote     string     `gorm:"type:text;default:''" json:"admin_note"`
	AdminActionAt *time.Time `json:"admin_action_at,omitempty"`
	AdminActionBy *uint      `json:"admin_action_by,omitempty"`

	// AppraisalCount is not persisted; computed at query time
	AppraisalCount int `gorm:"->" json:"appraisal_count"`
	// Liked indicates whether the current requesting user appraised this item (computed)
	Liked bool `gorm:"->" json:"liked"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package models

import (
	"time"
)

// BanDuration is the requested length of a ban.
type BanDuration string

const (
	BanDuration24h       BanDuration = "24h"
	BanDuration7d        BanDuration = "7d"
	BanDurationPermanent BanDuration = "permanent"
)

// ExpiryFrom computes the expiry timestamp for a ban issued at the given
// time. A nil result means the ban is permanent. The second return value is
// false for an unknown duration.
func (d BanDuration) ExpiryFrom(issuedAt time.Time) (*time.Time, bool) {
	switch d {
	case BanDuration24h:
		t := issuedAt.Add(24 * time.Hour)
		return &t, true
	case BanDuration7d:
		t := issuedAt.Add(7 * 24 * time.Hour)
		return &t, true
	case BanDurationPermanent:
		return nil, true
	}
	return nil, false
}

// Ban suspends a user's write access. At most one row exists per user (the
// unique index on UserID); issuing a new ban replaces the old row. Whether a
// ban is active is always derived from ExpiresAt at read time, never stored
// as a boolean.
type Ban struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	IssuedBy  uint       `gorm:"not null;index" json:"issued_by"`
	Reason    string     `gorm:"type:text;default:''" json:"reason"`
	IssuedAt  time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ActiveAt reports whether the ban is in force at the given instant.
// A nil ExpiresAt means permanent.
func (b *Ban) ActiveAt(now time.Time) bool {
	return b.ExpiresAt == nil || now.Before(*b.ExpiresAt)
}

// BanStatus is the read-time view of a user's ban state.
type BanStatus struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	IssuedBy  uint       `json:"issued_by,omitempty"`
}

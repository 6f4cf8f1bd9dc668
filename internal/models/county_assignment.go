package models

import "time"

// CountyAssignment maps a county to the single administrator responsible for
// it. The unique index on County is what makes the one-admin-per-county
// invariant hold under concurrent assignment attempts; an admin may hold any
// number of counties.
type CountyAssignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	County    string    `gorm:"not null;uniqueIndex" json:"county"`
	AdminID   uint      `gorm:"not null;index" json:"admin_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (CountyAssignment) TableName() string {
	return "county_assignments"
}

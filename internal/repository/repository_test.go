package repository

import (
	"testing"

	"civicboard/internal/database"
	"civicboard/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory database with the full schema. The pool is
// pinned to one connection so every query sees the same memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func createTestItem(t *testing.T, db *gorm.DB, item *models.Item) *models.Item {
	t.Helper()
	if item.Kind == "" {
		item.Kind = models.KindIssue
	}
	if item.County == "" {
		item.County = "Dublin"
	}
	if item.Visibility == "" {
		item.Visibility = models.VisibilityPublic
	}
	if item.Status == "" {
		item.Status = models.StatusUnderReview
	}
	if item.Title == "" {
		item.Title = "Pothole on Main Street"
	}
	if item.UserID == 0 {
		item.UserID = 1
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

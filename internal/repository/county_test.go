package repository

import (
	"context"
	"testing"

	"civicboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignBatch(t *testing.T) {
	db := newTestDB(t)
	repo := NewCountyRepository(db)
	ctx := context.Background()

	counties, err := repo.Assign(ctx, 1, []string{"Dublin", "Wicklow", "Kildare"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dublin", "Kildare", "Wicklow"}, counties)

	holds, err := repo.Holds(ctx, 1, "Dublin")
	require.NoError(t, err)
	assert.True(t, holds)

	holds, err = repo.Holds(ctx, 2, "Dublin")
	require.NoError(t, err)
	assert.False(t, holds)
}

func TestAssignIdempotentForHolder(t *testing.T) {
	db := newTestDB(t)
	repo := NewCountyRepository(db)
	ctx := context.Background()

	_, err := repo.Assign(ctx, 1, []string{"Dublin"})
	require.NoError(t, err)

	// Re-claiming a county you already hold is a no-op, alone or in a batch.
	counties, err := repo.Assign(ctx, 1, []string{"Dublin", "Meath"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dublin", "Meath"}, counties)
}

func TestAssignConflictNamesCounty(t *testing.T) {
	db := newTestDB(t)
	repo := NewCountyRepository(db)
	ctx := context.Background()

	_, err := repo.Assign(ctx, 1, []string{"Cork"})
	require.NoError(t, err)

	_, err = repo.Assign(ctx, 2, []string{"Kerry", "Cork", "Clare"})
	require.Error(t, err)

	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeConflict, appErr.Code)
	assert.Contains(t, appErr.Message, "Cork")
}

func TestAssignAllOrNothing(t *testing.T) {
	db := newTestDB(t)
	repo := NewCountyRepository(db)
	ctx := context.Background()

	_, err := repo.Assign(ctx, 1, []string{"Cork"})
	require.NoError(t, err)

	// Kerry precedes the contested Cork in the batch; the rollback must
	// take Kerry with it.
	_, err = repo.Assign(ctx, 2, []string{"Kerry", "Cork"})
	require.Error(t, err)

	counties, err := repo.ListByAdmin(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, counties)

	holds, err := repo.Holds(ctx, 2, "Kerry")
	require.NoError(t, err)
	assert.False(t, holds)
}

func TestAssignRejectsBlankCounty(t *testing.T) {
	db := newTestDB(t)
	repo := NewCountyRepository(db)
	ctx := context.Background()

	_, err := repo.Assign(ctx, 1, []string{"Dublin", "   "})
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestListByAdminSorted(t *testing.T) {
	db := newTestDB(t)
	repo := NewCountyRepository(db)
	ctx := context.Background()

	_, err := repo.Assign(ctx, 1, []string{"Wicklow", "Dublin", "Meath"})
	require.NoError(t, err)

	counties, err := repo.ListByAdmin(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dublin", "Meath", "Wicklow"}, counties)
}

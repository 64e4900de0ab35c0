package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

func TestProgressService_UpdateScore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scores, err := env.progress.CategoryScores(ctx, student.UserID)
	require.NoError(t, err)
	assert.Empty(t, scores)

	updates := []struct {
		category string
		earned   int
		possible int
	}{
		{category: "Algebra", earned: 1, possible: 1},
		{category: "Algebra", earned: 0, possible: 1},
		{category: "", earned: 1, possible: 1},
		{category: "Geometry, Basics", earned: 2, possible: 3},
		{category: "Algebra", earned: 1, possible: 0},
	}
	for _, u := range updates {
		err := env.db.Transaction(func(tx *gorm.DB) error {
			return env.progress.UpdateScore(ctx, tx, student.UserID, u.category, u.earned, u.possible)
		})
		require.NoError(t, err)
	}

	scores, err = env.progress.CategoryScores(ctx, student.UserID)
	require.NoError(t, err)
	assert.Equal(t, []models.CategoryScore{
		{Category: "Algebra", Correct: 2, Total: 2, Percent: 100},
		{Category: "Uncategorized", Correct: 1, Total: 1, Percent: 100},
		{Category: "Geometry  Basics", Correct: 2, Total: 3, Percent: 67},
	}, scores)

	other, err := env.progress.CategoryScores(ctx, student2.UserID)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestProgressService_RollsBackWithCaller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, env.progress.UpdateScore(ctx, tx, student.UserID, "Algebra", 1, 1))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	scores, err := env.progress.CategoryScores(ctx, student.UserID)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

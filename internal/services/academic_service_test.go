package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

func TestAcademicService_SetCurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	older := &models.AcademicSession{Session: "2023/2024", IsCurrentSession: true}
	newer := &models.AcademicSession{Session: "2024/2025"}
	require.NoError(t, env.db.Create(older).Error)
	require.NoError(t, env.db.Create(newer).Error)
	first := &models.Semester{Semester: models.SemesterFirst, SessionID: &newer.ID, IsCurrentSemester: true}
	second := &models.Semester{Semester: models.SemesterSecond, SessionID: &newer.ID}
	require.NoError(t, env.db.Create(first).Error)
	require.NoError(t, env.db.Create(second).Error)

	term, err := env.academic.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, term.Session)
	assert.Equal(t, older.ID, term.Session.ID)

	t.Run("admin only", func(t *testing.T) {
		var perr *PermissionError
		_, err := env.academic.SetCurrentSession(ctx, lecturer, newer.ID)
		assert.ErrorAs(t, err, &perr)
		_, err = env.academic.SetCurrentSemester(ctx, student, second.ID)
		assert.ErrorAs(t, err, &perr)
	})

	t.Run("session", func(t *testing.T) {
		session, err := env.academic.SetCurrentSession(ctx, admin, newer.ID)
		require.NoError(t, err)
		assert.True(t, session.IsCurrentSession)

		term, err := env.academic.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, term.Session.ID)

		var current int64
		require.NoError(t, env.db.Model(&models.AcademicSession{}).Where("is_current_session = ?", true).Count(&current).Error)
		assert.Equal(t, int64(1), current)
	})

	t.Run("semester", func(t *testing.T) {
		semester, err := env.academic.SetCurrentSemester(ctx, admin, second.ID)
		require.NoError(t, err)
		assert.True(t, semester.IsCurrentSemester)
		require.NotNil(t, semester.Session)
		assert.Equal(t, "2024/2025", semester.Session.Session)

		term, err := env.academic.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.ID, term.Semester.ID)
	})

	t.Run("unknown ids keep the current rows", func(t *testing.T) {
		_, err := env.academic.SetCurrentSession(ctx, admin, 999)
		assert.ErrorIs(t, err, ErrAcademicSessionNotFound)
		_, err = env.academic.SetCurrentSemester(ctx, admin, 999)
		assert.ErrorIs(t, err, ErrSemesterNotFound)

		term, err := env.academic.Current(ctx)
		require.NoError(t, err)
		require.NotNil(t, term.Session)
		require.NotNil(t, term.Semester)
		assert.Equal(t, newer.ID, term.Session.ID)
		assert.Equal(t, second.ID, term.Semester.ID)
	})
}

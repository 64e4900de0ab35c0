package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

func TestCoursePostgreSQL(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()
	cs := seedCourse(t, db, "CS101")
	maths := seedCourse(t, db, "MA101")
	seedCourse(t, db, "PH101")

	allocation := &models.CourseAllocation{LecturerID: "lecturer-1", Courses: []models.Course{*maths, *cs}}
	require.NoError(t, db.Omit("Courses.*").Create(allocation).Error)

	course, err := repo.Course().GetByID(ctx, nil, cs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Course CS101", course.Title)
	require.NotNil(t, course.Program)
	assert.Equal(t, "Program CS101", course.Program.Title)

	_, err = repo.Course().GetByID(ctx, nil, 999)
	assert.True(t, repositories.IsNotFoundError(err))

	ids, err := repo.Course().AllocatedCourseIDs(ctx, nil, "lecturer-1")
	require.NoError(t, err)
	assert.Equal(t, []uint{cs.ID, maths.ID}, ids)

	ids, err = repo.Course().AllocatedCourseIDs(ctx, nil, "lecturer-2")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ok, err := repo.Course().IsAllocated(ctx, nil, "lecturer-1", maths.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcademicPostgreSQL_Current(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()

	term, err := repo.Academic().Current(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, term.Session)
	assert.Nil(t, term.Semester)

	old := &models.AcademicSession{Session: "2024/2025", IsCurrentSession: true}
	next := &models.AcademicSession{Session: "2025/2026"}
	require.NoError(t, db.Create(old).Error)
	require.NoError(t, db.Create(next).Error)
	first := &models.Semester{Semester: models.SemesterFirst, SessionID: &next.ID}
	require.NoError(t, db.Create(first).Error)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := repo.Academic().ClearCurrentSessions(ctx, tx); err != nil {
			return err
		}
		if err := repo.Academic().MarkSessionCurrent(ctx, tx, next.ID); err != nil {
			return err
		}
		if err := repo.Academic().ClearCurrentSemesters(ctx, tx); err != nil {
			return err
		}
		return repo.Academic().MarkSemesterCurrent(ctx, tx, first.ID)
	})
	require.NoError(t, err)

	term, err = repo.Academic().Current(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, term.Session)
	require.NotNil(t, term.Semester)
	assert.Equal(t, "2025/2026", term.Session.Session)
	assert.Equal(t, first.ID, term.Semester.ID)

	semester, err := repo.Academic().GetSemester(ctx, nil, first.ID)
	require.NoError(t, err)
	require.NotNil(t, semester.Session)
	assert.Equal(t, next.ID, semester.Session.ID)

	err = repo.Academic().MarkSessionCurrent(ctx, nil, 999)
	assert.True(t, repositories.IsNotFoundError(err))
	err = repo.Academic().MarkSemesterCurrent(ctx, nil, 999)
	assert.True(t, repositories.IsNotFoundError(err))
}

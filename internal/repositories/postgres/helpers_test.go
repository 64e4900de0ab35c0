package postgres

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/pkg"
)

// newTestDB opens a private in-memory sqlite database with the quiz schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, pkg.AutoMigrate(db))
	return db
}

func newTestRepository(t *testing.T) (*PostgreSQLRepository, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return newRepository(db, nil, cache.NewCacheManager(nil), nil), db
}

func seedCourse(t *testing.T, db *gorm.DB, code string) *models.Course {
	t.Helper()
	program := &models.Program{Title: "Program " + code}
	require.NoError(t, db.Create(program).Error)
	course := &models.Course{Title: "Course " + code, Code: code, Slug: "course-" + code, ProgramID: program.ID}
	require.NoError(t, db.Create(course).Error)
	return course
}

func seedQuiz(t *testing.T, db *gorm.DB, course *models.Course, title string, examPaper bool) *models.Quiz {
	t.Helper()
	quiz := &models.Quiz{
		CourseID:  course.ID,
		Title:     title,
		Slug:      uuid.NewString(),
		ExamPaper: examPaper,
		PassMark:  50,
		CreatedBy: "lecturer-1",
	}
	require.NoError(t, db.Omit("Course", "Questions").Create(quiz).Error)
	return quiz
}

package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// CourseRepository is a read-only view of the course catalogue
type CourseRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	// AllocatedCourseIDs lists the courses a lecturer teaches
	AllocatedCourseIDs(ctx context.Context, tx *gorm.DB, lecturerID string) ([]uint, error)
	IsAllocated(ctx context.Context, tx *gorm.DB, lecturerID string, courseID uint) (bool, error)
}

// AcademicRepository interface for sessions and semesters
type AcademicRepository interface {
	GetSession(ctx context.Context, tx *gorm.DB, id uint) (*models.AcademicSession, error)
	GetSemester(ctx context.Context, tx *gorm.DB, id uint) (*models.Semester, error)
	ClearCurrentSessions(ctx context.Context, tx *gorm.DB) error
	ClearCurrentSemesters(ctx context.Context, tx *gorm.DB) error
	MarkSessionCurrent(ctx context.Context, tx *gorm.DB, id uint) error
	MarkSemesterCurrent(ctx context.Context, tx *gorm.DB, id uint) error
	Current(ctx context.Context, tx *gorm.DB) (*CurrentTerm, error)
}

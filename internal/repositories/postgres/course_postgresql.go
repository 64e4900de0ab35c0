package postgres

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// ===== COURSES =====

type CoursePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

// GetByID retrieves a course and its program with caching
func (c *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	db := c.helpers.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var course models.Course

	err := c.cacheManager.Course.CacheOrExecute(ctx, cacheKey, &course, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		var dbCourse models.Course
		if err := db.WithContext(ctx).Preload("Program").First(&dbCourse, id).Error; err != nil {
			return nil, fmt.Errorf("failed to get course %d: %w", id, err)
		}
		return &dbCourse, nil
	})
	if err != nil {
		return nil, err
	}

	return &course, nil
}

// AllocatedCourseIDs lists the courses allocated to a lecturer with caching
func (c *CoursePostgreSQL) AllocatedCourseIDs(ctx context.Context, tx *gorm.DB, lecturerID string) ([]uint, error) {
	db := c.helpers.getDB(tx)
	cacheKey := fmt.Sprintf("allocated:%s", lecturerID)
	ids := []uint{}

	err := c.cacheManager.Course.CacheOrExecute(ctx, cacheKey, &ids, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		dbIDs := []uint{}
		err := db.WithContext(ctx).
			Table("course_allocation_courses").
			Joins("JOIN course_allocations ON course_allocations.id = course_allocation_courses.course_allocation_id").
			Where("course_allocations.lecturer_id = ?", lecturerID).
			Order("course_allocation_courses.course_id ASC").
			Pluck("course_allocation_courses.course_id", &dbIDs).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get allocated courses: %w", err)
		}
		return dbIDs, nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (c *CoursePostgreSQL) IsAllocated(ctx context.Context, tx *gorm.DB, lecturerID string, courseID uint) (bool, error) {
	ids, err := c.AllocatedCourseIDs(ctx, tx, lecturerID)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, courseID), nil
}

// ===== ACADEMIC CALENDAR =====

type AcademicPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAcademicPostgreSQL(db *gorm.DB) repositories.AcademicRepository {
	return &AcademicPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a *AcademicPostgreSQL) GetSession(ctx context.Context, tx *gorm.DB, id uint) (*models.AcademicSession, error) {
	db := a.helpers.getDB(tx)
	var session models.AcademicSession
	if err := db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get academic session %d: %w", id, err)
	}
	return &session, nil
}

func (a *AcademicPostgreSQL) GetSemester(ctx context.Context, tx *gorm.DB, id uint) (*models.Semester, error) {
	db := a.helpers.getDB(tx)
	var semester models.Semester
	if err := db.WithContext(ctx).Preload("Session").First(&semester, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get semester %d: %w", id, err)
	}
	return &semester, nil
}

func (a *AcademicPostgreSQL) ClearCurrentSessions(ctx context.Context, tx *gorm.DB) error {
	db := a.helpers.getDB(tx)
	err := db.WithContext(ctx).
		Model(&models.AcademicSession{}).
		Where("is_current_session = ?", true).
		Update("is_current_session", false).Error
	if err != nil {
		return fmt.Errorf("failed to clear current sessions: %w", err)
	}
	return nil
}

func (a *AcademicPostgreSQL) ClearCurrentSemesters(ctx context.Context, tx *gorm.DB) error {
	db := a.helpers.getDB(tx)
	err := db.WithContext(ctx).
		Model(&models.Semester{}).
		Where("is_current_semester = ?", true).
		Update("is_current_semester", false).Error
	if err != nil {
		return fmt.Errorf("failed to clear current semesters: %w", err)
	}
	return nil
}

func (a *AcademicPostgreSQL) MarkSessionCurrent(ctx context.Context, tx *gorm.DB, id uint) error {
	db := a.helpers.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.AcademicSession{}).
		Where("id = ?", id).
		Update("is_current_session", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark session current: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to mark session %d current: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

func (a *AcademicPostgreSQL) MarkSemesterCurrent(ctx context.Context, tx *gorm.DB, id uint) error {
	db := a.helpers.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.Semester{}).
		Where("id = ?", id).
		Update("is_current_semester", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark semester current: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to mark semester %d current: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// Current returns the current session and semester; either may be nil
func (a *AcademicPostgreSQL) Current(ctx context.Context, tx *gorm.DB) (*repositories.CurrentTerm, error) {
	db := a.helpers.getDB(tx).WithContext(ctx)
	term := &repositories.CurrentTerm{}

	var sessions []models.AcademicSession
	if err := db.Where("is_current_session = ?", true).Limit(1).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}
	if len(sessions) > 0 {
		term.Session = &sessions[0]
	}

	var semesters []models.Semester
	if err := db.Where("is_current_semester = ?", true).Limit(1).Find(&semesters).Error; err != nil {
		return nil, fmt.Errorf("failed to get current semester: %w", err)
	}
	if len(semesters) > 0 {
		term.Semester = &semesters[0]
	}

	return term, nil
}

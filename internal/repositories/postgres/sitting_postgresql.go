package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// ===== SITTINGS =====

type SittingPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewSittingPostgreSQL(db *gorm.DB) repositories.SittingRepository {
	return &SittingPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (s *SittingPostgreSQL) Create(ctx context.Context, tx *gorm.DB, sitting *models.Sitting) error {
	db := s.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(sitting).Error; err != nil {
		return fmt.Errorf("failed to create sitting: %w", err)
	}
	return nil
}

func (s *SittingPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Sitting, error) {
	db := s.helpers.getDB(tx)
	var sitting models.Sitting
	if err := db.WithContext(ctx).Preload("Quiz").First(&sitting, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get sitting %d: %w", id, err)
	}
	return &sitting, nil
}

func (s *SittingPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Sitting, error) {
	db := s.helpers.getDB(tx)
	var sitting models.Sitting
	if err := forUpdate(db.WithContext(ctx)).First(&sitting, id).Error; err != nil {
		return nil, fmt.Errorf("failed to lock sitting %d: %w", id, err)
	}
	return &sitting, nil
}

// GetOpen finds the incomplete sitting for the user, quiz and course
func (s *SittingPostgreSQL) GetOpen(ctx context.Context, tx *gorm.DB, userID string, quizID, courseID uint) (*models.Sitting, error) {
	db := s.helpers.getDB(tx)
	var sitting models.Sitting
	err := db.WithContext(ctx).
		Where("open_key = ?", models.SittingOpenKey(userID, quizID, courseID)).
		First(&sitting).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get open sitting: %w", err)
	}
	return &sitting, nil
}

func (s *SittingPostgreSQL) Update(ctx context.Context, tx *gorm.DB, sitting *models.Sitting) error {
	db := s.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit(clause.Associations).Save(sitting).Error; err != nil {
		return fmt.Errorf("failed to update sitting: %w", err)
	}
	return nil
}

func (s *SittingPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := s.helpers.getDB(tx)
	if err := db.WithContext(ctx).Delete(&models.Sitting{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete sitting: %w", err)
	}
	return nil
}

// ListCompleted returns complete sittings, newest first
func (s *SittingPostgreSQL) ListCompleted(ctx context.Context, tx *gorm.DB, filters repositories.SittingFilters) ([]*models.Sitting, int64, error) {
	// A non-nil empty scope means the caller may see nothing
	if filters.CourseIDs != nil && len(filters.CourseIDs) == 0 {
		return []*models.Sitting{}, 0, nil
	}

	db := s.helpers.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.Sitting{}).
		Joins("JOIN quizzes ON quizzes.id = sittings.quiz_id").
		Where("sittings.complete = ?", true)

	if filters.CourseIDs != nil {
		query = query.Where("sittings.course_id IN ?", filters.CourseIDs)
	}
	if filters.UserID != "" {
		query = query.Where("sittings.user_id = ?", filters.UserID)
	}
	if filters.ExamOnly {
		query = query.Where("quizzes.exam_paper = ?", true)
	}
	if filters.QuizTitle != "" {
		query = containsFold(query, "quizzes.title", filters.QuizTitle)
	}
	if filters.UserName != "" {
		query = containsFold(query, "sittings.user_name", filters.UserName)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sittings: %w", err)
	}

	var sittings []*models.Sitting
	query = s.helpers.ApplyPagination(query, filters.Limit, filters.Offset)
	err := query.
		Select("sittings.*").
		Preload("Quiz").
		Order("sittings.ended_at DESC").
		Order("sittings.id DESC").
		Find(&sittings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sittings: %w", err)
	}

	return sittings, total, nil
}

// ===== RESULTS =====

type ResultPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *ResultPostgreSQL) Create(ctx context.Context, tx *gorm.DB, result *models.QuizResult) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(result).Error; err != nil {
		return fmt.Errorf("failed to create quiz result: %w", err)
	}
	return nil
}

func (r *ResultPostgreSQL) GetBySitting(ctx context.Context, tx *gorm.DB, sittingID uint) (*models.QuizResult, error) {
	db := r.helpers.getDB(tx)
	var result models.QuizResult
	if err := db.WithContext(ctx).Preload("Quiz").Where("sitting_id = ?", sittingID).First(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to get result for sitting %d: %w", sittingID, err)
	}
	return &result, nil
}

func (r *ResultPostgreSQL) Update(ctx context.Context, tx *gorm.DB, result *models.QuizResult) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit(clause.Associations).Save(result).Error; err != nil {
		return fmt.Errorf("failed to update quiz result: %w", err)
	}
	return nil
}

func (r *ResultPostgreSQL) ExistsForUserQuiz(ctx context.Context, tx *gorm.DB, userID string, quizID uint) (bool, error) {
	db := r.helpers.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.QuizResult{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check quiz results: %w", err)
	}
	return count > 0, nil
}

func (r *ResultPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.QuizResult, error) {
	db := r.helpers.getDB(tx)
	var results []*models.QuizResult
	err := db.WithContext(ctx).
		Preload("Quiz").
		Where("user_id = ?", userID).
		Order("completed_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz results: %w", err)
	}
	return results, nil
}

// ===== PROGRESS =====

type ProgressPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// GetOrCreateForUpdate inserts an empty ledger when missing and returns the
// row locked. Concurrent inserts collapse through ON CONFLICT DO NOTHING.
func (p *ProgressPostgreSQL) GetOrCreateForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*models.Progress, error) {
	db := p.helpers.getDB(tx).WithContext(ctx)

	var progress models.Progress
	err := forUpdate(db).Where("user_id = ?", userID).First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to lock progress: %w", err)
	}

	empty := models.Progress{UserID: userID}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&empty).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create progress: %w", err)
	}

	progress = models.Progress{}
	if err := forUpdate(db).Where("user_id = ?", userID).First(&progress).Error; err != nil {
		return nil, fmt.Errorf("failed to lock progress: %w", err)
	}
	return &progress, nil
}

func (p *ProgressPostgreSQL) GetByUser(ctx context.Context, tx *gorm.DB, userID string) (*models.Progress, error) {
	db := p.helpers.getDB(tx)
	var progress models.Progress
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&progress).Error; err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &progress, nil
}

func (p *ProgressPostgreSQL) Save(ctx context.Context, tx *gorm.DB, progress *models.Progress) error {
	db := p.helpers.getDB(tx)
	if err := db.WithContext(ctx).Save(progress).Error; err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

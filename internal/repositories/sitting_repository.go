package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// SittingRepository interface for static quiz attempts
type SittingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, sitting *models.Sitting) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Sitting, error)
	// GetByIDForUpdate row-locks the sitting for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Sitting, error)
	GetOpen(ctx context.Context, tx *gorm.DB, userID string, quizID, courseID uint) (*models.Sitting, error)
	Update(ctx context.Context, tx *gorm.DB, sitting *models.Sitting) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// ListCompleted returns retained, complete sittings for marking
	ListCompleted(ctx context.Context, tx *gorm.DB, filters SittingFilters) ([]*models.Sitting, int64, error)
}

// ResultRepository interface for the per-completion result history
type ResultRepository interface {
	Create(ctx context.Context, tx *gorm.DB, result *models.QuizResult) error
	GetBySitting(ctx context.Context, tx *gorm.DB, sittingID uint) (*models.QuizResult, error)
	Update(ctx context.Context, tx *gorm.DB, result *models.QuizResult) error
	ExistsForUserQuiz(ctx context.Context, tx *gorm.DB, userID string, quizID uint) (bool, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.QuizResult, error)
}

// ProgressRepository interface for the score ledger
type ProgressRepository interface {
	// GetOrCreateForUpdate returns the locked ledger row, inserting an empty one if needed
	GetOrCreateForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*models.Progress, error)
	GetByUser(ctx context.Context, tx *gorm.DB, userID string) (*models.Progress, error)
	Save(ctx context.Context, tx *gorm.DB, progress *models.Progress) error
}

package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// QuizRepository interface for quiz operations
type QuizRepository interface {
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters QuizFilters) ([]*models.Quiz, int64, error)

	// Question membership
	AddQuestions(ctx context.Context, tx *gorm.DB, quizID uint, questions ...*models.Question) error
	CountQuestions(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error)
	ExistsBySlug(ctx context.Context, tx *gorm.DB, slug string) (bool, error)
}

// QuestionRepository interface for question operations
type QuestionRepository interface {
	// Create inserts the question together with its choices
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error)
	GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error)
}

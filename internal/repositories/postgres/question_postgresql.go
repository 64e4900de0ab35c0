package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// Create inserts the question and its choices
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit("Quizzes").Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.helpers.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).Preload("Choices").First(&question, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get question %d: %w", id, err)
	}
	return &question, nil
}

// GetByIDs loads questions with choices; missing ids are skipped
func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return []*models.Question{}, nil
	}
	db := q.helpers.getDB(tx)

	var questions []*models.Question
	err := db.WithContext(ctx).
		Preload("Choices").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

// GetByQuiz returns the quiz's questions in insertion order
func (q *QuestionPostgreSQL) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error) {
	db := q.helpers.getDB(tx)

	var questions []*models.Question
	err := db.WithContext(ctx).
		Joins("JOIN quiz_questions ON quiz_questions.question_id = questions.id").
		Where("quiz_questions.quiz_id = ?", quizID).
		Preload("Choices").
		Order("questions.id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get questions for quiz %d: %w", quizID, err)
	}
	return questions, nil
}

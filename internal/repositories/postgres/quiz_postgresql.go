package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type QuizPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewQuizPostgreSQL(db *gorm.DB) repositories.QuizRepository {
	return &QuizPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

var quizSortColumns = map[string]string{
	"created_at": "quizzes.created_at",
	"title":      "quizzes.title",
}

// ===== BASIC CRUD OPERATIONS =====

func (q *QuizPostgreSQL) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := q.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(quiz).Error; err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}
	return nil
}

// GetByID retrieves a quiz with its course and question count
func (q *QuizPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := q.helpers.getDB(tx)
	var quiz models.Quiz
	if err := db.WithContext(ctx).Preload("Course").First(&quiz, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get quiz %d: %w", id, err)
	}

	counts, err := q.helpers.CountQuizQuestions(ctx, db, []uint{quiz.ID})
	if err != nil {
		return nil, err
	}
	quiz.QuestionsCount = counts[quiz.ID]

	return &quiz, nil
}

// GetByIDWithQuestions retrieves a quiz with questions and choices loaded
func (q *QuizPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := q.helpers.getDB(tx)
	var quiz models.Quiz
	err := db.WithContext(ctx).
		Preload("Course").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.id ASC")
		}).
		Preload("Questions.Choices").
		First(&quiz, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz %d with questions: %w", id, err)
	}
	quiz.QuestionsCount = len(quiz.Questions)
	return &quiz, nil
}

func (q *QuizPostgreSQL) Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := q.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit(clause.Associations).Save(quiz).Error; err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}
	return nil
}

// Delete soft deletes a quiz after detaching its questions
func (q *QuizPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.helpers.getDB(tx)

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM quiz_questions WHERE quiz_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to detach quiz questions: %w", err)
		}

		result := tx.Delete(&models.Quiz{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete quiz: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("failed to delete quiz %d: %w", id, gorm.ErrRecordNotFound)
		}
		return nil
	})
}

// List returns a page of quizzes and the total matching count
func (q *QuizPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	db := q.helpers.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Quiz{})

	if filters.CourseID != nil {
		query = query.Where("quizzes.course_id = ?", *filters.CourseID)
	}
	if !filters.IncludeDrafts {
		query = query.Where("quizzes.draft = ?", false)
	}
	if filters.Category != "" {
		query = query.Where("quizzes.category = ?", filters.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count quizzes: %w", err)
	}

	var quizzes []*models.Quiz
	query = q.helpers.ApplySorting(query, filters.SortBy, filters.SortOrder, quizSortColumns)
	query = q.helpers.ApplyPagination(query, filters.Limit, filters.Offset)
	if err := query.Find(&quizzes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list quizzes: %w", err)
	}

	ids := make([]uint, len(quizzes))
	for i, quiz := range quizzes {
		ids[i] = quiz.ID
	}
	counts, err := q.helpers.CountQuizQuestions(ctx, db, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, quiz := range quizzes {
		quiz.QuestionsCount = counts[quiz.ID]
	}

	return quizzes, total, nil
}

// ===== QUESTION MEMBERSHIP =====

func (q *QuizPostgreSQL) AddQuestions(ctx context.Context, tx *gorm.DB, quizID uint, questions ...*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	db := q.helpers.getDB(tx)

	rows := make([]map[string]interface{}, len(questions))
	for i, question := range questions {
		rows[i] = map[string]interface{}{
			"quiz_id":     quizID,
			"question_id": question.ID,
		}
	}

	err := db.WithContext(ctx).
		Table("quiz_questions").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rows).Error
	if err != nil {
		return fmt.Errorf("failed to add questions to quiz %d: %w", quizID, err)
	}
	return nil
}

func (q *QuizPostgreSQL) CountQuestions(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error) {
	db := q.helpers.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Table("quiz_questions").
		Where("quiz_id = ?", quizID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count quiz questions: %w", err)
	}
	return count, nil
}

// ExistsBySlug includes soft deleted quizzes since the unique index does
func (q *QuizPostgreSQL) ExistsBySlug(ctx context.Context, tx *gorm.DB, slug string) (bool, error) {
	db := q.helpers.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Unscoped().
		Model(&models.Quiz{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check quiz slug: %w", err)
	}
	return count > 0, nil
}

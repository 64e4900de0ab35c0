package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// uncategorized is the ledger bucket for quizzes without a category
const uncategorized = "Uncategorized"

type progressService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewProgressService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ProgressService {
	return &progressService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// UpdateScore adds to the user's category tally inside the caller's
// transaction. A missing ledger or category starts at zero.
func (s *progressService) UpdateScore(ctx context.Context, tx *gorm.DB, userID, category string, earned, possible int) error {
	category = models.NormalizeCategory(category)
	if category == "" {
		category = uncategorized
	}

	progress, err := s.repo.Progress().GetOrCreateForUpdate(ctx, tx, userID)
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}

	progress.UpdateScore(category, earned, possible)

	if err := s.repo.Progress().Save(ctx, tx, progress); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}

	s.logger.Debug("Progress updated",
		"user_id", userID,
		"category", category,
		"earned", earned,
		"possible", possible)

	return nil
}

func (s *progressService) CategoryScores(ctx context.Context, userID string) ([]models.CategoryScore, error) {
	progress, err := s.repo.Progress().GetByUser(ctx, s.db, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return []models.CategoryScore{}, nil
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return progress.Scores(), nil
}

// Exams lists the user's retained exam paper sittings
func (s *progressService) Exams(ctx context.Context, userID string) ([]SittingSummary, error) {
	sittings, _, err := s.repo.Sitting().ListCompleted(ctx, s.db, repositories.SittingFilters{
		UserID:   userID,
		ExamOnly: true,
		Limit:    repositories.MaxPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	summaries := make([]SittingSummary, 0, len(sittings))
	for _, sitting := range sittings {
		summaries = append(summaries, summarizeSitting(sitting))
	}
	return summaries, nil
}

func (s *progressService) Results(ctx context.Context, userID string) ([]*models.QuizResult, error) {
	results, err := s.repo.Result().ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return results, nil
}

// progressCategory is the ledger category for a static quiz
func progressCategory(quiz *models.Quiz) string {
	if quiz == nil || models.NormalizeCategory(quiz.Category) == "" {
		return uncategorized
	}
	return quiz.Category
}

// aiCategory is the ledger category for AI sessions on a course
func aiCategory(course *models.Course) string {
	if course == nil || course.Title == "" {
		return "AI Quiz"
	}
	return course.Title + " (AI)"
}

func summarizeSitting(sitting *models.Sitting) SittingSummary {
	summary := SittingSummary{
		ID:          sitting.ID,
		UserID:      sitting.UserID,
		UserName:    sitting.UserName,
		QuizID:      sitting.QuizID,
		CourseID:    sitting.CourseID,
		Score:       sitting.Score,
		MaxScore:    sitting.MaxScore(),
		Percent:     sitting.PercentCorrect(),
		CompletedAt: sitting.EndedAt,
	}
	if sitting.Quiz != nil {
		summary.QuizTitle = sitting.Quiz.Title
		summary.Passed = summary.Percent >= sitting.Quiz.PassMark
	}
	return summary
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type markingService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	progress  ProgressService
}

func NewMarkingService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	progress ProgressService,
) MarkingService {
	return &markingService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		progress:  progress,
	}
}

// ListSittings lists retained, complete sittings within the principal's courses
func (s *markingService) ListSittings(ctx context.Context, principal models.Principal, filters MarkingFilters) (*SittingListResponse, error) {
	if !principal.IsPrivileged() {
		return nil, NewPermissionError(principal.UserID, 0, "sitting", "list", "only lecturers and admins can mark")
	}

	scope, err := markingScope(ctx, s.repo, s.db, principal)
	if err != nil {
		return nil, err
	}
	filters.CourseIDs = scope
	filters.UserID = ""
	filters.Limit, filters.Offset = repositories.NormalizePage(filters.Limit, filters.Offset)

	sittings, total, err := s.repo.Sitting().ListCompleted(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sittings: %w", err)
	}

	summaries := make([]SittingSummary, 0, len(sittings))
	for _, sitting := range sittings {
		summaries = append(summaries, summarizeSitting(sitting))
	}

	return &SittingListResponse{
		Sittings: summaries,
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}, nil
}

func (s *markingService) GetSitting(ctx context.Context, principal models.Principal, id uint) (*MarkingDetail, error) {
	sitting, err := s.repo.Sitting().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSittingNotFound
		}
		return nil, fmt.Errorf("failed to get sitting: %w", err)
	}
	if err := s.checkMarker(ctx, s.db, principal, sitting, "view"); err != nil {
		return nil, err
	}
	return s.detail(ctx, s.db, sitting)
}

// ToggleIncorrect flips a multiple choice answer between right and wrong and
// moves the owner's ledger by one correct answer.
func (s *markingService) ToggleIncorrect(ctx context.Context, principal models.Principal, sittingID, questionID uint) (*MarkingDetail, error) {
	return s.mark(ctx, principal, sittingID, func(sitting *models.Sitting) (int, error) {
		nowCorrect, err := sitting.ToggleIncorrect(questionID)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
		}
		if nowCorrect {
			return 1, nil
		}
		return -1, nil
	})
}

// SetEssayScore records a 0 or 1 mark for an essay answer
func (s *markingService) SetEssayScore(ctx context.Context, principal models.Principal, sittingID, questionID uint, score int) (*MarkingDetail, error) {
	if err := s.validator.Validate(&validator.EssayScoreRequest{QuestionID: questionID, Score: score}); err != nil {
		return nil, err
	}

	return s.mark(ctx, principal, sittingID, func(sitting *models.Sitting) (int, error) {
		previous, err := sitting.SetEssayMark(questionID, score)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
		}
		return score - previous, nil
	})
}

// mark applies an override under the sitting's row lock. The possible points
// were counted at submission, so only the earned side of the ledger moves.
func (s *markingService) mark(ctx context.Context, principal models.Principal, sittingID uint, apply func(*models.Sitting) (int, error)) (*MarkingDetail, error) {
	var detail *MarkingDetail

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sitting, err := s.repo.Sitting().GetByIDForUpdate(ctx, tx, sittingID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSittingNotFound
			}
			return fmt.Errorf("failed to get sitting: %w", err)
		}
		if err := s.checkMarker(ctx, tx, principal, sitting, "mark"); err != nil {
			return err
		}
		if !sitting.Complete {
			return ErrSittingNotComplete
		}

		delta, err := apply(sitting)
		if err != nil {
			return err
		}

		quiz, err := s.repo.Quiz().GetByID(ctx, tx, sitting.QuizID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get quiz: %w", err)
		}
		sitting.Quiz = quiz

		if delta != 0 {
			if err := s.progress.UpdateScore(ctx, tx, sitting.UserID, progressCategory(quiz), delta, 0); err != nil {
				return err
			}
		}

		if err := s.repo.Sitting().Update(ctx, tx, sitting); err != nil {
			return fmt.Errorf("failed to update sitting: %w", err)
		}
		if err := s.refreshResult(ctx, tx, sitting); err != nil {
			return err
		}

		detail, err = s.detail(ctx, tx, sitting)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Sitting marked",
		"sitting_id", sittingID,
		"marker_id", principal.UserID,
		"score", detail.Score,
		"max_score", detail.MaxScore)

	return detail, nil
}

// refreshResult copies the re-derived score onto the sitting's result record
func (s *markingService) refreshResult(ctx context.Context, tx *gorm.DB, sitting *models.Sitting) error {
	record, err := s.repo.Result().GetBySitting(ctx, tx, sitting.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Warn("No result record for marked sitting", "sitting_id", sitting.ID)
			return nil
		}
		return fmt.Errorf("failed to get quiz result: %w", err)
	}

	summary := summarizeSitting(sitting)
	record.Score = summary.Score
	record.MaxScore = summary.MaxScore
	record.Percent = summary.Percent
	record.Passed = summary.Passed

	if err := s.repo.Result().Update(ctx, tx, record); err != nil {
		return fmt.Errorf("failed to update quiz result: %w", err)
	}
	return nil
}

func (s *markingService) checkMarker(ctx context.Context, tx *gorm.DB, principal models.Principal, sitting *models.Sitting, action string) error {
	allowed, err := canManageCourse(ctx, s.repo, tx, principal, sitting.CourseID)
	if err != nil {
		return err
	}
	if !allowed {
		return NewPermissionError(principal.UserID, sitting.ID, "sitting", action, "course is not allocated to this user")
	}
	return nil
}

func (s *markingService) detail(ctx context.Context, tx *gorm.DB, sitting *models.Sitting) (*MarkingDetail, error) {
	questions, err := s.repo.Question().GetByIDs(ctx, tx, sitting.QuestionOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to get sitting questions: %w", err)
	}

	return &MarkingDetail{
		SittingSummary: summarizeSitting(sitting),
		IncorrectIDs:   slices.Clone(sitting.IncorrectQuestions),
		EssayScores:    maps.Clone(sitting.Marks()),
		Questions:      buildReview(sitting, questions),
	}, nil
}

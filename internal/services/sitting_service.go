package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type sittingService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	progress  ProgressService
	publisher events.EventPublisher
	now       func() time.Time
	shuffle   func(ids []uint)
}

func NewSittingService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	progress ProgressService,
	publisher events.EventPublisher,
) SittingService {
	return &sittingService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		progress:  progress,
		publisher: publisher,
		now:       time.Now,
		shuffle:   shuffleIDs,
	}
}

func shuffleIDs(ids []uint) {
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}

// ===== START =====

// Start returns the user's open sitting for the quiz, creating one when none
// exists. Repeated calls resume the same sitting.
func (s *sittingService) Start(ctx context.Context, principal models.Principal, quizID, courseID uint) (*SittingView, error) {
	s.logger.Info("Starting sitting",
		"quiz_id", quizID,
		"course_id", courseID,
		"user_id", principal.UserID)

	quiz, err := visibleQuiz(ctx, s.repo, s.db, principal, quizID)
	if err != nil {
		return nil, err
	}
	if courseID == 0 {
		courseID = quiz.CourseID
	}
	if courseID != quiz.CourseID {
		return nil, ErrQuizNotFound
	}

	questions, err := s.repo.Question().GetByQuiz(ctx, s.db, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	if quiz.SingleAttempt {
		done, err := s.repo.Result().ExistsForUserQuiz(ctx, s.db, principal.UserID, quiz.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check previous attempts: %w", err)
		}
		if done {
			return nil, ErrAlreadyCompleted
		}
	}

	sitting, err := s.repo.Sitting().GetOpen(ctx, s.db, principal.UserID, quiz.ID, courseID)
	if err == nil {
		s.logger.Debug("Resuming open sitting", "sitting_id", sitting.ID, "user_id", principal.UserID)
		return s.sittingView(sitting, quiz, questions), nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get open sitting: %w", err)
	}

	order, essays := questionIDs(questions)
	if quiz.RandomOrder {
		s.shuffle(order)
	}

	sitting = models.NewSitting(principal, quiz, courseID, order, essays, s.now())
	if err := s.repo.Sitting().Create(ctx, s.db, sitting); err != nil {
		if !repositories.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to create sitting: %w", err)
		}
		// A concurrent start won the open key
		sitting, err = s.repo.Sitting().GetOpen(ctx, s.db, principal.UserID, quiz.ID, courseID)
		if err != nil {
			return nil, fmt.Errorf("failed to get open sitting: %w", err)
		}
	}

	s.logger.Info("Sitting started",
		"sitting_id", sitting.ID,
		"quiz_id", quiz.ID,
		"user_id", principal.UserID,
		"questions", len(order))

	return s.sittingView(sitting, quiz, questions), nil
}

func (s *sittingService) CurrentQuestion(ctx context.Context, principal models.Principal, sittingID uint) (*QuestionView, error) {
	sitting, err := s.ownedSitting(ctx, s.db, principal, sittingID, false)
	if err != nil {
		return nil, err
	}

	head, ok := sitting.CurrentQuestionID()
	if sitting.Complete || !ok {
		return nil, nil
	}

	question, err := s.repo.Question().GetByID(ctx, s.db, head)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return newQuestionView(question), nil
}

// ===== ANSWERING =====

// SubmitAnswer grades the answer for the queue head, dequeues it and moves the
// progress ledger in one transaction. The last answer completes the sitting.
func (s *sittingService) SubmitAnswer(ctx context.Context, principal models.Principal, sittingID uint, req *SubmitAnswerRequest) (*SubmitResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	answer := strings.TrimSpace(req.Answer)
	if answer == "" {
		return nil, fmt.Errorf("%w: answer is required", ErrInvalidSubmission)
	}

	var (
		result    *SubmitResult
		completed *events.SittingCompletedEvent
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sitting, err := s.ownedSitting(ctx, tx, principal, sittingID, true)
		if err != nil {
			return err
		}
		if sitting.Complete {
			return fmt.Errorf("%w: sitting %d is complete", ErrInvalidSubmission, sitting.ID)
		}
		head, ok := sitting.CurrentQuestionID()
		if !ok || head != req.QuestionID {
			return fmt.Errorf("%w: question %d is not the current question", ErrInvalidSubmission, req.QuestionID)
		}

		quiz, err := s.repo.Quiz().GetByID(ctx, tx, sitting.QuizID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuizNotFound
			}
			return fmt.Errorf("failed to get quiz: %w", err)
		}

		question, err := s.repo.Question().GetByID(ctx, tx, head)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to get question: %w", err)
		}

		variant, err := question.Variant()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
		}
		outcome, err := variant.Grade(answer)
		if err != nil {
			if errors.Is(err, models.ErrInvalidAnswer) {
				return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
			}
			return fmt.Errorf("failed to grade answer: %w", err)
		}

		if err := sitting.RecordAnswer(head, answer, outcome); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
		}

		// Essays score (0,1) here; marking moves the earned point later
		earned := 0
		if outcome.Graded && outcome.Correct {
			earned = 1
		}
		if err := s.progress.UpdateScore(ctx, tx, principal.UserID, progressCategory(quiz), earned, 1); err != nil {
			return err
		}

		result = &SubmitResult{Progress: newSittingProgress(sitting)}
		if !quiz.AnswersAtEnd {
			result.Previous = newAnswerFeedback(question, answer, outcome)
		}

		if sitting.Remaining() == 0 {
			final, event, err := s.completeSitting(ctx, tx, principal, sitting, quiz)
			if err != nil {
				return err
			}
			result.Finished = true
			result.Result = final
			completed = event
			return nil
		}

		if err := s.repo.Sitting().Update(ctx, tx, sitting); err != nil {
			return fmt.Errorf("failed to update sitting: %w", err)
		}

		next, _ := sitting.CurrentQuestionID()
		nextQuestion, err := s.repo.Question().GetByID(ctx, tx, next)
		if err != nil {
			return fmt.Errorf("failed to get next question: %w", err)
		}
		result.Next = newQuestionView(nextQuestion)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Answer submitted",
		"sitting_id", sittingID,
		"question_id", req.QuestionID,
		"user_id", principal.UserID,
		"finished", result.Finished)

	if completed != nil {
		events.SafePublish(ctx, s.publisher, events.TopicSittingCompleted, completed)
	}
	return result, nil
}

// Complete closes a sitting whose queue is already empty
func (s *sittingService) Complete(ctx context.Context, principal models.Principal, sittingID uint) (*SittingResult, error) {
	var (
		final     *SittingResult
		completed *events.SittingCompletedEvent
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sitting, err := s.ownedSitting(ctx, tx, principal, sittingID, true)
		if err != nil {
			return err
		}
		if sitting.Complete {
			return fmt.Errorf("%w: sitting %d is complete", ErrInvalidSubmission, sitting.ID)
		}
		if sitting.Remaining() > 0 {
			return fmt.Errorf("%w: %d questions remain", ErrInvalidSubmission, sitting.Remaining())
		}

		quiz, err := s.repo.Quiz().GetByID(ctx, tx, sitting.QuizID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuizNotFound
			}
			return fmt.Errorf("failed to get quiz: %w", err)
		}

		final, completed, err = s.completeSitting(ctx, tx, principal, sitting, quiz)
		return err
	})
	if err != nil {
		return nil, err
	}

	events.SafePublish(ctx, s.publisher, events.TopicSittingCompleted, completed)
	return final, nil
}

// completeSitting writes the result record and then keeps or drops the sitting
// row. Exam papers sat by learners are retained for marking.
func (s *sittingService) completeSitting(ctx context.Context, tx *gorm.DB, principal models.Principal, sitting *models.Sitting, quiz *models.Quiz) (*SittingResult, *events.SittingCompletedEvent, error) {
	if err := sitting.MarkComplete(s.now()); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	sitting.Recalculate()

	retained := quiz.ExamPaper && !principal.IsPrivileged()
	final := newSittingResult(sitting, quiz, retained)

	record := &models.QuizResult{
		SittingID:   sitting.ID,
		UserID:      sitting.UserID,
		QuizID:      sitting.QuizID,
		CourseID:    sitting.CourseID,
		Score:       final.Score,
		MaxScore:    final.MaxScore,
		Percent:     final.Percent,
		Passed:      final.Passed,
		ExamPaper:   quiz.ExamPaper,
		Retained:    retained,
		CompletedAt: *sitting.EndedAt,
	}
	if err := s.repo.Result().Create(ctx, tx, record); err != nil {
		return nil, nil, fmt.Errorf("failed to save quiz result: %w", err)
	}

	if quiz.AnswersAtEnd {
		questions, err := s.repo.Question().GetByIDs(ctx, tx, sitting.QuestionOrder)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get questions for review: %w", err)
		}
		final.IncorrectIDs = slices.Clone(sitting.IncorrectQuestions)
		final.Questions = buildReview(sitting, questions)
	}

	if retained {
		if err := s.repo.Sitting().Update(ctx, tx, sitting); err != nil {
			return nil, nil, fmt.Errorf("failed to update sitting: %w", err)
		}
	} else {
		if err := s.repo.Sitting().Delete(ctx, tx, sitting.ID); err != nil {
			return nil, nil, fmt.Errorf("failed to delete sitting: %w", err)
		}
	}

	s.logger.Info("Sitting completed",
		"sitting_id", sitting.ID,
		"quiz_id", quiz.ID,
		"user_id", sitting.UserID,
		"score", final.Score,
		"max_score", final.MaxScore,
		"retained", retained)

	event := &events.SittingCompletedEvent{
		SittingID:   sitting.ID,
		QuizID:      sitting.QuizID,
		CourseID:    sitting.CourseID,
		UserID:      sitting.UserID,
		Score:       final.Score,
		MaxScore:    final.MaxScore,
		Percent:     final.Percent,
		Passed:      final.Passed,
		Retained:    retained,
		CompletedAt: *sitting.EndedAt,
	}
	return final, event, nil
}

// ===== RESULTS =====

// Result reads a completed sitting. Sittings that were not retained are
// answered from the result record.
func (s *sittingService) Result(ctx context.Context, principal models.Principal, sittingID uint) (*SittingResult, error) {
	sitting, err := s.repo.Sitting().GetByID(ctx, s.db, sittingID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to get sitting: %w", err)
		}
		return s.resultFromHistory(ctx, principal, sittingID)
	}

	if err := s.checkReader(ctx, principal, sitting.UserID, sitting.CourseID, sitting.ID); err != nil {
		return nil, err
	}
	if !sitting.Complete {
		return nil, ErrSittingNotComplete
	}

	result := newSittingResult(sitting, sitting.Quiz, true)
	if sitting.Quiz != nil && sitting.Quiz.AnswersAtEnd {
		questions, err := s.repo.Question().GetByIDs(ctx, s.db, sitting.QuestionOrder)
		if err != nil {
			return nil, fmt.Errorf("failed to get questions for review: %w", err)
		}
		result.IncorrectIDs = slices.Clone(sitting.IncorrectQuestions)
		result.Questions = buildReview(sitting, questions)
	}
	return result, nil
}

func (s *sittingService) resultFromHistory(ctx context.Context, principal models.Principal, sittingID uint) (*SittingResult, error) {
	record, err := s.repo.Result().GetBySitting(ctx, s.db, sittingID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSittingNotFound
		}
		return nil, fmt.Errorf("failed to get quiz result: %w", err)
	}
	if err := s.checkReader(ctx, principal, record.UserID, record.CourseID, sittingID); err != nil {
		return nil, err
	}
	return resultFromRecord(record), nil
}

// ===== HELPERS =====

// ownedSitting loads a sitting the principal is sitting themselves
func (s *sittingService) ownedSitting(ctx context.Context, tx *gorm.DB, principal models.Principal, sittingID uint, lock bool) (*models.Sitting, error) {
	var (
		sitting *models.Sitting
		err     error
	)
	if lock {
		sitting, err = s.repo.Sitting().GetByIDForUpdate(ctx, tx, sittingID)
	} else {
		sitting, err = s.repo.Sitting().GetByID(ctx, tx, sittingID)
	}
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSittingNotFound
		}
		return nil, fmt.Errorf("failed to get sitting: %w", err)
	}
	if sitting.UserID != principal.UserID {
		return nil, NewPermissionError(principal.UserID, sittingID, "sitting", "answer", "not the owner of this sitting")
	}
	return sitting, nil
}

// checkReader allows the sitter and anyone who may mark the course
func (s *sittingService) checkReader(ctx context.Context, principal models.Principal, ownerID string, courseID, sittingID uint) error {
	if ownerID == principal.UserID {
		return nil
	}
	allowed, err := canManageCourse(ctx, s.repo, s.db, principal, courseID)
	if err != nil {
		return err
	}
	if !allowed {
		return NewPermissionError(principal.UserID, sittingID, "sitting", "view", "not the owner or a marker of this course")
	}
	return nil
}

func (s *sittingService) sittingView(sitting *models.Sitting, quiz *models.Quiz, questions []*models.Question) *SittingView {
	view := &SittingView{
		SittingID: sitting.ID,
		QuizID:    quiz.ID,
		CourseID:  sitting.CourseID,
		QuizTitle: quiz.Title,
		Complete:  sitting.Complete,
		Progress:  newSittingProgress(sitting),
		StartedAt: sitting.StartedAt,
	}
	if head, ok := sitting.CurrentQuestionID(); ok {
		view.Question = newQuestionView(findQuestion(questions, head))
	}
	return view
}

// visibleQuiz hides drafts from learners
func visibleQuiz(ctx context.Context, repo repositories.Repository, tx *gorm.DB, principal models.Principal, quizID uint) (*models.Quiz, error) {
	quiz, err := repo.Quiz().GetByID(ctx, tx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.Draft && !principal.IsPrivileged() {
		return nil, ErrQuizNotFound
	}
	return quiz, nil
}

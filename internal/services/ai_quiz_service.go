package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type aiQuizService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	progress  ProgressService
	generator QuestionGenerator
	probe     AIStatusProbe
	publisher events.EventPublisher
	now       func() time.Time
}

func NewAIQuizService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	progress ProgressService,
	generator QuestionGenerator,
	probe AIStatusProbe,
	publisher events.EventPublisher,
) AIQuizService {
	return &aiQuizService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		progress:  progress,
		generator: generator,
		probe:     probe,
		publisher: publisher,
		now:       time.Now,
	}
}

// ===== CONFIGS =====

func (s *aiQuizService) CreateConfig(ctx context.Context, principal models.Principal, req *AIQuizConfigRequest) (*models.GroqQuizConfig, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	course, err := s.repo.Course().GetByID(ctx, s.db, req.CourseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	config := &models.GroqQuizConfig{
		UserID:              principal.UserID,
		CourseID:            course.ID,
		Difficulty:          req.Difficulty,
		NumQuestions:        req.NumQuestions,
		QuestionTypes:       datatypes.NewJSONSlice(slices.Clone(req.QuestionTypes)),
		QuestionsPerSession: req.QuestionsPerSession,
		Topics:              strings.Join(models.SplitTopics(req.Topics), ", "),
	}
	if err := s.repo.AIQuiz().CreateConfig(ctx, s.db, config); err != nil {
		return nil, fmt.Errorf("failed to create ai quiz config: %w", err)
	}
	config.Course = course

	s.logger.Info("AI quiz config created",
		"config_id", config.ID,
		"course_id", course.ID,
		"user_id", principal.UserID)

	return config, nil
}

func (s *aiQuizService) ListConfigs(ctx context.Context, principal models.Principal) ([]*models.GroqQuizConfig, error) {
	configs, err := s.repo.AIQuiz().ListConfigs(ctx, s.db, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ai quiz configs: %w", err)
	}
	return configs, nil
}

// ===== SESSIONS =====

// StartSession generates the full question list once and opens its first
// slice. Generation runs before any transaction is opened.
func (s *aiQuizService) StartSession(ctx context.Context, principal models.Principal, configID uint) (*AISessionView, error) {
	config, err := s.repo.AIQuiz().GetConfig(ctx, s.db, configID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAIConfigNotFound
		}
		return nil, fmt.Errorf("failed to get ai quiz config: %w", err)
	}
	if config.UserID != principal.UserID {
		return nil, NewPermissionError(principal.UserID, configID, "ai_quiz_config", "start", "not the owner of this config")
	}

	course := config.Course
	if course == nil {
		if course, err = s.repo.Course().GetByID(ctx, s.db, config.CourseID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrCourseNotFound
			}
			return nil, fmt.Errorf("failed to get course: %w", err)
		}
	}

	generated, err := s.generator.Generate(ctx, course, GenerationParams{
		Difficulty:    config.Difficulty,
		NumQuestions:  config.NumQuestions,
		QuestionTypes: config.QuestionTypes,
		Topics:        config.TopicList(),
	})
	if err != nil {
		return nil, err
	}
	if len(generated.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	session := models.NewGroqQuizSession(config, generated.Questions, generated.UsedFallback)
	if err := s.repo.AIQuiz().CreateSession(ctx, s.db, session); err != nil {
		return nil, fmt.Errorf("failed to create ai quiz session: %w", err)
	}

	s.logger.Info("AI quiz session started",
		"session_id", session.ID,
		"config_id", config.ID,
		"user_id", principal.UserID,
		"questions", len(generated.Questions),
		"from_cache", generated.FromCache,
		"used_fallback", generated.UsedFallback)

	view := newAISessionView(session, course)
	view.FromCache = generated.FromCache
	return view, nil
}

func (s *aiQuizService) CurrentQuestion(ctx context.Context, principal models.Principal, sessionID uint) (*AISessionView, error) {
	session, err := s.ownedSession(ctx, s.db, principal, sessionID, false)
	if err != nil {
		return nil, err
	}
	return newAISessionView(session, session.Course), nil
}

// SubmitAnswer grades the question at the cursor and feeds the shared
// progress ledger in the same transaction.
func (s *aiQuizService) SubmitAnswer(ctx context.Context, principal models.Principal, sessionID uint, raw string) (*AISubmitResult, error) {
	if err := s.validator.Validate(&validator.AIAnswerRequest{Answer: strings.TrimSpace(raw)}); err != nil {
		return nil, err
	}

	var result *AISubmitResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.ownedSession(ctx, tx, principal, sessionID, true)
		if err != nil {
			return err
		}

		answer, err := session.SubmitAnswer(raw)
		if err != nil {
			return sessionError(err)
		}

		course, err := s.repo.Course().GetByID(ctx, tx, session.CourseID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get course: %w", err)
		}

		earned := 0
		if answer.Correct {
			earned = 1
		}
		if err := s.progress.UpdateScore(ctx, tx, principal.UserID, aiCategory(course), earned, 1); err != nil {
			return err
		}

		if err := s.repo.AIQuiz().UpdateSession(ctx, tx, session); err != nil {
			return fmt.Errorf("failed to update ai quiz session: %w", err)
		}

		result = &AISubmitResult{
			Answer:   answer,
			Progress: newAIProgress(session),
			Next:     newAIQuestionView(session),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("AI answer submitted",
		"session_id", sessionID,
		"index", result.Answer.Index,
		"correct", result.Answer.Correct,
		"user_id", principal.UserID)

	return result, nil
}

// AdvanceSession opens the next slice of the generated list
func (s *aiQuizService) AdvanceSession(ctx context.Context, principal models.Principal, sessionID uint) (*AISessionView, error) {
	var session *models.GroqQuizSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = s.ownedSession(ctx, tx, principal, sessionID, true)
		if err != nil {
			return err
		}

		per := len(session.SessionQuestions)
		config, err := s.repo.AIQuiz().GetConfig(ctx, tx, session.ConfigID)
		switch {
		case err == nil:
			per = config.QuestionsPerSession
		case !repositories.IsNotFoundError(err):
			return fmt.Errorf("failed to get ai quiz config: %w", err)
		}

		if err := session.AdvanceSession(per); err != nil {
			return sessionError(err)
		}
		if err := s.repo.AIQuiz().UpdateSession(ctx, tx, session); err != nil {
			return fmt.Errorf("failed to update ai quiz session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("AI quiz session advanced",
		"session_id", sessionID,
		"session_number", session.SessionNumber,
		"user_id", principal.UserID)

	course, err := s.repo.Course().GetByID(ctx, s.db, session.CourseID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return newAISessionView(session, course), nil
}

// Finish closes the session once the active slice is answered
func (s *aiQuizService) Finish(ctx context.Context, principal models.Principal, sessionID uint) (*AIResult, error) {
	var session *models.GroqQuizSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = s.ownedSession(ctx, tx, principal, sessionID, true)
		if err != nil {
			return err
		}
		if err := session.Finish(s.now()); err != nil {
			return sessionError(err)
		}
		if err := s.repo.AIQuiz().UpdateSession(ctx, tx, session); err != nil {
			return fmt.Errorf("failed to update ai quiz session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("AI quiz session finished",
		"session_id", session.ID,
		"score", session.Score,
		"answered", len(session.Answers),
		"user_id", principal.UserID)

	events.SafePublish(ctx, s.publisher, events.TopicAISessionCompleted, &events.AISessionCompletedEvent{
		SessionID:    session.ID,
		ConfigID:     session.ConfigID,
		CourseID:     session.CourseID,
		UserID:       session.UserID,
		Score:        session.Score,
		Answered:     len(session.Answers),
		Percent:      session.Percent(),
		UsedFallback: session.UsedFallback,
		CompletedAt:  *session.CompletedAt,
	})

	course, err := s.repo.Course().GetByID(ctx, s.db, session.CourseID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return newAIResult(session, course), nil
}

func (s *aiQuizService) Result(ctx context.Context, principal models.Principal, sessionID uint) (*AIResult, error) {
	session, err := s.repo.AIQuiz().GetSession(ctx, s.db, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAISessionNotFound
		}
		return nil, fmt.Errorf("failed to get ai quiz session: %w", err)
	}
	if session.UserID != principal.UserID && !principal.IsSuperuser() {
		return nil, NewPermissionError(principal.UserID, sessionID, "ai_quiz_session", "view", "not the owner of this session")
	}
	return newAIResult(session, session.Course), nil
}

// History lists completed sessions, newest first
func (s *aiQuizService) History(ctx context.Context, principal models.Principal) ([]AIHistoryItem, error) {
	completed := true
	sessions, err := s.repo.AIQuiz().ListSessions(ctx, s.db, principal.UserID, repositories.AISessionFilters{
		Completed: &completed,
		Limit:     repositories.MaxPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ai quiz sessions: %w", err)
	}

	items := make([]AIHistoryItem, 0, len(sessions))
	for _, session := range sessions {
		item := AIHistoryItem{
			SessionID:    session.ID,
			CourseID:     session.CourseID,
			Score:        session.Score,
			Answered:     len(session.Answers),
			Percent:      session.Percent(),
			UsedFallback: session.UsedFallback,
			CompletedAt:  session.CompletedAt,
		}
		if session.Course != nil {
			item.CourseTitle = session.Course.Title
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *aiQuizService) Status(ctx context.Context) (*AIStatus, error) {
	return s.probe.Last(ctx), nil
}

// ===== HELPERS =====

func (s *aiQuizService) ownedSession(ctx context.Context, tx *gorm.DB, principal models.Principal, sessionID uint, lock bool) (*models.GroqQuizSession, error) {
	var (
		session *models.GroqQuizSession
		err     error
	)
	if lock {
		session, err = s.repo.AIQuiz().GetSessionForUpdate(ctx, tx, sessionID)
	} else {
		session, err = s.repo.AIQuiz().GetSession(ctx, tx, sessionID)
	}
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAISessionNotFound
		}
		return nil, fmt.Errorf("failed to get ai quiz session: %w", err)
	}
	if session.UserID != principal.UserID {
		return nil, NewPermissionError(principal.UserID, sessionID, "ai_quiz_session", "use", "not the owner of this session")
	}
	return session, nil
}

// sessionError maps session state errors onto service sentinels
func sessionError(err error) error {
	switch {
	case errors.Is(err, models.ErrSessionFinished):
		return ErrSessionCompleted
	case errors.Is(err, models.ErrNoNextSlice):
		return ErrNoMoreQuestions
	case errors.Is(err, models.ErrSliceExhausted),
		errors.Is(err, models.ErrSliceNotExhausted),
		errors.Is(err, models.ErrInvalidAnswer),
		errors.Is(err, models.ErrUnknownQuestionKind):
		return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	default:
		return err
	}
}

func newAIQuestionView(session *models.GroqQuizSession) *AIQuestionView {
	question, ok := session.CurrentQuestion()
	if !ok {
		return nil
	}
	return &AIQuestionView{
		Index:   session.SliceStart + session.CurrentQuestionIndex,
		Type:    question.Type,
		Content: question.Content,
		Options: slices.Clone(question.Options),
	}
}

func newAIProgress(session *models.GroqQuizSession) AIProgress {
	return AIProgress{
		SessionID:       session.ID,
		SessionNumber:   session.SessionNumber,
		QuestionNumber:  session.CurrentQuestionIndex + 1,
		SessionSize:     len(session.SessionQuestions),
		TotalQuestions:  len(session.Questions),
		SessionProgress: session.SessionProgress(),
		TotalProgress:   session.TotalProgress(),
		Score:           session.Score,
		CanContinue:     session.CanContinue(),
		Completed:       session.Completed,
	}
}

func newAISessionView(session *models.GroqQuizSession, course *models.Course) *AISessionView {
	view := &AISessionView{
		Progress:     newAIProgress(session),
		Question:     newAIQuestionView(session),
		UsedFallback: session.UsedFallback,
	}
	if course != nil {
		view.CourseTitle = course.Title
	}
	return view
}

func newAIResult(session *models.GroqQuizSession, course *models.Course) *AIResult {
	result := &AIResult{
		SessionID:     session.ID,
		CourseID:      session.CourseID,
		Score:         session.Score,
		Answered:      len(session.Answers),
		Total:         len(session.Questions),
		Percent:       session.Percent(),
		SessionNumber: session.SessionNumber,
		Completed:     session.Completed,
		CompletedAt:   session.CompletedAt,
		UsedFallback:  session.UsedFallback,
		Answers:       slices.Clone([]models.AIAnswer(session.Answers)),
	}
	if course != nil {
		result.CourseTitle = course.Title
	}
	return result
}

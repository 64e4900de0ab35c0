package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

const (
	defaultPassMark = 50
	maxSlugAttempts = 20
)

type quizService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewQuizService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
) QuizService {
	return &quizService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *quizService) Create(ctx context.Context, principal models.Principal, req *CreateQuizRequest) (*models.Quiz, error) {
	s.logger.Info("Creating quiz", "creator_id", principal.UserID, "title", req.Title)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.Course().GetByID(ctx, s.db, req.CourseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if err := s.checkAuthor(ctx, principal, req.CourseID, 0, "create"); err != nil {
		return nil, err
	}

	passMark := defaultPassMark
	if req.PassMark != nil {
		passMark = *req.PassMark
	}

	quiz := &models.Quiz{
		CourseID:      req.CourseID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Category:      strings.TrimSpace(req.Category),
		RandomOrder:   req.RandomOrder,
		AnswersAtEnd:  req.AnswersAtEnd,
		ExamPaper:     req.ExamPaper,
		SingleAttempt: req.SingleAttempt,
		PassMark:      passMark,
		Draft:         req.Draft,
		CreatedBy:     principal.UserID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quizSlug, err := s.uniqueSlug(ctx, tx, quiz.Title)
		if err != nil {
			return err
		}
		quiz.Slug = quizSlug

		if err := s.repo.Quiz().Create(ctx, tx, quiz); err != nil {
			return fmt.Errorf("failed to create quiz: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quiz created successfully", "quiz_id", quiz.ID, "slug", quiz.Slug)
	s.afterCreate(ctx, quiz)

	return quiz, nil
}

func (s *quizService) Get(ctx context.Context, principal models.Principal, id uint) (*models.Quiz, error) {
	return visibleQuiz(ctx, s.repo, s.db, principal, id)
}

func (s *quizService) Update(ctx context.Context, principal models.Principal, id uint, req *UpdateQuizRequest) (*models.Quiz, error) {
	s.logger.Info("Updating quiz", "quiz_id", id, "user_id", principal.UserID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz, err := s.getQuiz(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAuthor(ctx, principal, quiz.CourseID, id, "update"); err != nil {
		return nil, err
	}

	applyQuizUpdates(quiz, req)

	if err := s.repo.Quiz().Update(ctx, s.db, quiz); err != nil {
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}

	s.logger.Info("Quiz updated successfully", "quiz_id", id)
	return quiz, nil
}

func (s *quizService) Delete(ctx context.Context, principal models.Principal, id uint) error {
	quiz, err := s.getQuiz(ctx, s.db, id)
	if err != nil {
		return err
	}
	if err := s.checkAuthor(ctx, principal, quiz.CourseID, id, "delete"); err != nil {
		return err
	}

	if err := s.repo.Quiz().Delete(ctx, s.db, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to delete quiz: %w", err)
	}

	s.logger.Info("Quiz deleted", "quiz_id", id, "user_id", principal.UserID)
	return nil
}

// List filters by course; drafts are only listed for lecturers and admins
func (s *quizService) List(ctx context.Context, principal models.Principal, filters repositories.QuizFilters) (*QuizListResponse, error) {
	filters.IncludeDrafts = principal.IsPrivileged()
	filters.Limit, filters.Offset = repositories.NormalizePage(filters.Limit, filters.Offset)

	quizzes, total, err := s.repo.Quiz().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	return &QuizListResponse{
		Quizzes: quizzes,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}, nil
}

// ===== QUESTIONS =====

func (s *quizService) AddMCQuestion(ctx context.Context, principal models.Principal, quizID uint, req *MCQuestionRequest) (*models.Question, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	question := newMCQuestion(req.Content, req.Explanation, req.Figure, req.ChoiceOrder, req.Choices, principal.UserID)
	return s.addQuestion(ctx, principal, quizID, question)
}

func (s *quizService) AddEssayQuestion(ctx context.Context, principal models.Principal, quizID uint, req *EssayQuestionRequest) (*models.Question, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	question := &models.Question{
		Type:        models.Essay,
		Content:     strings.TrimSpace(req.Content),
		Explanation: req.Explanation,
		Figure:      req.Figure,
		CreatedBy:   principal.UserID,
	}
	return s.addQuestion(ctx, principal, quizID, question)
}

func (s *quizService) addQuestion(ctx context.Context, principal models.Principal, quizID uint, question *models.Question) (*models.Question, error) {
	quiz, err := s.getQuiz(ctx, s.db, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAuthor(ctx, principal, quiz.CourseID, quizID, "add_question"); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Question().Create(ctx, tx, question); err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
		if err := s.repo.Quiz().AddQuestions(ctx, tx, quizID, question); err != nil {
			return fmt.Errorf("failed to add question to quiz: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question added to quiz",
		"quiz_id", quizID,
		"question_id", question.ID,
		"type", question.Type)

	return question, nil
}

// ===== HELPERS =====

// afterCreate is the explicit post-create hook
func (s *quizService) afterCreate(ctx context.Context, quiz *models.Quiz) {
	events.SafePublish(ctx, s.publisher, events.TopicQuizCreated, &events.QuizCreatedEvent{
		QuizID:    quiz.ID,
		CourseID:  quiz.CourseID,
		Title:     quiz.Title,
		CreatedBy: quiz.CreatedBy,
		Draft:     quiz.Draft,
		CreatedAt: quiz.CreatedAt,
	})
}

func (s *quizService) getQuiz(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, tx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}

func (s *quizService) checkAuthor(ctx context.Context, principal models.Principal, courseID, quizID uint, action string) error {
	allowed, err := canManageCourse(ctx, s.repo, s.db, principal, courseID)
	if err != nil {
		return err
	}
	if !allowed {
		return NewPermissionError(principal.UserID, quizID, "quiz", action, "only admins or lecturers allocated to the course can author quizzes")
	}
	return nil
}

func (s *quizService) uniqueSlug(ctx context.Context, tx *gorm.DB, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "quiz"
	}

	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := s.repo.Quiz().ExistsBySlug(ctx, tx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check quiz slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", NewBusinessRuleError("unique_slug", "too many quizzes share this title", map[string]interface{}{
		"title": title,
	})
}

func applyQuizUpdates(quiz *models.Quiz, req *UpdateQuizRequest) {
	if req.Title != nil {
		quiz.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.Category != nil {
		quiz.Category = strings.TrimSpace(*req.Category)
	}
	if req.RandomOrder != nil {
		quiz.RandomOrder = *req.RandomOrder
	}
	if req.AnswersAtEnd != nil {
		quiz.AnswersAtEnd = *req.AnswersAtEnd
	}
	if req.ExamPaper != nil {
		quiz.ExamPaper = *req.ExamPaper
	}
	if req.SingleAttempt != nil {
		quiz.SingleAttempt = *req.SingleAttempt
	}
	if req.PassMark != nil {
		quiz.PassMark = *req.PassMark
	}
	if req.Draft != nil {
		quiz.Draft = *req.Draft
	}
}

func newMCQuestion(content, explanation string, figure *string, order models.ChoiceOrder, choices []validator.ChoiceRequest, createdBy string) *models.Question {
	if order == "" {
		order = models.ChoiceOrderNone
	}
	question := &models.Question{
		Type:        models.MultipleChoice,
		Content:     strings.TrimSpace(content),
		Explanation: explanation,
		Figure:      figure,
		ChoiceOrder: order,
		CreatedBy:   createdBy,
	}
	for i, c := range choices {
		question.Choices = append(question.Choices, models.Choice{
			Content:  strings.TrimSpace(c.Content),
			Correct:  c.Correct,
			Position: i,
		})
	}
	return question
}

package services

import (
	"context"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateQuizRequest = validator.QuizCreateRequest
type UpdateQuizRequest = validator.QuizUpdateRequest
type MCQuestionRequest = validator.MCQuestionRequest
type EssayQuestionRequest = validator.EssayQuestionRequest
type AIQuizConfigRequest = validator.AIQuizConfigRequest
type SubmitAnswerRequest = validator.SubmitAnswerRequest

type QuizListResponse struct {
	Quizzes []*models.Quiz `json:"quizzes"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// ImportResult reports how many spreadsheet rows became questions
type ImportResult struct {
	Imported int               `json:"imported"`
	Errors   []ImportRowError  `json:"errors,omitempty"`
	Rows     []ImportRowResult `json:"rows,omitempty"`
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportRowResult struct {
	Row        int                 `json:"row"`
	QuestionID uint                `json:"question_id"`
	Type       models.QuestionType `json:"type"`
}

// ===== SITTING DTOs =====

type ChoiceView struct {
	ID      uint   `json:"id"`
	Content string `json:"content"`
}

// QuestionView is a question as shown to a learner; correctness is hidden
type QuestionView struct {
	ID      uint                `json:"id"`
	Type    models.QuestionType `json:"type"`
	Content string              `json:"content"`
	Figure  *string             `json:"figure,omitempty"`
	Choices []ChoiceView        `json:"choices,omitempty"`
}

type SittingProgress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
	Percent  int `json:"percent"`
}

type SittingView struct {
	SittingID uint            `json:"sitting_id"`
	QuizID    uint            `json:"quiz_id"`
	CourseID  uint            `json:"course_id"`
	QuizTitle string          `json:"quiz_title"`
	Complete  bool            `json:"complete"`
	Progress  SittingProgress `json:"progress"`
	Question  *QuestionView   `json:"question"`
	StartedAt time.Time       `json:"started_at"`
}

// AnswerFeedback describes the previous answer when feedback is immediate
type AnswerFeedback struct {
	QuestionID      uint   `json:"question_id"`
	Answer          string `json:"answer"`
	Graded          bool   `json:"graded"`
	Correct         bool   `json:"correct"`
	CorrectChoiceID uint   `json:"correct_choice_id,omitempty"`
	CorrectAnswer   string `json:"correct_answer,omitempty"`
	Explanation     string `json:"explanation,omitempty"`
}

type SubmitResult struct {
	Previous *AnswerFeedback `json:"previous,omitempty"`
	Finished bool            `json:"finished"`
	Next     *QuestionView   `json:"next,omitempty"`
	Progress SittingProgress `json:"progress"`
	Result   *SittingResult  `json:"result,omitempty"`
}

// ReviewItem is one answered question on a result or marking screen
type ReviewItem struct {
	QuestionID      uint                `json:"question_id"`
	Type            models.QuestionType `json:"type"`
	Content         string              `json:"content"`
	Choices         []models.Choice     `json:"choices,omitempty"`
	Answer          string              `json:"answer"`
	Correct         bool                `json:"correct"`
	CorrectChoiceID uint                `json:"correct_choice_id,omitempty"`
	EssayMark       *int                `json:"essay_mark,omitempty"`
	Explanation     string              `json:"explanation,omitempty"`
}

type SittingResult struct {
	SittingID    uint         `json:"sitting_id"`
	QuizID       uint         `json:"quiz_id"`
	QuizTitle    string       `json:"quiz_title"`
	Score        int          `json:"score"`
	MaxScore     int          `json:"max_score"`
	Percent      int          `json:"percent"`
	PassMark     int          `json:"pass_mark"`
	Passed       bool         `json:"passed"`
	Retained     bool         `json:"retained"`
	IncorrectIDs []uint       `json:"incorrect_questions,omitempty"`
	Questions    []ReviewItem `json:"questions,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at"`
}

// ===== MARKING DTOs =====

type MarkingFilters = repositories.SittingFilters

type SittingSummary struct {
	ID          uint       `json:"id"`
	UserID      string     `json:"user_id"`
	UserName    string     `json:"username"`
	QuizID      uint       `json:"quiz_id"`
	QuizTitle   string     `json:"quiz_title"`
	CourseID    uint       `json:"course_id"`
	Score       int        `json:"score"`
	MaxScore    int        `json:"max_score"`
	Percent     int        `json:"percent"`
	Passed      bool       `json:"passed"`
	CompletedAt *time.Time `json:"completed_at"`
}

type SittingListResponse struct {
	Sittings []SittingSummary `json:"sittings"`
	Total    int64            `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

type MarkingDetail struct {
	SittingSummary
	IncorrectIDs []uint         `json:"incorrect_questions"`
	EssayScores  map[string]int `json:"essay_scores"`
	Questions    []ReviewItem   `json:"questions"`
}

// ===== AI QUIZ DTOs =====

type GenerationParams struct {
	Difficulty    models.AIDifficulty
	NumQuestions  int
	QuestionTypes []models.QuestionType
	Topics        []string
}

type GenerationResult struct {
	Questions    []models.GeneratedQuestion `json:"questions"`
	FromCache    bool                       `json:"from_cache"`
	UsedFallback bool                       `json:"used_fallback"`
}

// AIQuestionView hides the answer key
type AIQuestionView struct {
	Index   int                 `json:"index"`
	Type    models.QuestionType `json:"type"`
	Content string              `json:"content"`
	Options []string            `json:"options,omitempty"`
}

type AIProgress struct {
	SessionID       uint `json:"session_id"`
	SessionNumber   int  `json:"session_number"`
	QuestionNumber  int  `json:"question_number"`
	SessionSize     int  `json:"session_size"`
	TotalQuestions  int  `json:"total_questions"`
	SessionProgress int  `json:"session_progress"`
	TotalProgress   int  `json:"total_progress"`
	Score           int  `json:"score"`
	CanContinue     bool `json:"can_continue"`
	Completed       bool `json:"completed"`
}

type AISessionView struct {
	Progress     AIProgress      `json:"progress"`
	Question     *AIQuestionView `json:"question"`
	CourseTitle  string          `json:"course_title"`
	UsedFallback bool            `json:"used_fallback"`
	FromCache    bool            `json:"from_cache"`
}

type AISubmitResult struct {
	Answer   models.AIAnswer `json:"answer"`
	Progress AIProgress      `json:"progress"`
	Next     *AIQuestionView `json:"next,omitempty"`
}

type AIResult struct {
	SessionID     uint              `json:"session_id"`
	CourseID      uint              `json:"course_id"`
	CourseTitle   string            `json:"course_title"`
	Score         int               `json:"score"`
	Answered      int               `json:"answered"`
	Total         int               `json:"total_questions"`
	Percent       int               `json:"percent"`
	SessionNumber int               `json:"session_number"`
	Completed     bool              `json:"completed"`
	CompletedAt   *time.Time        `json:"completed_at"`
	UsedFallback  bool              `json:"used_fallback"`
	Answers       []models.AIAnswer `json:"answers"`
}

type AIHistoryItem struct {
	SessionID    uint       `json:"session_id"`
	CourseID     uint       `json:"course_id"`
	CourseTitle  string     `json:"course_title"`
	Score        int        `json:"score"`
	Answered     int        `json:"answered"`
	Percent      int        `json:"percent"`
	UsedFallback bool       `json:"used_fallback"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// AIStatus is the last result of the completion endpoint probe
type AIStatus struct {
	Configured  bool       `json:"configured"`
	Model       string     `json:"model"`
	KeyLength   int        `json:"api_key_length"`
	APIWorking  bool       `json:"api_working"`
	Error       string     `json:"error,omitempty"`
	LastChecked *time.Time `json:"last_checked"`
}

// ===== SERVICE INTERFACES =====

type QuizService interface {
	Create(ctx context.Context, principal models.Principal, req *CreateQuizRequest) (*models.Quiz, error)
	Get(ctx context.Context, principal models.Principal, id uint) (*models.Quiz, error)
	Update(ctx context.Context, principal models.Principal, id uint, req *UpdateQuizRequest) (*models.Quiz, error)
	Delete(ctx context.Context, principal models.Principal, id uint) error
	List(ctx context.Context, principal models.Principal, filters repositories.QuizFilters) (*QuizListResponse, error)

	AddMCQuestion(ctx context.Context, principal models.Principal, quizID uint, req *MCQuestionRequest) (*models.Question, error)
	AddEssayQuestion(ctx context.Context, principal models.Principal, quizID uint, req *EssayQuestionRequest) (*models.Question, error)
	ImportQuestions(ctx context.Context, principal models.Principal, quizID uint, r io.Reader) (*ImportResult, error)
}

type SittingService interface {
	Start(ctx context.Context, principal models.Principal, quizID, courseID uint) (*SittingView, error)
	CurrentQuestion(ctx context.Context, principal models.Principal, sittingID uint) (*QuestionView, error)
	SubmitAnswer(ctx context.Context, principal models.Principal, sittingID uint, req *SubmitAnswerRequest) (*SubmitResult, error)
	Complete(ctx context.Context, principal models.Principal, sittingID uint) (*SittingResult, error)
	Result(ctx context.Context, principal models.Principal, sittingID uint) (*SittingResult, error)
}

type MarkingService interface {
	ListSittings(ctx context.Context, principal models.Principal, filters MarkingFilters) (*SittingListResponse, error)
	GetSitting(ctx context.Context, principal models.Principal, id uint) (*MarkingDetail, error)
	ToggleIncorrect(ctx context.Context, principal models.Principal, sittingID, questionID uint) (*MarkingDetail, error)
	SetEssayScore(ctx context.Context, principal models.Principal, sittingID, questionID uint, score int) (*MarkingDetail, error)
}

type ProgressService interface {
	// UpdateScore runs on the caller's transaction
	UpdateScore(ctx context.Context, tx *gorm.DB, userID, category string, earned, possible int) error
	CategoryScores(ctx context.Context, userID string) ([]models.CategoryScore, error)
	Exams(ctx context.Context, userID string) ([]SittingSummary, error)
	Results(ctx context.Context, userID string) ([]*models.QuizResult, error)
}

type QuestionGenerator interface {
	Generate(ctx context.Context, course *models.Course, params GenerationParams) (*GenerationResult, error)
}

type AIQuizService interface {
	CreateConfig(ctx context.Context, principal models.Principal, req *AIQuizConfigRequest) (*models.GroqQuizConfig, error)
	ListConfigs(ctx context.Context, principal models.Principal) ([]*models.GroqQuizConfig, error)
	StartSession(ctx context.Context, principal models.Principal, configID uint) (*AISessionView, error)
	CurrentQuestion(ctx context.Context, principal models.Principal, sessionID uint) (*AISessionView, error)
	SubmitAnswer(ctx context.Context, principal models.Principal, sessionID uint, raw string) (*AISubmitResult, error)
	AdvanceSession(ctx context.Context, principal models.Principal, sessionID uint) (*AISessionView, error)
	Finish(ctx context.Context, principal models.Principal, sessionID uint) (*AIResult, error)
	Result(ctx context.Context, principal models.Principal, sessionID uint) (*AIResult, error)
	History(ctx context.Context, principal models.Principal) ([]AIHistoryItem, error)
	Status(ctx context.Context) (*AIStatus, error)
}

// AIStatusProbe keeps the last completion endpoint check
type AIStatusProbe interface {
	Check(ctx context.Context) *AIStatus
	Last(ctx context.Context) *AIStatus
	Start() error
	Stop()
}

type AcademicService interface {
	SetCurrentSession(ctx context.Context, principal models.Principal, id uint) (*models.AcademicSession, error)
	SetCurrentSemester(ctx context.Context, principal models.Principal, id uint) (*models.Semester, error)
	Current(ctx context.Context) (*repositories.CurrentTerm, error)
}

// ServiceManager wires and owns every service
type ServiceManager interface {
	Quiz() QuizService
	Sitting() SittingService
	Marking() MarkingService
	Progress() ProgressService
	AIQuiz() AIQuizService
	Academic() AcademicService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/llm"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/SAP-F-2025/quiz-service/pkg"
)

var (
	student  = models.Principal{UserID: "student-1", UserName: "ada", Role: models.RoleStudent}
	student2 = models.Principal{UserID: "student-2", UserName: "grace", Role: models.RoleStudent}
	lecturer = models.Principal{UserID: "lecturer-1", UserName: "turing", Role: models.RoleLecturer}
	outsider = models.Principal{UserID: "lecturer-2", UserName: "hopper", Role: models.RoleLecturer}
	admin    = models.Principal{UserID: "admin-1", UserName: "root", Role: models.RoleAdmin}
)

// testEnv is the quiz core on an in-memory sqlite database
type testEnv struct {
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher *events.MockEventPublisher

	progress ProgressService
	quiz     QuizService
	sitting  SittingService
	marking  MarkingService
	academic AcademicService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, pkg.AutoMigrate(db))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, UserRepository: noUsers{}})
	v := validator.New()
	publisher := events.NewMockEventPublisher(log)
	progress := NewProgressService(repo, db, log)

	return &testEnv{
		db:        db,
		repo:      repo,
		logger:    log,
		validator: v,
		publisher: publisher,
		progress:  progress,
		quiz:      NewQuizService(repo, db, log, v, publisher),
		sitting:   NewSittingService(repo, db, log, v, progress, publisher),
		marking:   NewMarkingService(repo, db, log, v, progress),
		academic:  NewAcademicService(repo, db, log),
	}
}

func (e *testEnv) seedCourse(t *testing.T, code, title string) *models.Course {
	t.Helper()
	program := &models.Program{Title: "Program " + code}
	require.NoError(t, e.db.Create(program).Error)
	course := &models.Course{Title: title, Code: code, Slug: "course-" + code, ProgramID: program.ID}
	require.NoError(t, e.db.Create(course).Error)
	return course
}

// allocate assigns courses to a lecturer without touching the course rows
func (e *testEnv) allocate(t *testing.T, lecturerID string, courses ...*models.Course) {
	t.Helper()
	allocation := &models.CourseAllocation{LecturerID: lecturerID}
	for _, c := range courses {
		allocation.Courses = append(allocation.Courses, *c)
	}
	require.NoError(t, e.db.Omit("Courses.*").Create(allocation).Error)
}

type quizOptions struct {
	category      string
	randomOrder   bool
	answersAtEnd  bool
	examPaper     bool
	singleAttempt bool
	draft         bool
	essays        int
}

// seedQuiz creates a quiz with two multiple choice questions followed by the
// requested number of essays. It returns the quiz and the questions in order.
func (e *testEnv) seedQuiz(t *testing.T, course *models.Course, title string, opts quizOptions) (*models.Quiz, []*models.Question) {
	t.Helper()
	ctx := context.Background()
	quiz, err := e.quiz.Create(ctx, admin, &CreateQuizRequest{
		CourseID:      course.ID,
		Title:         title,
		Category:      opts.category,
		RandomOrder:   opts.randomOrder,
		AnswersAtEnd:  opts.answersAtEnd,
		ExamPaper:     opts.examPaper,
		SingleAttempt: opts.singleAttempt,
		Draft:         opts.draft,
	})
	require.NoError(t, err)

	var questions []*models.Question
	for i := 1; i <= 2; i++ {
		q, err := e.quiz.AddMCQuestion(ctx, admin, quiz.ID, &MCQuestionRequest{
			Content:     fmt.Sprintf("Question %d", i),
			Explanation: "Because.",
			Choices: []validator.ChoiceRequest{
				{Content: "right", Correct: true},
				{Content: "wrong"},
			},
		})
		require.NoError(t, err)
		questions = append(questions, q)
	}
	for i := 1; i <= opts.essays; i++ {
		q, err := e.quiz.AddEssayQuestion(ctx, admin, quiz.ID, &EssayQuestionRequest{Content: fmt.Sprintf("Essay %d", i)})
		require.NoError(t, err)
		questions = append(questions, q)
	}
	return quiz, questions
}

func correctChoice(q *models.Question) string {
	return fmt.Sprint(q.CorrectChoice().ID)
}

func wrongChoice(q *models.Question) string {
	for _, c := range q.Choices {
		if !c.Correct {
			return fmt.Sprint(c.ID)
		}
	}
	return ""
}

type noUsers struct{}

func (noUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (noUsers) GetByUserName(ctx context.Context, name string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (noUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	return []*models.User{}, nil
}

func (noUsers) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	return false, nil
}

// fakeLLM is a scripted completion client
type fakeLLM struct {
	mu         sync.Mutex
	configured bool
	reply      string
	err        error
	pingErr    error
	calls      int
	prompts    []string
}

var _ llm.Client = (*fakeLLM)(nil)

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	return f.reply, f.err
}

func (f *fakeLLM) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakeLLM) Configured() bool {
	return f.configured
}

func (f *fakeLLM) Model() string {
	return "llama3-70b-8192"
}

func (f *fakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}


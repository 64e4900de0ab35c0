package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/llm"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/SAP-F-2025/quiz-service/pkg"
)

const (
	studentToken  = "student-token"
	student2Token = "student2-token"
	adminToken    = "admin-token"
	lecturerToken = "lecturer-token"
)

// tokenClaims maps the bearer tokens used in tests onto Casdoor claims
var tokenClaims = map[string]casdoorsdk.User{
	studentToken:  {Id: "student-1", Name: "ada", DisplayName: "Ada", Type: "student"},
	student2Token: {Id: "student-2", Name: "grace", DisplayName: "Grace", Type: "student"},
	lecturerToken: {Id: "lecturer-1", Name: "turing", DisplayName: "Alan Turing", Type: "lecturer"},
	adminToken:    {Id: "admin-1", Name: "root", DisplayName: "Root", IsAdmin: true},
}

type fakeParser struct{}

func (fakeParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	user, ok := tokenClaims[token]
	if !ok {
		return nil, errors.New("token signature is invalid")
	}
	return &casdoorsdk.Claims{User: user}, nil
}

// stubUsers only knows the admin, so the others resolve from their claims
type stubUsers struct{}

var storedAdmin = &models.User{ID: "admin-1", UserName: "root", FullName: "Stored Root", Email: "root@example.edu", Role: models.RoleAdmin}

func (stubUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if id == storedAdmin.ID {
		return storedAdmin, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (stubUsers) GetByUserName(ctx context.Context, name string) (*models.User, error) {
	if name == storedAdmin.UserName {
		return storedAdmin, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (stubUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	return []*models.User{}, nil
}

func (stubUsers) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	return id == storedAdmin.ID && role == models.RoleAdmin, nil
}

// offlineLLM has no API key, so AI sessions fail with a configuration error
type offlineLLM struct{}

func (offlineLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return "", errors.New("not configured")
}

func (offlineLLM) Ping(ctx context.Context) error { return nil }

func (offlineLLM) Configured() bool { return false }

func (offlineLLM) Model() string { return "llama3-70b-8192" }

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	slogLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	log := utils.NewSlogLogger(slogLogger)
	users := stubUsers{}

	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, UserRepository: users})
	serviceManager := services.NewServiceManager(services.ServiceDependencies{
		DB:        db,
		Repo:      repo,
		Logger:    slogLogger,
		Validator: validator.New(),
		LLM:       offlineLLM{},
		Publisher: events.NewMockEventPublisher(slogLogger),
	}, services.ServiceManagerConfig{Groq: config.GroqConfig{Model: "llama3-70b-8192"}})
	require.NoError(t, serviceManager.Initialize(context.Background()))
	t.Cleanup(func() { serviceManager.Shutdown(context.Background()) })

	auth := NewAuthMiddleware(fakeParser{}, users, log)
	router := gin.New()
	SetupMiddleware(router, log, []string{"https://lms.example.edu"})
	NewHandlerManager(serviceManager, log, auth, users).SetupRoutes(router)

	return &testServer{router: router, db: db}
}

func (s *testServer) seedCourse(t *testing.T, code, title string) *models.Course {
	t.Helper()
	program := &models.Program{Title: "Program " + code}
	require.NoError(t, s.db.Create(program).Error)
	course := &models.Course{Title: title, Code: code, Slug: "course-" + code, ProgramID: program.ID}
	require.NoError(t, s.db.Create(course).Error)
	return course
}

// do sends a request with an optional JSON body and bearer token
func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func newRequest(method, path string) (*http.Request, *httptest.ResponseRecorder) {
	return httptest.NewRequest(method, path, nil), httptest.NewRecorder()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// seedQuiz creates a published quiz with two multiple choice questions through the API
func (s *testServer) seedQuiz(t *testing.T, course *models.Course, title string) (*models.Quiz, []*models.Question) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/quizzes", adminToken, map[string]any{
		"course_id": course.ID,
		"title":     title,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	quiz := decode[*models.Quiz](t, w)

	var questions []*models.Question
	for i := 1; i <= 2; i++ {
		w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/quizzes/%d/questions/mc", quiz.ID), adminToken, map[string]any{
			"content":     fmt.Sprintf("Question %d", i),
			"explanation": "Because.",
			"choices": []map[string]any{
				{"content": "right", "correct": true},
				{"content": "wrong"},
			},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		questions = append(questions, decode[*models.Question](t, w))
	}
	return quiz, questions
}

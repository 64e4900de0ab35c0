package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

func TestAIQuizPostgreSQL(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()
	course := seedCourse(t, db, "CS101")

	config := &models.GroqQuizConfig{
		UserID:              "u-1",
		CourseID:            course.ID,
		Difficulty:          models.DifficultyBeginner,
		NumQuestions:        3,
		QuestionTypes:       datatypes.NewJSONSlice([]models.QuestionType{models.TrueFalse}),
		QuestionsPerSession: 2,
	}
	require.NoError(t, repo.AIQuiz().CreateConfig(ctx, nil, config))

	loaded, err := repo.AIQuiz().GetConfig(ctx, nil, config.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Course)
	require.NotNil(t, loaded.Course.Program)
	assert.Equal(t, []models.QuestionType{models.TrueFalse}, []models.QuestionType(loaded.QuestionTypes))

	configs, err := repo.AIQuiz().ListConfigs(ctx, nil, "u-1")
	require.NoError(t, err)
	assert.Len(t, configs, 1)

	questions := []models.GeneratedQuestion{
		{Type: models.TrueFalse, Content: "Go has generics", CorrectAnswer: "True"},
		{Type: models.TrueFalse, Content: "Go has classes", CorrectAnswer: "False"},
		{Type: models.TrueFalse, Content: "Go has goroutines", CorrectAnswer: "True"},
	}
	session := models.NewGroqQuizSession(loaded, questions, true)
	require.NoError(t, repo.AIQuiz().CreateSession(ctx, nil, session))

	locked, err := repo.AIQuiz().GetSessionForUpdate(ctx, nil, session.ID)
	require.NoError(t, err)
	_, err = locked.SubmitAnswer("true")
	require.NoError(t, err)
	require.NoError(t, repo.AIQuiz().UpdateSession(ctx, nil, locked))

	stored, err := repo.AIQuiz().GetSession(ctx, nil, session.ID)
	require.NoError(t, err)
	assert.True(t, stored.UsedFallback)
	assert.Equal(t, 1, stored.Score)
	assert.Equal(t, 1, stored.CurrentQuestionIndex)
	assert.Len(t, stored.Questions, 3)
	assert.Len(t, stored.SessionQuestions, 2)
	require.Len(t, stored.Answers, 1)
	assert.Equal(t, "Go has generics", stored.Answers[0].Question)
	require.NotNil(t, stored.Config)
	require.NotNil(t, stored.Course)

	finished := models.NewGroqQuizSession(loaded, questions[:1], false)
	_, err = finished.SubmitAnswer("true")
	require.NoError(t, err)
	require.NoError(t, finished.Finish(time.Now().UTC()))
	require.NoError(t, repo.AIQuiz().CreateSession(ctx, nil, finished))

	completed := true
	sessions, err := repo.AIQuiz().ListSessions(ctx, nil, "u-1", repositories.AISessionFilters{Completed: &completed})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, finished.ID, sessions[0].ID)

	all, err := repo.AIQuiz().ListSessions(ctx, nil, "u-1", repositories.AISessionFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = repo.AIQuiz().GetSession(ctx, nil, 999)
	assert.True(t, repositories.IsNotFoundError(err))
}

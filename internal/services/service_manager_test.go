package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServiceManager(t *testing.T, env *testEnv, client *fakeLLM, probeOnStart bool) ServiceManager {
	t.Helper()
	caches, _ := newRedisCache(t)
	return NewServiceManager(ServiceDependencies{
		DB:        env.db,
		Repo:      env.repo,
		Logger:    env.logger,
		Validator: env.validator,
		Cache:     caches,
		LLM:       client,
		Publisher: env.publisher,
	}, ServiceManagerConfig{
		Groq:         testGroqConfig(),
		ProbeOnStart: probeOnStart,
	})
}

func TestServiceManager_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sm := newTestServiceManager(t, env, &fakeLLM{configured: true}, true)

	assert.Error(t, sm.HealthCheck(ctx), "not initialized")
	assert.Panics(t, func() { sm.Quiz() })

	require.NoError(t, sm.Initialize(ctx))
	require.NoError(t, sm.Initialize(ctx), "initialize is idempotent")

	assert.NotNil(t, sm.Quiz())
	assert.NotNil(t, sm.Sitting())
	assert.NotNil(t, sm.Marking())
	assert.NotNil(t, sm.Progress())
	assert.NotNil(t, sm.AIQuiz())
	assert.NotNil(t, sm.Academic())

	status, err := sm.AIQuiz().Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.APIWorking, "probe ran during initialize")
	require.NotNil(t, status.LastChecked)

	require.NoError(t, sm.HealthCheck(ctx))

	require.NoError(t, sm.Shutdown(ctx))
	require.NoError(t, sm.Shutdown(ctx))
	assert.Error(t, sm.HealthCheck(ctx))
}

func TestServiceManager_WiresSharedLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.seedCourse(t, "CS201", "Data Structures")
	quiz, questions := env.seedQuiz(t, course, "Stacks", quizOptions{category: "Data Structures"})

	sm := newTestServiceManager(t, env, &fakeLLM{configured: true, reply: threeQuestionsReply}, false)
	require.NoError(t, sm.Initialize(ctx))
	t.Cleanup(func() { sm.Shutdown(ctx) })

	view, err := sm.Sitting().Start(ctx, student, quiz.ID, 0)
	require.NoError(t, err)
	for _, q := range questions {
		_, err := sm.Sitting().SubmitAnswer(ctx, student, view.SittingID, &SubmitAnswerRequest{QuestionID: q.ID, Answer: correctChoice(q)})
		require.NoError(t, err)
	}

	config, err := sm.AIQuiz().CreateConfig(ctx, student, aiConfigRequest(course.ID))
	require.NoError(t, err)
	session, err := sm.AIQuiz().StartSession(ctx, student, config.ID)
	require.NoError(t, err)
	_, err = sm.AIQuiz().SubmitAnswer(ctx, student, session.Progress.SessionID, "1")
	require.NoError(t, err)

	scores, err := sm.Progress().CategoryScores(ctx, student.UserID)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "Data Structures", scores[0].Category)
	assert.Equal(t, 2, scores[0].Correct)
	assert.Equal(t, "Data Structures (AI)", scores[1].Category)
	assert.Equal(t, 1, scores[1].Correct)

	status, err := sm.AIQuiz().Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, status.LastChecked, "no probe without ProbeOnStart or a schedule")
}

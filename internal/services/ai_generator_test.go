package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

const threeQuestionsReply = "Here you go:\n```json\n" + `[
  {"type": "multiple_choice", "content": "Which structure is LIFO?", "options": ["Queue", "Stack", "Heap", "Tree"], "correct_answer": 1, "explanation": "Stacks pop the newest item."},
  {"type": "True_False", "content": "A queue is FIFO.", "correct_answer": "true", "explanation": "First in, first out."},
  {"type": "short_answer", "content": "What does LIFO stand for?", "correct_answer": "Last In First Out", "explanation": "The newest item leaves first."}
]` + "\n```\nGood luck!"

func newRedisCache(t *testing.T) (*cache.CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewCacheManager(client), mr
}

func testGroqConfig() config.GroqConfig {
	return config.GroqConfig{
		APIKey:      "gsk_test",
		Model:       "llama3-70b-8192",
		Temperature: 0.7,
		MaxTokens:   4000,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQuestionGenerator_Generate(t *testing.T) {
	course := &models.Course{ID: 7, Title: "Data Structures", Code: "CS201"}
	params := GenerationParams{
		Difficulty:    models.DifficultyBeginner,
		NumQuestions:  3,
		QuestionTypes: []models.QuestionType{models.TrueFalse, models.MultipleChoice, models.ShortAnswer},
		Topics:        []string{"Stacks", " "},
	}

	t.Run("generates then serves from cache", func(t *testing.T) {
		caches, mr := newRedisCache(t)
		client := &fakeLLM{configured: true, reply: threeQuestionsReply}
		gen := NewQuestionGenerator(client, caches.AIQuiz, testGroqConfig(), discardLogger())

		first, err := gen.Generate(context.Background(), course, params)
		require.NoError(t, err)
		assert.False(t, first.FromCache)
		assert.False(t, first.UsedFallback)
		require.Len(t, first.Questions, 3)
		assert.Equal(t, models.TrueFalse, first.Questions[1].Type)
		assert.Equal(t, models.AnswerKey("True"), first.Questions[1].CorrectAnswer)
		assert.Equal(t, 1, client.Calls())
		assert.Contains(t, client.prompts[0], "Stacks")

		key := "aiquiz:" + GenerationCacheKey(course.ID, normalizeGenerationParams(params))
		assert.True(t, mr.Exists(key))
		assert.Equal(t, cache.AIQuizCacheConfig.TTL, mr.TTL(key))

		second, err := gen.Generate(context.Background(), course, params)
		require.NoError(t, err)
		assert.True(t, second.FromCache)
		assert.Equal(t, first.Questions, second.Questions)
		assert.Equal(t, 1, client.Calls(), "cache hit skips the model")
	})

	t.Run("cached batch trimmed to the requested size", func(t *testing.T) {
		caches, _ := newRedisCache(t)
		client := &fakeLLM{configured: true, reply: threeQuestionsReply}
		gen := NewQuestionGenerator(client, caches.AIQuiz, testGroqConfig(), discardLogger())

		_, err := gen.Generate(context.Background(), course, params)
		require.NoError(t, err)

		key := GenerationCacheKey(course.ID, normalizeGenerationParams(params))
		var cached []models.GeneratedQuestion
		require.NoError(t, caches.AIQuiz.Get(context.Background(), key, &cached))
		cached = append(cached, cached...)
		require.NoError(t, caches.AIQuiz.Set(context.Background(), key, cached, cache.AIQuizCacheConfig.TTL))

		res, err := gen.Generate(context.Background(), course, params)
		require.NoError(t, err)
		assert.True(t, res.FromCache)
		assert.Len(t, res.Questions, 3)
	})

	t.Run("unreadable cache entry is replaced", func(t *testing.T) {
		caches, mr := newRedisCache(t)
		client := &fakeLLM{configured: true, reply: threeQuestionsReply}
		gen := NewQuestionGenerator(client, caches.AIQuiz, testGroqConfig(), discardLogger())

		key := "aiquiz:" + GenerationCacheKey(course.ID, normalizeGenerationParams(params))
		require.NoError(t, mr.Set(key, "[{truncated"))

		res, err := gen.Generate(context.Background(), course, params)
		require.NoError(t, err)
		assert.False(t, res.FromCache)
		assert.Equal(t, 1, client.Calls())

		again, err := gen.Generate(context.Background(), course, params)
		require.NoError(t, err)
		assert.True(t, again.FromCache)
		assert.Equal(t, 1, client.Calls())
	})

	t.Run("missing key is a configuration error", func(t *testing.T) {
		client := &fakeLLM{}
		gen := NewQuestionGenerator(client, cache.NewCacheManager(nil).AIQuiz, config.GroqConfig{}, discardLogger())

		_, err := gen.Generate(context.Background(), course, params)
		assert.ErrorIs(t, err, ErrConfiguration)
		var cerr *ConfigurationError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "GROQ_API_KEY", cerr.Setting)
		assert.Zero(t, client.Calls())
	})

	fallbackCases := []struct {
		name   string
		client *fakeLLM
	}{
		{name: "completion error", client: &fakeLLM{configured: true, err: errors.New("429 too many requests")}},
		{name: "empty reply", client: &fakeLLM{configured: true, reply: "   "}},
		{name: "no json", client: &fakeLLM{configured: true, reply: "I cannot help with that."}},
		{name: "missing explanations", client: &fakeLLM{configured: true, reply: `[{"type":"true_false","content":"A","correct_answer":"True"},{"type":"true_false","content":"B","correct_answer":"False"},{"type":"short_answer","content":"C","correct_answer":"c"}]`}},
		{name: "too few valid questions",client: &fakeLLM{configured: true, reply: `[{"type":"true_false","content":"x","correct_answer":"True"},{"type":"essay","content":"y","correct_answer":"z"}]`}},
	}
	for _, tt := range fallbackCases {
		t.Run("fallback on "+tt.name, func(t *testing.T) {
			caches, mr := newRedisCache(t)
			gen := NewQuestionGenerator(tt.client, caches.AIQuiz, testGroqConfig(), discardLogger())

			res, err := gen.Generate(context.Background(), course, params)
			require.NoError(t, err)
			assert.True(t, res.UsedFallback)
			assert.False(t, res.FromCache)
			assert.Equal(t, FallbackQuestions(3), res.Questions)
			assert.Empty(t, mr.Keys(), "fallback questions are never cached")
		})
	}

	t.Run("works without redis", func(t *testing.T) {
		client := &fakeLLM{configured: true, reply: threeQuestionsReply}
		gen := NewQuestionGenerator(client, cache.NewCacheManager(nil).AIQuiz, testGroqConfig(), discardLogger())

		for range 2 {
			res, err := gen.Generate(context.Background(), course, params)
			require.NoError(t, err)
			assert.False(t, res.FromCache)
		}
		assert.Equal(t, 2, client.Calls())
	})
}

func TestGenerationCacheKey(t *testing.T) {
	tests := []struct {
		name   string
		params GenerationParams
		want   string
	}{
		{
			name: "types sorted and topics lowered",
			params: GenerationParams{
				Difficulty:    models.DifficultyAdvanced,
				NumQuestions:  5,
				QuestionTypes: []models.QuestionType{models.TrueFalse, models.MultipleChoice},
				Topics:        []string{"Stacks", "QUEUES"},
			},
			want: "quiz:4:advanced:5:multiple_choice_true_false:stacks,queues",
		},
		{
			name:   "defaults after normalising",
			params: normalizeGenerationParams(GenerationParams{}),
			want:   "quiz:4:intermediate:10:multiple_choice_short_answer_true_false:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerationCacheKey(4, tt.params))
		})
	}
}

func TestFallbackQuestions(t *testing.T) {
	all := FallbackQuestions(0)
	require.Len(t, all, 5)
	assert.Len(t, FallbackQuestions(2), 2)
	assert.Len(t, FallbackQuestions(50), 5)

	for i := range all {
		assert.NoError(t, all[i].Validate(), all[i].Content)
	}

	all[0].Options[0] = "changed"
	assert.NotEqual(t, "changed", FallbackQuestions(1)[0].Options[0])
}

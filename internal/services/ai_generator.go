package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/llm"
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

type questionGenerator struct {
	client      llm.Client
	cache       *cache.CacheHelper
	cacheConfig cache.CacheConfig
	config      config.GroqConfig
	logger      *slog.Logger
}

func NewQuestionGenerator(client llm.Client, cacheHelper *cache.CacheHelper, cfg config.GroqConfig, logger *slog.Logger) QuestionGenerator {
	cacheConfig := cache.AIQuizCacheConfig
	if cfg.CacheTTL > 0 {
		cacheConfig.TTL = cfg.CacheTTL
	}
	return &questionGenerator{
		client:      client,
		cache:       cacheHelper,
		cacheConfig: cacheConfig,
		config:      cfg,
		logger:      logger,
	}
}

// Generate returns questions for the course from the cache or the model.
// Any upstream failure degrades to the fixed fallback set; only a missing
// API key is reported as an error.
func (g *questionGenerator) Generate(ctx context.Context, course *models.Course, params GenerationParams) (*GenerationResult, error) {
	if !g.client.Configured() {
		return nil, &ConfigurationError{Setting: "GROQ_API_KEY", Message: "groq api key is not configured"}
	}

	params = normalizeGenerationParams(params)
	key := GenerationCacheKey(course.ID, params)

	var cached []models.GeneratedQuestion
	err := g.cache.Get(ctx, key, &cached)
	switch {
	case err == nil && len(cached) > 0:
		g.logger.Info("Returning cached questions", "key", key, "count", len(cached))
		return &GenerationResult{Questions: firstN(cached, params.NumQuestions), FromCache: true}, nil
	case errors.Is(err, cache.ErrCacheCorrupt):
		g.logger.Warn("Dropping unreadable cached questions", "key", key, "error", err)
		cache.SafeDelete(ctx, g.cache, key)
	case err != nil && !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheNotAvailable):
		g.logger.Warn("Failed to read question cache", "key", key, "error", err)
	}

	g.logger.Info("Generating questions",
		"course_id", course.ID,
		"course", course.Title,
		"count", params.NumQuestions,
		"difficulty", params.Difficulty)

	questions, err := g.generate(ctx, course, params)
	if err != nil {
		var genErr *GenerationError
		stage := "unknown"
		if errors.As(err, &genErr) {
			stage = genErr.Stage
		}
		g.logger.Error("Question generation failed, using fallback questions",
			"course_id", course.ID,
			"stage", stage,
			"error", err)
		return &GenerationResult{Questions: FallbackQuestions(params.NumQuestions), UsedFallback: true}, nil
	}

	cache.SafeSet(ctx, g.cache, key, questions, g.cacheConfig)

	return &GenerationResult{Questions: firstN(questions, params.NumQuestions)}, nil
}

func (g *questionGenerator) generate(ctx context.Context, course *models.Course, params GenerationParams) ([]models.GeneratedQuestion, error) {
	text, err := g.client.Complete(ctx, llm.CompletionRequest{
		Model:       g.config.Model,
		Prompt:      BuildPrompt(course, params),
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
	})
	if err != nil {
		return nil, &GenerationError{Stage: "completion", Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &GenerationError{Stage: "completion", Err: llm.ErrEmptyResponse}
	}

	questions, err := ParseGeneratedQuestions(text)
	if err != nil {
		return nil, &GenerationError{Stage: "parse", Err: err}
	}
	if len(questions) < minGeneratedQuestions {
		return nil, &GenerationError{
			Stage: "validate",
			Err:   fmt.Errorf("only %d valid questions in response", len(questions)),
		}
	}

	g.logger.Info("Parsed generated questions", "count", len(questions))
	return questions, nil
}

// GenerationCacheKey identifies a batch by course and normalised parameters
func GenerationCacheKey(courseID uint, params GenerationParams) string {
	types := make([]string, 0, len(params.QuestionTypes))
	for _, t := range params.QuestionTypes {
		types = append(types, string(t))
	}
	slices.Sort(types)

	topics := make([]string, len(params.Topics))
	for i, t := range params.Topics {
		topics[i] = strings.ToLower(t)
	}

	return fmt.Sprintf("quiz:%d:%s:%d:%s:%s",
		courseID,
		params.Difficulty,
		params.NumQuestions,
		strings.Join(types, "_"),
		strings.Join(topics, ","))
}

func normalizeGenerationParams(params GenerationParams) GenerationParams {
	if params.Difficulty == "" {
		params.Difficulty = models.DifficultyIntermediate
	}
	if params.NumQuestions <= 0 {
		params.NumQuestions = 10
	}
	if len(params.QuestionTypes) == 0 {
		params.QuestionTypes = slices.Clone(models.AIQuestionTypes)
	}

	topics := make([]string, 0, len(params.Topics))
	for _, t := range params.Topics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	params.Topics = topics
	return params
}

func firstN(questions []models.GeneratedQuestion, n int) []models.GeneratedQuestion {
	if n > 0 && len(questions) > n {
		return questions[:n]
	}
	return questions
}

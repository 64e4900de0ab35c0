package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/SAP-F-2025/quiz-service/internal/config"
)

const (
	defaultTimeout = 30 * time.Second

	statusPrompt    = "Say 'OK'"
	statusMaxTokens = 5
)

var (
	ErrNotConfigured = errors.New("llm api key is not configured")
	ErrEmptyResponse = errors.New("llm returned no choices")
)

// APIError is a non-2xx response from the completion endpoint
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api returned status %d: %s", e.StatusCode, e.Body)
}

type CompletionRequest struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Client is the completion surface the quiz generator depends on
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Ping(ctx context.Context) error
	Configured() bool
	Model() string
}

// ===== WIRE TYPES =====

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ===== GROQ CLIENT =====

// GroqClient talks to an OpenAI compatible chat completions API
type GroqClient struct {
	http    *resty.Client
	config  config.GroqConfig
	timeout time.Duration
	logger  *slog.Logger
}

func NewGroqClient(cfg config.GroqConfig, logger *slog.Logger) *GroqClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &GroqClient{
		http:    httpClient,
		config:  cfg,
		timeout: timeout,
		logger:  logger,
	}
}

func (c *GroqClient) Configured() bool {
	return c.config.Configured()
}

func (c *GroqClient) Model() string {
	return c.config.Model
}

// Complete sends a single user message and returns the first choice's content
func (c *GroqClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if req.Model == "" {
		req.Model = c.config.Model
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result chatResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.config.APIKey).
		SetBody(chatRequest{
			Model:       req.Model,
			Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		}).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to call llm api: %w", err)
	}

	c.logger.Debug("LLM completion finished",
		"model", req.Model,
		"status", resp.StatusCode(),
		"duration", time.Since(start).String())

	if resp.IsError() {
		return "", &APIError{StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 500)}
	}
	if len(result.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// Ping sends a minimal prompt to confirm the key and model work
func (c *GroqClient) Ping(ctx context.Context) error {
	_, err := c.Complete(ctx, CompletionRequest{
		Model:     c.config.Model,
		Prompt:    statusPrompt,
		MaxTokens: statusMaxTokens,
	})
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

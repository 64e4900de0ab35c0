package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, apiKey string) *GroqClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewGroqClient(config.GroqConfig{
		APIKey:  apiKey,
		Model:   "llama3-70b-8192",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGroqClient_Complete(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  [1,2]  "}}]}`))
	}, "secret")

	out, err := client.Complete(context.Background(), CompletionRequest{
		Prompt:      "generate",
		Temperature: 0.7,
		MaxTokens:   4000,
	})
	require.NoError(t, err)

	assert.Equal(t, "[1,2]", out)
	assert.Equal(t, "llama3-70b-8192", got.Model)
	assert.Equal(t, 4000, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "generate", got.Messages[0].Content)
}

func TestGroqClient_CompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		status  int
		body    string
		wantErr error
		wantAPI int
	}{
		{name: "not configured", apiKey: "", status: http.StatusOK, body: `{}`, wantErr: ErrNotConfigured},
		{name: "server error", apiKey: "k", status: http.StatusInternalServerError, body: `{"error":"boom"}`, wantAPI: http.StatusInternalServerError},
		{name: "rate limited", apiKey: "k", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, wantAPI: http.StatusTooManyRequests},
		{name: "no choices", apiKey: "k", status: http.StatusOK, body: `{"choices":[]}`, wantErr: ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, tt.apiKey)

			_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "x"})
			require.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantAPI != 0 {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tt.wantAPI, apiErr.StatusCode)
			}
		})
	}
}

func TestGroqClient_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, "k")
	client.timeout = 50 * time.Millisecond

	_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	assert.Error(t, err)
}

func TestGroqClient_Ping(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"OK"}}]}`))
	}, "k")

	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, statusMaxTokens, got.MaxTokens)
	assert.Equal(t, statusPrompt, got.Messages[0].Content)
}

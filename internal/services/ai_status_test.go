package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/config"
)

func TestAIStatusProbe_Check(t *testing.T) {
	tests := []struct {
		name        string
		client      *fakeLLM
		cfg         config.GroqConfig
		wantWorking bool
		wantError   string
	}{
		{name: "working", client: &fakeLLM{configured: true}, cfg: testGroqConfig(), wantWorking: true},
		{name: "ping fails", client: &fakeLLM{configured: true, pingErr: errors.New("401 invalid api key")}, cfg: testGroqConfig(), wantError: "401 invalid api key"},
		{name: "not configured", client: &fakeLLM{}, cfg: config.GroqConfig{}, wantError: "GROQ_API_KEY is not set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caches, mr := newRedisCache(t)
			probe := NewAIStatusProbe(tt.client, caches.Status, tt.cfg, discardLogger())

			status := probe.Check(context.Background())
			assert.Equal(t, tt.wantWorking, status.APIWorking)
			assert.Equal(t, tt.wantError, status.Error)
			assert.Equal(t, tt.client.configured, status.Configured)
			assert.Equal(t, len(tt.cfg.APIKey), status.KeyLength)
			assert.Equal(t, "llama3-70b-8192", status.Model)
			require.NotNil(t, status.LastChecked)
			assert.True(t, mr.Exists("status:groq"))

			last := probe.Last(context.Background())
			assert.Equal(t, status.APIWorking, last.APIWorking)
			assert.Equal(t, status.Error, last.Error)
		})
	}
}

func TestAIStatusProbe_Last(t *testing.T) {
	ctx := context.Background()

	t.Run("never checked", func(t *testing.T) {
		probe := NewAIStatusProbe(&fakeLLM{configured: true}, cache.NewCacheManager(nil).Status, testGroqConfig(), discardLogger())
		last := probe.Last(ctx)
		assert.True(t, last.Configured)
		assert.False(t, last.APIWorking)
		assert.Nil(t, last.LastChecked)
	})

	t.Run("prefers a newer shared result", func(t *testing.T) {
		caches, _ := newRedisCache(t)
		client := &fakeLLM{configured: true, pingErr: errors.New("timeout")}
		probe := NewAIStatusProbe(client, caches.Status, testGroqConfig(), discardLogger())
		probe.Check(ctx)

		later := time.Now().Add(time.Minute)
		require.NoError(t, caches.Status.Set(ctx, statusCacheKey, &AIStatus{
			Configured:  true,
			Model:       "llama3-70b-8192",
			APIWorking:  true,
			LastChecked: &later,
		}, time.Minute))

		last := probe.Last(ctx)
		assert.True(t, last.APIWorking)
		assert.Empty(t, last.Error)
	})

	t.Run("ignores an older shared result", func(t *testing.T) {
		caches, _ := newRedisCache(t)
		probe := NewAIStatusProbe(&fakeLLM{configured: true}, caches.Status, testGroqConfig(), discardLogger())
		probe.Check(ctx)

		earlier := time.Now().Add(-time.Hour)
		require.NoError(t, caches.Status.Set(ctx, statusCacheKey, &AIStatus{Error: "stale", LastChecked: &earlier}, time.Minute))

		last := probe.Last(ctx)
		assert.True(t, last.APIWorking)
		assert.Empty(t, last.Error)
	})
}

func TestAIStatusProbe_StartStop(t *testing.T) {
	disabled := NewAIStatusProbe(&fakeLLM{}, cache.NewCacheManager(nil).Status, config.GroqConfig{}, discardLogger())
	require.NoError(t, disabled.Start())
	disabled.Stop()

	cfg := testGroqConfig()
	cfg.StatusSchedule = "not a schedule"
	invalid := NewAIStatusProbe(&fakeLLM{}, cache.NewCacheManager(nil).Status, cfg, discardLogger())
	assert.Error(t, invalid.Start())

	cfg.StatusSchedule = "@every 1h"
	scheduled := NewAIStatusProbe(&fakeLLM{configured: true}, cache.NewCacheManager(nil).Status, cfg, discardLogger())
	require.NoError(t, scheduled.Start())
	scheduled.Stop()
	scheduled.Stop()
}

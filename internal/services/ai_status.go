package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/llm"
)

const (
	statusCacheKey     = "groq"
	statusProbeTimeout = 30 * time.Second
)

// aiStatusProbe pings the completion endpoint on a schedule and keeps the
// last outcome in memory and in redis, so every replica reports the same.
type aiStatusProbe struct {
	client   llm.Client
	cache    *cache.CacheHelper
	config   config.GroqConfig
	logger   *slog.Logger
	schedule string

	mu   sync.RWMutex
	last *AIStatus
	cron *cron.Cron
	now  func() time.Time
}

func NewAIStatusProbe(client llm.Client, cacheHelper *cache.CacheHelper, cfg config.GroqConfig, logger *slog.Logger) AIStatusProbe {
	return &aiStatusProbe{
		client:   client,
		cache:    cacheHelper,
		config:   cfg,
		logger:   logger,
		schedule: cfg.StatusSchedule,
		now:      time.Now,
	}
}

// Check runs the probe now and records the outcome
func (p *aiStatusProbe) Check(ctx context.Context) *AIStatus {
	status := p.baseStatus()
	checked := p.now()
	status.LastChecked = &checked

	if !status.Configured {
		status.Error = "GROQ_API_KEY is not set"
	} else if err := p.client.Ping(ctx); err != nil {
		status.Error = err.Error()
		p.logger.Warn("AI status probe failed", "model", status.Model, "error", err)
	} else {
		status.APIWorking = true
	}

	p.mu.Lock()
	p.last = status
	p.mu.Unlock()

	cache.SafeSet(ctx, p.cache, statusCacheKey, status, cache.StatusCacheConfig)
	return status
}

// Last returns the most recent outcome without calling the endpoint
func (p *aiStatusProbe) Last(ctx context.Context) *AIStatus {
	p.mu.RLock()
	last := p.last
	p.mu.RUnlock()

	var cached AIStatus
	if err := p.cache.Get(ctx, statusCacheKey, &cached); err == nil {
		if last == nil || (cached.LastChecked != nil && last.LastChecked != nil && cached.LastChecked.After(*last.LastChecked)) {
			return &cached
		}
	}
	if last != nil {
		copied := *last
		return &copied
	}
	return p.baseStatus()
}

// Start schedules the probe. An empty schedule disables it.
func (p *aiStatusProbe) Start() error {
	if p.schedule == "" {
		p.logger.Info("AI status probe disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(p.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), statusProbeTimeout)
		defer cancel()
		p.Check(ctx)
	}); err != nil {
		return fmt.Errorf("invalid ai status schedule %q: %w", p.schedule, err)
	}

	c.Start()
	p.mu.Lock()
	p.cron = c
	p.mu.Unlock()

	p.logger.Info("AI status probe started", "schedule", p.schedule)
	return nil
}

func (p *aiStatusProbe) Stop() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
		p.logger.Info("AI status probe stopped")
	}
}

func (p *aiStatusProbe) baseStatus() *AIStatus {
	return &AIStatus{
		Configured: p.client.Configured(),
		Model:      p.client.Model(),
		KeyLength:  len(p.config.APIKey),
	}
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/llm"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Groq config.GroqConfig

	// Global settings
	DefaultTimeout time.Duration
	// ProbeOnStart runs one AI status check during Initialize
	ProbeOnStart bool
}

// ServiceDependencies are the collaborators shared by every service
type ServiceDependencies struct {
	DB        *gorm.DB
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator
	Cache     *cache.CacheManager
	LLM       llm.Client
	Publisher events.EventPublisher
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	deps   ServiceDependencies
	config ServiceManagerConfig

	// Service instances
	quizService     QuizService
	sittingService  SittingService
	markingService  MarkingService
	progressService ProgressService
	aiQuizService   AIQuizService
	academicService AcademicService
	probe           AIStatusProbe

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps ServiceDependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Cache == nil {
		deps.Cache = cache.NewCacheManager(nil)
	}
	if deps.LLM == nil {
		deps.LLM = llm.NewGroqClient(config.Groq, deps.Logger)
	}
	return &serviceManager{
		deps:   deps,
		config: config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(deps ServiceDependencies, groq config.GroqConfig) ServiceManager {
	return NewServiceManager(deps, ServiceManagerConfig{
		Groq:           groq,
		DefaultTimeout: 30 * time.Second,
		ProbeOnStart:   true,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")

	if err := sm.initializeServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices(ctx context.Context) error {
	d := sm.deps

	sm.progressService = NewProgressService(d.Repo, d.DB, d.Logger)
	sm.quizService = NewQuizService(d.Repo, d.DB, d.Logger, d.Validator, d.Publisher)
	sm.sittingService = NewSittingService(d.Repo, d.DB, d.Logger, d.Validator, sm.progressService, d.Publisher)
	sm.markingService = NewMarkingService(d.Repo, d.DB, d.Logger, d.Validator, sm.progressService)
	sm.academicService = NewAcademicService(d.Repo, d.DB, d.Logger)
	d.Logger.Info("Quiz services initialized")

	generator := NewQuestionGenerator(d.LLM, d.Cache.AIQuiz, sm.config.Groq, d.Logger)
	sm.probe = NewAIStatusProbe(d.LLM, d.Cache.Status, sm.config.Groq, d.Logger)
	sm.aiQuizService = NewAIQuizService(d.Repo, d.DB, d.Logger, d.Validator, sm.progressService, generator, sm.probe, d.Publisher)
	d.Logger.Info("AI quiz service initialized", "configured", d.LLM.Configured(), "model", d.LLM.Model())

	if sm.config.ProbeOnStart {
		probeCtx, cancel := context.WithTimeout(ctx, sm.timeout())
		sm.probe.Check(probeCtx)
		cancel()
	}
	if err := sm.probe.Start(); err != nil {
		return err
	}

	return nil
}

func (sm *serviceManager) timeout() time.Duration {
	if sm.config.DefaultTimeout <= 0 {
		return 30 * time.Second
	}
	return sm.config.DefaultTimeout
}

// Service getters
func (sm *serviceManager) Quiz() QuizService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.quizService
}

func (sm *serviceManager) Sitting() SittingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.sittingService
}

func (sm *serviceManager) Marking() MarkingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.markingService
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.progressService
}

func (sm *serviceManager) AIQuiz() AIQuizService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.aiQuizService
}

func (sm *serviceManager) Academic() AcademicService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.academicService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	// Redis is optional; a missing cache only degrades AI generation
	if err := sm.deps.Cache.HealthCheck(ctx); err != nil && err != cache.ErrCacheNotAvailable {
		sm.deps.Logger.Warn("Cache health check failed", "error", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if sm.probe != nil {
		sm.probe.Stop()
	}

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return nil
}

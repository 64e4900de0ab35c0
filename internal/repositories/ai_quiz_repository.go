package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// AIQuizRepository interface for AI quiz configs and sessions
type AIQuizRepository interface {
	// Config operations
	CreateConfig(ctx context.Context, tx *gorm.DB, config *models.GroqQuizConfig) error
	GetConfig(ctx context.Context, tx *gorm.DB, id uint) (*models.GroqQuizConfig, error)
	ListConfigs(ctx context.Context, tx *gorm.DB, userID string) ([]*models.GroqQuizConfig, error)

	// Session operations
	CreateSession(ctx context.Context, tx *gorm.DB, session *models.GroqQuizSession) error
	GetSession(ctx context.Context, tx *gorm.DB, id uint) (*models.GroqQuizSession, error)
	GetSessionForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.GroqQuizSession, error)
	UpdateSession(ctx context.Context, tx *gorm.DB, session *models.GroqQuizSession) error
	ListSessions(ctx context.Context, tx *gorm.DB, userID string, filters AISessionFilters) ([]*models.GroqQuizSession, error)
}

package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type AIQuizPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAIQuizPostgreSQL(db *gorm.DB) repositories.AIQuizRepository {
	return &AIQuizPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// ===== CONFIGS =====

func (a *AIQuizPostgreSQL) CreateConfig(ctx context.Context, tx *gorm.DB, config *models.GroqQuizConfig) error {
	db := a.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(config).Error; err != nil {
		return fmt.Errorf("failed to create ai quiz config: %w", err)
	}
	return nil
}

func (a *AIQuizPostgreSQL) GetConfig(ctx context.Context, tx *gorm.DB, id uint) (*models.GroqQuizConfig, error) {
	db := a.helpers.getDB(tx)
	var config models.GroqQuizConfig
	if err := db.WithContext(ctx).Preload("Course.Program").First(&config, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get ai quiz config %d: %w", id, err)
	}
	return &config, nil
}

func (a *AIQuizPostgreSQL) ListConfigs(ctx context.Context, tx *gorm.DB, userID string) ([]*models.GroqQuizConfig, error) {
	db := a.helpers.getDB(tx)
	var configs []*models.GroqQuizConfig
	err := db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&configs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ai quiz configs: %w", err)
	}
	return configs, nil
}

// ===== SESSIONS =====

func (a *AIQuizPostgreSQL) CreateSession(ctx context.Context, tx *gorm.DB, session *models.GroqQuizSession) error {
	db := a.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create ai quiz session: %w", err)
	}
	return nil
}

func (a *AIQuizPostgreSQL) GetSession(ctx context.Context, tx *gorm.DB, id uint) (*models.GroqQuizSession, error) {
	db := a.helpers.getDB(tx)
	var session models.GroqQuizSession
	if err := db.WithContext(ctx).Preload("Config").Preload("Course").First(&session, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get ai quiz session %d: %w", id, err)
	}
	return &session, nil
}

// GetSessionForUpdate locks the session row; relations are not loaded
func (a *AIQuizPostgreSQL) GetSessionForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.GroqQuizSession, error) {
	db := a.helpers.getDB(tx)
	var session models.GroqQuizSession
	if err := forUpdate(db.WithContext(ctx)).First(&session, id).Error; err != nil {
		return nil, fmt.Errorf("failed to lock ai quiz session %d: %w", id, err)
	}
	return &session, nil
}

func (a *AIQuizPostgreSQL) UpdateSession(ctx context.Context, tx *gorm.DB, session *models.GroqQuizSession) error {
	db := a.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit(clause.Associations).Save(session).Error; err != nil {
		return fmt.Errorf("failed to update ai quiz session: %w", err)
	}
	return nil
}

// ListSessions returns the user's sessions, newest first
func (a *AIQuizPostgreSQL) ListSessions(ctx context.Context, tx *gorm.DB, userID string, filters repositories.AISessionFilters) ([]*models.GroqQuizSession, error) {
	db := a.helpers.getDB(tx)
	query := db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID)

	if filters.Completed != nil {
		query = query.Where("completed = ?", *filters.Completed)
	}

	var sessions []*models.GroqQuizSession
	query = a.helpers.ApplyPagination(query, filters.Limit, filters.Offset)
	if err := query.Order("created_at DESC").Order("id DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list ai quiz sessions: %w", err)
	}
	return sessions, nil
}

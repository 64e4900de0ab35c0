package repositories

import (
	"context"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// UserRepository is a read-only view of identities owned by Casdoor
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUserName(ctx context.Context, name string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
}

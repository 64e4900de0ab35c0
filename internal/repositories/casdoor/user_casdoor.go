package casdoor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

var ErrUserNotFound = errors.New("user not found in casdoor")

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// userSource is the slice of the Casdoor client this repository calls.
type userSource interface {
	GetUser(name string) (*casdoorsdk.User, error)
	GetUserByUserId(userID string) (*casdoorsdk.User, error)
}

type UserCasdoor struct {
	client userSource
	cache  *cache.CacheHelper
}

func NewUserCasdoor(config CasdoorConfig, redisClient *redis.Client) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)
	return newUserCasdoor(client, redisClient)
}

func newUserCasdoor(client userSource, redisClient *redis.Client) *UserCasdoor {
	return &UserCasdoor{
		client: client,
		cache:  cache.NewCacheHelper(redisClient, cache.UserCacheConfig.Prefix),
	}
}

// ===== CONVERSION METHODS =====

func convertCasdoorUser(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}

	var createdAt, updatedAt time.Time
	if casdoorUser.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, casdoorUser.CreatedTime)
	}
	if casdoorUser.UpdatedTime != "" {
		updatedAt, _ = time.Parse(time.RFC3339, casdoorUser.UpdatedTime)
	}

	avatar := casdoorUser.Avatar
	return &models.User{
		ID:            casdoorUser.Id,
		UserName:      casdoorUser.Name,
		FullName:      casdoorUser.DisplayName,
		Email:         casdoorUser.Email,
		Role:          ResolveRole(casdoorUser),
		AvatarURL:     &avatar,
		EmailVerified: casdoorUser.EmailVerified,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

// ResolveRole picks the primary role from Casdoor roles, falling back to the
// user type. Admin wins over everything else.
func ResolveRole(user *casdoorsdk.User) models.UserRole {
	if user.IsAdmin {
		return models.RoleAdmin
	}

	var roles []models.UserRole
	for _, role := range user.Roles {
		if role == nil {
			continue
		}
		if mapped := MapRole(role.Name); !slices.Contains(roles, mapped) {
			roles = append(roles, mapped)
		}
	}
	if slices.Contains(roles, models.RoleAdmin) {
		return models.RoleAdmin
	}
	if len(roles) > 0 {
		return roles[0]
	}
	return MapRole(user.Type)
}

// MapRole maps a Casdoor role name or user type onto the LMS roles.
func MapRole(casdoorType string) models.UserRole {
	switch strings.ToLower(strings.TrimSpace(casdoorType)) {
	case "admin", "administrator", "superuser":
		return models.RoleAdmin
	case "lecturer", "teacher", "instructor":
		return models.RoleLecturer
	case "parent", "guardian":
		return models.RoleParent
	default:
		return models.RoleStudent
	}
}

// ===== READ OPERATIONS =====

func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	return u.lookup(ctx, "id:"+id, func() (*casdoorsdk.User, error) {
		return u.client.GetUserByUserId(id)
	})
}

func (u *UserCasdoor) GetByUserName(ctx context.Context, name string) (*models.User, error) {
	return u.lookup(ctx, "name:"+name, func() (*casdoorsdk.User, error) {
		return u.client.GetUser(name)
	})
}

// GetByIDs skips ids that cannot be resolved
func (u *UserCasdoor) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, err := u.GetByID(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "Failed to resolve user", "user_id", id, "error", err)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func (u *UserCasdoor) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, err := u.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.Role == role, nil
}

func (u *UserCasdoor) lookup(ctx context.Context, key string, fetch func() (*casdoorsdk.User, error)) (*models.User, error) {
	var cached models.User
	if err := u.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	casdoorUser, err := fetch()
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
	}
	user := convertCasdoorUser(casdoorUser)
	if user == nil {
		return nil, ErrUserNotFound
	}

	cache.SafeSet(ctx, u.cache, "id:"+user.ID, user, cache.UserCacheConfig)
	if user.UserName != "" {
		cache.SafeSet(ctx, u.cache, "name:"+user.UserName, user, cache.UserCacheConfig)
	}
	return user, nil
}

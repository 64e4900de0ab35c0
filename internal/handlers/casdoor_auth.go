package handlers

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	casdoorrepo "github.com/SAP-F-2025/quiz-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

const (
	contextUserKey      = "user"
	contextUserIDKey    = "user_id"
	contextUserRoleKey  = "user_role"
	contextPrincipalKey = "principal"
)

// TokenParser validates a bearer token; *casdoorsdk.Client satisfies it
type TokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorAuthMiddleware provides authentication using Casdoor SDK
type CasdoorAuthMiddleware struct {
	parser   TokenParser
	userRepo repositories.UserRepository
	logger   utils.Logger
}

// NewCasdoorAuthMiddleware creates a new Casdoor authentication middleware
func NewCasdoorAuthMiddleware(cfg config.CasdoorConfig, userRepo repositories.UserRepository, logger utils.Logger) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return NewAuthMiddleware(client, userRepo, logger)
}

func NewAuthMiddleware(parser TokenParser, userRepo repositories.UserRepository, logger utils.Logger) *CasdoorAuthMiddleware {
	return &CasdoorAuthMiddleware{
		parser:   parser,
		userRepo: userRepo,
		logger:   logger,
	}
}

// AuthMiddleware returns a Gin middleware function for Casdoor authentication
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "authorization header missing")
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := cam.parser.ParseJwtToken(tokenParts[1])
		if err != nil {
			abortUnauthorized(c, fmt.Sprintf("invalid token: %v", err))
			return
		}

		user, err := cam.extractUserFromClaims(c.Request.Context(), claims)
		if err != nil {
			abortUnauthorized(c, fmt.Sprintf("failed to extract user info: %v", err))
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// RequireRoleMiddleware checks if user has required role; admin always passes
func (cam *CasdoorAuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Message: err.Error(),
			})
			c.Abort()
			return
		}

		if role != models.RoleAdmin && !slices.Contains(requiredRoles, role) {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Message: fmt.Sprintf("insufficient permissions, required role: %v", requiredRoles),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractUserFromClaims prefers the stored profile and falls back to the token
func (cam *CasdoorAuthMiddleware) extractUserFromClaims(ctx context.Context, claims *casdoorsdk.Claims) (*models.User, error) {
	if claims.Id == "" {
		return nil, fmt.Errorf("invalid user ID in token")
	}

	user, err := cam.userRepo.GetByID(ctx, claims.Id)
	if err != nil {
		cam.logger.Warn("Casdoor user lookup failed, using token claims", "user_id", claims.Id, "error", err)
		user = createUserFromClaims(claims)
	}
	return user, nil
}

func createUserFromClaims(claims *casdoorsdk.Claims) *models.User {
	avatarURL := claims.User.Avatar
	now := time.Now()
	return &models.User{
		ID:            claims.Id,
		UserName:      claims.User.Name,
		FullName:      claims.User.DisplayName,
		Email:         claims.User.Email,
		Role:          casdoorrepo.ResolveRole(&claims.User),
		AvatarURL:     &avatarURL,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func setUser(c *gin.Context, user *models.User) {
	c.Set(contextUserIDKey, user.ID)
	c.Set(contextUserKey, user)
	c.Set(contextUserRoleKey, user.Role)
	c.Set(contextPrincipalKey, models.NewPrincipal(user))
}

func abortUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{
		Message: message,
	})
	c.Abort()
}

// GetUserFromContext extracts user from Gin context
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	user, exists := c.Get(contextUserKey)
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	userModel, ok := user.(*models.User)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return userModel, nil
}

// GetPrincipalFromContext returns the actor the services authorize against
func GetPrincipalFromContext(c *gin.Context) (models.Principal, error) {
	value, exists := c.Get(contextPrincipalKey)
	if !exists {
		return models.Principal{}, fmt.Errorf("principal not found in context")
	}

	principal, ok := value.(models.Principal)
	if !ok || principal.UserID == "" {
		return models.Principal{}, fmt.Errorf("invalid principal in context")
	}

	return principal, nil
}

// GetUserRoleFromContext extracts user role from Gin context
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get(contextUserRoleKey)
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}

	role, ok := userRole.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}

	return role, nil
}

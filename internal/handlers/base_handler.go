package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

const (
	redirectResults  = "/api/v1/progress/results"
	redirectAIConfig = "/api/v1/ai-quiz/configs"
)

type ErrorResponse struct {
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Redirect string      `json:"redirect,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries what every handler shares: the logger and the error mapping
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	logger := utils.GetLogger(c, h.logger)
	logger.Info(msg, append(args, "path", c.FullPath())...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	logger := utils.GetLogger(c, h.logger)
	logger.Error(msg, append(args, "error", err, "path", c.FullPath())...)
}

// principal returns the authenticated actor or writes a 401
func (h *BaseHandler) principal(c *gin.Context) (models.Principal, bool) {
	principal, err := GetPrincipalFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return models.Principal{}, false
	}
	return principal, true
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		details := "must be a positive integer"
		if err != nil {
			details = err.Error()
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: details,
		})
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// bindJSON decodes the body or writes a 400
func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	var configError *services.ConfigurationError
	if errors.As(err, &configError) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message:  "AI quiz generation is not available",
			Details:  configError.Error(),
			Redirect: redirectAIConfig,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuizNotFound),
		errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrSittingNotFound),
		errors.Is(err, services.ErrAIConfigNotFound),
		errors.Is(err, services.ErrAISessionNotFound),
		errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrAcademicSessionNotFound),
		errors.Is(err, services.ErrSemesterNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message:  "You have already completed this quiz",
			Redirect: redirectResults,
		})
	case errors.Is(err, services.ErrNoQuestions):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message:  "This quiz has no questions yet",
			Redirect: courseQuizzesPath(c),
		})
	case errors.Is(err, services.ErrInvalidSubmission),
		errors.Is(err, services.ErrNoMoreQuestions):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidWorkbook):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid workbook",
			Details: err.Error(),
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

func courseQuizzesPath(c *gin.Context) string {
	if courseID := c.Param("course_id"); courseID != "" {
		return fmt.Sprintf("/api/v1/courses/%s/quizzes", courseID)
	}
	return ""
}

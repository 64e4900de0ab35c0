package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

// ProgressHandler serves the caller's own score history
type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
}

func NewProgressHandler(progressService services.ProgressService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
	}
}

// GetCategoryScores returns per-category correct/total tallies
// @Summary Category progress
// @Tags progress
// @Produce json
// @Success 200 {array} models.CategoryScore
// @Router /progress [get]
func (h *ProgressHandler) GetCategoryScores(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	scores, err := h.progressService.CategoryScores(c.Request.Context(), principal.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": scores})
}

func (h *ProgressHandler) GetExams(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	exams, err := h.progressService.Exams(c.Request.Context(), principal.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exams": exams})
}

func (h *ProgressHandler) GetResults(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	results, err := h.progressService.Results(c.Request.Context(), principal.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

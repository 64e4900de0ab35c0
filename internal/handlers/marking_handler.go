package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type MarkingHandler struct {
	BaseHandler
	markingService services.MarkingService
}

func NewMarkingHandler(markingService services.MarkingService, logger utils.Logger) *MarkingHandler {
	return &MarkingHandler{
		BaseHandler:    NewBaseHandler(logger),
		markingService: markingService,
	}
}

// ListSittings lists completed, retained sittings the caller may mark
// @Summary List sittings for marking
// @Tags marking
// @Produce json
// @Param quiz query string false "Quiz title contains"
// @Param user query string false "Username contains"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} services.SittingListResponse
// @Failure 403 {object} ErrorResponse
// @Router /marking [get]
func (h *MarkingHandler) ListSittings(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	filters := services.MarkingFilters{
		QuizTitle: c.Query("quiz"),
		UserName:  c.Query("user"),
		Limit:     h.parseIntQuery(c, "limit", repositories.DefaultPageSize),
		Offset:    h.parseIntQuery(c, "offset", 0),
	}

	sittings, err := h.markingService.ListSittings(c.Request.Context(), principal, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sittings)
}

func (h *MarkingHandler) GetSitting(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	detail, err := h.markingService.GetSitting(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// ToggleIncorrect flips an MC answer between correct and incorrect
func (h *MarkingHandler) ToggleIncorrect(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req validator.ToggleIncorrectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Toggling incorrect answer", "sitting_id", id, "question_id", req.QuestionID)

	detail, err := h.markingService.ToggleIncorrect(c.Request.Context(), principal, id, req.QuestionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// SetEssayScore records a 0 or 1 mark for an essay answer
func (h *MarkingHandler) SetEssayScore(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req validator.EssayScoreRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Setting essay score", "sitting_id", id, "question_id", req.QuestionID, "score", req.Score)

	detail, err := h.markingService.SetEssayScore(c.Request.Context(), principal, id, req.QuestionID, req.Score)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type AIQuizHandler struct {
	BaseHandler
	aiQuizService services.AIQuizService
}

func NewAIQuizHandler(aiQuizService services.AIQuizService, logger utils.Logger) *AIQuizHandler {
	return &AIQuizHandler{
		BaseHandler:   NewBaseHandler(logger),
		aiQuizService: aiQuizService,
	}
}

// ===== CONFIGS =====

// CreateConfig stores a generation config for the caller
// @Summary Create AI quiz config
// @Tags ai-quiz
// @Accept json
// @Produce json
// @Param config body services.AIQuizConfigRequest true "Difficulty, counts, question types and topics"
// @Success 201 {object} models.GroqQuizConfig
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Course not found"
// @Router /ai-quiz/configs [post]
func (h *AIQuizHandler) CreateConfig(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.AIQuizConfigRequest
	if !h.bindJSON(c, &req) {
		return
	}

	config, err := h.aiQuizService.CreateConfig(c.Request.Context(), principal, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, config)
}

func (h *AIQuizHandler) ListConfigs(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	configs, err := h.aiQuizService.ListConfigs(c.Request.Context(), principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"configs": configs})
}

// ===== SESSIONS =====

// StartSession generates questions and opens a session
// @Summary Start AI quiz session
// @Description Falls back to a fixed question set when generation fails
// @Tags ai-quiz
// @Produce json
// @Param id path uint true "Config ID"
// @Success 201 {object} services.AISessionView
// @Failure 403 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse "AI key not configured"
// @Router /ai-quiz/configs/{id}/start [post]
func (h *AIQuizHandler) StartSession(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	configID := h.parseIDParam(c, "id")
	if configID == 0 {
		return
	}

	h.LogRequest(c, "Starting AI quiz session", "config_id", configID)

	view, err := h.aiQuizService.StartSession(c.Request.Context(), principal, configID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *AIQuizHandler) CurrentQuestion(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	view, err := h.aiQuizService.CurrentQuestion(c.Request.Context(), principal, sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *AIQuizHandler) SubmitAnswer(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	var req validator.AIAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.aiQuizService.SubmitAnswer(c.Request.Context(), principal, sessionID, req.Answer)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ContinueSession moves to the next slice of generated questions
func (h *AIQuizHandler) ContinueSession(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	view, err := h.aiQuizService.AdvanceSession(c.Request.Context(), principal, sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *AIQuizHandler) FinishSession(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	result, err := h.aiQuizService.Finish(c.Request.Context(), principal, sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AIQuizHandler) GetResult(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	result, err := h.aiQuizService.Result(c.Request.Context(), principal, sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AIQuizHandler) History(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	history, err := h.aiQuizService.History(c.Request.Context(), principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": history})
}

// Status reports the last completion endpoint probe
func (h *AIQuizHandler) Status(c *gin.Context) {
	status, err := h.aiQuizService.Status(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

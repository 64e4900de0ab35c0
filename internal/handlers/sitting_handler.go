package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type SittingHandler struct {
	BaseHandler
	sittingService services.SittingService
}

func NewSittingHandler(sittingService services.SittingService, logger utils.Logger) *SittingHandler {
	return &SittingHandler{
		BaseHandler:    NewBaseHandler(logger),
		sittingService: sittingService,
	}
}

// StartSitting opens or resumes the caller's sitting of a quiz
// @Summary Start or resume a sitting
// @Tags sittings
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param course_id path uint true "Course ID"
// @Success 200 {object} services.SittingView
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already completed or no questions"
// @Router /quizzes/{id}/courses/{course_id}/sittings [post]
func (h *SittingHandler) StartSitting(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	courseID := h.parseIDParam(c, "course_id")
	if courseID == 0 {
		return
	}

	h.LogRequest(c, "Starting sitting", "quiz_id", quizID, "course_id", courseID)

	view, err := h.sittingService.Start(c.Request.Context(), principal, quizID, courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// CurrentQuestion returns the head of the queue, or null once it is empty
func (h *SittingHandler) CurrentQuestion(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	sittingID := h.parseIDParam(c, "id")
	if sittingID == 0 {
		return
	}

	question, err := h.sittingService.CurrentQuestion(c.Request.Context(), principal, sittingID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"question": question,
		"finished": question == nil,
	})
}

// SubmitAnswer records the answer to the head of the queue
// @Summary Answer the current question
// @Tags sittings
// @Accept json
// @Produce json
// @Param id path uint true "Sitting ID"
// @Param answer body services.SubmitAnswerRequest true "Question id and raw answer"
// @Success 200 {object} services.SubmitResult
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Not the current question or sitting complete"
// @Router /sittings/{id}/answers [post]
func (h *SittingHandler) SubmitAnswer(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	sittingID := h.parseIDParam(c, "id")
	if sittingID == 0 {
		return
	}

	var req services.SubmitAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.sittingService.SubmitAnswer(c.Request.Context(), principal, sittingID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *SittingHandler) CompleteSitting(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	sittingID := h.parseIDParam(c, "id")
	if sittingID == 0 {
		return
	}

	result, err := h.sittingService.Complete(c.Request.Context(), principal, sittingID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *SittingHandler) GetResult(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	sittingID := h.parseIDParam(c, "id")
	if sittingID == 0 {
		return
	}

	result, err := h.sittingService.Result(c.Request.Context(), principal, sittingID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type AcademicHandler struct {
	BaseHandler
	academicService services.AcademicService
}

func NewAcademicHandler(academicService services.AcademicService, logger utils.Logger) *AcademicHandler {
	return &AcademicHandler{
		BaseHandler:     NewBaseHandler(logger),
		academicService: academicService,
	}
}

func (h *AcademicHandler) SetCurrentSession(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	session, err := h.academicService.SetCurrentSession(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *AcademicHandler) SetCurrentSemester(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	semester, err := h.academicService.SetCurrentSemester(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, semester)
}

func (h *AcademicHandler) Current(c *gin.Context) {
	term, err := h.academicService.Current(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, term)
}

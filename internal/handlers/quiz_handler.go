package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

// maxImportSize caps uploaded question workbooks
const maxImportSize = 10 << 20

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
	}
}

// ListCourseQuizzes lists the quizzes of a course
// @Summary List course quizzes
// @Description Drafts are only listed for lecturers and admins
// @Tags quizzes
// @Produce json
// @Param course_id path uint true "Course ID"
// @Param category query string false "Category"
// @Param limit query int false "Page size (default: 20, max: 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} services.QuizListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /courses/{course_id}/quizzes [get]
func (h *QuizHandler) ListCourseQuizzes(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	courseID := h.parseIDParam(c, "course_id")
	if courseID == 0 {
		return
	}

	filters := repositories.QuizFilters{
		CourseID:  &courseID,
		Category:  c.Query("category"),
		Limit:     h.parseIntQuery(c, "limit", repositories.DefaultPageSize),
		Offset:    h.parseIntQuery(c, "offset", 0),
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	quizzes, err := h.quizService.List(c.Request.Context(), principal, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quizzes)
}

// CreateQuiz creates a quiz in a course
// @Summary Create quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param quiz body services.CreateQuizRequest true "Quiz data"
// @Success 201 {object} models.Quiz
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes [post]
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.CreateQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating quiz", "course_id", req.CourseID)

	quiz, err := h.quizService.Create(c.Request.Context(), principal, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

// GetQuiz returns one quiz
// @Summary Get quiz
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} models.Quiz
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	quiz, err := h.quizService.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// UpdateQuiz applies a partial update
// @Summary Update quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param quiz body services.UpdateQuizRequest true "Fields to change"
// @Success 200 {object} models.Quiz
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [put]
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	quiz, err := h.quizService.Update(c.Request.Context(), principal, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// DeleteQuiz removes a quiz
// @Summary Delete quiz
// @Tags quizzes
// @Param id path uint true "Quiz ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [delete]
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Quiz deleted successfully",
	})
}

// AddMCQuestion adds a multiple choice question
// @Summary Add multiple choice question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param question body services.MCQuestionRequest true "Question with at least 2 choices, exactly one correct"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/questions/mc [post]
func (h *QuizHandler) AddMCQuestion(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	var req services.MCQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.quizService.AddMCQuestion(c.Request.Context(), principal, quizID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// AddEssayQuestion adds an essay question
// @Summary Add essay question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param question body services.EssayQuestionRequest true "Question"
// @Success 201 {object} models.Question
// @Router /quizzes/{id}/questions/essay [post]
func (h *QuizHandler) AddEssayQuestion(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	var req services.EssayQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.quizService.AddEssayQuestion(c.Request.Context(), principal, quizID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// ImportQuestions imports an .xlsx workbook uploaded as the "file" form field
// @Summary Import questions from a workbook
// @Description Header row: type, content, explanation, choice_1..choice_n, correct. Any row error rejects the whole file.
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param file formData file true "Workbook"
// @Success 201 {object} services.ImportResult
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} services.ImportResult
// @Router /quizzes/{id}/questions/import [post]
func (h *QuizHandler) ImportQuestions(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Workbook file is required",
			Details: err.Error(),
		})
		return
	}
	if fileHeader.Size > maxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Message: "Workbook is too large",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to read workbook",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing questions", "quiz_id", quizID, "file", fileHeader.Filename)

	result, err := h.quizService.ImportQuestions(c.Request.Context(), principal, quizID, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if len(result.Errors) > 0 {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

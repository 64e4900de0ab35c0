package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

const serviceName = "quiz-service"

type HandlerManager struct {
	quizHandler     *QuizHandler
	sittingHandler  *SittingHandler
	markingHandler  *MarkingHandler
	progressHandler *ProgressHandler
	aiQuizHandler   *AIQuizHandler
	academicHandler *AcademicHandler
	userHandler     *UserHandler
	authMiddleware  *CasdoorAuthMiddleware
	health          func(ctx context.Context) error
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:     NewQuizHandler(serviceManager.Quiz(), logger),
		sittingHandler:  NewSittingHandler(serviceManager.Sitting(), logger),
		markingHandler:  NewMarkingHandler(serviceManager.Marking(), logger),
		progressHandler: NewProgressHandler(serviceManager.Progress(), logger),
		aiQuizHandler:   NewAIQuizHandler(serviceManager.AIQuiz(), logger),
		academicHandler: NewAcademicHandler(serviceManager.Academic(), logger),
		userHandler:     NewUserHandler(userRepo, logger),
		authMiddleware:  authMiddleware,
		health:          serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	authoring := hm.authMiddleware.RequireRoleMiddleware(models.RoleLecturer, models.RoleAdmin)
	adminOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		v1.GET("/courses/:course_id/quizzes", hm.quizHandler.ListCourseQuizzes)

		quizzes := v1.Group("/quizzes")
		{
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.POST("", authoring, hm.quizHandler.CreateQuiz)
			quizzes.PUT("/:id", authoring, hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", authoring, hm.quizHandler.DeleteQuiz)

			quizzes.POST("/:id/questions/mc", authoring, hm.quizHandler.AddMCQuestion)
			quizzes.POST("/:id/questions/essay", authoring, hm.quizHandler.AddEssayQuestion)
			quizzes.POST("/:id/questions/import", authoring, hm.quizHandler.ImportQuestions)

			quizzes.POST("/:id/courses/:course_id/sittings", hm.sittingHandler.StartSitting)
		}

		sittings := v1.Group("/sittings")
		{
			sittings.GET("/:id/question", hm.sittingHandler.CurrentQuestion)
			sittings.POST("/:id/answers", hm.sittingHandler.SubmitAnswer)
			sittings.POST("/:id/complete", hm.sittingHandler.CompleteSitting)
			sittings.GET("/:id/result", hm.sittingHandler.GetResult)
		}

		marking := v1.Group("/marking")
		marking.Use(authoring)
		{
			marking.GET("", hm.markingHandler.ListSittings)
			marking.GET("/:id", hm.markingHandler.GetSitting)
			marking.POST("/:id/toggle", hm.markingHandler.ToggleIncorrect)
			marking.POST("/:id/essay-score", hm.markingHandler.SetEssayScore)
		}

		progress := v1.Group("/progress")
		{
			progress.GET("", hm.progressHandler.GetCategoryScores)
			progress.GET("/exams", hm.progressHandler.GetExams)
			progress.GET("/results", hm.progressHandler.GetResults)
		}

		aiQuiz := v1.Group("/ai-quiz")
		{
			aiQuiz.POST("/configs", hm.aiQuizHandler.CreateConfig)
			aiQuiz.GET("/configs", hm.aiQuizHandler.ListConfigs)
			aiQuiz.POST("/configs/:id/start", hm.aiQuizHandler.StartSession)

			aiQuiz.GET("/sessions/:id", hm.aiQuizHandler.CurrentQuestion)
			aiQuiz.POST("/sessions/:id/answers", hm.aiQuizHandler.SubmitAnswer)
			aiQuiz.POST("/sessions/:id/continue", hm.aiQuizHandler.ContinueSession)
			aiQuiz.POST("/sessions/:id/finish", hm.aiQuizHandler.FinishSession)
			aiQuiz.GET("/sessions/:id/result", hm.aiQuizHandler.GetResult)

			aiQuiz.GET("/history", hm.aiQuizHandler.History)
			aiQuiz.GET("/status", hm.aiQuizHandler.Status)
		}

		academic := v1.Group("/academic")
		{
			academic.GET("/current", hm.academicHandler.Current)
			academic.PUT("/sessions/:id/current", adminOnly, hm.academicHandler.SetCurrentSession)
			academic.PUT("/semesters/:id/current", adminOnly, hm.academicHandler.SetCurrentSemester)
		}

		users := v1.Group("/users")
		{
			users.GET("/me", hm.userHandler.Me)
			users.GET("/:id", authoring, hm.userHandler.GetUser)
		}
	}

	router.GET("/health", hm.Health)
}

// Health reports database reachability; unauthenticated
func (hm *HandlerManager) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if hm.health != nil {
		if err := hm.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": serviceName,
				"error":   err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

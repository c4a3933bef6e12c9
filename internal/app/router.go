package app

import (
	"elearning_backend/docs"
	"elearning_backend/internal/config"
	"elearning_backend/internal/middleware"
	"elearning_backend/internal/model"
	"elearning_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. public, no login
	a.registerPublicRoutes(router, c)

	// 2. authenticated
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/public/certificates/:code", c.certificate.Verify)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.POST("/courses/:id/enroll", c.progress.Enroll)
	group.GET("/courses/:id/progress", c.progress.GetProgress)
	group.POST("/lessons/:id/complete", c.progress.CompleteLesson)

	group.GET("/quizzes/:id", c.quiz.GetQuiz)
	group.POST("/quizzes/:id/submit", c.quiz.SubmitQuiz)
	group.GET("/quizzes/:id/attempts", c.quiz.ListAttempts)
	group.GET("/attempts/:id", c.quiz.GetAttempt)

	group.POST("/courses/:id/certificate", c.certificate.Issue)
	group.GET("/certificates/mine", c.certificate.ListMine)
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/courses", c.course.CreateCourse)
		teacher.DELETE("/courses/:id", c.course.DeleteCourse)
		teacher.POST("/courses/:id/sections", c.course.AddSection)
		teacher.POST("/sections/:id/lessons", c.course.AddLesson)
		teacher.POST("/sections/:id/quizzes", c.course.AddQuiz)
		teacher.PATCH("/quizzes/:id/publish", c.course.SetQuizPublished)
	}
}

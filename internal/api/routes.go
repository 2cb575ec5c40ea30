package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumate/internal/api/middleware"
	"resumate/internal/auth"
	"resumate/internal/generation"
	"resumate/internal/jobs"
)

// Deps are the collaborators the handlers share. Queue, Store and Google may be nil.
type Deps struct {
	DB          *gorm.DB
	AuthService *auth.AuthService
	Google      *auth.GoogleProvider
	Redis       redis.UniversalClient
	Queue       TaskEnqueuer
	Store       ArchiveStore
	Jobs        *jobs.Service
	Generator   *generation.Service
	Logger      *slog.Logger
	AuthOptions AuthHandlerOptions
	WSOrigins   []string
}

// RegisterRoutes mounts every endpoint on group, normally /api.
func RegisterRoutes(group *gin.RouterGroup, deps Deps) {
	registerValidation()

	authHandler := NewAuthHandler(deps.DB, deps.AuthService, deps.Google, deps.Redis, deps.Logger, deps.AuthOptions)
	wsHandler := NewWsHandler(deps.Redis, deps.AuthService, deps.Logger, deps.WSOrigins)
	profileHandler := NewProfileHandler(deps.DB)
	experienceHandler := NewExperienceHandler(deps.DB)
	educationHandler := NewEducationHandler(deps.DB)
	certificationHandler := NewCertificationHandler(deps.DB)
	projectHandler := NewProjectHandler(deps.DB)
	jobHandler := NewJobHandler(deps.DB, deps.Jobs)
	applicationHandler := NewApplicationHandler(deps.DB)
	resumeHandler := NewResumeHandler(deps.DB, deps.Queue, deps.Store)
	generateHandler := NewGenerateHandler(deps.DB, deps.Generator, deps.Queue)
	authMiddleware := middleware.AuthMiddleware(deps.AuthService)

	group.GET("/ws", wsHandler.HandleConnection)

	authGroup := group.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/google/login", authHandler.GoogleLogin)
		authGroup.GET("/google/callback", authHandler.GoogleCallback)
	}

	protected := group.Group("")
	protected.Use(authMiddleware)

	profileGroup := protected.Group("/profile")
	{
		profileGroup.GET("", profileHandler.GetProfile)
		profileGroup.POST("", profileHandler.UpsertProfile)
		profileGroup.PUT("", profileHandler.UpsertProfile)

		profileGroup.GET("/experience", experienceHandler.ListExperiences)
		profileGroup.POST("/experience", experienceHandler.CreateExperience)
		profileGroup.GET("/experience/:id", experienceHandler.GetExperience)
		profileGroup.PUT("/experience/:id", experienceHandler.UpdateExperience)
		profileGroup.DELETE("/experience/:id", experienceHandler.DeleteExperience)

		profileGroup.GET("/education", educationHandler.ListEducation)
		profileGroup.POST("/education", educationHandler.CreateEducation)
		profileGroup.GET("/education/:id", educationHandler.GetEducation)
		profileGroup.PUT("/education/:id", educationHandler.UpdateEducation)
		profileGroup.DELETE("/education/:id", educationHandler.DeleteEducation)

		profileGroup.GET("/certification", certificationHandler.ListCertifications)
		profileGroup.POST("/certification", certificationHandler.CreateCertification)
		profileGroup.GET("/certification/:id", certificationHandler.GetCertification)
		profileGroup.PUT("/certification/:id", certificationHandler.UpdateCertification)
		profileGroup.DELETE("/certification/:id", certificationHandler.DeleteCertification)

		profileGroup.GET("/project", projectHandler.ListProjects)
		profileGroup.POST("/project", projectHandler.CreateProject)
		profileGroup.GET("/project/:id", projectHandler.GetProject)
		profileGroup.PUT("/project/:id", projectHandler.UpdateProject)
		profileGroup.DELETE("/project/:id", projectHandler.DeleteProject)
	}

	jobGroup := protected.Group("/jobs")
	{
		jobGroup.GET("", jobHandler.ListJobs)
		jobGroup.POST("", jobHandler.CreateJob)
		jobGroup.GET("/:id", jobHandler.GetJob)
		jobGroup.POST("/:id/user-link", jobHandler.LinkJob)
		jobGroup.DELETE("/:id/user-link", jobHandler.UnlinkJob)
	}
	protected.POST("/process-job", jobHandler.ProcessJob)

	applicationGroup := protected.Group("/applications")
	{
		applicationGroup.GET("", applicationHandler.ListApplications)
		applicationGroup.POST("", applicationHandler.CreateApplication)
		applicationGroup.GET("/:id", applicationHandler.GetApplication)
		applicationGroup.PATCH("/:id", applicationHandler.UpdateApplicationStatus)
		applicationGroup.DELETE("/:id", applicationHandler.DeleteApplication)
	}

	resumeGroup := protected.Group("/resumes")
	{
		resumeGroup.GET("", resumeHandler.ListResumes)
		resumeGroup.POST("", resumeHandler.CreateResume)
		resumeGroup.POST("/generate", generateHandler.GenerateForJob)
		resumeGroup.POST("/reprint", generateHandler.Reprint)
		resumeGroup.POST("/print", generateHandler.Print)
		resumeGroup.GET("/:id", resumeHandler.GetResume)
		resumeGroup.PUT("/:id", resumeHandler.UpdateResume)
		resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
		resumeGroup.POST("/:id/archive", resumeHandler.ArchiveResume)
		resumeGroup.GET("/:id/download-link", resumeHandler.GetDownloadLink)
	}
	protected.POST("/generate-resume", generateHandler.GenerateWithJobInfo)
	protected.POST("/generate-cover-letter", generateHandler.GenerateCoverLetter)
}

package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/labtrack/labtrack-api/api/swagger"
	"github.com/labtrack/labtrack-api/internal/handler"
	"github.com/labtrack/labtrack-api/internal/middleware"
	"github.com/labtrack/labtrack-api/internal/models"
	"github.com/labtrack/labtrack-api/internal/repository"
	"github.com/labtrack/labtrack-api/internal/service"
	"github.com/labtrack/labtrack-api/pkg/cache"
	"github.com/labtrack/labtrack-api/pkg/config"
	"github.com/labtrack/labtrack-api/pkg/database"
	"github.com/labtrack/labtrack-api/pkg/logger"
	corsmiddleware "github.com/labtrack/labtrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/labtrack/labtrack-api/pkg/middleware/requestid"
)

// @title LabTrack API
// @version 1.0.0
// @description Computer lab session tracking and workflow engine
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, summaries will not be cached", "error", err)
		redisClient = nil
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	classRepo := repository.NewClassRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, nil, logr)
	sessionSvc := service.NewSessionService(sessionRepo, userRepo, nil, logr, metricsSvc)
	attendanceSvc := service.NewAttendanceService(sessionRepo, userRepo, cacheRepo, logr, metricsSvc, service.AttendanceServiceConfig{
		SummaryCacheTTL: cfg.Attendance.SummaryCacheTTL,
	})
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, userRepo, classRepo, nil, logr)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, userRepo, nil, logr, metricsSvc)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	feedbackHandler := handler.NewFeedbackHandler(feedbackSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	users := protected.Group("/users")
	{
		users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
		users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), userHandler.List)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Deactivate)
		users.GET("/:id/sessions", middleware.RBAC("ADMIN", "TEACHER", "SELF"), sessionHandler.ListByUser)
		users.GET("/:id/attendance", middleware.RBAC("ADMIN", "TEACHER", "SELF"), attendanceHandler.Today)
		users.GET("/:id/attendance/summary", middleware.RBAC("ADMIN", "TEACHER", "SELF"), attendanceHandler.Summary)
	}

	sessions := protected.Group("/sessions")
	{
		sessions.POST("",
			middleware.RequireRoles(models.RoleAdmin, models.RoleWorkingStudent),
			middleware.Audit(userRepo, models.AuditActionSessionOpen, "session"),
			sessionHandler.Open)
		sessions.PUT("/close",
			middleware.RequireRoles(models.RoleAdmin, models.RoleWorkingStudent),
			middleware.Audit(userRepo, models.AuditActionSessionClose, "session"),
			sessionHandler.Close)
	}

	classes := protected.Group("/classes")
	{
		classes.POST("/:id/enrollments",
			middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher),
			middleware.Audit(userRepo, models.AuditActionEnroll, "enrollment"),
			enrollmentHandler.Enroll)
		classes.DELETE("/:id/enrollments/:studentId",
			middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher),
			middleware.Audit(userRepo, models.AuditActionUnenroll, "enrollment"),
			enrollmentHandler.Unenroll)
		classes.GET("/:id/enrollment-options",
			middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher),
			enrollmentHandler.Options)
	}

	feedback := protected.Group("/feedback")
	{
		feedback.POST("",
			middleware.RequireRoles(models.RoleStudent, models.RoleWorkingStudent),
			feedbackHandler.Submit)
		feedback.GET("/pending",
			middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleWorkingStudent),
			feedbackHandler.ListPending)
		feedback.PUT("/:id/forward",
			middleware.RequireRoles(models.RoleAdmin, models.RoleWorkingStudent),
			middleware.Audit(userRepo, models.AuditActionForwardReport, "feedback"),
			feedbackHandler.Forward)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

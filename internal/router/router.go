package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/config"
	"github.com/stemsi/exstem-engine/internal/handler"
	"github.com/stemsi/exstem-engine/internal/logger"
	"github.com/stemsi/exstem-engine/internal/metrics"
	"github.com/stemsi/exstem-engine/internal/middleware"
	"github.com/stemsi/exstem-engine/internal/response"
	"github.com/stemsi/exstem-engine/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt      *handler.AttemptHandler
	Registration *handler.RegistrationHandler
	Admin        *handler.AdminHandler
	Monitor      *handler.MonitorHandler
	WS           *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// limiter may be nil to disable rate limiting.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	limiter *middleware.RateLimiter,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log and every envelope carry it.
	router.Use(response.RequestIDMiddleware())
	router.Use(logger.GinMiddleware(log))
	router.Use(metrics.Middleware())
	router.Use(middleware.Compress())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api/v1")
	api.Use(middleware.CacheControl("no-store"))
	if limiter != nil {
		api.Use(limiter.Middleware())
	}

	// ─── 1. Student Group (JWT) ────────────────────────────────────────
	studentAPI := api.Group("/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.POST("/exams/:exam_id/register", handlers.Registration.Register)
		studentAPI.GET("/exams/:exam_id/eligibility", handlers.Attempt.Eligibility)
		studentAPI.POST("/exams/:exam_id/attempts", handlers.Attempt.Start)
		studentAPI.GET("/exams/:exam_id/attempts/:attempt_id", handlers.Attempt.Status)

		studentAPI.GET("/attempts/:attempt_id/paper", handlers.Attempt.Paper)
		studentAPI.PUT("/attempts/:attempt_id/answers/:item_id", handlers.Attempt.RecordAnswer)
		studentAPI.POST("/attempts/:attempt_id/submit", handlers.Attempt.Submit)
		studentAPI.GET("/attempts/:attempt_id/result", handlers.Attempt.Result)
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 3. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := api.Group("/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.POST("/papers/:paper_id/generate", handlers.Admin.GeneratePaper)
		adminAPI.GET("/papers/:paper_id/items", handlers.Admin.PaperItems)

		adminAPI.PATCH("/exams/:exam_id/registrations/:user_id", handlers.Registration.SetStatus)
		adminAPI.GET("/exams/:exam_id/monitor", handlers.Monitor.MonitorExamSSE)

		adminAPI.PATCH("/attempts/:attempt_id/status", handlers.Admin.TransitionAttempt)
		adminAPI.POST("/attempts/expire-overdue", handlers.Admin.ExpireOverdue)
	}

	return router
}

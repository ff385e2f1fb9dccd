package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/result-portal/internal/config"
	"github.com/stemsi/result-portal/internal/handler"
	"github.com/stemsi/result-portal/internal/middleware"
	"github.com/stemsi/result-portal/internal/response"
)

// layoutMaxAge is how long clients may cache the exam layout, in seconds.
const layoutMaxAge = 3600

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Health     *handler.HealthHandler
	Layout     *handler.LayoutHandler
	Result     *handler.ResultHandler
	AdminRound *handler.AdminRoundHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work owned by the router, such as rate limiter sweeps.
func SetupRouter(
	ctx context.Context,
	verifier middleware.TokenVerifier,
	handlers *Handlers,
	cfg *config.Config,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.Health.Health)

	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute)

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1/public")
	publicAPI.Use(middleware.CacheControl(layoutMaxAge))
	{
		publicAPI.GET("/layout", handlers.Layout.GetLayout)
	}

	// ─── 1. Student Group (JWT, Rate Limited) ──────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(verifier),
		limiter.Middleware(),
		middleware.NoStore(),
	)
	{
		studentAPI.GET("/rounds", handlers.Result.ListRounds)
		studentAPI.GET("/rounds/:round", handlers.Result.GetRound)
		studentAPI.GET("/rounds/:round/rank", handlers.Result.GetRank)
	}

	// ─── 2. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(verifier), middleware.NoStore())
	{
		adminAPI.PUT("/rounds/:round/sessions/:session/records/:student_id", handlers.AdminRound.UpsertRecord)
		adminAPI.GET("/rounds/:round/results", handlers.AdminRound.ListResults)
		adminAPI.GET("/rounds/:round/results.xlsx", handlers.AdminRound.ExportResults)
		adminAPI.POST("/rounds/:round/finalize", handlers.AdminRound.FinalizeRound)
	}

	return router
}

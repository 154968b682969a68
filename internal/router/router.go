package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stemsi/campus-admin-backend/internal/config"
	"github.com/stemsi/campus-admin-backend/internal/handler"
	"github.com/stemsi/campus-admin-backend/internal/middleware"
	"github.com/stemsi/campus-admin-backend/internal/model"
	"github.com/stemsi/campus-admin-backend/internal/response"
	"github.com/stemsi/campus-admin-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth              *handler.AuthHandler
	Timetable         *handler.DocumentHandler[model.DaySchedule]
	Students          *handler.DocumentHandler[model.Roster]
	Achievements      *handler.DocumentHandler[model.YearAchievements]
	LearningMaterials *handler.DocumentHandler[model.MaterialList]
	Material          *handler.MaterialHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

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
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Metrics())
	router.Use(middleware.Brotli())

	// Uploaded files are named uniquely, so they can be cached for a year.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	// ─── 1. Login (Public, Rate Limited) ───────────────────────────────
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	api.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)

	// ─── 2. Public Reads ───────────────────────────────────────────────
	{
		api.GET("/timetable", handlers.Timetable.Get)
		api.GET("/students", handlers.Students.Get)
		api.GET("/achievements", handlers.Achievements.Get)
		api.GET("/learning-materials", handlers.LearningMaterials.List)
	}

	// ─── 3. Admin Group (JWT + Role) ───────────────────────────────────
	adminAPI := api.Group("")
	adminAPI.Use(
		middleware.RequireAuth(authService),
		middleware.RequireRole(model.RoleAdmin),
	)
	{
		adminAPI.GET("/me", handlers.Auth.Me)
		adminAPI.PUT("/timetable", handlers.Timetable.Update)
		adminAPI.PUT("/students", handlers.Students.Update)
		adminAPI.PUT("/achievements", handlers.Achievements.Update)
		adminAPI.POST("/upload", handlers.Material.Upload)
	}

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	return router
}

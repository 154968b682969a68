package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/campus-admin-backend/internal/cache"
	"github.com/stemsi/campus-admin-backend/internal/config"
	"github.com/stemsi/campus-admin-backend/internal/database"
	"github.com/stemsi/campus-admin-backend/internal/handler"
	"github.com/stemsi/campus-admin-backend/internal/logger"
	"github.com/stemsi/campus-admin-backend/internal/model"
	"github.com/stemsi/campus-admin-backend/internal/repository"
	"github.com/stemsi/campus-admin-backend/internal/router"
	"github.com/stemsi/campus-admin-backend/internal/service"
	"github.com/stemsi/campus-admin-backend/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	serverLog := logger.Component(log, "server")
	serverLog.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("storage", cfg.StorageDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting campus admin backend")

	if err := cfg.Validate(); err != nil {
		serverLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Document Store ────────────────────────────────────────────────
	var repo repository.DocumentRepository
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		serverLog.Warn().Msg("Using in-memory document store, data is lost on restart")
		repo = repository.NewMemoryDocumentRepository()
	default:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			serverLog.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		repo = repository.NewPostgresDocumentRepository(pool)
	}

	// ─── Document Cache (optional) ─────────────────────────────────────
	var docCache service.DocumentCache
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		serverLog.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
		docCache = cache.NewDocumentCache(rdb, cfg.CacheTTL)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService, err := service.NewAuthService(cfg, log)
	if err != nil {
		serverLog.Fatal().Err(err).Msg("Failed to initialize admin identity")
	}
	timetable := service.NewDocumentService[model.DaySchedule](model.KindTimetable, repo, docCache, log)
	students := service.NewDocumentService[model.Roster](model.KindStudents, repo, docCache, log)
	achievements := service.NewDocumentService[model.YearAchievements](model.KindAchievements, repo, docCache, log)
	materials := service.NewDocumentService[model.MaterialList](model.KindLearningMaterial, repo, docCache, log)
	materialService := service.NewMaterialService(cfg, materials, log)

	// ─── Prewarm Document Cache ───────────────────────────────────────
	// Creates missing singletons and fills the cache before accepting traffic.
	if docCache != nil {
		prewarm := []func(context.Context) error{
			func(ctx context.Context) error { _, err := timetable.Get(ctx); return err },
			func(ctx context.Context) error { _, err := students.Get(ctx); return err },
			func(ctx context.Context) error { _, err := achievements.Get(ctx); return err },
		}
		for _, warm := range prewarm {
			if err := warm(ctx); err != nil {
				serverLog.Warn().Err(err).Msg("Cache prewarm failed")
			}
		}
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:              handler.NewAuthHandler(authService),
		Timetable:         handler.NewDocumentHandler(timetable),
		Students:          handler.NewDocumentHandler(students),
		Achievements:      handler.NewDocumentHandler(achievements),
		LearningMaterials: handler.NewDocumentHandler(materials),
		Material:          handler.NewMaterialHandler(materialService, cfg.MaxUploadBytes),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		serverLog.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLog.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	serverLog.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		serverLog.Error().Err(err).Msg("HTTP server shutdown error")
	}

	serverLog.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

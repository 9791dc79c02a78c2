package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/stemsi/exstem-engine/internal/cache"
	"github.com/stemsi/exstem-engine/internal/config"
	"github.com/stemsi/exstem-engine/internal/database"
	"github.com/stemsi/exstem-engine/internal/handler"
	"github.com/stemsi/exstem-engine/internal/logger"
	"github.com/stemsi/exstem-engine/internal/metrics"
	"github.com/stemsi/exstem-engine/internal/middleware"
	"github.com/stemsi/exstem-engine/internal/repository"
	"github.com/stemsi/exstem-engine/internal/repository/memstore"
	"github.com/stemsi/exstem-engine/internal/router"
	"github.com/stemsi/exstem-engine/internal/service"
	"github.com/stemsi/exstem-engine/internal/validator"
	"github.com/stemsi/exstem-engine/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExStem Engine")

	// ─── Initialize Validator & Metrics ────────────────────────────────
	validator.Setup()
	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Select Store ──────────────────────────────────────────────────
	var store repository.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		store = memstore.New()
	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		store = repository.NewPgStore(pool)
	default:
		log.Fatal().Str("driver", cfg.StoreDriver).Msg("Unknown STORE_DRIVER")
	}

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	// Ports stay nil interfaces when Redis is absent.
	var (
		paperCache service.PaperCache
		results    service.ResultPublisher
		events     service.EventPublisher
		bus        *cache.MonitorBus
	)
	if rdb != nil {
		defer rdb.Close()
		paperCache = cache.NewPaperCache(rdb, cfg.PaperCacheTTL)
		results = cache.NewResultQueue(rdb)
		bus = cache.NewMonitorBus(rdb)
		events = bus
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	paperService := service.NewPaperService(store, paperCache, log)
	attemptService := service.NewAttemptService(store, paperService, results, events, cfg.DefaultNegativeMark, log)
	registrationService := service.NewRegistrationService(store, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Attempt:      handler.NewAttemptHandler(attemptService, log),
		Registration: handler.NewRegistrationHandler(registrationService, log),
		Admin:        handler.NewAdminHandler(paperService, attemptService, log),
		Monitor:      handler.NewMonitorHandler(bus, attemptService, log),
		WS:           handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	if rdb != nil {
		resultWorker := worker.NewResultWorker(rdb, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			resultWorker.Start(workerCtx)
		}()
	}

	if cfg.SweepSchedule != "" {
		sweeper := worker.NewTimeoutSweeper(attemptService, cfg.SweepSchedule, cfg.SweepBatchSize, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := sweeper.Start(workerCtx); err != nil {
				log.Error().Err(err).Str("schedule", cfg.SweepSchedule).Msg("Timeout sweeper not started")
			}
		}()
	} else {
		log.Warn().Msg("Timeout sweep disabled; overdue attempts are only closed lazily")
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, workerCtx.Done())
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg, limiter, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout). SSE and WebSocket
	// streams watch the request context and end on their own.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers; the result worker flushes its last batch.
	workerCancel()
	done := make(chan struct{})
	go func() {
		workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Workers did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

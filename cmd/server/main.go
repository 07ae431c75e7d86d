package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"link-shortener/internal/cleanup"
	"link-shortener/internal/config"
	"link-shortener/internal/counter"
	"link-shortener/internal/events"
	"link-shortener/internal/flush"
	httpHandler "link-shortener/internal/handler/http"
	"link-shortener/internal/ratelimit"
	"link-shortener/internal/repository/postgres"
	redisCache "link-shortener/internal/repository/redis"
	"link-shortener/internal/service"
	"link-shortener/pkg/logger"
)

// main wires the whole system together with manual dependency injection:
// no container, no reflection, every dependency visible in one place.
//
// STARTUP FLOW:
//  1. Config and logger
//  2. Infrastructure: PostgreSQL pool, Redis client, NATS connection
//  3. Repositories -> services -> HTTP handler
//  4. Background pipeline: click aggregator + flush worker
//  5. HTTP server with graceful shutdown
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.App.LogLevel)
	appLogger.Info("Starting link shortener",
		"environment", cfg.App.Environment,
		"port", cfg.Server.Port,
	)

	// Root context canceled on shutdown; the aggregator and flush worker
	// hang off it
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Infrastructure ----

	db, err := postgres.InitDB(
		ctx,
		cfg.Database.DatabaseDSN(),
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()
	appLogger.Info("Database connection established")

	redisClient, err := counter.InitRedis(cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	appLogger.Info("Redis connection established")

	// Watermill has its own logging interface; bridge it to slog
	wmLogger := logger.NewWatermillAdapter(appLogger.Logger)

	natsCfg := events.DefaultNATSConfig(cfg.NATS.URL)
	natsCfg.QueueGroup = cfg.NATS.QueueGroup
	natsCfg.DurableName = cfg.NATS.DurableName

	natsPublisher, err := events.NewNATSPublisher(natsCfg, wmLogger)
	if err != nil {
		log.Fatalf("NATS publisher setup failed: %v", err)
	}

	natsSubscriber, err := events.NewNATSSubscriber(natsCfg, wmLogger)
	if err != nil {
		log.Fatalf("NATS subscriber setup failed: %v", err)
	}
	appLogger.Info("Event channel connected", "url", cfg.NATS.URL)

	// ---- Repositories ----

	urlRepo := postgres.NewURLRepository(db)
	abuseRepo := postgres.NewAbuseRepository(db)
	blacklistRepo := postgres.NewBlacklistRepository(db)
	cache := redisCache.NewCache(redisClient, cfg.Redis.CacheTTL, cfg.Redis.QRTTL)
	counterStore := counter.NewRedisStore(redisClient)

	// ---- Click pipeline ----

	clickPublisher := events.NewPublisher(natsPublisher, appLogger.Logger)
	defer clickPublisher.Close()

	aggregator := events.NewAggregator(natsSubscriber, counterStore, cfg.Flush.PendingTTL, appLogger.Logger)
	go func() {
		if err := aggregator.Run(ctx); err != nil && ctx.Err() == nil {
			appLogger.Error("Aggregator stopped", "error", err)
		}
	}()

	flushWorker := flush.NewWorker(counterStore, urlRepo, flush.Config{
		Interval:  cfg.Flush.Interval,
		BatchSize: cfg.Flush.BatchSize,
		ScanCount: int64(cfg.Flush.ScanCount),
	}, appLogger.Logger)
	go flushWorker.Run(ctx)

	cleanupWorker := cleanup.NewWorker(urlRepo, cleanup.Config{
		DeactivateInterval: cfg.Cleanup.DeactivateInterval,
		PurgeInterval:      cfg.Cleanup.PurgeInterval,
		PurgeAfter:         cfg.Cleanup.PurgeAfter,
	}, appLogger.Logger)
	go cleanupWorker.Run(ctx)

	// ---- Admission control ----

	limiter := ratelimit.NewLimiter(counterStore, abuseRepo, ratelimit.Config{
		Enabled:      cfg.RateLimit.Enabled,
		PostCapacity: cfg.RateLimit.PostCapacity,
		GetCapacity:  cfg.RateLimit.GetCapacity,
		Window:       cfg.RateLimit.Window,
		FailOpen:     cfg.RateLimit.FailOpen,
	}, appLogger.Logger)

	// ---- Services and HTTP ----

	urlService := service.NewURLService(
		urlRepo, blacklistRepo, abuseRepo, cache, clickPublisher,
		cfg.App.ShortKeyLength, cfg.App.MinShortKeyLen, appLogger.Logger,
	)
	adminService := service.NewAdminService(blacklistRepo, abuseRepo, appLogger.Logger)
	qrService := service.NewQRService(urlRepo, cache, cfg.App.BaseURL, cfg.App.DefaultQRSize, appLogger.Logger)

	handler := httpHandler.NewHandler(urlService, adminService, qrService, appLogger.Logger, cfg.App.BaseURL)
	router := httpHandler.NewRouter(handler, limiter, cfg.App.EnableMetrics)

	// Execution order (outside-in): Recovery catches panics from
	// everything below; Logging sees every request; Metrics records the
	// final status code
	middlewares := []func(http.Handler) http.Handler{
		httpHandler.RecoveryMiddleware(appLogger.Logger),
		httpHandler.LoggingMiddleware(appLogger.Logger),
		httpHandler.RequestIDMiddleware,
	}
	if cfg.App.EnableMetrics {
		middlewares = append(middlewares, httpHandler.MetricsMiddleware)
	}
	middlewares = append(middlewares, httpHandler.CORSMiddleware)
	finalHandler := httpHandler.Chain(middlewares...)(router)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      finalHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", "error", err)
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// ---- Graceful shutdown ----
	// Stop accepting requests, drain in-flight ones, then cancel the
	// pipeline. An in-flight flush either completes or leaves its deltas
	// pending for the next start; the durable subscriber resumes the
	// click stream where it left off.

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	// Stop the aggregator and flush worker after the HTTP server has
	// drained, so redirects landing during the drain still get tracked
	cancel()

	appLogger.Info("Server exited gracefully")
}

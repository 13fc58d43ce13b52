package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boxscan/scan-service/internal/scan/client"
	"github.com/boxscan/scan-service/internal/scan/consumers"
	"github.com/boxscan/scan-service/internal/scan/events"
	"github.com/boxscan/scan-service/internal/scan/handler"
	"github.com/boxscan/scan-service/internal/scan/repository"
	"github.com/boxscan/scan-service/internal/scan/service"
	"github.com/boxscan/scan-service/migrations"
	"github.com/boxscan/scan-service/pkg/config"
	"github.com/boxscan/scan-service/pkg/database"
	"github.com/boxscan/scan-service/pkg/httputil"
	"github.com/boxscan/scan-service/pkg/logger"
	"github.com/boxscan/scan-service/pkg/messaging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(config.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(config.ServiceName, cfg.Server.Environment)
	log.Info().Msg("starting Scan Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, db.DB, cfg.Database.Schema); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		log.Info().Str("schema", cfg.Database.Schema).Msg("migrations applied")
	}

	// Backend clients
	timeout := cfg.Services.HTTPTimeout
	boxes := client.NewBoxClient(cfg.Services.BoxDirectoryURL, timeout, log)
	ledger := client.NewInventoryClient(cfg.Services.InventoryLedgerURL, timeout, log)
	txlog := client.NewTransactionClient(cfg.Services.TransactionLogURL, timeout, log)
	storeClient := client.NewStoreClient(cfg.Services.StoreDirectoryURL, timeout, log)

	// Store list cache (optional)
	var (
		stores service.StoreDirectory = storeClient
		cache  *client.CachedStoreDirectory
		rdb    *redis.Client
	)
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, store cache will fall through")
		}
		cache = client.NewCachedStoreDirectory(storeClient, rdb, cfg.Redis.StoreCacheTTL, log)
		stores = cache
	}

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()
	rmq.WatchConnection(ctx)

	if err := rmq.DeclareDeadLetterQueue(config.ServiceName); err != nil {
		log.Fatal().Err(err).Msg("failed to declare dead letter queue")
	}

	// Initialize event publisher
	publisher, err := events.NewScanEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Assemble the scan workflow
	snapshots := service.NewSnapshotReader(ledger, log)
	controller := service.NewController(
		service.NewBoxResolver(boxes, log),
		service.NewEngine(boxes, snapshots, stores, log),
		service.NewStockOutExecutor(snapshots, txlog, log),
		log,
	)
	scanService := service.NewScanService(sessionRepo, controller, stores, auditRepo, publisher, log)

	// Initialize handlers
	scanHandler := handler.NewScanHandler(scanService, auditRepo, log)

	// Start store event consumer; without a cache there is nothing to invalidate
	if cache != nil {
		storeConsumer, err := consumers.NewStoreEventConsumer(rmq, cache, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create store event consumer")
		}
		if err := storeConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start store event consumer")
		}
	}

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Operator)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID", "X-Tenant-Slug", "X-Tenant-Schema"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.TenantMiddleware) // Extract tenant context from headers

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":   "healthy",
			"service":  config.ServiceName,
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		}
		if rdb != nil {
			redisStatus := map[string]string{"status": "up"}
			if err := rdb.Ping(r.Context()).Err(); err != nil {
				redisStatus = map[string]string{"status": "down", "error": err.Error()}
			}
			health["redis"] = redisStatus
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	// API routes
	r.Route("/api/v1/scan", scanHandler.Routes)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown; in-flight batches finish before the deadline
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

package main

// @title           Rack Service API
// @version         1.0
// @description     Real-time rack telemetry stream and diagnostics.
// @host            localhost:8080
// @BasePath        /
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"rack-service/internal/adapters/storage"
	"rack-service/internal/api/routes"
	"rack-service/internal/auth"
	"rack-service/internal/config"
	"rack-service/internal/database"
	"rack-service/internal/ingest"
	"rack-service/internal/repositories/postgres"
	"rack-service/internal/services"
	"rack-service/internal/websocket"
	"rack-service/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	slog.Info("Starting rack service")

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Initialize PostgreSQL connection
	db, err := database.NewPostgresConnection(cfg.Database.DSN())
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Repositories and services
	userRepo := postgres.NewUserRepository(db)
	rackRepo := postgres.NewRackRepository(db)
	readingRepo := postgres.NewReadingRepository(db)

	redisService := services.NewRedisService(redisClient)
	readingService := services.NewReadingService(readingRepo, redisService)

	// Real-time core
	registry := websocket.NewRegistry()
	metrics := websocket.NewMetrics()
	coordinator := websocket.NewCoordinator(registry, websocket.NewOwnershipGate(rackRepo), readingService, cfg.Realtime.RequestTimeout)
	hub := websocket.NewHub(registry, coordinator, redisService, metrics, cfg.Realtime.SendBufferSize)
	broadcaster := websocket.NewBroadcaster(registry, metrics)
	broadcaster.SetTransport(hub)

	authenticator := auth.NewAuthenticator(
		auth.NewJWTVerifier(cfg.Identity.Secret, cfg.Identity.Issuer, cfg.Identity.Audience),
		userRepo,
	)

	// Device event ingestion
	bridge := ingest.NewBridge(rackRepo, readingService, broadcaster, ingest.NewThresholdEngine(ingest.DefaultRules()))
	if cfg.Archive.Enabled {
		archiver, err := storage.NewMinIOArchiver(context.Background(),
			cfg.Archive.Endpoint, cfg.Archive.AccessKey, cfg.Archive.SecretKey, cfg.Archive.Bucket, cfg.Archive.UseSSL)
		if err != nil {
			slog.Error("Failed to initialize payload archive", "error", err)
			os.Exit(1)
		}
		bridge.SetArchiver(archiver)
	}

	ingestCtx, stopIngest := context.WithCancel(context.Background())
	var ingestWG sync.WaitGroup
	var source *ingest.KafkaSource
	if cfg.Kafka.Enabled {
		source = ingest.NewKafkaSource(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, bridge)
		ingestWG.Add(1)
		go func() {
			defer ingestWG.Done()
			if err := source.Run(ingestCtx); err != nil {
				slog.Error("Kafka source failed", "error", err)
			}
		}()
	} else {
		slog.Warn("Kafka ingestion disabled, no device events will be broadcast")
	}

	// Initialize router with all dependencies
	router := routes.NewRouter(
		hub,
		registry,
		websocket.NewUpgrader(cfg.Realtime.AllowedOrigins),
		authenticator,
		redisService,
		routes.Options{
			AllowedOrigins:     cfg.Realtime.AllowedOrigins,
			HandshakeRateLimit: cfg.Realtime.HandshakeRateLimit,
			HandshakeWindow:    cfg.Realtime.HandshakeWindow,
			Operators:          cfg.Identity.Operators,
		},
	)
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop ingestion first so nothing is broadcast to closing sessions
	stopIngest()
	ingestWG.Wait()
	if source != nil {
		if err := source.Close(); err != nil {
			slog.Warn("Failed to close kafka reader", "error", err)
		}
	}

	// Stop accepting handshakes before closing the live sessions
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	hub.Stop()

	slog.Info("Server stopped")
}

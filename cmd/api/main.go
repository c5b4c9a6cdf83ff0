// Entry point for REST API
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"presence.service/internal/api"
	"presence.service/internal/api/middleware"
	"presence.service/internal/config"
	"presence.service/internal/core"
	"presence.service/internal/ports/directory"
	"presence.service/internal/ports/messaging"
	"presence.service/internal/ports/repository"
	"presence.service/pkg/aws"
	"presence.service/pkg/cache"
	"presence.service/pkg/database"
	"presence.service/pkg/logger"
	"presence.service/pkg/metrics"
	"presence.service/pkg/telemetry"
)

var errMissingSecret = errors.New("JWT_SECRET is required outside local development")

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	// Configure structured logging
	logger.Setup(cfg.IsLocalDev)

	settings, err := cfg.AttendanceSettings()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid attendance settings")
	}

	// Configure OpenTelemetry Tracing
	shutdownTracer, err := telemetry.InitTracer("presence-api", cfg.OTelExporterEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	// DB connection
	db, err := database.NewInstrumentedConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening database")
	}
	defer db.Close()
	log.Info().Msg("Successfully connected to the database.")

	repo, err := newRepository(cfg, db, settings)
	if err != nil {
		log.Fatal().Err(err).Msg("Error preparing attendance store")
	}

	gdb, err := database.NewGormFromPool(db)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening employee directory")
	}
	var dir directory.Directory = directory.NewGormDirectory(gdb)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to redis")
		}
		defer rdb.Close()
		dir = directory.NewCachedDirectory(dir, rdb, cfg.DirectoryCacheTTL)
		log.Info().Dur("ttl", cfg.DirectoryCacheTTL).Msg("Directory cache enabled")
	}

	// AWS SDK Config
	awsCfg, err := aws.NewAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}

	// Initialize dependencies
	sqsClient := sqs.NewFromConfig(awsCfg)
	producer := messaging.NewSQSProducer(sqsClient, cfg.ReportingSQSQueueURL, cfg.NotificationSQSQueueURL)
	attendanceMetrics := metrics.NewAttendance(prometheus.DefaultRegisterer)

	service := core.NewAttendanceService(repo, dir, producer, settings.Fence, settings.Policy, attendanceMetrics)
	query := core.NewAttendanceQuery(repo, dir)

	auth, err := authMiddleware(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid auth configuration")
	}

	// Setup router and server
	router := api.NewRouter(service, query, api.Options{Auth: auth})

	// Wrap the router with OpenTelemetry middleware to create spans for each request
	handler := otelhttp.NewHandler(router, "api")

	serverAddr := ":" + cfg.ServerPort
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.ServerPort).Str("store", cfg.StoreDriver).Msg("API Service starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the requests it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

func newRepository(cfg config.Config, db *sql.DB, settings config.Attendance) (repository.Repository, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn().Msg("Using in-memory attendance store, records are lost on restart")
		return repository.NewInMemoryRepository(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return repository.NewAttendanceRepository(db, settings.Policy.Location), nil
}

func authMiddleware(cfg config.Config) (func(http.Handler) http.Handler, error) {
	if cfg.JWTSecret != "" {
		return middleware.RequireCaller(middleware.NewTokenValidator(cfg.JWTSecret)), nil
	}
	if cfg.IsLocalDev {
		log.Warn().Msg("JWT_SECRET not set, trusting X-Employee-Id and X-Role headers")
		return middleware.TrustHeaders(), nil
	}
	return nil, errMissingSecret
}

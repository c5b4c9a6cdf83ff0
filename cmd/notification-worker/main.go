package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"presence.service/internal/config"
	"presence.service/internal/core"
	"presence.service/internal/ports/directory"
	"presence.service/internal/worker"
	"presence.service/internal/worker/notification"
	"presence.service/pkg/aws"
	"presence.service/pkg/cache"
	"presence.service/pkg/database"
	"presence.service/pkg/logger"
	"presence.service/pkg/metrics"
	"presence.service/pkg/telemetry"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}
	logger.Setup(cfg.IsLocalDev)

	shutdownTracer, err := telemetry.InitTracer("presence-notification-worker", cfg.OTelExporterEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	// DB connection, read only: the worker resolves recipients from the directory.
	db, err := database.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening database")
	}
	defer db.Close()
	log.Info().Msg("Successfully connected to the database.")

	gdb, err := database.NewGormFromPool(db)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening employee directory")
	}
	var dir directory.Directory = directory.NewGormDirectory(gdb)

	var dedupe notification.Deduper
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to redis")
		}
		defer rdb.Close()
		dir = directory.NewCachedDirectory(dir, rdb, cfg.DirectoryCacheTTL)
		dedupe = notification.NewRedisDeduper(rdb, cfg.NotificationDedupeTTL)
	} else {
		log.Warn().Msg("REDIS_URL not set, redelivered events may send duplicate emails")
	}

	// AWS SDK Config
	awsCfg, err := aws.NewAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}

	// Initialize Dependencies
	sqsClient := sqs.NewFromConfig(awsCfg)
	sesClient := ses.NewFromConfig(awsCfg)
	emailService := core.NewSESEmailService(sesClient, cfg.NotificationSender)
	processor := notification.NewProcessor(emailService, dir, dedupe)
	workerMetrics := metrics.NewWorker(prometheus.DefaultRegisterer, "notification")

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics endpoint stopped")
		}
	}()

	// Start Worker
	ctx, cancel := context.WithCancel(context.Background())
	app := worker.NewWorker(sqsClient, cfg.NotificationSQSQueueURL, processor, cfg.WorkerConcurrency, workerMetrics)

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info().Msg("Shutting down worker...")

	// Cancel the context to signal the worker to stop polling.
	cancel()
	<-done

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info().Msg("Worker exited gracefully")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"presence.service/internal/config"
	"presence.service/internal/worker"
	"presence.service/internal/worker/reporting"
	"presence.service/pkg/aws"
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

	shutdownTracer, err := telemetry.InitTracer("presence-reporting-worker", cfg.OTelExporterEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	// AWS SDK Config
	awsCfg, err := aws.NewAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}

	// Initialize Dependencies
	sqsClient := sqs.NewFromConfig(awsCfg)
	reportingClient := reporting.NewHTTPClient(cfg.ReportingAPIURL)
	processor := reporting.NewProcessor(reportingClient, reporting.BreakerSettings())
	workerMetrics := metrics.NewWorker(prometheus.DefaultRegisterer, "reporting")

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
	app := worker.NewWorker(sqsClient, cfg.ReportingSQSQueueURL, processor, cfg.WorkerConcurrency, workerMetrics)

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

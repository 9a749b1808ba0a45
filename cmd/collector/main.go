package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aessing/fortnite-stats-2-influx-container/internal/collector"
	"github.com/aessing/fortnite-stats-2-influx-container/internal/config"
	"github.com/aessing/fortnite-stats-2-influx-container/internal/fortnite"
	"github.com/aessing/fortnite-stats-2-influx-container/internal/metrics"
	"github.com/aessing/fortnite-stats-2-influx-container/internal/repository"
	"github.com/aessing/fortnite-stats-2-influx-container/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logger
	setupLogger()

	log.Info().Msg("Starting Fortnite stats collector")

	// Load configuration
	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Int("workers", cfg.WorkerCount()).
		Msg("Configuration loaded")

	// Read the player list before touching the network: an unusable list is
	// a startup failure, not a run failure.
	players, err := config.LoadPlayers(cfg.PlayerFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load player list")
	}
	log.Info().
		Int("players", len(players)).
		Str("file", cfg.PlayerFile).
		Msg("Player list loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Initialize Fortnite API client
	apiClient := fortnite.NewClient(fortnite.Config{
		LookupURL:     cfg.LookupURL,
		StatsURL:      cfg.StatsURL,
		SeasonsURL:    cfg.SeasonsURL,
		Token:         cfg.FortniteAPIToken,
		Timeout:       cfg.APITimeout,
		MaxRetries:    cfg.APIMaxRetries,
		RetryDelay:    cfg.APIRetryDelay,
		RetryDelayCap: cfg.APIRetryDelayCap,
	})
	log.Info().Msg("Fortnite API client initialized")

	// Initialize InfluxDB writer
	writer := repository.NewWriter(repository.Config{
		URL:        cfg.InfluxURL,
		Token:      cfg.InfluxToken,
		Org:        cfg.InfluxOrg,
		Bucket:     cfg.InfluxBucket,
		BatchSize:  cfg.InfluxBatchSize,
		MaxRetries: cfg.InfluxWriteRetries,
		RetryDelay: time.Second,
	})
	defer writer.Close()
	log.Info().
		Str("url", cfg.InfluxURL).
		Str("bucket", cfg.InfluxBucket).
		Msg("InfluxDB writer initialized")

	coll := collector.New(cfg, players, apiClient, writer)

	// Schedule mode keeps the process resident and scrapeable. The default
	// is a single pass with an exit code the surrounding cron can act on.
	if cfg.CronSchedule != "" {
		go startMetricsServer(cfg.MetricsPort)

		sched := scheduler.New(cfg.CronSchedule, coll)
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
		log.Info().Msg("Collector shutdown complete")
		return
	}

	summary, err := coll.Run(ctx)
	pushMetrics(cfg)
	if err != nil {
		log.Fatal().
			Err(err).
			Str("status", string(summary.Status)).
			Msg("Collection run failed")
	}

	log.Info().
		Str("status", string(summary.Status)).
		Int("collected", summary.Collected).
		Int("points_written", summary.PointsWritten).
		Msg("Collector finished")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// pushMetrics delivers run metrics to the Pushgateway when one is configured.
// A run-once process exits before any scraper reaches it, so this is the
// only delivery path in that mode. Push failure never fails the run.
func pushMetrics(cfg *config.Config) {
	if cfg.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(cfg.PushgatewayURL, "fortnite_collector"); err != nil {
		log.Warn().Err(err).Msg("Failed to push metrics to gateway")
	}
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port int) {
	http.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}

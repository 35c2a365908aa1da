package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/resqlink/early-warning-service/internal/adapter/http"
	"github.com/resqlink/early-warning-service/internal/adapter/influx"
	kafkaadapter "github.com/resqlink/early-warning-service/internal/adapter/kafka"
	"github.com/resqlink/early-warning-service/internal/adapter/openweather"
	"github.com/resqlink/early-warning-service/internal/adapter/sqlite"
	"github.com/resqlink/early-warning-service/internal/adapter/supabase"
	"github.com/resqlink/early-warning-service/internal/adapter/webhook"
	"github.com/resqlink/early-warning-service/internal/changefeed"
	"github.com/resqlink/early-warning-service/internal/config"
	"github.com/resqlink/early-warning-service/internal/dashboard"
	"github.com/resqlink/early-warning-service/internal/domain"
	"github.com/resqlink/early-warning-service/internal/live"
	"github.com/resqlink/early-warning-service/internal/observability"
	"github.com/resqlink/early-warning-service/internal/prediction"
)

type feedCloser interface {
	live.Feed
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	backend := supabase.NewClient(cfg, metrics, logger)

	snapshots, err := sqlite.Open(cfg.SnapshotDB, logger)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}

	deps := dashboard.Deps{
		Backend:     backend,
		Snapshots:   snapshots,
		AlertSource: cfg.AlertSource,
		Clock:       clock,
		Metrics:     metrics,
		Logger:      logger,
	}

	// Weather and map tiles (feature-flagged via OPENWEATHER_ENABLED / OPENWEATHER_API_KEY).
	if cfg.OpenWeatherEnabled {
		client := openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherTimeout, metrics, logger)
		deps.Weather = openweather.NewCachedProvider(client, cfg.WeatherCacheSize, cfg.WeatherCacheTTL, clock, metrics)
		deps.Tiles = openweather.NewTileProxy(cfg.OpenWeatherAPIKey, cfg.OpenWeatherTimeout, metrics, logger)
		logger.Info("openweather enabled", "cache_size", cfg.WeatherCacheSize, "cache_ttl", cfg.WeatherCacheTTL)
	} else {
		logger.Info("openweather disabled")
	}

	if cfg.AlertsEnabled {
		deps.Notifier = webhook.NewNotifier(cfg.AlertWebhookURL, cfg.AlertTimeout, metrics, logger)
		logger.Info("alert webhook enabled")
	} else {
		logger.Info("alert webhook disabled")
	}

	var alertWriter *kafkaadapter.AlertWriter
	if cfg.KafkaAlertsTopic != "" {
		alertWriter = kafkaadapter.NewAlertWriter(cfg, logger)
		deps.Recorder = alertWriter
		logger.Info("alert audit log enabled", "topic", cfg.KafkaAlertsTopic)
	}

	svc := dashboard.NewService(deps)
	hub := live.NewHub(metrics)

	var predictor prediction.Predictor
	switch cfg.PredictionMode {
	case config.PredictionSimulated:
		predictor = prediction.NewSimulatedPredictor(nil, clock)
	default:
		predictor = prediction.NewSensorPredictor(svc.LatestReading, clock)
	}
	ticker := prediction.NewTicker(predictor, hub, cfg.PredictionInterval, clock, logger)

	var feed feedCloser
	switch cfg.ChangefeedMode {
	case config.ChangefeedKafka:
		feed = kafkaadapter.NewChangeReader(cfg, logger)
		logger.Info("change feed: kafka", "topic", cfg.KafkaChangesTopic, "group", cfg.KafkaGroupID)
	default:
		feed = changefeed.NewPoller([]string{cfg.SensorTable, cfg.MessagesTable, cfg.UsersTable}, cfg.PollInterval, clock)
		logger.Info("change feed: polling", "interval", cfg.PollInterval)
	}

	syncer := live.NewSyncer(feed, hub, clock, logger, metrics)
	syncer.Watch(cfg.SensorTable, domain.TopicSensors, func(ctx context.Context) (any, error) {
		return svc.SensorPanel(ctx, cfg.StreamSensorRange)
	})
	if cfg.PredictionMode == config.PredictionSensor {
		syncer.Watch(cfg.SensorTable, domain.TopicPrediction, ticker.Refresh)
	}
	syncer.Watch(cfg.MessagesTable, domain.TopicMessages, func(ctx context.Context) (any, error) {
		return svc.MessageFeed(ctx)
	})
	syncer.Watch(cfg.UsersTable, domain.TopicSOS, func(ctx context.Context) (any, error) {
		return svc.SOSFeed(ctx)
	})

	ready := []httpadapter.ReadinessChecker{syncer, backend}

	var archiver *influx.Archiver
	if cfg.InfluxEnabled {
		archiver = influx.NewArchiver(cfg, metrics, logger)
		syncer.AddHook(archiver)
		ready = append(ready, archiver)
		logger.Info("sensor archive enabled", "bucket", cfg.InfluxBucket)
	}

	var auth func(http.Handler) http.Handler
	if cfg.AuthEnabled() {
		auth, err = httpadapter.NewJWTMiddleware(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, logger)
		if err != nil {
			logger.Error("failed to configure jwt auth", "error", err)
			os.Exit(1)
		}
		logger.Info("alert trigger requires bearer token")
	}

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:           cfg.HTTPAddr,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Dashboard:      svc,
		Predictions:    ticker,
		Stream:         hub,
		Ready:          ready,
		Auth:           auth,
		Logger:         logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := syncer.Run(ctx); err != nil {
			logger.Error("syncer error", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		ticker.Run(ctx)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()

	if err := feed.Close(); err != nil {
		logger.Error("change feed close error", "error", err)
	}
	if alertWriter != nil {
		if err := alertWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if archiver != nil {
		archiver.Close()
	}
	if err := snapshots.Close(); err != nil {
		logger.Error("snapshot store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

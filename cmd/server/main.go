package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridetrack/internal/app"
	"ridetrack/internal/config"
	"ridetrack/internal/events"
	"ridetrack/internal/handler"
	"ridetrack/internal/logging"
	internalRedis "ridetrack/internal/redis"
	"ridetrack/internal/repository/postgres"
	"ridetrack/internal/service"
	"ridetrack/internal/session"
)

const serviceName = "ride-tracking-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", "error", err)
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	logger.Info("connected to PostgreSQL", "host", cfg.Database.Host, "db", cfg.Database.DBName)

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis", "addr", cfg.Redis.Addr)

	publisher := newPublisher(cfg.Kafka, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close event publisher", "error", err)
		}
	}()

	// Sessions outlive requests; they end on shutdown.
	sessionCtx, stopSessions := context.WithCancel(context.Background())
	defer stopSessions()

	server, registry := wireServer(sessionCtx, db, redisClient, publisher, nrApp, cfg, logger)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	registry.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if nrApp != nil {
		nrApp.Shutdown(2 * time.Second)
	}

	logger.Info("server exited")
	return nil
}

// newPublisher returns the Kafka sink when brokers are configured and a log
// sink otherwise.
func newPublisher(cfg config.KafkaConfig, logger *slog.Logger) events.Publisher {
	if len(cfg.Brokers) == 0 {
		logger.Info("kafka disabled; ride events go to the log")
		return events.NewLogPublisher(logger)
	}
	logger.Info("publishing ride events to kafka", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
}

// wireServer wires all dependencies and returns the HTTP server and the
// session registry it serves.
func wireServer(
	ctx context.Context,
	db *sql.DB,
	redisClient *redis.Client,
	publisher events.Publisher,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *slog.Logger,
) (*http.Server, *session.Registry) {
	// Initialize repositories.
	driverRepo := postgres.NewDriverRepository(db)

	backend := service.NewBackend(service.Dependencies{
		Rides:     postgres.NewRideRepository(db),
		Drivers:   driverRepo,
		Messages:  postgres.NewMessageRepository(db),
		SOS:       postgres.NewSOSRepository(db),
		Locations: internalRedis.NewLocationStore(redisClient),
		Locks:     internalRedis.NewLockStore(redisClient),
		Quotes:    internalRedis.NewCacheStore(redisClient, cfg.Fare.CacheTTL),
		Broker:    internalRedis.NewFeedBroker(redisClient),
		Publisher: publisher,
		Logger:    logger,
	})

	registry := session.NewRegistry(ctx, backend, session.OptionsFromConfig(cfg.Tracking, logger))

	router := app.NewRouter(app.RouterDeps{
		TrackingHandler: handler.NewTrackingHandler(registry),
		StreamHandler:   handler.NewStreamHandler(registry, logger),
		GatewayHandler:  handler.NewGatewayHandler(backend),
		DriverHandler:   handler.NewDriverHandler(driverRepo),
		Responses:       internalRedis.NewResponseStore(redisClient),
		NewRelicApp:     nrApp,
		Logger:          logger,
	})

	// The websocket upgrade clears these deadlines on the hijacked conn.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, registry
}

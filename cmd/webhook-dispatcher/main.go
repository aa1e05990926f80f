package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/databazaar/license-indexer/internal/adapter"
	"github.com/databazaar/license-indexer/internal/config"
	"github.com/databazaar/license-indexer/internal/dispatcher"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/store"
	"github.com/databazaar/license-indexer/internal/webhook"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadDispatcherConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "webhook-dispatcher",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting webhook dispatcher")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	dataStore := store.NewPGStore(db)

	jsonAdapter := adapter.NewJSON()

	// The deliverer signs, posts and retries webhook deliveries on its own
	// worker pool
	deliverer := webhook.NewDeliverer(ctx, &webhook.DelivererConfig{
		Timeout:            cfg.Webhook.Timeout,
		DefaultMaxAttempts: cfg.Webhook.DefaultMaxAttempts,
		WorkerPoolSize:     cfg.Webhook.Worker.WorkerPoolSize,
		WorkerQueueSize:    cfg.Webhook.Worker.WorkerQueueSize,
	}, dataStore, adapter.NewHTTPClient(cfg.Webhook.Timeout), adapter.NewIO(), jsonAdapter, adapter.NewJCS())

	d, err := dispatcher.NewDispatcher(dispatcher.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		ConsumerName:   cfg.NATS.ConsumerName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
		AckWaitTimeout: cfg.NATS.AckWait,
		MaxDeliver:     cfg.NATS.MaxDeliver,
	}, adapter.NewNatsJetStream(), deliverer, jsonAdapter)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create dispatcher", zap.Error(err))
	}

	// Run dispatcher in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := d.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal or dispatcher failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			logger.ErrorCtx(ctx, err, zap.String("component", "dispatcher"))
		}
		cancel()
	}

	logger.Info("Shutting down webhook dispatcher...")

	d.Close()
	// Drain in-flight deliveries before exit
	deliverer.Close()

	logger.Info("Webhook dispatcher stopped")
}

package main

import (
	"context"
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
	"github.com/databazaar/license-indexer/internal/boundary"
	"github.com/databazaar/license-indexer/internal/config"
	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/holdings"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/providers/ethereum"
	"github.com/databazaar/license-indexer/internal/providers/jetstream"
	"github.com/databazaar/license-indexer/internal/ratelimit"
	"github.com/databazaar/license-indexer/internal/scanner"
	"github.com/databazaar/license-indexer/internal/store"
	"github.com/databazaar/license-indexer/internal/watcher"
)

// Head cursor persistence cadence. The cursor is observability state, not a
// resume point, so losing a few blocks on crash is fine.
const (
	cursorSaveFreq  = 10
	cursorSaveDelay = 30 * time.Second
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadWatcherConfig(*configFile, *envPath)
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
			"service": "holdings-watcher",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting holdings watcher", zap.String("chain", string(cfg.Ethereum.ChainID)))

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	dataStore := store.NewPGStore(db)

	clock := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()

	// Connect to the Ethereum endpoint, preferring WebSocket for pushed heads
	endpoint := cfg.Ethereum.WebSocketURL
	if endpoint == "" {
		endpoint = cfg.Ethereum.RPCURL
	}
	ethClient, err := adapter.NewEthRPCDialer().Dial(ctx, endpoint)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Ethereum endpoint", zap.Error(err))
	}

	// Rate limit RPC calls when Redis is configured
	var proxy ratelimit.Proxy
	if cfg.RateLimiter.RedisAddr != "" {
		redisClient := adapter.NewRedisClient(cfg.RateLimiter.RedisAddr, cfg.RateLimiter.RedisPassword, cfg.RateLimiter.RedisDB)
		proxy, err = ratelimit.NewProxy(cfg.RateLimiter, redisClient, clock)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create rate limiter", zap.Error(err))
		}
		defer func() {
			if err := proxy.Close(); err != nil {
				logger.ErrorCtx(ctx, err)
			}
		}()
	} else {
		logger.WarnCtx(ctx, "No Redis configured, RPC calls are not rate limited")
	}

	contract, err := domain.NormalizeAddress(cfg.Ethereum.ContractAddress)
	if err != nil {
		logger.FatalCtx(ctx, "Invalid contract address", zap.Error(err), zap.String("address", cfg.Ethereum.ContractAddress))
	}

	reader, err := ethereum.NewLicenseReader(contract, ethClient, proxy)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create license reader", zap.Error(err))
	}

	// Assemble the discovery pipeline
	prober := boundary.NewProber(reader)
	sc := scanner.NewScanner(scanner.Config{
		BatchSize:  cfg.Engine.BatchSize,
		MaxWorkers: cfg.Engine.MaxWorkers,
	}, reader)
	mapper := holdings.NewMapper(cfg.Engine.BatchSize, reader)
	resolver := holdings.NewResolver(prober, sc, mapper, clock)
	engine := holdings.NewEngine(resolver)

	headSubscriber := ethereum.NewHeadSubscriber(ethereum.Config{
		ChainID:      cfg.Ethereum.ChainID,
		PollInterval: cfg.Ethereum.PollInterval,
	}, ethClient, clock)

	// Connect to NATS for publishing holdings change events
	publisher, err := jetstream.NewPublisher(jetstream.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
	}, adapter.NewNatsJetStream(), jsonAdapter)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err))
	}

	w := watcher.NewWatcher(watcher.Config{
		Chain:           cfg.Ethereum.ChainID,
		RefreshInterval: cfg.RefreshInterval,
		CursorSaveFreq:  cursorSaveFreq,
		CursorSaveDelay: cursorSaveDelay,
	}, dataStore, engine, publisher, headSubscriber, clock, jsonAdapter)

	// Run watcher in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := w.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal, watcher failure or a lost broker connection
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "watcher"))
		cancel()
	case <-publisher.CloseChan():
		logger.ErrorCtx(ctx, fmt.Errorf("NATS connection closed unexpectedly"))
		cancel()
	}

	logger.Info("Shutting down holdings watcher...")

	// Closing the watcher also closes the head subscriber and with it the
	// Ethereum client
	w.Close()
	engine.Close()
	sc.Close()
	publisher.Close()

	logger.Info("Holdings watcher stopped")
}

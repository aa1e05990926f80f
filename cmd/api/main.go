package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/databazaar/license-indexer/internal/adapter"
	"github.com/databazaar/license-indexer/internal/api/middleware"
	"github.com/databazaar/license-indexer/internal/api/rest"
	"github.com/databazaar/license-indexer/internal/api/server"
	"github.com/databazaar/license-indexer/internal/block"
	"github.com/databazaar/license-indexer/internal/boundary"
	"github.com/databazaar/license-indexer/internal/config"
	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/holdings"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/messaging"
	"github.com/databazaar/license-indexer/internal/providers/ethereum"
	"github.com/databazaar/license-indexer/internal/ratelimit"
	"github.com/databazaar/license-indexer/internal/scanner"
	"github.com/databazaar/license-indexer/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
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
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting License Indexer API")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Route reads to the replica when one is configured
	if cfg.Database.ReadHost != "" {
		err = db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{postgres.Open(cfg.Database.ReadDSN())},
		}))
		if err != nil {
			logger.FatalCtx(ctx, "Failed to register read replica", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Registered read replica", zap.String("host", cfg.Database.ReadHost))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store
	dataStore := store.NewPGStore(db)

	clock := adapter.NewClock()

	// Connect to the Ethereum endpoint. The WebSocket URL is preferred so
	// head subscriptions push instead of poll.
	endpoint := cfg.Ethereum.WebSocketURL
	if endpoint == "" {
		endpoint = cfg.Ethereum.RPCURL
	}
	if endpoint == "" {
		logger.FatalCtx(ctx, "No Ethereum endpoint configured, set ethereum.websocket_url or ethereum.rpc_url")
	}
	ethClient, err := adapter.NewEthRPCDialer().Dial(ctx, endpoint)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Ethereum endpoint", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to Ethereum endpoint", zap.String("chain", string(cfg.Ethereum.ChainID)))

	// Rate limit RPC calls when Redis is configured; without it calls go
	// out unthrottled
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

	headProvider := block.NewHeadProvider(
		ethereum.NewEthereumHeadFetcher(ethClient),
		block.Config{
			TTL:         cfg.Ethereum.BlockHeadTTL,
			StaleWindow: cfg.Ethereum.BlockHeadStaleWindow,
		},
		clock,
	)

	// Feed chain heads into the engine so stream subscribers see holdings
	// update without polling. Closing the subscriber also closes ethClient.
	headSubscriber := ethereum.NewHeadSubscriber(ethereum.Config{
		ChainID:      cfg.Ethereum.ChainID,
		PollInterval: cfg.Ethereum.PollInterval,
	}, ethClient, clock)
	go pumpHeads(ctx, headSubscriber, engine, headProvider)

	handler := rest.NewHandler(rest.HandlerConfig{
		Debug:     cfg.Debug,
		Chain:     cfg.Ethereum.ChainID,
		CacheSize: cfg.Cache.Size,
		CacheTTL:  cfg.Cache.TTL,
	}, resolver, engine, headProvider, dataStore)

	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}, handler)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "server"))
	}

	engine.Close()
	sc.Close()
	headSubscriber.Close()

	logger.InfoCtx(shutdownCtx, "Server stopped")
}

// pumpHeads keeps the head subscription alive, fanning each head into the
// engine and warming the head cache. Reconnects with backoff until ctx ends.
func pumpHeads(
	ctx context.Context,
	heads messaging.HeadSubscriber,
	engine holdings.Engine,
	provider block.HeadProvider,
) {
	handler := func(head *domain.BlockHead) error {
		provider.Observe(head.Number)
		engine.OnHead(ctx, head)
		return nil
	}

	operation := func() error {
		err := heads.SubscribeHeads(ctx, handler)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = fmt.Errorf("head subscription ended unexpectedly")
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		logger.WarnCtx(ctx, "Head subscription dropped, reconnecting",
			zap.Error(err), zap.Duration("retry_in", next))
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(0),
	), ctx)

	if err := backoff.RetryNotify(operation, policy, notify); err != nil && ctx.Err() == nil {
		logger.ErrorCtx(ctx, err, zap.String("component", "head-pump"))
	}
}

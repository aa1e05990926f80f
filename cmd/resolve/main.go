package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/databazaar/license-indexer/internal/adapter"
	"github.com/databazaar/license-indexer/internal/boundary"
	"github.com/databazaar/license-indexer/internal/config"
	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/holdings"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/providers/ethereum"
	"github.com/databazaar/license-indexer/internal/ratelimit"
	"github.com/databazaar/license-indexer/internal/scanner"
)

var (
	address    = flag.String("address", "", "Owner address to resolve (required)")
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	timeout    = flag.Duration("timeout", 5*time.Minute, "Resolution timeout")
)

// output is the JSON document printed on success
type output struct {
	Owner        string   `json:"owner"`
	Chain        string   `json:"chain"`
	Boundary     uint64   `json:"boundary"`
	OwnedCount   int      `json:"owned_count"`
	DatasetCount int      `json:"dataset_count"`
	DatasetIDs   []uint64 `json:"dataset_ids"`
	DurationMS   int64    `json:"duration_ms"`
	RunID        string   `json:"run_id"`
}

func main() {
	flag.Parse()

	if *address == "" {
		fmt.Fprintln(os.Stderr, "usage: resolve -address 0x... [-config config.yaml] [-timeout 5m]")
		os.Exit(1)
	}

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadResolveConfig(*configFile, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(logger.Config{Debug: cfg.Debug}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Flush(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	owner, err := domain.NormalizeAddress(*address)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid address: %v\n", err)
		os.Exit(1)
	}

	endpoint := cfg.Ethereum.RPCURL
	if endpoint == "" {
		endpoint = cfg.Ethereum.WebSocketURL
	}
	if endpoint == "" {
		fmt.Fprintln(os.Stderr, "No Ethereum endpoint configured, set ethereum.rpc_url")
		os.Exit(1)
	}

	clock := adapter.NewClock()

	ethClient, err := adapter.NewEthRPCDialer().Dial(ctx, endpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to Ethereum endpoint: %v\n", err)
		os.Exit(1)
	}
	defer ethClient.Close()

	// Rate limit RPC calls when Redis is configured; a one-shot run usually
	// runs without it
	var proxy ratelimit.Proxy
	if cfg.RateLimiter.RedisAddr != "" {
		redisClient := adapter.NewRedisClient(cfg.RateLimiter.RedisAddr, cfg.RateLimiter.RedisPassword, cfg.RateLimiter.RedisDB)
		proxy, err = ratelimit.NewProxy(cfg.RateLimiter, redisClient, clock)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create rate limiter: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			if err := proxy.Close(); err != nil {
				logger.Error(err)
			}
		}()
	}

	contract, err := domain.NormalizeAddress(cfg.Ethereum.ContractAddress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid contract address %q: %v\n", cfg.Ethereum.ContractAddress, err)
		os.Exit(1)
	}

	reader, err := ethereum.NewLicenseReader(contract, ethClient, proxy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create license reader: %v\n", err)
		os.Exit(1)
	}

	prober := boundary.NewProber(reader)
	sc := scanner.NewScanner(scanner.Config{
		BatchSize:  cfg.Engine.BatchSize,
		MaxWorkers: cfg.Engine.MaxWorkers,
	}, reader)
	defer sc.Close()
	mapper := holdings.NewMapper(cfg.Engine.BatchSize, reader)
	resolver := holdings.NewResolver(prober, sc, mapper, clock)

	logger.Debug("Resolving holdings",
		zap.String("owner", domain.AddressKey(owner)),
		zap.String("chain", string(cfg.Ethereum.ChainID)),
	)

	res, err := resolver.Resolve(ctx, owner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Resolution failed: %v\n", err)
		os.Exit(1)
	}

	ids := res.DatasetIDs.Sorted()
	datasetIDs := make([]uint64, len(ids))
	for i, id := range ids {
		datasetIDs[i] = uint64(id)
	}

	doc, err := json.MarshalIndent(output{
		Owner:        res.Owner,
		Chain:        string(cfg.Ethereum.ChainID),
		Boundary:     uint64(res.Boundary),
		OwnedCount:   res.OwnedCount,
		DatasetCount: len(datasetIDs),
		DatasetIDs:   datasetIDs,
		DurationMS:   res.DurationMS,
		RunID:        res.RunID,
	}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(doc))
}

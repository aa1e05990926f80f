package block

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/databazaar/license-indexer/internal/adapter"
	"github.com/databazaar/license-indexer/internal/logger"
)

// headInfo is the cached head observation
type headInfo struct {
	number     uint64
	observedAt time.Time
}

// HeadProvider provides cached access to the latest block number. One-shot
// holdings reads stamp their responses with it, so it caches aggressively to
// keep RPC traffic off the hot path.
//
//go:generate mockgen -source=head.go -destination=../mocks/head_provider.go -package=mocks -mock_names=HeadProvider=MockHeadProvider
type HeadProvider interface {
	// GetLatestBlock returns the latest block number, potentially from cache
	GetLatestBlock(ctx context.Context) (uint64, error)

	// Observe feeds a head number seen elsewhere (e.g. on a newHeads
	// subscription) into the cache, keeping reads warm without extra RPC
	Observe(number uint64)
}

// HeadFetcher is the interface for fetching the latest block from the chain
//
//go:generate mockgen -source=head.go -destination=../mocks/head_provider.go -package=mocks -mock_names=HeadFetcher=MockHeadFetcher
type HeadFetcher interface {
	// FetchLatestBlock fetches the latest block from the chain
	FetchLatestBlock(ctx context.Context) (uint64, error)
}

// Config holds configuration for the HeadProvider
type Config struct {
	// TTL is how long to cache the block number
	TTL time.Duration

	// StaleWindow is how long to use stale data if fetching fails
	// If the cached data is older than this and fetch fails, return error
	StaleWindow time.Duration
}

// headProvider implements HeadProvider with TTL-based caching
type headProvider struct {
	fetcher HeadFetcher
	config  Config
	clock   adapter.Clock

	mu   sync.RWMutex
	head *headInfo
}

// NewHeadProvider creates a new HeadProvider with caching
func NewHeadProvider(fetcher HeadFetcher, config Config, clock adapter.Clock) HeadProvider {
	return &headProvider{
		fetcher: fetcher,
		config:  config,
		clock:   clock,
	}
}

// GetLatestBlock returns the latest block number, using cache if valid
func (p *headProvider) GetLatestBlock(ctx context.Context) (uint64, error) {
	p.mu.RLock()
	cached := p.head
	p.mu.RUnlock()

	now := p.clock.Now()

	// If cache is valid (within TTL), return cached value
	if cached != nil && now.Sub(cached.observedAt) < p.config.TTL {
		logger.DebugCtx(ctx, "Using cached block number", zap.Uint64("block_number", cached.number))
		return cached.number, nil
	}

	// Cache expired or doesn't exist, fetch fresh data
	logger.DebugCtx(ctx, "Fetching latest block number from RPC")
	blockNumber, err := p.fetcher.FetchLatestBlock(ctx)
	if err != nil {
		// If fetch failed, check if we can use stale cache
		if cached != nil && now.Sub(cached.observedAt) < p.config.StaleWindow {
			logger.DebugCtx(ctx, "Using stale block number", zap.Uint64("block_number", cached.number))
			return cached.number, nil
		}
		// No valid cache available and fetch failed
		return 0, fmt.Errorf("failed to fetch latest block and no valid cache available: %w", err)
	}

	p.mu.Lock()
	p.head = &headInfo{
		number:     blockNumber,
		observedAt: now,
	}
	p.mu.Unlock()

	return blockNumber, nil
}

// Observe overwrites the cache with a head seen on a live subscription.
// It accepts lower numbers than the cached one so a reorged chain does not
// pin the cache to an orphaned height.
func (p *headProvider) Observe(number uint64) {
	now := p.clock.Now()

	p.mu.Lock()
	p.head = &headInfo{
		number:     number,
		observedAt: now,
	}
	p.mu.Unlock()
}

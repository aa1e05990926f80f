package ethereum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/databazaar/license-indexer/internal/adapter"
	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/messaging"
)

// Config holds the configuration for Ethereum head subscription
type Config struct {
	ChainID domain.Chain // e.g., "eip155:1" for Ethereum mainnet

	// PollInterval is the cadence for the polling fallback used when the
	// endpoint does not support newHeads subscriptions (plain HTTP)
	PollInterval time.Duration
}

type headSubscriber struct {
	client       adapter.EthRPC
	chainID      domain.Chain
	pollInterval time.Duration
	clock        adapter.Clock
}

// NewHeadSubscriber creates a new Ethereum chain head subscriber
func NewHeadSubscriber(cfg Config, client adapter.EthRPC, clock adapter.Clock) messaging.HeadSubscriber {
	return &headSubscriber{
		client:       client,
		chainID:      cfg.ChainID,
		pollInterval: cfg.PollInterval,
		clock:        clock,
	}
}

// SubscribeHeads subscribes to new chain heads and delivers them to handler.
// Endpoints without subscription support fall back to polling at the
// configured interval.
func (s *headSubscriber) SubscribeHeads(ctx context.Context, handler messaging.HeadHandler) error {
	heads := make(chan *types.Header)
	sub, err := s.client.SubscribeNewHead(ctx, heads)
	if err != nil {
		if errors.Is(err, rpc.ErrNotificationsUnsupported) {
			logger.InfoCtx(ctx, "Endpoint does not support subscriptions, polling for heads",
				zap.Duration("interval", s.pollInterval))
			return s.pollHeads(ctx, handler)
		}
		return fmt.Errorf("failed to subscribe to new heads: %w", err)
	}
	defer func() {
		logger.InfoCtx(ctx, "Unsubscribing from new heads")
		sub.Unsubscribe()
		logger.InfoCtx(ctx, "Unsubscribed from new heads")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return fmt.Errorf("subscription error: %w", err)
		case header := <-heads:
			if err := handler(headFromHeader(header)); err != nil {
				logger.ErrorCtx(ctx, err, zap.String("message", "Error handling head"))
			}
		}
	}
}

// pollHeads emulates a head subscription over plain HTTP. Heads at or below
// the last delivered number are skipped, so slow polls only ever surface the
// newest block.
func (s *headSubscriber) pollHeads(ctx context.Context, handler messaging.HeadHandler) error {
	var last uint64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.pollInterval):
		}

		header, err := s.client.HeaderByNumber(ctx, nil)
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Error polling latest header"))
			continue
		}

		number := header.Number.Uint64()
		if number <= last {
			continue
		}
		last = number

		if err := handler(headFromHeader(header)); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Error handling head"))
		}
	}
}

// GetLatestBlock returns the latest block number
func (s *headSubscriber) GetLatestBlock(ctx context.Context) (uint64, error) {
	header, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

// Close closes the connection
func (s *headSubscriber) Close() {
	if s.client == nil {
		return
	}

	s.client.Close()
	logger.Info("Ethereum RPC connection closed")
}

func headFromHeader(header *types.Header) *domain.BlockHead {
	return &domain.BlockHead{
		Number:    header.Number.Uint64(),
		Hash:      header.Hash().Hex(),
		Timestamp: time.Unix(int64(header.Time), 0).UTC(), //nolint:gosec,G115
	}
}

package scanner

import (
	"context"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/providers/ethereum"
)

const (
	// DefaultBatchSize is the number of ownerOf calls folded into one
	// JSON-RPC batch round trip.
	DefaultBatchSize = 300

	// DefaultMaxWorkers bounds how many batch round trips run in parallel.
	DefaultMaxWorkers = 4
)

// Config controls batch sizing and parallelism for ownership scans.
type Config struct {
	BatchSize  int
	MaxWorkers int
}

// Scanner enumerates the token ids an address owns inside the minted range.
//
//go:generate mockgen -source=scanner.go -destination=../mocks/scanner.go -package=mocks -mock_names=Scanner=MockScanner
type Scanner interface {
	// OwnedTokens returns the ids in [1, boundary] whose current owner is
	// the given address, in ascending order. Tokens whose owner cannot be
	// read (burned, reverting) are skipped; only a failed batch round trip
	// fails the scan.
	OwnedTokens(ctx context.Context, owner common.Address, boundary domain.TokenID) ([]domain.TokenID, error)

	// Close stops the worker pool and waits for in-flight batches.
	Close()
}

type scanner struct {
	reader ethereum.LicenseReader
	config Config
	pool   pond.ResultPool[[]domain.TokenID]
}

// NewScanner creates a scanner reading through the given license contract
// reader. Zero config fields fall back to the package defaults.
func NewScanner(cfg Config, reader ethereum.LicenseReader) Scanner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}

	return &scanner{
		reader: reader,
		config: cfg,
		pool:   pond.NewResultPool[[]domain.TokenID](cfg.MaxWorkers),
	}
}

// OwnedTokens partitions [1, boundary] into batches and resolves each batch
// with a single batched ownerOf round trip. Ownership is compared on parsed
// addresses, so checksum casing on either side never matters.
func (s *scanner) OwnedTokens(ctx context.Context, owner common.Address, boundary domain.TokenID) ([]domain.TokenID, error) {
	if boundary == 0 {
		return nil, nil
	}

	batchSize := domain.TokenID(s.config.BatchSize)

	logger.DebugCtx(ctx, "Scanning token ownership",
		zap.String("owner", owner.Hex()),
		zap.Uint64("boundary", uint64(boundary)),
		zap.Uint64("batches", uint64((boundary+batchSize-1)/batchSize)))

	group := s.pool.NewGroupContext(ctx)
	for start := domain.TokenID(1); start <= boundary; start += batchSize {
		batch := batchRange(start, boundary, batchSize)
		group.SubmitErr(func() ([]domain.TokenID, error) {
			return s.scanBatch(ctx, owner, batch)
		})
	}

	batches, err := group.Wait()
	if err != nil {
		return nil, err
	}

	// Batches are submitted in ascending id order and the group returns
	// results in submission order, so appending keeps the output sorted.
	total := 0
	for _, batch := range batches {
		total += len(batch)
	}
	owned := make([]domain.TokenID, 0, total)
	for _, batch := range batches {
		owned = append(owned, batch...)
	}

	logger.DebugCtx(ctx, "Ownership scan complete",
		zap.String("owner", owner.Hex()),
		zap.Int("owned", len(owned)))
	return owned, nil
}

// Close stops the worker pool and waits for in-flight batches
func (s *scanner) Close() {
	s.pool.StopAndWait()
}

// scanBatch resolves one batch of token ids to the subset owned by owner.
// Per-item failures mean the token has no readable owner and are skipped.
func (s *scanner) scanBatch(ctx context.Context, owner common.Address, tokenIDs []domain.TokenID) ([]domain.TokenID, error) {
	results, err := s.reader.BatchOwnerOf(ctx, tokenIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to scan tokens [%d, %d]: %w",
			tokenIDs[0], tokenIDs[len(tokenIDs)-1], err)
	}

	owned := make([]domain.TokenID, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			logger.DebugCtx(ctx, "Skipping token without readable owner",
				zap.Uint64("token_id", uint64(res.TokenID)),
				zap.Error(res.Err))
			continue
		}
		if res.Owner == owner {
			owned = append(owned, res.TokenID)
		}
	}
	return owned, nil
}

// batchRange builds the ascending id slice for one batch starting at start,
// clamped to the boundary.
func batchRange(start, boundary, batchSize domain.TokenID) []domain.TokenID {
	end := start + batchSize - 1
	if end > boundary {
		end = boundary
	}

	ids := make([]domain.TokenID, 0, end-start+1)
	for id := start; id <= end; id++ {
		ids = append(ids, id)
	}
	return ids
}

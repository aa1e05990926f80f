package holdings

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/databazaar/license-indexer/internal/adapter"
	"github.com/databazaar/license-indexer/internal/boundary"
	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/scanner"
)

// Resolver runs the full discovery pipeline for one owner: probe the minted
// boundary, scan ownership inside it, map owned tokens to dataset ids.
//
//go:generate mockgen -source=resolver.go -destination=../mocks/resolver.go -package=mocks -mock_names=Resolver=MockResolver
type Resolver interface {
	Resolve(ctx context.Context, owner common.Address) (*domain.Resolution, error)
}

type resolver struct {
	prober  boundary.Prober
	scanner scanner.Scanner
	mapper  Mapper
	clock   adapter.Clock
}

// NewResolver composes the three pipeline stages into a single run surface
func NewResolver(prober boundary.Prober, sc scanner.Scanner, mapper Mapper, clock adapter.Clock) Resolver {
	return &resolver{
		prober:  prober,
		scanner: sc,
		mapper:  mapper,
		clock:   clock,
	}
}

// Resolve performs one run and returns its outcome with journaling stats.
// An empty contract short-circuits: the scanner and mapper are never invoked.
func (r *resolver) Resolve(ctx context.Context, owner common.Address) (*domain.Resolution, error) {
	start := r.clock.Now()
	runID := ulid.MustNewDefault(start).String()

	bound, err := r.prober.Probe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to probe minted boundary: %w", err)
	}

	res := &domain.Resolution{
		RunID:      runID,
		Owner:      domain.AddressKey(owner),
		Boundary:   bound,
		DatasetIDs: domain.NewDatasetSet(),
	}

	if bound == 0 {
		logger.DebugCtx(ctx, "Nothing minted, skipping scan",
			zap.String("run_id", runID),
			zap.String("owner", res.Owner))
		res.DurationMS = r.clock.Since(start).Milliseconds()
		return res, nil
	}

	owned, err := r.scanner.OwnedTokens(ctx, owner, bound)
	if err != nil {
		return nil, fmt.Errorf("failed to scan ownership: %w", err)
	}

	datasets, err := r.mapper.MapDatasets(ctx, owned)
	if err != nil {
		return nil, fmt.Errorf("failed to map datasets: %w", err)
	}

	res.OwnedTokens = owned
	res.DatasetIDs = datasets
	res.OwnedCount = len(owned)
	res.DurationMS = r.clock.Since(start).Milliseconds()

	logger.InfoCtx(ctx, "Resolution run complete",
		zap.String("run_id", runID),
		zap.String("owner", res.Owner),
		zap.Uint64("boundary", uint64(bound)),
		zap.Int("owned", res.OwnedCount),
		zap.Int("datasets", len(datasets)),
		zap.Int64("duration_ms", res.DurationMS))
	return res, nil
}

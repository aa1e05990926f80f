package boundary

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/providers/ethereum"
)

// maxDoublings caps the exponential phase at a probe of 2^32, far beyond any
// plausible license supply.
const maxDoublings = 32

// Prober locates the upper boundary of the minted token range. The license
// contract mints token ids sequentially from 1 and keeps no supply counter,
// so the boundary has to be rediscovered by probing datasetOf, which returns
// 0 for ids that were never minted.
//
//go:generate mockgen -source=prober.go -destination=../mocks/prober.go -package=mocks -mock_names=Prober=MockProber
type Prober interface {
	// Probe returns the highest token id known minted, or 0 when the
	// contract has minted nothing. Read errors are treated as unminted
	// ids; the probe only fails when ctx is canceled.
	Probe(ctx context.Context) (domain.TokenID, error)
}

type prober struct {
	reader ethereum.LicenseReader
}

// NewProber creates a prober reading through the given license contract reader
func NewProber(reader ethereum.LicenseReader) Prober {
	return &prober{reader: reader}
}

// Probe finds the minted-range boundary with an exponential probe followed
// by a binary search. Token ids burned near the top of the range make the
// result an approximation; the ownership scan tolerates the overshoot.
func (p *prober) Probe(ctx context.Context) (domain.TokenID, error) {
	// Token 1 is the genesis mint: if it carries no dataset, nothing was
	// ever minted and no further reads are necessary.
	if !p.minted(ctx, 1) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 0, nil
	}

	lastKnownMinted := domain.TokenID(1)
	probe := domain.TokenID(2)

	for range maxDoublings {
		if p.minted(ctx, probe) {
			lastKnownMinted = probe
			probe *= 2
			continue
		}

		if err := ctx.Err(); err != nil {
			return 0, err
		}

		// probe is unminted: the boundary lies in (lastKnownMinted, probe)
		return p.bisect(ctx, lastKnownMinted, probe)
	}

	// Ceiling reached with every probe minted. Settle for the last id
	// confirmed minted rather than search past 2^32.
	logger.WarnCtx(ctx, "Probe ceiling reached, using last confirmed minted id",
		zap.Uint64("token_id", uint64(lastKnownMinted)))
	return lastKnownMinted, nil
}

// bisect narrows the boundary inside the open interval (lo, hi), where lo is
// known minted and hi is known unminted.
func (p *prober) bisect(ctx context.Context, lo, hi domain.TokenID) (domain.TokenID, error) {
	// sort.Search finds the smallest index i in [0, n) where f(i) is true,
	// here the first unminted id strictly between lo and hi
	n := int(hi - lo - 1)
	i := sort.Search(n, func(i int) bool {
		return !p.minted(ctx, lo+1+domain.TokenID(i))
	})

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// lo+1+i is the first unminted id in the interval, so the boundary sits
	// directly below it; i == n collapses to hi-1
	boundary := lo + domain.TokenID(i)
	logger.DebugCtx(ctx, "Boundary located",
		zap.Uint64("boundary", uint64(boundary)),
		zap.Uint64("lo", uint64(lo)),
		zap.Uint64("hi", uint64(hi)))
	return boundary, nil
}

// minted reads datasetOf(id), treating read failures as unminted. Callers
// check ctx afterwards to distinguish cancellation from a genuine zero.
func (p *prober) minted(ctx context.Context, id domain.TokenID) bool {
	datasetID, err := p.reader.DatasetOf(ctx, id)
	if err != nil {
		return false
	}
	return datasetID != 0
}

package holdings

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/providers/ethereum"
)

// DefaultMapBatchSize is the number of datasetOf calls folded into one
// JSON-RPC batch round trip.
const DefaultMapBatchSize = 300

// Mapper resolves owned token ids to the set of dataset ids they license.
//
//go:generate mockgen -source=mapper.go -destination=../mocks/mapper.go -package=mocks -mock_names=Mapper=MockMapper
type Mapper interface {
	// MapDatasets returns the deduplicated dataset ids behind the given
	// tokens. Tokens whose dataset cannot be read are skipped; only a
	// failed batch round trip fails the mapping.
	MapDatasets(ctx context.Context, tokenIDs []domain.TokenID) (domain.DatasetSet, error)
}

type mapper struct {
	reader    ethereum.LicenseReader
	batchSize int
}

// NewMapper creates a mapper reading through the given license contract
// reader. A non-positive batchSize falls back to DefaultMapBatchSize.
func NewMapper(batchSize int, reader ethereum.LicenseReader) Mapper {
	if batchSize <= 0 {
		batchSize = DefaultMapBatchSize
	}
	return &mapper{reader: reader, batchSize: batchSize}
}

// MapDatasets re-batches the owned tokens and resolves each batch with one
// batched datasetOf round trip. The owned set is orders of magnitude smaller
// than the scanned range, so batches run sequentially.
func (m *mapper) MapDatasets(ctx context.Context, tokenIDs []domain.TokenID) (domain.DatasetSet, error) {
	datasets := domain.NewDatasetSet()

	for start := 0; start < len(tokenIDs); start += m.batchSize {
		end := min(start+m.batchSize, len(tokenIDs))

		results, err := m.reader.BatchDatasetOf(ctx, tokenIDs[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to map datasets for tokens [%d, %d]: %w",
				tokenIDs[start], tokenIDs[end-1], err)
		}

		for _, res := range results {
			if res.Err != nil {
				logger.DebugCtx(ctx, "Skipping token without readable dataset",
					zap.Uint64("token_id", uint64(res.TokenID)),
					zap.Error(res.Err))
				continue
			}
			// 0 means no dataset attached; it never names a real dataset
			if res.DatasetID == 0 {
				continue
			}
			datasets.Add(res.DatasetID)
		}
	}

	return datasets, nil
}

package ethereum

import (
	"context"
	"fmt"

	"github.com/databazaar/license-indexer/internal/adapter"
	"github.com/databazaar/license-indexer/internal/block"
)

// ethereumHeadFetcher implements block.HeadFetcher for Ethereum
type ethereumHeadFetcher struct {
	client adapter.EthRPC
}

func NewEthereumHeadFetcher(client adapter.EthRPC) block.HeadFetcher {
	return &ethereumHeadFetcher{client: client}
}

// FetchLatestBlock fetches the latest block number from Ethereum
func (f *ethereumHeadFetcher) FetchLatestBlock(ctx context.Context) (uint64, error) {
	header, err := f.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

package messaging

import (
	"context"

	"github.com/databazaar/license-indexer/internal/domain"
)

// HeadHandler is called for each new chain head
type HeadHandler func(head *domain.BlockHead) error

// HeadSubscriber delivers new chain heads. The engine treats every head as a
// trigger to re-resolve holdings for connected owners, so delivery should be
// prompt but is allowed to skip heads under load.
//
//go:generate mockgen -source=subscriber.go -destination=../mocks/subscriber.go -package=mocks -mock_names=HeadSubscriber=MockHeadSubscriber
type HeadSubscriber interface {
	// SubscribeHeads blocks, delivering heads to handler until ctx is done
	// or the underlying subscription fails
	SubscribeHeads(ctx context.Context, handler HeadHandler) error

	// GetLatestBlock returns the latest block number
	GetLatestBlock(ctx context.Context) (uint64, error)

	// Close closes the connection and cleans up resources
	Close()
}

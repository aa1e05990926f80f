package messaging

import (
	"context"

	"github.com/databazaar/license-indexer/internal/domain"
)

// Publisher defines the interface for publishing holdings events to the
// message broker
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishHoldingsChanged publishes a holdings diff for a watched owner
	PublishHoldingsChanged(ctx context.Context, event *domain.HoldingsChangedEvent) error
	// Close closes the connection
	Close()
	// CloseChan returns a channel that is closed when the publisher is closed
	CloseChan() <-chan struct{}
}

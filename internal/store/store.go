package store

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/store/schema"
)

//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore

// UpsertWatchedAddressInput carries the fields for registering a watch
type UpsertWatchedAddressInput struct {
	Chain   domain.Chain
	Address string
	Label   string
}

// ResolutionRunFilter narrows and paginates journal reads
type ResolutionRunFilter struct {
	// Chain filters runs by network, empty matches all
	Chain domain.Chain
	// Address filters runs by owner address, empty matches all
	Address string
	// OnlyChanged keeps only runs that changed the dataset set
	OnlyChanged bool
	// Limit caps the page size (default 50, max 200)
	Limit int
	// Offset skips the first N runs in cursor-descending order
	Offset int
}

// CreateWebhookClientInput carries the fields for registering a webhook client
type CreateWebhookClientInput struct {
	ClientID         string
	WebhookURL       string
	WebhookSecret    string
	EventFilters     datatypes.JSON
	IsActive         bool
	RetryMaxAttempts int
}

// Store defines the interface for database operations
type Store interface {
	// UpsertWatchedAddress registers an address for watching, re-activating it if it already exists
	UpsertWatchedAddress(ctx context.Context, input UpsertWatchedAddressInput) (*schema.WatchedAddress, error)
	// GetWatchedAddress retrieves a watch entry, nil if none exists
	GetWatchedAddress(ctx context.Context, chain domain.Chain, address string) (*schema.WatchedAddress, error)
	// ListWatchedAddresses retrieves watch entries for a chain, optionally only active ones
	ListWatchedAddresses(ctx context.Context, chain domain.Chain, onlyWatching bool) ([]*schema.WatchedAddress, error)
	// SetWatching flips the watching flag for an address
	SetWatching(ctx context.Context, chain domain.Chain, address string, watching bool) error
	// TouchLastResolvedAt stamps the time of the last completed resolution run
	TouchLastResolvedAt(ctx context.Context, chain domain.Chain, address string, resolvedAt time.Time) error

	// InsertResolutionRun journals a resolution run, ignoring duplicate run IDs
	InsertResolutionRun(ctx context.Context, run *schema.ResolutionRun) error
	// ListResolutionRuns reads the journal newest-first with the given filter
	ListResolutionRuns(ctx context.Context, filter ResolutionRunFilter) ([]*schema.ResolutionRun, int64, error)

	// CreateWebhookClient registers a new webhook client
	CreateWebhookClient(ctx context.Context, input CreateWebhookClientInput) (*schema.WebhookClient, error)
	// GetActiveWebhookClientsByEventType retrieves active clients whose filters match the event type
	GetActiveWebhookClientsByEventType(ctx context.Context, eventType string) ([]*schema.WebhookClient, error)
	// CreateWebhookDelivery creates a new webhook delivery record
	CreateWebhookDelivery(ctx context.Context, delivery *schema.WebhookDelivery) error
	// UpdateWebhookDeliveryStatus updates the status and result of a webhook delivery
	UpdateWebhookDeliveryStatus(ctx context.Context, deliveryID uint64, status schema.WebhookDeliveryStatus, attempts int, responseStatus *int, responseBody, lastError string) error

	// GetKeyValue retrieves a value by key, empty string if none exists
	GetKeyValue(ctx context.Context, key string) (string, error)
	// SetKeyValue sets a key-value pair
	SetKeyValue(ctx context.Context, key string, value string) error
	// GetHeadCursor retrieves the last observed block head for a chain
	GetHeadCursor(ctx context.Context, chain domain.Chain) (uint64, error)
	// SetHeadCursor stores the last observed block head for a chain
	SetHeadCursor(ctx context.Context, chain domain.Chain, blockNumber uint64) error
}

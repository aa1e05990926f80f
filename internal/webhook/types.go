package webhook

import (
	"time"

	"github.com/databazaar/license-indexer/internal/domain"
)

// Event type constants
const (
	// EventTypeHoldingsChanged is fired when a watched owner's set of
	// licensed datasets changes between two completed resolution runs
	EventTypeHoldingsChanged = "holdings_changed"

	// EventTypeWildcard is a special filter that matches all event types
	EventTypeWildcard = "*"
)

// HTTP header names attached to every webhook delivery
const (
	// HeaderSignature carries the HMAC-SHA256 signature ("sha256=<hex>")
	HeaderSignature = "X-License-Indexer-Signature"
	// HeaderTimestamp carries the Unix timestamp the signature was computed at
	HeaderTimestamp = "X-License-Indexer-Timestamp"
	// HeaderEvent carries the event type (e.g., "holdings_changed")
	HeaderEvent = "X-License-Indexer-Event"
)

// WebhookEvent represents a webhook event to be delivered to clients
type WebhookEvent struct {
	// EventID is a unique identifier for this event (ULID for time-sortable uniqueness)
	EventID string `json:"event_id"`
	// EventType is the type of event (e.g., "holdings_changed")
	EventType string `json:"event_type"`
	// Timestamp is when the event was generated
	Timestamp time.Time `json:"timestamp"`
	// Data contains the event-specific payload
	Data EventData `json:"data"`
}

// EventData contains the webhook event payload
type EventData struct {
	// Chain is the blockchain network (e.g., "eip155:1")
	Chain string `json:"chain"`
	// Owner is the watched address whose holdings changed (lowercase hex)
	Owner string `json:"owner"`
	// BlockHeight is the chain head the resolution ran against,
	// 0 when the run was triggered by a watch change rather than a new head
	BlockHeight uint64 `json:"block_height"`
	// Added lists dataset IDs the owner gained since the previous run
	Added []uint64 `json:"added"`
	// Removed lists dataset IDs the owner lost since the previous run
	Removed []uint64 `json:"removed"`
	// DatasetIDs is the owner's full current dataset set, ascending
	DatasetIDs []uint64 `json:"dataset_ids"`
}

// NewHoldingsChangedEvent wraps a holdings change in the webhook envelope.
// The envelope reuses the event's ULID so clients can correlate webhook
// deliveries with stream messages carrying the same change.
func NewHoldingsChangedEvent(e *domain.HoldingsChangedEvent) WebhookEvent {
	return WebhookEvent{
		EventID:   e.EventID,
		EventType: EventTypeHoldingsChanged,
		Timestamp: e.OccurredAt,
		Data: EventData{
			Chain:       string(e.Chain),
			Owner:       e.Owner,
			BlockHeight: e.BlockHeight,
			Added:       datasetIDValues(e.Added),
			Removed:     datasetIDValues(e.Removed),
			DatasetIDs:  datasetIDValues(e.DatasetIDs),
		},
	}
}

// datasetIDValues flattens dataset IDs to plain integers for the wire.
// The result is never nil so empty sets serialize as [] rather than null.
func datasetIDValues(ids []domain.DatasetID) []uint64 {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}

// DeliveryResult represents the result of a webhook delivery attempt
type DeliveryResult struct {
	// Success indicates whether the delivery was successful
	Success bool
	// StatusCode is the HTTP status code returned by the webhook endpoint
	StatusCode int
	// Body is the response body (limited to 4KB)
	Body string
	// Error contains error details if delivery failed
	Error string
}

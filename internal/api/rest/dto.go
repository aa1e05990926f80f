package rest

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"gorm.io/datatypes"

	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/store/schema"
	"github.com/databazaar/license-indexer/internal/webhook"
)

// HoldingsResponse is the one-shot resolve payload
type HoldingsResponse struct {
	Address    string   `json:"address"`
	Chain      string   `json:"chain"`
	AsOfBlock  uint64   `json:"as_of_block"`
	Boundary   uint64   `json:"boundary"`
	DatasetIDs []uint64 `json:"dataset_ids"`
	OwnedCount int      `json:"owned_count"`
	RunID      string   `json:"run_id"`
	DurationMS int64    `json:"duration_ms"`
	Cached     bool     `json:"cached"`
}

// NewHoldingsResponse maps a completed resolution onto the wire payload
func NewHoldingsResponse(chain domain.Chain, asOfBlock uint64, res *domain.Resolution) *HoldingsResponse {
	ids := res.DatasetIDs.Sorted()
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}

	return &HoldingsResponse{
		Address:    res.Owner,
		Chain:      string(chain),
		AsOfBlock:  asOfBlock,
		Boundary:   uint64(res.Boundary),
		DatasetIDs: out,
		OwnedCount: res.OwnedCount,
		RunID:      res.RunID,
		DurationMS: res.DurationMS,
	}
}

// CreateWatchRequest registers an owner address for watching
type CreateWatchRequest struct {
	Address string `json:"address" binding:"required"`
	Label   string `json:"label"`
}

// WatchResponse is the wire form of a watch registry entry
type WatchResponse struct {
	Chain          string     `json:"chain"`
	Address        string     `json:"address"`
	Watching       bool       `json:"watching"`
	Label          string     `json:"label,omitempty"`
	LastResolvedAt *time.Time `json:"last_resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewWatchResponse maps a registry row onto the wire payload
func NewWatchResponse(w *schema.WatchedAddress) WatchResponse {
	return WatchResponse{
		Chain:          string(w.Chain),
		Address:        w.Address,
		Watching:       w.Watching,
		Label:          w.Label,
		LastResolvedAt: w.LastResolvedAt,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

// ListWatchesResponse wraps the watch registry listing
type ListWatchesResponse struct {
	Watches []WatchResponse `json:"watches"`
}

// RunResponse is the wire form of one journaled resolution run
type RunResponse struct {
	Cursor       int64          `json:"cursor"`
	RunID        string         `json:"run_id"`
	Chain        string         `json:"chain"`
	Address      string         `json:"address"`
	BlockHeight  uint64         `json:"block_height"`
	Boundary     uint64         `json:"boundary"`
	OwnedCount   int            `json:"owned_count"`
	DatasetCount int            `json:"dataset_count"`
	Changed      bool           `json:"changed"`
	Error        *string        `json:"error,omitempty"`
	DurationMS   int64          `json:"duration_ms"`
	Meta         datatypes.JSON `json:"meta,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewRunResponse maps a journal row onto the wire payload
func NewRunResponse(r *schema.ResolutionRun) RunResponse {
	return RunResponse{
		Cursor:       r.Cursor,
		RunID:        r.RunID,
		Chain:        string(r.Chain),
		Address:      r.Address,
		BlockHeight:  r.BlockHeight,
		Boundary:     r.Boundary,
		OwnedCount:   r.OwnedCount,
		DatasetCount: r.DatasetCount,
		Changed:      r.Changed,
		Error:        r.Error,
		DurationMS:   r.DurationMS,
		Meta:         r.Meta,
		CreatedAt:    r.CreatedAt,
	}
}

// ListRunsResponse wraps a journal page with pagination echoes
type ListRunsResponse struct {
	Runs   []RunResponse `json:"runs"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// CreateWebhookClientRequest registers a webhook client
type CreateWebhookClientRequest struct {
	WebhookURL       string   `json:"webhook_url" binding:"required"`
	EventFilters     []string `json:"event_filters"`
	RetryMaxAttempts *int     `json:"retry_max_attempts"`
}

// Validate checks the request fields. Plain HTTP endpoints are only
// accepted in debug mode; production deliveries carry signed payloads and
// must not travel in the clear.
func (r *CreateWebhookClientRequest) Validate(debug bool) error {
	parsed, err := url.Parse(r.WebhookURL)
	if err != nil {
		return fmt.Errorf("invalid webhook_url: %w", err)
	}
	switch parsed.Scheme {
	case "https":
	case "http":
		if !debug {
			return errors.New("webhook_url must use https")
		}
	default:
		return fmt.Errorf("unsupported webhook_url scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("webhook_url is missing a host")
	}

	for _, filter := range r.EventFilters {
		switch filter {
		case webhook.EventTypeWildcard, webhook.EventTypeHoldingsChanged:
		default:
			return fmt.Errorf("unknown event filter: %s", filter)
		}
	}

	if r.RetryMaxAttempts != nil && *r.RetryMaxAttempts <= 0 {
		return errors.New("retry_max_attempts must be positive")
	}

	return nil
}

// WebhookClientResponse is returned once at registration time. The secret
// is never retrievable again.
type WebhookClientResponse struct {
	ClientID         string    `json:"client_id"`
	WebhookURL       string    `json:"webhook_url"`
	WebhookSecret    string    `json:"webhook_secret"`
	EventFilters     []string  `json:"event_filters"`
	IsActive         bool      `json:"is_active"`
	RetryMaxAttempts int       `json:"retry_max_attempts"`
	CreatedAt        time.Time `json:"created_at"`
}

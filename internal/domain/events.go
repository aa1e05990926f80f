package domain

import "time"

// EventType represents the type of event published to downstream consumers
type EventType string

const (
	EventTypeHoldingsChanged EventType = "holdings_changed"
)

// HoldingsChangedEvent is the normalized event published to NATS and
// delivered to webhook clients whenever a watched owner's license holdings
// change between two completed resolution runs.
type HoldingsChangedEvent struct {
	EventID     string      `json:"event_id"`     // ULID, unique per event
	Chain       Chain       `json:"chain"`        // e.g. "eip155:1"
	Owner       string      `json:"owner"`        // lowercase hex address
	BlockHeight uint64      `json:"block_height"` // head that triggered the run, 0 if owner-change triggered
	Added       []DatasetID `json:"added"`
	Removed     []DatasetID `json:"removed"`
	DatasetIDs  []DatasetID `json:"dataset_ids"` // full current set, ascending
	OccurredAt  time.Time   `json:"occurred_at"`
}

func (e *HoldingsChangedEvent) Valid() bool {
	if e.EventID == "" {
		return false
	}
	if !IsValidChain(e.Chain) {
		return false
	}
	if e.Owner == "" {
		return false
	}
	// A change event must actually carry a change.
	if len(e.Added) == 0 && len(e.Removed) == 0 {
		return false
	}
	return !e.OccurredAt.IsZero()
}

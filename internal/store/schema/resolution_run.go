package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/databazaar/license-indexer/internal/domain"
)

// ResolutionRun represents the resolution_runs table - an append-only journal
// of resolution runs that changed an owner's dataset set or errored.
//
// The journal is an audit trail for operators and the runs API. Nothing in
// the resolution path reads it back: every run recomputes holdings from the
// chain, so a stale or missing journal row can never poison a snapshot.
type ResolutionRun struct {
	// Cursor is an auto-incrementing sequence number for efficient pagination and ordering
	Cursor int64 `gorm:"column:\"cursor\";primaryKey;autoIncrement"`
	// RunID is a unique identifier for this run (ULID for time-sortable uniqueness)
	RunID string `gorm:"column:run_id;not null;unique;type:varchar(26)"`
	// Chain identifies the blockchain network
	Chain domain.Chain `gorm:"column:chain;not null;type:text"`
	// Address is the owner address this run resolved
	Address string `gorm:"column:address;not null;type:text"`
	// BlockHeight is the chain head the run was resolved against, 0 when unknown
	BlockHeight uint64 `gorm:"column:block_height;not null;default:0"`
	// Boundary is the minted-token boundary discovered by the probe
	Boundary uint64 `gorm:"column:boundary;not null;default:0"`
	// OwnedCount is the number of tokens the owner held at resolution time
	OwnedCount int `gorm:"column:owned_count;not null;default:0"`
	// DatasetCount is the number of distinct datasets those tokens map to
	DatasetCount int `gorm:"column:dataset_count;not null;default:0"`
	// Changed indicates whether the dataset set differed from the previous run
	Changed bool `gorm:"column:changed;not null;default:false"`
	// Error contains the failure message when the run errored, nil on success
	Error *string `gorm:"column:error;type:text"`
	// DurationMS is how long the resolution took in milliseconds
	DurationMS int64 `gorm:"column:duration_ms;not null;default:0"`
	// Meta carries run context as JSON (added/removed dataset ids, trigger)
	Meta datatypes.JSON `gorm:"column:meta;type:jsonb"`
	// CreatedAt is the timestamp when this run was journaled
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ResolutionRun model
func (ResolutionRun) TableName() string {
	return "resolution_runs"
}

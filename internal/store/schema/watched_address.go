package schema

import (
	"time"

	"github.com/databazaar/license-indexer/internal/domain"
)

// WatchedAddress represents the watched_addresses table - the registry of
// owners whose license holdings the watcher keeps live
type WatchedAddress struct {
	// Chain identifies the blockchain network
	Chain domain.Chain `gorm:"column:chain;not null;primaryKey;type:text"`
	// Address is the owner address being watched (lowercase hex)
	Address string `gorm:"column:address;not null;primaryKey;type:text"`
	// Watching indicates whether this address is currently being monitored
	Watching bool `gorm:"column:watching;not null;default:true"`
	// Label is an optional operator-assigned name for the address
	Label string `gorm:"column:label;type:text"`
	// LastResolvedAt records when the watcher last completed a resolution run
	LastResolvedAt *time.Time `gorm:"column:last_resolved_at;type:timestamptz"`
	// CreatedAt is when this watch entry was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is when this watch entry was last modified
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the WatchedAddress model
func (WatchedAddress) TableName() string {
	return "watched_addresses"
}

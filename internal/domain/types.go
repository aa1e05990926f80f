package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainEthereumMainnet ||
		chain == ChainEthereumSepolia
}

// TokenID is a license token identifier. Tokens are minted sequentially
// starting at 1; the contract keeps no registry of minted ids.
type TokenID uint64

// DatasetID identifies a dataset record in the marketplace registry.
// 0 is reserved to mean "no dataset attached", which the boundary prober
// reads as "this token slot was never minted".
type DatasetID uint64

// DatasetSet is a set of dataset identifiers.
type DatasetSet map[DatasetID]struct{}

// NewDatasetSet builds a set from the given ids.
func NewDatasetSet(ids ...DatasetID) DatasetSet {
	s := make(DatasetSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts an id into the set.
func (s DatasetSet) Add(id DatasetID) {
	s[id] = struct{}{}
}

// Contains reports whether the set holds id.
func (s DatasetSet) Contains(id DatasetID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order. Never returns nil.
func (s DatasetSet) Sorted() []DatasetID {
	ids := make([]DatasetID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Equal reports whether both sets hold exactly the same members.
func (s DatasetSet) Equal(other DatasetSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set.
func (s DatasetSet) Clone() DatasetSet {
	c := make(DatasetSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Diff returns the members added and removed relative to previous,
// both in ascending order and never nil.
func (s DatasetSet) Diff(previous DatasetSet) (added, removed []DatasetID) {
	added = make([]DatasetID, 0)
	removed = make([]DatasetID, 0)
	for id := range s {
		if !previous.Contains(id) {
			added = append(added, id)
		}
	}
	for id := range previous {
		if !s.Contains(id) {
			removed = append(removed, id)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return added, removed
}

// NormalizeAddress parses a hex wallet address. Ownership comparisons are
// case-insensitive, so callers compare the parsed values rather than raw
// strings.
func NormalizeAddress(addr string) (common.Address, error) {
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return common.HexToAddress(addr), nil
}

// AddressKey renders an address in the canonical lowercase form used for
// map keys, database rows and event payloads.
func AddressKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// BlockHead is a chain head observation delivered on the head subscription
type BlockHead struct {
	Number    uint64
	Hash      string
	Timestamp time.Time
}

// State is the reactive controller's externally visible phase.
type State string

const (
	// StateIdle means no owner is connected; the result set is empty.
	StateIdle State = "idle"
	// StateLoading means a resolution run is in flight. The previous result
	// set, if any, stays visible until the run completes.
	StateLoading State = "loading"
	// StateReady means the last run completed; Error is set if it failed.
	StateReady State = "ready"
)

// Resolution is the outcome of one full discovery run for one owner:
// boundary probe, ownership scan, dataset mapping.
type Resolution struct {
	RunID       string     `json:"run_id"`
	Owner       string     `json:"owner"`
	Boundary    TokenID    `json:"boundary"`
	OwnedTokens []TokenID  `json:"-"`
	DatasetIDs  DatasetSet `json:"-"`
	OwnedCount  int        `json:"owned_count"`
	DurationMS  int64      `json:"duration_ms"`
}

// Snapshot is the state the engine publishes to subscribers: the dataset ids
// the owner currently holds licenses for, plus loading/error status. It is
// derived, ephemeral state: recomputed on every owner change and new chain
// head, never persisted.
type Snapshot struct {
	State      State       `json:"state"`
	DatasetIDs []DatasetID `json:"dataset_ids"`
	Loading    bool        `json:"loading"`
	Error      string      `json:"error,omitempty"`
	Resolution *Resolution `json:"resolution,omitempty"`
}

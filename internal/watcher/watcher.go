package watcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/databazaar/license-indexer/internal/adapter"
	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/holdings"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/messaging"
	"github.com/databazaar/license-indexer/internal/store"
	"github.com/databazaar/license-indexer/internal/store/schema"
)

// Config holds the configuration for the holdings watcher
type Config struct {
	Chain domain.Chain

	// RefreshInterval is how often the watch registry is re-read to pick
	// up added and removed addresses
	RefreshInterval time.Duration

	CursorSaveFreq  uint64        // Save head cursor every N blocks
	CursorSaveDelay time.Duration // Or save head cursor every N seconds
}

// Watcher keeps the holdings of every registered address live: it feeds chain
// heads into the engine, diffs the resulting snapshots, journals runs and
// publishes change events to the broker.
//
//go:generate mockgen -source=watcher.go -destination=../mocks/watcher.go -package=mocks -mock_names=Watcher=MockWatcher
type Watcher interface {
	// Run starts the watcher, blocking until ctx is done or the head
	// subscription fails permanently
	Run(ctx context.Context) error
	// Close closes the watcher and cleans up resources
	Close()
}

// watchEntry is one registered owner under watch. The consume goroutine is
// the only writer of previous and hasBaseline.
type watchEntry struct {
	unsubscribe func()
	previous    domain.DatasetSet
	hasBaseline bool
}

type watcher struct {
	config    Config
	store     store.Store
	engine    holdings.Engine
	publisher messaging.Publisher
	heads     messaging.HeadSubscriber
	clock     adapter.Clock
	json      adapter.JSON

	lastHead atomic.Uint64

	mu      sync.Mutex
	watches map[string]*watchEntry
	wg      sync.WaitGroup
}

// NewWatcher creates a new holdings watcher
func NewWatcher(
	cfg Config,
	st store.Store,
	engine holdings.Engine,
	pub messaging.Publisher,
	heads messaging.HeadSubscriber,
	clock adapter.Clock,
	json adapter.JSON,
) Watcher {
	return &watcher{
		config:    cfg,
		store:     st,
		engine:    engine,
		publisher: pub,
		heads:     heads,
		clock:     clock,
		json:      json,
		watches:   make(map[string]*watchEntry),
	}
}

// Run starts the watcher
func (w *watcher) Run(ctx context.Context) error {
	// Load the registry before the first head arrives so the initial
	// resolutions start immediately
	if err := w.refreshWatches(ctx); err != nil {
		return fmt.Errorf("failed to load watch registry: %w", err)
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- w.subscribeHeads(ctx)
	}()

	for {
		select {
		case <-w.clock.After(w.config.RefreshInterval):
			if err := w.refreshWatches(ctx); err != nil {
				logger.ErrorCtx(ctx, err, zap.String("chain", string(w.config.Chain)))
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// subscribeHeads runs the head subscription with reconnect backoff. Only a
// cancelled context ends it.
func (w *watcher) subscribeHeads(ctx context.Context) error {
	lastSavedBlock := uint64(0)
	lastSaveTime := w.clock.Now()

	handler := func(head *domain.BlockHead) error {
		w.lastHead.Store(head.Number)
		w.engine.OnHead(ctx, head)

		// Save cursor periodically (every N blocks or N seconds)
		shouldSave := head.Number-lastSavedBlock >= w.config.CursorSaveFreq ||
			w.clock.Since(lastSaveTime) >= w.config.CursorSaveDelay

		if shouldSave {
			if err := w.store.SetHeadCursor(ctx, w.config.Chain, head.Number); err != nil {
				logger.WarnCtx(ctx, "Failed to save head cursor", zap.Error(err))
			} else {
				lastSavedBlock = head.Number
				lastSaveTime = w.clock.Now()
			}
		}

		return nil
	}

	operation := func() error {
		err := w.heads.SubscribeHeads(ctx, handler)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = fmt.Errorf("head subscription ended unexpectedly")
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		logger.WarnCtx(ctx, "Head subscription dropped, reconnecting",
			zap.Error(err),
			zap.Duration("retry_in", next),
			zap.String("chain", string(w.config.Chain)),
		)
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(0),
	), ctx)

	return backoff.RetryNotify(operation, policy, notify)
}

// refreshWatches reconciles engine subscriptions against the watch registry
func (w *watcher) refreshWatches(ctx context.Context) error {
	watched, err := w.store.ListWatchedAddresses(ctx, w.config.Chain, true)
	if err != nil {
		return fmt.Errorf("failed to list watched addresses: %w", err)
	}

	active := make(map[string]struct{}, len(watched))
	for _, wa := range watched {
		owner, err := domain.NormalizeAddress(wa.Address)
		if err != nil {
			logger.WarnCtx(ctx, "Skipping invalid registry address",
				zap.String("address", wa.Address), zap.Error(err))
			continue
		}
		key := domain.AddressKey(owner)
		active[key] = struct{}{}

		w.mu.Lock()
		_, exists := w.watches[key]
		w.mu.Unlock()
		if exists {
			continue
		}

		ch, unsubscribe, err := w.engine.Subscribe(ctx, owner)
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("address", key))
			continue
		}

		entry := &watchEntry{unsubscribe: unsubscribe}
		w.mu.Lock()
		w.watches[key] = entry
		w.mu.Unlock()

		w.wg.Add(1)
		go w.consume(ctx, key, entry, ch)

		logger.InfoCtx(ctx, "Watching address",
			zap.String("address", key), zap.String("chain", string(w.config.Chain)))
	}

	// Unsubscribe addresses that left the registry
	w.mu.Lock()
	var dropped []*watchEntry
	for key, entry := range w.watches {
		if _, ok := active[key]; !ok {
			dropped = append(dropped, entry)
			delete(w.watches, key)
			logger.InfoCtx(ctx, "Stopped watching address", zap.String("address", key))
		}
	}
	w.mu.Unlock()
	for _, entry := range dropped {
		entry.unsubscribe()
	}

	return nil
}

// consume drains one owner's snapshot stream until it closes
func (w *watcher) consume(ctx context.Context, key string, entry *watchEntry, ch <-chan domain.Snapshot) {
	defer w.wg.Done()

	for snap := range ch {
		// Loading and idle snapshots carry no new outcome
		if snap.State != domain.StateReady || snap.Loading {
			continue
		}
		w.handleReady(ctx, key, entry, snap)
	}
}

// handleReady journals a completed run and publishes the diff when the
// dataset set changed
func (w *watcher) handleReady(ctx context.Context, key string, entry *watchEntry, snap domain.Snapshot) {
	blockHeight := w.lastHead.Load()
	now := w.clock.Now()

	if snap.Error != "" || snap.Resolution == nil {
		errMsg := snap.Error
		run := &schema.ResolutionRun{
			RunID:       ulid.MustNewDefault(now).String(),
			Chain:       w.config.Chain,
			Address:     key,
			BlockHeight: blockHeight,
			Error:       &errMsg,
		}
		if err := w.store.InsertResolutionRun(ctx, run); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("address", key))
		}
		return
	}

	current := snap.Resolution.DatasetIDs

	// The first completed run establishes the baseline. It is journaled for
	// the audit trail but publishes nothing: the watcher reports changes,
	// not pre-existing holdings.
	if !entry.hasBaseline {
		entry.previous = current.Clone()
		entry.hasBaseline = true
		w.journalRun(ctx, key, snap, blockHeight, false, nil, nil)
		w.touchResolved(ctx, key, now)
		return
	}

	added, removed := current.Diff(entry.previous)
	if len(added) == 0 && len(removed) == 0 {
		w.touchResolved(ctx, key, now)
		return
	}

	entry.previous = current.Clone()

	event := &domain.HoldingsChangedEvent{
		EventID:     ulid.MustNewDefault(now).String(),
		Chain:       w.config.Chain,
		Owner:       key,
		BlockHeight: blockHeight,
		Added:       added,
		Removed:     removed,
		DatasetIDs:  current.Sorted(),
		OccurredAt:  now,
	}

	if err := w.publisher.PublishHoldingsChanged(ctx, event); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("address", key), zap.String("event_id", event.EventID))
	} else {
		logger.InfoCtx(ctx, "Holdings changed",
			zap.String("address", key),
			zap.String("event_id", event.EventID),
			zap.Int("added", len(added)),
			zap.Int("removed", len(removed)),
		)
	}

	w.journalRun(ctx, key, snap, blockHeight, true, added, removed)
	w.touchResolved(ctx, key, now)
}

// journalRun appends one completed run to the resolution journal
func (w *watcher) journalRun(
	ctx context.Context,
	key string,
	snap domain.Snapshot,
	blockHeight uint64,
	changed bool,
	added, removed []domain.DatasetID,
) {
	res := snap.Resolution

	var meta datatypes.JSON
	if changed {
		raw, err := w.json.Marshal(map[string]any{
			"added":   added,
			"removed": removed,
		})
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("address", key))
		} else {
			meta = datatypes.JSON(raw)
		}
	}

	run := &schema.ResolutionRun{
		RunID:        res.RunID,
		Chain:        w.config.Chain,
		Address:      key,
		BlockHeight:  blockHeight,
		Boundary:     uint64(res.Boundary),
		OwnedCount:   res.OwnedCount,
		DatasetCount: len(res.DatasetIDs),
		Changed:      changed,
		DurationMS:   res.DurationMS,
		Meta:         meta,
	}
	if err := w.store.InsertResolutionRun(ctx, run); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("address", key), zap.String("run_id", res.RunID))
	}
}

func (w *watcher) touchResolved(ctx context.Context, key string, now time.Time) {
	if err := w.store.TouchLastResolvedAt(ctx, w.config.Chain, key, now); err != nil {
		logger.WarnCtx(ctx, "Failed to stamp last resolution",
			zap.Error(err), zap.String("address", key))
	}
}

// Close closes the watcher and cleans up resources
func (w *watcher) Close() {
	w.mu.Lock()
	entries := make([]*watchEntry, 0, len(w.watches))
	for _, entry := range w.watches {
		entries = append(entries, entry)
	}
	w.watches = make(map[string]*watchEntry)
	w.mu.Unlock()

	for _, entry := range entries {
		entry.unsubscribe()
	}
	w.heads.Close()
	w.wg.Wait()
	logger.Info("Holdings watcher closed")
}

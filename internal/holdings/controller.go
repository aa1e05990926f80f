package holdings

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/logger"
)

// Controller is the reactive state machine behind one owner's holdings view.
//
// It moves between three states: Idle while no owner is connected, Loading
// while a resolution run is in flight, and Ready once a run finished. A new
// chain head re-runs the pipeline without hiding the previous result, and a
// failed run keeps the last known-good set alongside the error.
//
// Every trigger bumps a generation counter and cancels the in-flight run.
// A run that finishes after a newer trigger is discarded at publish time,
// so a slow stale result can never overwrite a fresher one.
type Controller struct {
	resolver Resolver
	baseCtx  context.Context

	mu          sync.Mutex
	owner       *common.Address
	state       domain.State
	datasets    domain.DatasetSet
	resolution  *domain.Resolution
	lastError   string
	generation  uint64
	cancelRun   context.CancelFunc
	subscribers map[int]chan domain.Snapshot
	nextSubID   int
	closed      bool
}

// NewController creates an idle controller. Runs started by the controller
// derive from ctx, so canceling it aborts whatever is in flight.
func NewController(ctx context.Context, resolver Resolver) *Controller {
	return &Controller{
		resolver:    resolver,
		baseCtx:     ctx,
		state:       domain.StateIdle,
		datasets:    domain.NewDatasetSet(),
		subscribers: make(map[int]chan domain.Snapshot),
	}
}

// SetOwner connects an owner, switches to another one, or disconnects when
// owner is nil. Switching owners clears the previous set before loading so
// one wallet's holdings never show under another; reconnecting the same
// owner is a no-op.
func (c *Controller) SetOwner(ctx context.Context, owner *common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	switch {
	case owner == nil:
		if c.owner == nil {
			return
		}
		logger.DebugCtx(ctx, "Owner disconnected",
			zap.String("owner", domain.AddressKey(*c.owner)))
		c.supersedeLocked()
		c.owner = nil
		c.state = domain.StateIdle
		c.datasets = domain.NewDatasetSet()
		c.resolution = nil
		c.lastError = ""
		c.publishLocked()

	case c.owner != nil && *c.owner == *owner:
		return

	default:
		if c.owner != nil {
			c.datasets = domain.NewDatasetSet()
			c.resolution = nil
			c.lastError = ""
		}
		connected := *owner
		c.owner = &connected
		logger.DebugCtx(ctx, "Owner connected",
			zap.String("owner", domain.AddressKey(connected)))
		c.triggerLocked(connected)
	}
}

// OnHead re-runs the pipeline for the connected owner. The previous result
// set stays visible while the run is in flight.
func (c *Controller) OnHead(ctx context.Context, head *domain.BlockHead) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.owner == nil {
		return
	}

	logger.DebugCtx(ctx, "Re-running holdings on new head",
		zap.String("owner", domain.AddressKey(*c.owner)),
		zap.Uint64("block", head.Number))
	c.triggerLocked(*c.owner)
}

// Subscribe registers a conflating snapshot stream. The first delivery is
// the current snapshot; afterwards a slow consumer only ever observes the
// latest state, never a backlog. The returned func unsubscribes and closes
// the stream.
func (c *Controller) Subscribe() (<-chan domain.Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		ch := make(chan domain.Snapshot)
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	ch := make(chan domain.Snapshot, 1)
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, unsubscribe
}

// Snapshot returns the current view without subscribing.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close cancels the in-flight run and closes every subscriber stream.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.supersedeLocked()
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
}

// supersedeLocked invalidates the in-flight run, if any: its generation no
// longer matches and its context gets canceled.
func (c *Controller) supersedeLocked() {
	c.generation++
	if c.cancelRun != nil {
		c.cancelRun()
		c.cancelRun = nil
	}
}

// triggerLocked starts a resolution run for owner under the next generation
func (c *Controller) triggerLocked(owner common.Address) {
	c.supersedeLocked()
	gen := c.generation

	runCtx, cancel := context.WithCancel(c.baseCtx)
	c.cancelRun = cancel

	c.state = domain.StateLoading
	c.lastError = ""
	c.publishLocked()

	go c.run(runCtx, gen, owner)
}

// run executes one resolution and publishes it unless a newer trigger
// superseded this generation while it was in flight.
func (c *Controller) run(ctx context.Context, gen uint64, owner common.Address) {
	res, err := c.resolver.Resolve(ctx, owner)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.generation {
		logger.DebugCtx(ctx, "Discarding superseded resolution",
			zap.String("owner", domain.AddressKey(owner)),
			zap.Uint64("generation", gen))
		return
	}
	if c.cancelRun != nil {
		c.cancelRun()
		c.cancelRun = nil
	}

	c.state = domain.StateReady
	if err != nil {
		// keep the last known-good set visible alongside the error
		c.lastError = err.Error()
		logger.ErrorCtx(ctx, err, zap.String("owner", domain.AddressKey(owner)))
	} else {
		c.datasets = res.DatasetIDs
		c.resolution = res
		c.lastError = ""
	}
	c.publishLocked()
}

// publishLocked pushes the current snapshot to every subscriber, replacing
// a pending undelivered snapshot instead of blocking on slow consumers.
func (c *Controller) publishLocked() {
	snap := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		State:      c.state,
		DatasetIDs: c.datasets.Sorted(),
		Loading:    c.state == domain.StateLoading,
		Error:      c.lastError,
		Resolution: c.resolution,
	}
}

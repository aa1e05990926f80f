package holdings

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/logger"
)

// Engine multiplexes the holdings pipeline across owners: one controller per
// subscribed owner, refcounted so the last unsubscribe tears it down, with
// chain heads fanned out to every live controller.
//
//go:generate mockgen -source=engine.go -destination=../mocks/engine.go -package=mocks -mock_names=Engine=MockEngine
type Engine interface {
	// Subscribe attaches to the owner's snapshot stream, starting the
	// discovery pipeline on first use. The first delivery is the current
	// snapshot. The returned func detaches; the last detach disconnects
	// the owner and discards its state.
	Subscribe(ctx context.Context, owner common.Address) (<-chan domain.Snapshot, func(), error)

	// OnHead re-runs the pipeline for every subscribed owner.
	OnHead(ctx context.Context, head *domain.BlockHead)

	// Close tears down all controllers and cancels in-flight runs.
	Close()
}

type ownerEntry struct {
	controller *Controller
	refs       int
}

type engine struct {
	resolver Resolver
	baseCtx  context.Context
	cancel   context.CancelFunc

	mu     sync.Mutex
	owners map[string]*ownerEntry
	closed bool
}

// NewEngine creates an engine running resolutions through the given resolver
func NewEngine(resolver Resolver) Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &engine{
		resolver: resolver,
		baseCtx:  ctx,
		cancel:   cancel,
		owners:   make(map[string]*ownerEntry),
	}
}

func (e *engine) Subscribe(ctx context.Context, owner common.Address) (<-chan domain.Snapshot, func(), error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, nil, domain.ErrEngineClosed
	}

	key := domain.AddressKey(owner)
	ent, ok := e.owners[key]
	if !ok {
		ent = &ownerEntry{controller: NewController(e.baseCtx, e.resolver)}
		e.owners[key] = ent
		connected := owner
		ent.controller.SetOwner(ctx, &connected)
		logger.DebugCtx(ctx, "Owner controller started", zap.String("owner", key))
	}
	ent.refs++
	ch, unsub := ent.controller.Subscribe()
	e.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			unsub()
			e.release(key)
		})
	}
	return ch, unsubscribe, nil
}

func (e *engine) OnHead(ctx context.Context, head *domain.BlockHead) {
	e.mu.Lock()
	controllers := make([]*Controller, 0, len(e.owners))
	for _, ent := range e.owners {
		controllers = append(controllers, ent.controller)
	}
	e.mu.Unlock()

	for _, ctl := range controllers {
		ctl.OnHead(ctx, head)
	}
}

func (e *engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	controllers := make([]*Controller, 0, len(e.owners))
	for _, ent := range e.owners {
		controllers = append(controllers, ent.controller)
	}
	e.owners = make(map[string]*ownerEntry)
	e.mu.Unlock()

	e.cancel()
	for _, ctl := range controllers {
		ctl.Close()
	}
	logger.Info("Holdings engine closed")
}

// release drops one reference to the owner's controller and tears the
// controller down when the last subscriber is gone.
func (e *engine) release(key string) {
	e.mu.Lock()
	ent, ok := e.owners[key]
	if !ok {
		e.mu.Unlock()
		return
	}
	ent.refs--
	if ent.refs > 0 {
		e.mu.Unlock()
		return
	}
	delete(e.owners, key)
	e.mu.Unlock()

	ent.controller.Close()
	logger.Debug("Owner controller torn down", zap.String("owner", key))
}

package holdings_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/holdings"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/mocks"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

var (
	ownerA = common.HexToAddress("0x8Ba1f109551bD432803012645Ac136ddd64DBA72")
	ownerB = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

// resolution builds a minimal run outcome carrying the given dataset ids.
func resolution(ids ...domain.DatasetID) *domain.Resolution {
	return &domain.Resolution{
		RunID:      "run-test",
		DatasetIDs: domain.NewDatasetSet(ids...),
	}
}

// waitSnapshot reads the next snapshot or fails the test after a timeout.
func waitSnapshot(t *testing.T, ch <-chan domain.Snapshot) domain.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("snapshot stream closed unexpectedly")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return domain.Snapshot{}
}

// waitReady reads snapshots until a ready one arrives. The stream conflates,
// so intermediate loading snapshots may or may not be observed.
func waitReady(t *testing.T, ch <-chan domain.Snapshot) domain.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatal("snapshot stream closed unexpectedly")
			}
			if snap.State == domain.StateReady {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for ready snapshot")
		}
	}
}

// assertNoSnapshot asserts that nothing arrives on the stream for a moment.
func assertNoSnapshot(t *testing.T, ch <-chan domain.Snapshot) {
	t.Helper()
	select {
	case snap := <-ch:
		t.Fatalf("unexpected snapshot: %+v", snap)
	case <-time.After(150 * time.Millisecond):
	}
}

type testControllerMocks struct {
	ctrl       *gomock.Controller
	resolver   *mocks.MockResolver
	controller *holdings.Controller
}

func setupTestController(t *testing.T) *testControllerMocks {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)

	return &testControllerMocks{
		ctrl:       ctrl,
		resolver:   resolver,
		controller: holdings.NewController(context.Background(), resolver),
	}
}

func tearDownTestController(tm *testControllerMocks) {
	tm.controller.Close()
	tm.ctrl.Finish()
}

func TestController_OwnerConnectLifecycle(t *testing.T) {
	tm := setupTestController(t)
	defer tearDownTestController(tm)

	release := make(chan struct{})
	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		DoAndReturn(func(ctx context.Context, owner common.Address) (*domain.Resolution, error) {
			<-release
			return resolution(20, 30), nil
		})

	ch, unsubscribe := tm.controller.Subscribe()
	defer unsubscribe()

	snap := waitSnapshot(t, ch)
	assert.Equal(t, domain.StateIdle, snap.State)
	assert.Empty(t, snap.DatasetIDs)
	assert.False(t, snap.Loading)

	tm.controller.SetOwner(context.Background(), &ownerA)

	snap = waitSnapshot(t, ch)
	assert.Equal(t, domain.StateLoading, snap.State)
	assert.True(t, snap.Loading)
	assert.Empty(t, snap.DatasetIDs)

	close(release)

	snap = waitSnapshot(t, ch)
	assert.Equal(t, domain.StateReady, snap.State)
	assert.False(t, snap.Loading)
	assert.Equal(t, []domain.DatasetID{20, 30}, snap.DatasetIDs)
	assert.Empty(t, snap.Error)
	assert.NotNil(t, snap.Resolution)
}

func TestController_HeadRerunKeepsPreviousSetVisible(t *testing.T) {
	tm := setupTestController(t)
	defer tearDownTestController(tm)

	release := make(chan struct{})
	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		Return(resolution(20, 30), nil)
	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		DoAndReturn(func(ctx context.Context, owner common.Address) (*domain.Resolution, error) {
			<-release
			return resolution(20, 30, 40), nil
		})

	ch, unsubscribe := tm.controller.Subscribe()
	defer unsubscribe()
	waitSnapshot(t, ch) // idle

	tm.controller.SetOwner(context.Background(), &ownerA)

	snap := waitReady(t, ch)
	assert.Equal(t, []domain.DatasetID{20, 30}, snap.DatasetIDs)

	tm.controller.OnHead(context.Background(), &domain.BlockHead{Number: 101})

	// The known set stays visible while the re-run is in flight
	snap = waitSnapshot(t, ch)
	assert.Equal(t, domain.StateLoading, snap.State)
	assert.True(t, snap.Loading)
	assert.Equal(t, []domain.DatasetID{20, 30}, snap.DatasetIDs)

	close(release)

	snap = waitReady(t, ch)
	assert.Equal(t, []domain.DatasetID{20, 30, 40}, snap.DatasetIDs)
}

func TestController_FailedRunKeepsLastGoodSet(t *testing.T) {
	tm := setupTestController(t)
	defer tearDownTestController(tm)

	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		Return(resolution(20, 30), nil)
	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		Return(nil, assert.AnError)

	ch, unsubscribe := tm.controller.Subscribe()
	defer unsubscribe()
	waitSnapshot(t, ch) // idle

	tm.controller.SetOwner(context.Background(), &ownerA)
	snap := waitReady(t, ch)
	assert.Equal(t, []domain.DatasetID{20, 30}, snap.DatasetIDs)
	assert.Empty(t, snap.Error)

	tm.controller.OnHead(context.Background(), &domain.BlockHead{Number: 101})

	snap = waitReady(t, ch)
	assert.Equal(t, []domain.DatasetID{20, 30}, snap.DatasetIDs)
	assert.Contains(t, snap.Error, assert.AnError.Error())
}

func TestController_StaleRunDiscarded(t *testing.T) {
	tm := setupTestController(t)
	defer tearDownTestController(tm)

	release := make(chan struct{})
	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		DoAndReturn(func(ctx context.Context, owner common.Address) (*domain.Resolution, error) {
			// Outlives the newer run regardless of its canceled context
			<-release
			return resolution(99), nil
		})
	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		Return(resolution(40), nil)

	ch, unsubscribe := tm.controller.Subscribe()
	defer unsubscribe()
	waitSnapshot(t, ch) // idle

	tm.controller.SetOwner(context.Background(), &ownerA)
	waitSnapshot(t, ch) // loading, slow run in flight

	tm.controller.OnHead(context.Background(), &domain.BlockHead{Number: 101})

	snap := waitReady(t, ch)
	assert.Equal(t, []domain.DatasetID{40}, snap.DatasetIDs)

	// The superseded run completes late; its result must never surface
	close(release)
	assertNoSnapshot(t, ch)
	assert.Equal(t, []domain.DatasetID{40}, tm.controller.Snapshot().DatasetIDs)
}

func TestController_DisconnectClears(t *testing.T) {
	tm := setupTestController(t)
	defer tearDownTestController(tm)

	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		Return(resolution(20, 30), nil)

	ch, unsubscribe := tm.controller.Subscribe()
	defer unsubscribe()
	waitSnapshot(t, ch) // idle

	tm.controller.SetOwner(context.Background(), &ownerA)
	waitReady(t, ch)

	tm.controller.SetOwner(context.Background(), nil)

	snap := waitSnapshot(t, ch)
	assert.Equal(t, domain.StateIdle, snap.State)
	assert.Empty(t, snap.DatasetIDs)
	assert.Empty(t, snap.Error)
	assert.Nil(t, snap.Resolution)
}

func TestController_OwnerSwitchClearsPreviousSet(t *testing.T) {
	tm := setupTestController(t)
	defer tearDownTestController(tm)

	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		Return(resolution(20, 30), nil)
	release := make(chan struct{})
	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerB).
		DoAndReturn(func(ctx context.Context, owner common.Address) (*domain.Resolution, error) {
			<-release
			return resolution(50), nil
		})

	ch, unsubscribe := tm.controller.Subscribe()
	defer unsubscribe()
	waitSnapshot(t, ch) // idle

	tm.controller.SetOwner(context.Background(), &ownerA)
	snap := waitReady(t, ch)
	assert.Equal(t, []domain.DatasetID{20, 30}, snap.DatasetIDs)

	tm.controller.SetOwner(context.Background(), &ownerB)

	// The previous owner's holdings never show under the new owner
	snap = waitSnapshot(t, ch)
	assert.Equal(t, domain.StateLoading, snap.State)
	assert.Empty(t, snap.DatasetIDs)

	close(release)

	snap = waitReady(t, ch)
	assert.Equal(t, []domain.DatasetID{50}, snap.DatasetIDs)
}

func TestController_SameOwnerIsNoop(t *testing.T) {
	tm := setupTestController(t)
	defer tearDownTestController(tm)

	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		Return(resolution(20), nil).
		Times(1)

	ch, unsubscribe := tm.controller.Subscribe()
	defer unsubscribe()
	waitSnapshot(t, ch) // idle

	tm.controller.SetOwner(context.Background(), &ownerA)
	waitReady(t, ch)

	tm.controller.SetOwner(context.Background(), &ownerA)
	assertNoSnapshot(t, ch)
}

func TestController_ConflationKeepsLatestOnly(t *testing.T) {
	tm := setupTestController(t)
	defer tearDownTestController(tm)

	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		Return(resolution(20), nil)

	// Never read until the whole idle -> loading -> ready sequence has been
	// published; the buffered stream must hold only the newest snapshot
	ch, unsubscribe := tm.controller.Subscribe()
	defer unsubscribe()

	tm.controller.SetOwner(context.Background(), &ownerA)

	assert.Eventually(t, func() bool {
		return tm.controller.Snapshot().State == domain.StateReady
	}, 2*time.Second, 10*time.Millisecond)

	snap := waitSnapshot(t, ch)
	assert.Equal(t, domain.StateReady, snap.State)
	assert.Equal(t, []domain.DatasetID{20}, snap.DatasetIDs)
}

func TestController_DisconnectCancelsInFlightRun(t *testing.T) {
	tm := setupTestController(t)
	defer tearDownTestController(tm)

	canceled := make(chan struct{})
	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		DoAndReturn(func(ctx context.Context, owner common.Address) (*domain.Resolution, error) {
			<-ctx.Done()
			close(canceled)
			return nil, ctx.Err()
		})

	ch, unsubscribe := tm.controller.Subscribe()
	defer unsubscribe()
	waitSnapshot(t, ch) // idle

	tm.controller.SetOwner(context.Background(), &ownerA)
	waitSnapshot(t, ch) // loading

	tm.controller.SetOwner(context.Background(), nil)

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight run was not canceled on disconnect")
	}

	snap := waitSnapshot(t, ch)
	assert.Equal(t, domain.StateIdle, snap.State)
	assert.Empty(t, snap.DatasetIDs)

	// The canceled run's error must not surface after the disconnect
	assertNoSnapshot(t, ch)
	assert.Empty(t, tm.controller.Snapshot().Error)
}

func TestController_CloseClosesStreams(t *testing.T) {
	tm := setupTestController(t)
	defer tearDownTestController(tm)

	ch, unsubscribe := tm.controller.Subscribe()
	defer unsubscribe()
	waitSnapshot(t, ch) // idle

	tm.controller.Close()

	_, ok := <-ch
	assert.False(t, ok)

	// Subscribing after close yields an already-closed stream
	ch2, _ := tm.controller.Subscribe()
	_, ok = <-ch2
	assert.False(t, ok)
}

func TestController_InitialSnapshot(t *testing.T) {
	tm := setupTestController(t)
	defer tearDownTestController(tm)

	snap := tm.controller.Snapshot()

	assert.Equal(t, domain.StateIdle, snap.State)
	assert.NotNil(t, snap.DatasetIDs)
	assert.Empty(t, snap.DatasetIDs)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
}

package holdings_test

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/holdings"
	"github.com/databazaar/license-indexer/internal/mocks"
)

type testEngineMocks struct {
	ctrl     *gomock.Controller
	resolver *mocks.MockResolver
	engine   holdings.Engine
}

func setupTestEngine(t *testing.T) *testEngineMocks {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)

	return &testEngineMocks{
		ctrl:     ctrl,
		resolver: resolver,
		engine:   holdings.NewEngine(resolver),
	}
}

func tearDownTestEngine(tm *testEngineMocks) {
	tm.engine.Close()
	tm.ctrl.Finish()
}

func TestEngine_SubscribeDeliversSnapshots(t *testing.T) {
	tm := setupTestEngine(t)
	defer tearDownTestEngine(tm)

	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		Return(resolution(20, 30), nil)

	ch, unsubscribe, err := tm.engine.Subscribe(context.Background(), ownerA)
	assert.NoError(t, err)
	defer unsubscribe()

	snap := waitReady(t, ch)
	assert.Equal(t, []domain.DatasetID{20, 30}, snap.DatasetIDs)
	assert.Empty(t, snap.Error)
}

func TestEngine_SharedControllerPerOwner(t *testing.T) {
	tm := setupTestEngine(t)
	defer tearDownTestEngine(tm)

	// One controller and one run serve both subscribers
	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		Return(resolution(20), nil).
		Times(1)

	ch1, unsub1, err := tm.engine.Subscribe(context.Background(), ownerA)
	assert.NoError(t, err)
	defer unsub1()

	ch2, unsub2, err := tm.engine.Subscribe(context.Background(), ownerA)
	assert.NoError(t, err)
	defer unsub2()

	assert.Equal(t, []domain.DatasetID{20}, waitReady(t, ch1).DatasetIDs)
	assert.Equal(t, []domain.DatasetID{20}, waitReady(t, ch2).DatasetIDs)
}

func TestEngine_OnHeadFansOutToAllOwners(t *testing.T) {
	tm := setupTestEngine(t)
	defer tearDownTestEngine(tm)

	tm.resolver.EXPECT().Resolve(gomock.Any(), ownerA).Return(resolution(1), nil)
	tm.resolver.EXPECT().Resolve(gomock.Any(), ownerA).Return(resolution(2), nil)
	tm.resolver.EXPECT().Resolve(gomock.Any(), ownerB).Return(resolution(1), nil)
	tm.resolver.EXPECT().Resolve(gomock.Any(), ownerB).Return(resolution(2), nil)

	chA, unsubA, err := tm.engine.Subscribe(context.Background(), ownerA)
	assert.NoError(t, err)
	defer unsubA()

	chB, unsubB, err := tm.engine.Subscribe(context.Background(), ownerB)
	assert.NoError(t, err)
	defer unsubB()

	assert.Equal(t, []domain.DatasetID{1}, waitReady(t, chA).DatasetIDs)
	assert.Equal(t, []domain.DatasetID{1}, waitReady(t, chB).DatasetIDs)

	tm.engine.OnHead(context.Background(), &domain.BlockHead{Number: 7})

	assert.Equal(t, []domain.DatasetID{2}, waitReady(t, chA).DatasetIDs)
	assert.Equal(t, []domain.DatasetID{2}, waitReady(t, chB).DatasetIDs)
}

func TestEngine_LastUnsubscribeTearsDownController(t *testing.T) {
	tm := setupTestEngine(t)
	defer tearDownTestEngine(tm)

	// Two runs: resubscribing after the teardown starts from scratch
	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		Return(resolution(20), nil).
		Times(2)

	ch1, unsub1, err := tm.engine.Subscribe(context.Background(), ownerA)
	assert.NoError(t, err)
	waitReady(t, ch1)

	unsub1()
	_, ok := <-ch1
	assert.False(t, ok)

	ch2, unsub2, err := tm.engine.Subscribe(context.Background(), ownerA)
	assert.NoError(t, err)
	defer unsub2()
	waitReady(t, ch2)
}

func TestEngine_UnsubscribeIdempotent(t *testing.T) {
	tm := setupTestEngine(t)
	defer tearDownTestEngine(tm)

	tm.resolver.EXPECT().Resolve(gomock.Any(), ownerA).Return(resolution(1), nil)
	tm.resolver.EXPECT().Resolve(gomock.Any(), ownerA).Return(resolution(2), nil)

	ch1, unsub1, err := tm.engine.Subscribe(context.Background(), ownerA)
	assert.NoError(t, err)
	ch2, unsub2, err := tm.engine.Subscribe(context.Background(), ownerA)
	assert.NoError(t, err)
	defer unsub2()

	waitReady(t, ch1)
	waitReady(t, ch2)

	unsub1()
	unsub1() // must not release the remaining subscriber's hold

	tm.engine.OnHead(context.Background(), &domain.BlockHead{Number: 7})

	snap := waitReady(t, ch2)
	assert.Equal(t, []domain.DatasetID{2}, snap.DatasetIDs)
}

func TestEngine_SubscribeAfterClose(t *testing.T) {
	tm := setupTestEngine(t)
	defer tearDownTestEngine(tm)

	tm.engine.Close()

	_, _, err := tm.engine.Subscribe(context.Background(), ownerA)
	assert.Equal(t, domain.ErrEngineClosed, err)
}

func TestEngine_CloseClosesStreams(t *testing.T) {
	tm := setupTestEngine(t)
	defer tearDownTestEngine(tm)

	tm.resolver.
		EXPECT().
		Resolve(gomock.Any(), ownerA).
		Return(resolution(20), nil)

	ch, unsubscribe, err := tm.engine.Subscribe(context.Background(), ownerA)
	assert.NoError(t, err)
	defer unsubscribe()
	waitReady(t, ch)

	tm.engine.Close()

	_, ok := <-ch
	assert.False(t, ok)
}

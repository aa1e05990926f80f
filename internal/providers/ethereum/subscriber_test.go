package ethereum_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/messaging"
	"github.com/databazaar/license-indexer/internal/mocks"
	ethprovider "github.com/databazaar/license-indexer/internal/providers/ethereum"
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

type testSubscriberMocks struct {
	ctrl       *gomock.Controller
	ethRPC     *mocks.MockEthRPC
	clock      *mocks.MockClock
	subscriber messaging.HeadSubscriber
}

func setupTestSubscriber(t *testing.T) *testSubscriberMocks {
	ctrl := gomock.NewController(t)

	ethRPC := mocks.NewMockEthRPC(ctrl)
	clock := mocks.NewMockClock(ctrl)

	subscriber := ethprovider.NewHeadSubscriber(ethprovider.Config{
		ChainID:      domain.ChainEthereumMainnet,
		PollInterval: 12 * time.Second,
	}, ethRPC, clock)

	return &testSubscriberMocks{
		ctrl:       ctrl,
		ethRPC:     ethRPC,
		clock:      clock,
		subscriber: subscriber,
	}
}

func tearDownTestSubscriber(tm *testSubscriberMocks) {
	tm.ctrl.Finish()
}

func TestSubscribeHeads_DeliversHeads(t *testing.T) {
	tm := setupTestSubscriber(t)
	defer tearDownTestSubscriber(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	header := &types.Header{
		Number:     big.NewInt(123),
		Time:       1700000000,
		Difficulty: big.NewInt(0),
	}

	tm.ethRPC.
		EXPECT().
		SubscribeNewHead(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
			go func() {
				ch <- header
			}()
			return event.NewSubscription(func(quit <-chan struct{}) error {
				<-quit
				return nil
			}), nil
		})

	var got []*domain.BlockHead
	handler := func(head *domain.BlockHead) error {
		got = append(got, head)
		// Stop the subscription loop once the head arrived
		cancel()
		return nil
	}

	err := tm.subscriber.SubscribeHeads(ctx, handler)

	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
	assert.Len(t, got, 1)
	assert.Equal(t, uint64(123), got[0].Number)
	assert.Equal(t, int64(1700000000), got[0].Timestamp.Unix())
}

func TestSubscribeHeads_SubscriptionError(t *testing.T) {
	tm := setupTestSubscriber(t)
	defer tearDownTestSubscriber(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.ethRPC.
		EXPECT().
		SubscribeNewHead(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
			return event.NewSubscription(func(quit <-chan struct{}) error {
				return errors.New("ws closed")
			}), nil
		})

	err := tm.subscriber.SubscribeHeads(ctx, func(head *domain.BlockHead) error {
		return nil
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "subscription error")
}

func TestSubscribeHeads_SubscribeFailed(t *testing.T) {
	tm := setupTestSubscriber(t)
	defer tearDownTestSubscriber(tm)

	tm.ethRPC.
		EXPECT().
		SubscribeNewHead(gomock.Any(), gomock.Any()).
		Return(nil, assert.AnError)

	err := tm.subscriber.SubscribeHeads(context.Background(), func(head *domain.BlockHead) error {
		return nil
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to subscribe to new heads")
}

func TestSubscribeHeads_PollingFallback(t *testing.T) {
	tm := setupTestSubscriber(t)
	defer tearDownTestSubscriber(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Plain HTTP endpoint: subscription attempt is rejected
	tm.ethRPC.
		EXPECT().
		SubscribeNewHead(gomock.Any(), gomock.Any()).
		Return(nil, rpc.ErrNotificationsUnsupported)

	// Three ticks fire immediately, any further tick never fires so the
	// canceled context wins the select
	fired := make(chan time.Time, 1)
	fired <- time.Now()
	close(fired)
	tm.clock.EXPECT().After(12 * time.Second).Return(fired).Times(3)
	tm.clock.EXPECT().After(12 * time.Second).Return(make(chan time.Time)).AnyTimes()

	header100 := &types.Header{Number: big.NewInt(100), Time: 1700000000, Difficulty: big.NewInt(0)}
	header101 := &types.Header{Number: big.NewInt(101), Time: 1700000012, Difficulty: big.NewInt(0)}

	// Same head twice, then a new one; the duplicate must be skipped
	tm.ethRPC.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(header100, nil)
	tm.ethRPC.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(header100, nil)
	tm.ethRPC.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(header101, nil)

	var got []uint64
	handler := func(head *domain.BlockHead) error {
		got = append(got, head.Number)
		if head.Number == 101 {
			cancel()
		}
		return nil
	}

	err := tm.subscriber.SubscribeHeads(ctx, handler)

	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, []uint64{100, 101}, got)
}

func TestGetLatestBlock(t *testing.T) {
	tm := setupTestSubscriber(t)
	defer tearDownTestSubscriber(tm)

	header := &types.Header{Number: big.NewInt(456), Difficulty: big.NewInt(0)}
	tm.ethRPC.
		EXPECT().
		HeaderByNumber(gomock.Any(), gomock.Nil()).
		Return(header, nil)

	blockNum, err := tm.subscriber.GetLatestBlock(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, uint64(456), blockNum)
}

func TestGetLatestBlock_Error(t *testing.T) {
	tm := setupTestSubscriber(t)
	defer tearDownTestSubscriber(tm)

	tm.ethRPC.
		EXPECT().
		HeaderByNumber(gomock.Any(), gomock.Nil()).
		Return(nil, assert.AnError)

	_, err := tm.subscriber.GetLatestBlock(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get latest block")
}

func TestHeadSubscriber_Close(t *testing.T) {
	tm := setupTestSubscriber(t)
	defer tearDownTestSubscriber(tm)

	tm.ethRPC.EXPECT().Close()

	tm.subscriber.Close()
}

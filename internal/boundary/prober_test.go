package boundary_test

import (
	"context"
	"os"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/databazaar/license-indexer/internal/boundary"
	"github.com/databazaar/license-indexer/internal/domain"
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

type testProberMocks struct {
	ctrl   *gomock.Controller
	reader *mocks.MockLicenseReader
	prober boundary.Prober
}

func setupTestProber(t *testing.T) *testProberMocks {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockLicenseReader(ctrl)

	return &testProberMocks{
		ctrl:   ctrl,
		reader: reader,
		prober: boundary.NewProber(reader),
	}
}

func tearDownTestProber(tm *testProberMocks) {
	tm.ctrl.Finish()
}

// expectDatasets wires DatasetOf to a fixed table; ids missing from the
// table read as 0, i.e. unminted.
func expectDatasets(tm *testProberMocks, datasets map[domain.TokenID]domain.DatasetID) {
	tm.reader.
		EXPECT().
		DatasetOf(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, id domain.TokenID) (domain.DatasetID, error) {
			return datasets[id], nil
		}).
		AnyTimes()
}

func TestProbe_NothingMinted(t *testing.T) {
	tm := setupTestProber(t)
	defer tearDownTestProber(tm)

	// Exactly one read: token 1 carries no dataset, so the probe stops
	// without touching any other id
	tm.reader.
		EXPECT().
		DatasetOf(gomock.Any(), domain.TokenID(1)).
		Return(domain.DatasetID(0), nil).
		Times(1)

	got, err := tm.prober.Probe(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, domain.TokenID(0), got)
}

func TestProbe_SingleToken(t *testing.T) {
	tm := setupTestProber(t)
	defer tearDownTestProber(tm)

	expectDatasets(tm, map[domain.TokenID]domain.DatasetID{1: 10})

	got, err := tm.prober.Probe(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, domain.TokenID(1), got)
}

func TestProbe_FiveTokens(t *testing.T) {
	tm := setupTestProber(t)
	defer tearDownTestProber(tm)

	expectDatasets(tm, map[domain.TokenID]domain.DatasetID{
		1: 10, 2: 20, 3: 10, 4: 30, 5: 20,
	})

	got, err := tm.prober.Probe(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, domain.TokenID(5), got)
}

func TestProbe_ExactPowerOfTwo(t *testing.T) {
	tm := setupTestProber(t)
	defer tearDownTestProber(tm)

	datasets := make(map[domain.TokenID]domain.DatasetID)
	for id := domain.TokenID(1); id <= 8; id++ {
		datasets[id] = domain.DatasetID(id * 100)
	}
	expectDatasets(tm, datasets)

	got, err := tm.prober.Probe(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, domain.TokenID(8), got)
}

func TestProbe_LargeBoundary(t *testing.T) {
	tm := setupTestProber(t)
	defer tearDownTestProber(tm)

	datasets := make(map[domain.TokenID]domain.DatasetID)
	for id := domain.TokenID(1); id <= 300; id++ {
		datasets[id] = 7
	}
	expectDatasets(tm, datasets)

	got, err := tm.prober.Probe(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, domain.TokenID(300), got)
}

func TestProbe_ReadErrorTreatedAsUnminted(t *testing.T) {
	tm := setupTestProber(t)
	defer tearDownTestProber(tm)

	tm.reader.
		EXPECT().
		DatasetOf(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, id domain.TokenID) (domain.DatasetID, error) {
			if id == 1 {
				return 10, nil
			}
			return 0, assert.AnError
		}).
		AnyTimes()

	got, err := tm.prober.Probe(context.Background())

	// Reads beyond token 1 all fail, which reads as "unminted": the
	// boundary collapses to the one id confirmed minted
	assert.NoError(t, err)
	assert.Equal(t, domain.TokenID(1), got)
}

func TestProbe_CanceledBeforeFirstRead(t *testing.T) {
	tm := setupTestProber(t)
	defer tearDownTestProber(tm)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tm.reader.
		EXPECT().
		DatasetOf(gomock.Any(), domain.TokenID(1)).
		Return(domain.DatasetID(0), context.Canceled)

	got, err := tm.prober.Probe(ctx)

	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, domain.TokenID(0), got)
}

func TestProbe_CanceledMidProbe(t *testing.T) {
	tm := setupTestProber(t)
	defer tearDownTestProber(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.reader.
		EXPECT().
		DatasetOf(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, id domain.TokenID) (domain.DatasetID, error) {
			if id == 1 {
				return 10, nil
			}
			// Connection drops during the doubling phase
			cancel()
			return 0, context.Canceled
		}).
		AnyTimes()

	got, err := tm.prober.Probe(ctx)

	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, domain.TokenID(0), got)
}

func TestProbe_CeilingReached(t *testing.T) {
	tm := setupTestProber(t)
	defer tearDownTestProber(tm)

	// Every id reads as minted, so the doubling phase runs out of probes
	tm.reader.
		EXPECT().
		DatasetOf(gomock.Any(), gomock.Any()).
		Return(domain.DatasetID(1), nil).
		AnyTimes()

	got, err := tm.prober.Probe(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, domain.TokenID(1)<<32, got)
}

func TestProbe_Idempotent(t *testing.T) {
	tm := setupTestProber(t)
	defer tearDownTestProber(tm)

	expectDatasets(tm, map[domain.TokenID]domain.DatasetID{
		1: 10, 2: 20, 3: 10, 4: 30, 5: 20,
	})

	first, err := tm.prober.Probe(context.Background())
	assert.NoError(t, err)

	second, err := tm.prober.Probe(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, first, second)
}

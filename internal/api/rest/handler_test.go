package rest_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databazaar/license-indexer/internal/api/rest"
	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/mocks"
	"github.com/databazaar/license-indexer/internal/store"
	"github.com/databazaar/license-indexer/internal/store/schema"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	gin.SetMode(gin.TestMode)

	code := m.Run()
	os.Exit(code)
}

const testAddress = "0x1111111111111111111111111111111111111111"

// testHandlerMocks contains all the mocks needed for testing the REST handler
type testHandlerMocks struct {
	ctrl     *gomock.Controller
	resolver *mocks.MockResolver
	engine   *mocks.MockEngine
	heads    *mocks.MockHeadProvider
	store    *mocks.MockStore
	router   *gin.Engine
}

// setupTest creates all the mocks and wires the handler onto a test router
func setupTest(t *testing.T) *testHandlerMocks {
	ctrl := gomock.NewController(t)

	mockResolver := mocks.NewMockResolver(ctrl)
	mockEngine := mocks.NewMockEngine(ctrl)
	mockHeads := mocks.NewMockHeadProvider(ctrl)
	mockStore := mocks.NewMockStore(ctrl)

	handler := rest.NewHandler(rest.HandlerConfig{
		Debug:     false,
		Chain:     domain.ChainEthereumMainnet,
		CacheSize: 16,
		CacheTTL:  time.Minute,
	}, mockResolver, mockEngine, mockHeads, mockStore)

	router := gin.New()
	router.GET("/health", handler.HealthCheck)
	router.GET("/api/v1/holdings/:address", handler.GetHoldings)
	router.GET("/api/v1/watches", handler.ListWatches)
	router.POST("/api/v1/watches", handler.CreateWatch)
	router.DELETE("/api/v1/watches/:address", handler.DeleteWatch)
	router.GET("/api/v1/runs", handler.ListRuns)
	router.POST("/api/v1/webhooks/clients", handler.CreateWebhookClient)

	return &testHandlerMocks{
		ctrl:     ctrl,
		resolver: mockResolver,
		engine:   mockEngine,
		heads:    mockHeads,
		store:    mockStore,
		router:   router,
	}
}

// tearDownTest cleans up the test mocks
func tearDownTest(tm *testHandlerMocks) {
	tm.ctrl.Finish()
}

func performRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testResolution() *domain.Resolution {
	return &domain.Resolution{
		RunID:       "01J0000000000000000000RUN1",
		Owner:       testAddress,
		Boundary:    500,
		OwnedTokens: []domain.TokenID{7, 42},
		DatasetIDs:  domain.NewDatasetSet(10, 20),
		OwnedCount:  2,
		DurationMS:  1200,
	}
}

func TestHandler_HealthCheck(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	w := performRequest(tm.router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"chain":"eip155:1"`)
}

func TestHandler_GetHoldings_Success(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	owner := common.HexToAddress(testAddress)
	tm.resolver.EXPECT().Resolve(gomock.Any(), owner).Return(testResolution(), nil)
	tm.heads.EXPECT().GetLatestBlock(gomock.Any()).Return(uint64(19000000), nil)

	w := performRequest(tm.router, http.MethodGet, "/api/v1/holdings/"+testAddress, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp rest.HoldingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testAddress, resp.Address)
	assert.Equal(t, "eip155:1", resp.Chain)
	assert.Equal(t, uint64(19000000), resp.AsOfBlock)
	assert.Equal(t, uint64(500), resp.Boundary)
	assert.Equal(t, []uint64{10, 20}, resp.DatasetIDs)
	assert.Equal(t, 2, resp.OwnedCount)
	assert.False(t, resp.Cached)
}

func TestHandler_GetHoldings_CacheHit(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	owner := common.HexToAddress(testAddress)

	// Resolver runs exactly once; the second request is served from cache
	tm.resolver.EXPECT().Resolve(gomock.Any(), owner).Return(testResolution(), nil).Times(1)
	tm.heads.EXPECT().GetLatestBlock(gomock.Any()).Return(uint64(19000000), nil).Times(1)

	first := performRequest(tm.router, http.MethodGet, "/api/v1/holdings/"+testAddress, nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := performRequest(tm.router, http.MethodGet, "/api/v1/holdings/"+testAddress, nil)
	require.Equal(t, http.StatusOK, second.Code)

	var resp rest.HoldingsResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
	assert.Equal(t, []uint64{10, 20}, resp.DatasetIDs)
}

func TestHandler_GetHoldings_RefreshBypassesCache(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	owner := common.HexToAddress(testAddress)

	tm.resolver.EXPECT().Resolve(gomock.Any(), owner).Return(testResolution(), nil).Times(2)
	tm.heads.EXPECT().GetLatestBlock(gomock.Any()).Return(uint64(19000000), nil).Times(2)

	first := performRequest(tm.router, http.MethodGet, "/api/v1/holdings/"+testAddress, nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := performRequest(tm.router, http.MethodGet, "/api/v1/holdings/"+testAddress+"?refresh=true", nil)
	require.Equal(t, http.StatusOK, second.Code)

	var resp rest.HoldingsResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.False(t, resp.Cached)
}

func TestHandler_GetHoldings_InvalidAddress(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	w := performRequest(tm.router, http.MethodGet, "/api/v1/holdings/not-an-address", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bad_request")
}

func TestHandler_GetHoldings_ResolverError(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	owner := common.HexToAddress(testAddress)
	tm.resolver.EXPECT().Resolve(gomock.Any(), owner).
		Return(nil, errors.New("rpc endpoint unavailable"))

	w := performRequest(tm.router, http.MethodGet, "/api/v1/holdings/"+testAddress, nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "service_error")
	assert.Contains(t, w.Body.String(), "rpc endpoint unavailable")
}

func TestHandler_CreateWatch_Success(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tm.store.EXPECT().UpsertWatchedAddress(gomock.Any(), store.UpsertWatchedAddressInput{
		Chain:   domain.ChainEthereumMainnet,
		Address: testAddress,
		Label:   "treasury",
	}).Return(&schema.WatchedAddress{
		Chain:     domain.ChainEthereumMainnet,
		Address:   testAddress,
		Watching:  true,
		Label:     "treasury",
		CreatedAt: now,
		UpdatedAt: now,
	}, nil)

	w := performRequest(tm.router, http.MethodPost, "/api/v1/watches", rest.CreateWatchRequest{
		Address: testAddress,
		Label:   "treasury",
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp rest.WatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testAddress, resp.Address)
	assert.True(t, resp.Watching)
	assert.Equal(t, "treasury", resp.Label)
}

func TestHandler_CreateWatch_MissingAddress(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	w := performRequest(tm.router, http.MethodPost, "/api/v1/watches", map[string]string{
		"label": "treasury",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_failed")
}

func TestHandler_DeleteWatch_Success(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	tm.store.EXPECT().GetWatchedAddress(gomock.Any(), domain.ChainEthereumMainnet, testAddress).
		Return(&schema.WatchedAddress{
			Chain:    domain.ChainEthereumMainnet,
			Address:  testAddress,
			Watching: true,
		}, nil)
	tm.store.EXPECT().SetWatching(gomock.Any(), domain.ChainEthereumMainnet, testAddress, false).
		Return(nil)

	w := performRequest(tm.router, http.MethodDelete, "/api/v1/watches/"+testAddress, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandler_DeleteWatch_NotFound(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	tm.store.EXPECT().GetWatchedAddress(gomock.Any(), domain.ChainEthereumMainnet, testAddress).
		Return(nil, nil)

	w := performRequest(tm.router, http.MethodDelete, "/api/v1/watches/"+testAddress, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestHandler_ListWatches(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	tm.store.EXPECT().ListWatchedAddresses(gomock.Any(), domain.ChainEthereumMainnet, true).
		Return([]*schema.WatchedAddress{
			{Chain: domain.ChainEthereumMainnet, Address: testAddress, Watching: true},
		}, nil)

	w := performRequest(tm.router, http.MethodGet, "/api/v1/watches", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp rest.ListWatchesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Watches, 1)
	assert.Equal(t, testAddress, resp.Watches[0].Address)
}

func TestHandler_ListRuns_WithFilters(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	tm.store.EXPECT().ListResolutionRuns(gomock.Any(), store.ResolutionRunFilter{
		Chain:       domain.ChainEthereumMainnet,
		Address:     testAddress,
		OnlyChanged: true,
		Limit:       10,
		Offset:      0,
	}).Return([]*schema.ResolutionRun{
		{
			Cursor:       3,
			RunID:        "01J0000000000000000000RUN1",
			Chain:        domain.ChainEthereumMainnet,
			Address:      testAddress,
			BlockHeight:  19000000,
			Boundary:     500,
			OwnedCount:   2,
			DatasetCount: 2,
			Changed:      true,
		},
	}, int64(1), nil)

	w := performRequest(tm.router, http.MethodGet,
		"/api/v1/runs?address="+testAddress+"&changed=true&limit=10", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp rest.ListRunsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, 10, resp.Limit)
	assert.True(t, resp.Runs[0].Changed)
	assert.Equal(t, uint64(19000000), resp.Runs[0].BlockHeight)
}

func TestHandler_ListRuns_InvalidLimit(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	w := performRequest(tm.router, http.MethodGet, "/api/v1/runs?limit=abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "limit must be a non-negative integer")
}

func TestHandler_CreateWebhookClient_Success(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	tm.store.EXPECT().CreateWebhookClient(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, input store.CreateWebhookClientInput) (*schema.WebhookClient, error) {
			assert.NotEmpty(t, input.ClientID)
			assert.Len(t, input.WebhookSecret, 64) // 32 random bytes, hex encoded
			assert.True(t, input.IsActive)
			assert.Equal(t, 5, input.RetryMaxAttempts)
			return &schema.WebhookClient{
				ClientID:         input.ClientID,
				WebhookURL:       input.WebhookURL,
				WebhookSecret:    input.WebhookSecret,
				EventFilters:     input.EventFilters,
				IsActive:         input.IsActive,
				RetryMaxAttempts: input.RetryMaxAttempts,
			}, nil
		})

	w := performRequest(tm.router, http.MethodPost, "/api/v1/webhooks/clients",
		rest.CreateWebhookClientRequest{
			WebhookURL: "https://example.com/hooks/holdings",
		})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp rest.WebhookClientResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://example.com/hooks/holdings", resp.WebhookURL)
	assert.NotEmpty(t, resp.WebhookSecret)
	assert.Equal(t, []string{"holdings_changed"}, resp.EventFilters)
}

func TestHandler_CreateWebhookClient_RejectsPlainHTTP(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	w := performRequest(tm.router, http.MethodPost, "/api/v1/webhooks/clients",
		rest.CreateWebhookClientRequest{
			WebhookURL: "http://example.com/hooks/holdings",
		})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "webhook_url must use https")
}

func TestHandler_CreateWebhookClient_RejectsUnknownFilter(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	w := performRequest(tm.router, http.MethodPost, "/api/v1/webhooks/clients",
		rest.CreateWebhookClientRequest{
			WebhookURL:   "https://example.com/hooks/holdings",
			EventFilters: []string{"token_minted"},
		})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown event filter")
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

// buildTestRun creates a resolution run for the journal
func buildTestRun(runID, address string, changed bool) *schema.ResolutionRun {
	meta, _ := json.Marshal(map[string]interface{}{
		"added":   []uint64{7, 12},
		"removed": []uint64{},
		"trigger": "head",
	})

	return &schema.ResolutionRun{
		RunID:        runID,
		Chain:        domain.ChainEthereumMainnet,
		Address:      address,
		BlockHeight:  19_000_000,
		Boundary:     512,
		OwnedCount:   9,
		DatasetCount: 4,
		Changed:      changed,
		DurationMS:   1250,
		Meta:         datatypes.JSON(meta),
		CreatedAt:    time.Now().UTC(),
	}
}

// buildTestWebhookClient creates a webhook client input
func buildTestWebhookClient(clientID string, filters []string, active bool) CreateWebhookClientInput {
	filtersJSON, _ := json.Marshal(filters)
	return CreateWebhookClientInput{
		ClientID:         clientID,
		WebhookURL:       fmt.Sprintf("https://hooks.example.com/%s", clientID),
		WebhookSecret:    "whsec_" + clientID,
		EventFilters:     datatypes.JSON(filtersJSON),
		IsActive:         active,
		RetryMaxAttempts: 5,
	}
}

// =============================================================================
// Test: Watched Addresses
// =============================================================================

func testWatchedAddresses(t *testing.T, store Store) {
	ctx := context.Background()
	chain := domain.ChainEthereumMainnet
	addr1 := "0x1111111111111111111111111111111111111111"
	addr2 := "0x2222222222222222222222222222222222222222"

	t.Run("upsert creates a new watch", func(t *testing.T) {
		watch, err := store.UpsertWatchedAddress(ctx, UpsertWatchedAddressInput{
			Chain:   chain,
			Address: addr1,
			Label:   "treasury",
		})
		require.NoError(t, err)
		require.NotNil(t, watch)
		assert.Equal(t, chain, watch.Chain)
		assert.Equal(t, addr1, watch.Address)
		assert.Equal(t, "treasury", watch.Label)
		assert.True(t, watch.Watching)
		assert.Nil(t, watch.LastResolvedAt)
	})

	t.Run("get returns nil for unknown address", func(t *testing.T) {
		watch, err := store.GetWatchedAddress(ctx, chain, "0x9999999999999999999999999999999999999999")
		require.NoError(t, err)
		assert.Nil(t, watch)
	})

	t.Run("upsert re-activates a removed watch", func(t *testing.T) {
		_, err := store.UpsertWatchedAddress(ctx, UpsertWatchedAddressInput{
			Chain:   chain,
			Address: addr2,
		})
		require.NoError(t, err)

		err = store.SetWatching(ctx, chain, addr2, false)
		require.NoError(t, err)

		watch, err := store.GetWatchedAddress(ctx, chain, addr2)
		require.NoError(t, err)
		require.NotNil(t, watch)
		assert.False(t, watch.Watching)

		// Re-adding flips watching back and updates the label
		watch, err = store.UpsertWatchedAddress(ctx, UpsertWatchedAddressInput{
			Chain:   chain,
			Address: addr2,
			Label:   "returning holder",
		})
		require.NoError(t, err)
		require.NotNil(t, watch)
		assert.True(t, watch.Watching)
		assert.Equal(t, "returning holder", watch.Label)
	})

	t.Run("list filters by watching flag", func(t *testing.T) {
		err := store.SetWatching(ctx, chain, addr2, false)
		require.NoError(t, err)

		all, err := store.ListWatchedAddresses(ctx, chain, false)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 2)

		active, err := store.ListWatchedAddresses(ctx, chain, true)
		require.NoError(t, err)
		for _, w := range active {
			assert.True(t, w.Watching)
			assert.NotEqual(t, addr2, w.Address)
		}
	})

	t.Run("list is empty for another chain", func(t *testing.T) {
		watches, err := store.ListWatchedAddresses(ctx, domain.ChainEthereumSepolia, false)
		require.NoError(t, err)
		assert.Empty(t, watches)
	})

	t.Run("touch stamps last resolved at", func(t *testing.T) {
		resolvedAt := time.Now().UTC().Truncate(time.Millisecond)
		err := store.TouchLastResolvedAt(ctx, chain, addr1, resolvedAt)
		require.NoError(t, err)

		watch, err := store.GetWatchedAddress(ctx, chain, addr1)
		require.NoError(t, err)
		require.NotNil(t, watch)
		require.NotNil(t, watch.LastResolvedAt)
		assert.WithinDuration(t, resolvedAt, *watch.LastResolvedAt, time.Second)
	})
}

// =============================================================================
// Test: Resolution Runs
// =============================================================================

func testResolutionRuns(t *testing.T, store Store) {
	ctx := context.Background()
	addr1 := "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addr2 := "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	t.Run("insert and list newest first", func(t *testing.T) {
		for i := range 3 {
			run := buildTestRun(fmt.Sprintf("01JRUN0000000000000000000%d", i), addr1, true)
			require.NoError(t, store.InsertResolutionRun(ctx, run))
		}

		runs, total, err := store.ListResolutionRuns(ctx, ResolutionRunFilter{Address: addr1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, runs, 3)

		// Newest first by cursor
		assert.Greater(t, runs[0].Cursor, runs[1].Cursor)
		assert.Greater(t, runs[1].Cursor, runs[2].Cursor)
		assert.Equal(t, addr1, runs[0].Address)
		assert.Equal(t, uint64(512), runs[0].Boundary)
		assert.Equal(t, 4, runs[0].DatasetCount)
	})

	t.Run("duplicate run id is ignored", func(t *testing.T) {
		run := buildTestRun("01JRUNDUPLICATE0000000000A", addr2, true)
		require.NoError(t, store.InsertResolutionRun(ctx, run))

		dup := buildTestRun("01JRUNDUPLICATE0000000000A", addr2, false)
		require.NoError(t, store.InsertResolutionRun(ctx, dup))

		runs, total, err := store.ListResolutionRuns(ctx, ResolutionRunFilter{Address: addr2})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, runs, 1)
		assert.True(t, runs[0].Changed)
	})

	t.Run("errored runs carry the failure message", func(t *testing.T) {
		errMsg := "rpc timeout after 3 attempts"
		run := buildTestRun("01JRUNERRORED000000000000B", addr2, false)
		run.Error = &errMsg
		require.NoError(t, store.InsertResolutionRun(ctx, run))

		runs, _, err := store.ListResolutionRuns(ctx, ResolutionRunFilter{Address: addr2})
		require.NoError(t, err)
		require.NotEmpty(t, runs)
		require.NotNil(t, runs[0].Error)
		assert.Equal(t, errMsg, *runs[0].Error)
	})

	t.Run("only changed filter", func(t *testing.T) {
		runs, total, err := store.ListResolutionRuns(ctx, ResolutionRunFilter{
			Address:     addr2,
			OnlyChanged: true,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		for _, r := range runs {
			assert.True(t, r.Changed)
		}
	})

	t.Run("limit and offset paginate", func(t *testing.T) {
		page1, total, err := store.ListResolutionRuns(ctx, ResolutionRunFilter{
			Address: addr1,
			Limit:   2,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, page1, 2)

		page2, _, err := store.ListResolutionRuns(ctx, ResolutionRunFilter{
			Address: addr1,
			Limit:   2,
			Offset:  2,
		})
		require.NoError(t, err)
		require.Len(t, page2, 1)
		assert.Greater(t, page1[1].Cursor, page2[0].Cursor)
	})

	t.Run("meta round-trips as json", func(t *testing.T) {
		runs, _, err := store.ListResolutionRuns(ctx, ResolutionRunFilter{Address: addr1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, runs, 1)

		var meta map[string]interface{}
		require.NoError(t, json.Unmarshal(runs[0].Meta, &meta))
		assert.Equal(t, "head", meta["trigger"])
	})
}

// =============================================================================
// Test: Webhook Clients
// =============================================================================

func testWebhookClients(t *testing.T, store Store) {
	ctx := context.Background()

	wildcard := buildTestWebhookClient("client-wildcard-001", []string{"*"}, true)
	specific := buildTestWebhookClient("client-holdings-002", []string{"holdings_changed"}, true)
	other := buildTestWebhookClient("client-other-003", []string{"dataset_published"}, true)
	inactive := buildTestWebhookClient("client-inactive-004", []string{"*"}, false)

	for _, input := range []CreateWebhookClientInput{wildcard, specific, other, inactive} {
		client, err := store.CreateWebhookClient(ctx, input)
		require.NoError(t, err)
		require.NotNil(t, client)
		assert.NotZero(t, client.ID)
	}

	t.Run("wildcard and exact filters match", func(t *testing.T) {
		clients, err := store.GetActiveWebhookClientsByEventType(ctx, "holdings_changed")
		require.NoError(t, err)

		ids := make(map[string]bool, len(clients))
		for _, c := range clients {
			ids[c.ClientID] = true
		}
		assert.True(t, ids["client-wildcard-001"], "wildcard client should match")
		assert.True(t, ids["client-holdings-002"], "exact filter client should match")
		assert.False(t, ids["client-other-003"], "non-matching filter should be excluded")
	})

	t.Run("inactive clients are excluded", func(t *testing.T) {
		clients, err := store.GetActiveWebhookClientsByEventType(ctx, "holdings_changed")
		require.NoError(t, err)
		for _, c := range clients {
			assert.NotEqual(t, "client-inactive-004", c.ClientID)
		}
	})
}

// =============================================================================
// Test: Webhook Deliveries
// =============================================================================

func testWebhookDeliveries(t *testing.T, store Store) {
	ctx := context.Background()

	payload, _ := json.Marshal(map[string]interface{}{
		"event_id": "01JEVENT00000000000000000A",
		"owner":    "0x1111111111111111111111111111111111111111",
	})

	delivery := &schema.WebhookDelivery{
		ClientID:       "client-delivery-101",
		EventID:        "01JEVENT00000000000000000A",
		EventType:      "holdings_changed",
		Payload:        datatypes.JSON(payload),
		DeliveryStatus: schema.WebhookDeliveryStatusPending,
	}

	t.Run("create pending delivery", func(t *testing.T) {
		err := store.CreateWebhookDelivery(ctx, delivery)
		require.NoError(t, err)
		assert.NotZero(t, delivery.ID)
	})

	t.Run("failed attempt records response and error", func(t *testing.T) {
		status := 503
		err := store.UpdateWebhookDeliveryStatus(ctx, delivery.ID,
			schema.WebhookDeliveryStatusFailed, 2, &status, `{"error":"unavailable"}`, "server returned 503")
		require.NoError(t, err)

		var updated schema.WebhookDelivery
		require.NoError(t, testDBFor(store).WithContext(ctx).Where("id = ?", delivery.ID).First(&updated).Error)
		assert.Equal(t, schema.WebhookDeliveryStatusFailed, updated.DeliveryStatus)
		assert.Equal(t, 2, updated.Attempts)
		require.NotNil(t, updated.ResponseStatus)
		assert.Equal(t, 503, *updated.ResponseStatus)
		assert.Equal(t, "server returned 503", updated.LastError)
		assert.NotNil(t, updated.LastAttemptAt)
		assert.Nil(t, updated.DeliveredAt)
	})

	t.Run("success stamps delivered at", func(t *testing.T) {
		status := 200
		err := store.UpdateWebhookDeliveryStatus(ctx, delivery.ID,
			schema.WebhookDeliveryStatusSuccess, 3, &status, `{"ok":true}`, "")
		require.NoError(t, err)

		var updated schema.WebhookDelivery
		require.NoError(t, testDBFor(store).WithContext(ctx).Where("id = ?", delivery.ID).First(&updated).Error)
		assert.Equal(t, schema.WebhookDeliveryStatusSuccess, updated.DeliveryStatus)
		assert.Equal(t, 3, updated.Attempts)
		assert.NotNil(t, updated.DeliveredAt)
	})

	t.Run("overlong error message is truncated", func(t *testing.T) {
		long := make([]byte, 2048)
		for i := range long {
			long[i] = 'x'
		}

		err := store.UpdateWebhookDeliveryStatus(ctx, delivery.ID,
			schema.WebhookDeliveryStatusFailed, 4, nil, "", string(long))
		require.NoError(t, err)

		var updated schema.WebhookDelivery
		require.NoError(t, testDBFor(store).WithContext(ctx).Where("id = ?", delivery.ID).First(&updated).Error)
		assert.Len(t, updated.LastError, 1024)
	})
}

// testDBFor unwraps the pgStore transaction so tests can verify raw rows
func testDBFor(s Store) *gorm.DB {
	return s.(*pgStore).db
}

// =============================================================================
// Test: Key-Value Store & Head Cursor
// =============================================================================

func testKeyValueStore(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("missing key returns empty string", func(t *testing.T) {
		value, err := store.GetKeyValue(ctx, "missing:key")
		require.NoError(t, err)
		assert.Equal(t, "", value)
	})

	t.Run("set and get round-trip", func(t *testing.T) {
		require.NoError(t, store.SetKeyValue(ctx, "deploy:region", "eu-west-1"))

		value, err := store.GetKeyValue(ctx, "deploy:region")
		require.NoError(t, err)
		assert.Equal(t, "eu-west-1", value)
	})

	t.Run("set overwrites existing value", func(t *testing.T) {
		require.NoError(t, store.SetKeyValue(ctx, "deploy:region", "us-east-2"))

		value, err := store.GetKeyValue(ctx, "deploy:region")
		require.NoError(t, err)
		assert.Equal(t, "us-east-2", value)
	})
}

func testHeadCursor(t *testing.T, store Store) {
	ctx := context.Background()
	chain := domain.ChainEthereumMainnet

	t.Run("missing cursor returns zero", func(t *testing.T) {
		head, err := store.GetHeadCursor(ctx, chain)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), head)
	})

	t.Run("set and advance", func(t *testing.T) {
		require.NoError(t, store.SetHeadCursor(ctx, chain, 19_000_000))

		head, err := store.GetHeadCursor(ctx, chain)
		require.NoError(t, err)
		assert.Equal(t, uint64(19_000_000), head)

		require.NoError(t, store.SetHeadCursor(ctx, chain, 19_000_012))

		head, err = store.GetHeadCursor(ctx, chain)
		require.NoError(t, err)
		assert.Equal(t, uint64(19_000_012), head)
	})

	t.Run("cursors are per chain", func(t *testing.T) {
		head, err := store.GetHeadCursor(ctx, domain.ChainEthereumSepolia)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), head)
	})
}

// =============================================================================
// Test Suite Runner
// =============================================================================

// RunStoreTests runs all store tests against the provided Store implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"WatchedAddresses", testWatchedAddresses},
		{"ResolutionRuns", testResolutionRuns},
		{"WebhookClients", testWebhookClients},
		{"WebhookDeliveries", testWebhookDeliveries},
		{"KeyValueStore", testKeyValueStore},
		{"HeadCursor", testHeadCursor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}

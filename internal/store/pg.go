package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/store/schema"
)

const (
	defaultRunPageSize = 50
	maxRunPageSize     = 200
)

type pgStore struct {
	db *gorm.DB
}

func hasDBResolver(db *gorm.DB) bool {
	return db != nil && db.Callback().Query().Get("gorm:db_resolver") != nil
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
// If any of the pool settings are 0 or empty, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	// Set defaults if not provided
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// UpsertWatchedAddress registers an address for watching, re-activating it if it already exists
func (s *pgStore) UpsertWatchedAddress(ctx context.Context, input UpsertWatchedAddressInput) (*schema.WatchedAddress, error) {
	now := time.Now()
	watch := schema.WatchedAddress{
		Chain:     input.Chain,
		Address:   input.Address,
		Watching:  true,
		Label:     input.Label,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Re-adding a previously removed watch flips it back to active
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "chain"}, {Name: "address"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"watching":   true,
				"label":      input.Label,
				"updated_at": now,
			}),
		}).
		Create(&watch).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert watched address: %w", err)
	}

	existing, err := s.GetWatchedAddress(ctx, input.Chain, input.Address)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("watched address missing after upsert: %s %s", input.Chain, input.Address)
	}

	return existing, nil
}

// GetWatchedAddress retrieves a watch entry, nil if none exists
func (s *pgStore) GetWatchedAddress(ctx context.Context, chain domain.Chain, address string) (*schema.WatchedAddress, error) {
	var watch schema.WatchedAddress

	query := func(db *gorm.DB) error {
		return db.WithContext(ctx).
			Where("chain = ? AND address = ?", chain, address).
			First(&watch).Error
	}

	err := query(s.db)
	if err == nil {
		return &watch, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get watched address: %w", err)
	}
	if !hasDBResolver(s.db) {
		return nil, nil
	}

	// Replica can lag behind primary; retry on primary before returning nil.
	err = query(s.db.Clauses(dbresolver.Write))
	if err == nil {
		return &watch, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("failed to get watched address: %w", err)
}

// ListWatchedAddresses retrieves watch entries for a chain, optionally only active ones
func (s *pgStore) ListWatchedAddresses(ctx context.Context, chain domain.Chain, onlyWatching bool) ([]*schema.WatchedAddress, error) {
	query := s.db.WithContext(ctx).Where("chain = ?", chain)
	if onlyWatching {
		query = query.Where("watching = ?", true)
	}

	var watches []*schema.WatchedAddress
	err := query.Order("address ASC").Find(&watches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list watched addresses: %w", err)
	}

	return watches, nil
}

// SetWatching flips the watching flag for an address
func (s *pgStore) SetWatching(ctx context.Context, chain domain.Chain, address string, watching bool) error {
	err := s.db.WithContext(ctx).
		Model(&schema.WatchedAddress{}).
		Where("chain = ? AND address = ?", chain, address).
		Updates(map[string]interface{}{
			"watching":   watching,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to set watching: %w", err)
	}

	return nil
}

// TouchLastResolvedAt stamps the time of the last completed resolution run
func (s *pgStore) TouchLastResolvedAt(ctx context.Context, chain domain.Chain, address string, resolvedAt time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&schema.WatchedAddress{}).
		Where("chain = ? AND address = ?", chain, address).
		Updates(map[string]interface{}{
			"last_resolved_at": resolvedAt,
			"updated_at":       time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to touch last resolved at: %w", err)
	}

	return nil
}

// InsertResolutionRun journals a resolution run, ignoring duplicate run IDs
func (s *pgStore) InsertResolutionRun(ctx context.Context, run *schema.ResolutionRun) error {
	// Use ON CONFLICT DO NOTHING so a replayed run never duplicates journal rows
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}},
			DoNothing: true,
		}).
		Clauses(clause.Returning{Columns: []clause.Column{}}).
		Create(run).Error
	if err != nil {
		return fmt.Errorf("failed to insert resolution run: %w", err)
	}

	return nil
}

// ListResolutionRuns reads the journal newest-first with the given filter
func (s *pgStore) ListResolutionRuns(ctx context.Context, filter ResolutionRunFilter) ([]*schema.ResolutionRun, int64, error) {
	query := s.db.WithContext(ctx).Model(&schema.ResolutionRun{})

	if filter.Chain != "" {
		query = query.Where("chain = ?", filter.Chain)
	}
	if filter.Address != "" {
		query = query.Where("address = ?", filter.Address)
	}
	if filter.OnlyChanged {
		query = query.Where("changed = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count resolution runs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRunPageSize
	}
	if limit > maxRunPageSize {
		limit = maxRunPageSize
	}

	query = query.Order(`"cursor" DESC`).Limit(limit)
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var runs []schema.ResolutionRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list resolution runs: %w", err)
	}

	results := make([]*schema.ResolutionRun, 0, len(runs))
	for i := range runs {
		results = append(results, &runs[i])
	}

	return results, total, nil
}

// CreateWebhookClient creates a new webhook client
func (s *pgStore) CreateWebhookClient(ctx context.Context, input CreateWebhookClientInput) (*schema.WebhookClient, error) {
	now := time.Now()
	client := &schema.WebhookClient{
		ClientID:         input.ClientID,
		WebhookURL:       input.WebhookURL,
		WebhookSecret:    input.WebhookSecret,
		EventFilters:     input.EventFilters,
		IsActive:         input.IsActive,
		RetryMaxAttempts: input.RetryMaxAttempts,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.db.WithContext(ctx).Create(client).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook client: %w", err)
	}
	return client, nil
}

// GetActiveWebhookClientsByEventType retrieves active webhook clients that match the given event type
func (s *pgStore) GetActiveWebhookClientsByEventType(ctx context.Context, eventType string) ([]*schema.WebhookClient, error) {
	var clients []*schema.WebhookClient

	// Query for active clients where event_filters contains the event type or wildcard "*"
	// Using JSONB containment operator @> to check if the array contains the value
	err := s.db.WithContext(ctx).
		Where("is_active").
		Where("event_filters @> ?::jsonb OR event_filters @> ?::jsonb",
			fmt.Sprintf(`["%s"]`, eventType),
			`["*"]`).
		Find(&clients).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get webhook clients by event type: %w", err)
	}

	return clients, nil
}

// CreateWebhookDelivery creates a new webhook delivery record
func (s *pgStore) CreateWebhookDelivery(ctx context.Context, delivery *schema.WebhookDelivery) error {
	err := s.db.WithContext(ctx).Create(delivery).Error
	if err != nil {
		return fmt.Errorf("failed to create webhook delivery: %w", err)
	}
	return nil
}

// UpdateWebhookDeliveryStatus updates the status and result of a webhook delivery
func (s *pgStore) UpdateWebhookDeliveryStatus(ctx context.Context, deliveryID uint64, status schema.WebhookDeliveryStatus, attempts int, responseStatus *int, responseBody, lastError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"delivery_status": status,
		"attempts":        attempts,
		"response_body":   responseBody,
		"last_attempt_at": now,
		"updated_at":      now,
	}

	if status == schema.WebhookDeliveryStatusSuccess {
		updates["delivered_at"] = now
	}
	if responseStatus != nil {
		updates["response_status"] = *responseStatus
	}
	if lastError != "" {
		// Limit error message
		if len(lastError) > 1024 {
			lastError = lastError[:1024]
		}
		updates["last_error"] = lastError
	}

	err := s.db.WithContext(ctx).
		Model(&schema.WebhookDelivery{}).
		Where("id = ?", deliveryID).
		Updates(updates).Error

	if err != nil {
		return fmt.Errorf("failed to update webhook delivery status: %w", err)
	}

	return nil
}

// GetKeyValue retrieves a value by key from the key-value store
func (s *pgStore) GetKeyValue(ctx context.Context, key string) (string, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get key-value: %w", err)
	}

	return kv.Value, nil
}

// SetKeyValue sets a key-value pair in the key-value store
func (s *pgStore) SetKeyValue(ctx context.Context, key string, value string) error {
	kv := schema.KeyValueStore{
		Key:   key,
		Value: value,
	}

	err := s.db.WithContext(ctx).Save(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set key-value: %w", err)
	}

	return nil
}

// GetHeadCursor retrieves the last observed block head for a chain
func (s *pgStore) GetHeadCursor(ctx context.Context, chain domain.Chain) (uint64, error) {
	key := fmt.Sprintf("head_cursor:%s", chain)

	value, err := s.GetKeyValue(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to get head cursor: %w", err)
	}
	if value == "" {
		return 0, nil
	}

	blockNumber, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse head cursor: %w", err)
	}

	return blockNumber, nil
}

// SetHeadCursor stores the last observed block head for a chain
func (s *pgStore) SetHeadCursor(ctx context.Context, chain domain.Chain, blockNumber uint64) error {
	key := fmt.Sprintf("head_cursor:%s", chain)
	value := strconv.FormatUint(blockNumber, 10)

	if err := s.SetKeyValue(ctx, key, value); err != nil {
		return fmt.Errorf("failed to set head cursor: %w", err)
	}

	return nil
}

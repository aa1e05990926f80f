package rest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/databazaar/license-indexer/internal/adapter"
	"github.com/databazaar/license-indexer/internal/block"
	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/holdings"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/store"
	"github.com/databazaar/license-indexer/internal/webhook"
)

const (
	// defaultRetryMaxAttempts is the delivery attempt cap for webhook
	// clients that do not set their own
	defaultRetryMaxAttempts = 5

	// webhookSecretBytes is the entropy of generated webhook signing secrets
	webhookSecretBytes = 32
)

// HandlerConfig holds configuration for the REST handler
type HandlerConfig struct {
	Debug bool
	Chain domain.Chain

	// CacheSize and CacheTTL bound the one-shot resolve cache. A resolve
	// walks the whole minted range, so identical requests inside the TTL
	// are served from memory.
	CacheSize int
	CacheTTL  time.Duration
}

// Handler defines the interface for REST API handlers
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// GetHoldings resolves the dataset ids an address currently holds
	// licenses for
	// GET /api/v1/holdings/:address?refresh=true
	GetHoldings(c *gin.Context)

	// StreamHoldings streams snapshot updates over server-sent events
	// GET /api/v1/holdings/:address/stream
	StreamHoldings(c *gin.Context)

	// StreamHoldingsWS streams snapshot updates over a WebSocket
	// GET /api/v1/holdings/:address/ws
	StreamHoldingsWS(c *gin.Context)

	// CreateWatch registers an address in the watch registry (requires authentication)
	// POST /api/v1/watches
	CreateWatch(c *gin.Context)

	// DeleteWatch stops watching an address (requires authentication)
	// DELETE /api/v1/watches/:address
	DeleteWatch(c *gin.Context)

	// ListWatches lists watch registry entries
	// GET /api/v1/watches?all=true
	ListWatches(c *gin.Context)

	// ListRuns reads the resolution journal newest-first
	// GET /api/v1/runs?address=<address>&changed=true&limit=<limit>&offset=<offset>
	ListRuns(c *gin.Context)

	// CreateWebhookClient creates a new webhook client (requires authentication via API key)
	// POST /api/v1/webhooks/clients
	CreateWebhookClient(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	config   HandlerConfig
	resolver holdings.Resolver
	engine   holdings.Engine
	heads    block.HeadProvider
	store    store.Store
	cache    *expirable.LRU[string, *HoldingsResponse]
}

// NewHandler creates a new REST API handler
func NewHandler(
	cfg HandlerConfig,
	resolver holdings.Resolver,
	engine holdings.Engine,
	heads block.HeadProvider,
	st store.Store,
) Handler {
	return &handler{
		config:   cfg,
		resolver: resolver,
		engine:   engine,
		heads:    heads,
		store:    st,
		cache:    expirable.NewLRU[string, *HoldingsResponse](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// GetHoldings runs the discovery pipeline once for the given address
func (h *handler) GetHoldings(c *gin.Context) {
	owner, err := domain.NormalizeAddress(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid address", err.Error())
		return
	}

	key := domain.AddressKey(owner)
	refresh := c.Query("refresh") == "true"

	if !refresh {
		if cached, ok := h.cache.Get(key); ok {
			out := *cached
			out.Cached = true
			c.JSON(http.StatusOK, &out)
			return
		}
	}

	ctx := c.Request.Context()

	res, err := h.resolver.Resolve(ctx, owner)
	if err != nil {
		respondResolutionError(c, err, "Failed to resolve holdings",
			zap.String("address", key))
		return
	}

	// Best effort: a missing head only blanks the as_of_block stamp, the
	// holdings themselves already resolved.
	var asOfBlock uint64
	if number, err := h.heads.GetLatestBlock(ctx); err != nil {
		logger.WarnCtx(ctx, "Failed to read latest block for response stamp", zap.Error(err))
	} else {
		asOfBlock = number
	}

	response := NewHoldingsResponse(h.config.Chain, asOfBlock, res)
	h.cache.Add(key, response)

	c.JSON(http.StatusOK, response)
}

// CreateWatch registers an address for continuous watching
func (h *handler) CreateWatch(c *gin.Context) {
	var req CreateWatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	owner, err := domain.NormalizeAddress(req.Address)
	if err != nil {
		respondBadRequest(c, "Invalid address", err.Error())
		return
	}

	watch, err := h.store.UpsertWatchedAddress(c.Request.Context(), store.UpsertWatchedAddressInput{
		Chain:   h.config.Chain,
		Address: domain.AddressKey(owner),
		Label:   req.Label,
	})
	if err != nil {
		respondInternalError(c, err, "Failed to register watch")
		return
	}

	c.JSON(http.StatusCreated, NewWatchResponse(watch))
}

// DeleteWatch stops watching an address. The registry row stays behind with
// watching=false so the journal keeps its context.
func (h *handler) DeleteWatch(c *gin.Context) {
	owner, err := domain.NormalizeAddress(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid address", err.Error())
		return
	}

	ctx := c.Request.Context()
	key := domain.AddressKey(owner)

	watch, err := h.store.GetWatchedAddress(ctx, h.config.Chain, key)
	if err != nil {
		respondInternalError(c, err, "Failed to load watch")
		return
	}
	if watch == nil {
		respondNotFound(c, "Watch not found")
		return
	}

	if err := h.store.SetWatching(ctx, h.config.Chain, key, false); err != nil {
		respondInternalError(c, err, "Failed to stop watching")
		return
	}

	c.Status(http.StatusNoContent)
}

// ListWatches lists registry entries, active ones only unless all=true
func (h *handler) ListWatches(c *gin.Context) {
	onlyWatching := c.Query("all") != "true"

	watches, err := h.store.ListWatchedAddresses(c.Request.Context(), h.config.Chain, onlyWatching)
	if err != nil {
		respondInternalError(c, err, "Failed to list watches")
		return
	}

	out := make([]WatchResponse, 0, len(watches))
	for _, w := range watches {
		out = append(out, NewWatchResponse(w))
	}

	c.JSON(http.StatusOK, ListWatchesResponse{Watches: out})
}

// ListRuns reads the resolution journal newest-first
func (h *handler) ListRuns(c *gin.Context) {
	filter := store.ResolutionRunFilter{
		Chain:       h.config.Chain,
		OnlyChanged: c.Query("changed") == "true",
	}

	if address := c.Query("address"); address != "" {
		owner, err := domain.NormalizeAddress(address)
		if err != nil {
			respondBadRequest(c, "Invalid address", err.Error())
			return
		}
		filter.Address = domain.AddressKey(owner)
	}

	var err error
	if filter.Limit, err = parseIntQuery(c, "limit", 0); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	if filter.Offset, err = parseIntQuery(c, "offset", 0); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	runs, total, err := h.store.ListResolutionRuns(c.Request.Context(), filter)
	if err != nil {
		respondInternalError(c, err, "Failed to list runs")
		return
	}

	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, NewRunResponse(run))
	}

	c.JSON(http.StatusOK, ListRunsResponse{
		Runs:   out,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// CreateWebhookClient registers a webhook client and returns its signing
// secret, once
func (h *handler) CreateWebhookClient(c *gin.Context) {
	var req CreateWebhookClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(h.config.Debug); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	filters := req.EventFilters
	if len(filters) == 0 {
		filters = []string{webhook.EventTypeHoldingsChanged}
	}
	filtersJSON, err := adapter.NewJSON().Marshal(filters)
	if err != nil {
		respondInternalError(c, err, "Failed to encode event filters")
		return
	}

	retryMaxAttempts := defaultRetryMaxAttempts
	if req.RetryMaxAttempts != nil {
		retryMaxAttempts = *req.RetryMaxAttempts
	}

	secret, err := generateWebhookSecret()
	if err != nil {
		respondInternalError(c, err, "Failed to generate webhook secret")
		return
	}

	client, err := h.store.CreateWebhookClient(c.Request.Context(), store.CreateWebhookClientInput{
		ClientID:         uuid.New().String(),
		WebhookURL:       req.WebhookURL,
		WebhookSecret:    secret,
		EventFilters:     datatypes.JSON(filtersJSON),
		IsActive:         true,
		RetryMaxAttempts: retryMaxAttempts,
	})
	if err != nil {
		respondInternalError(c, err, "Failed to create webhook client")
		return
	}

	c.JSON(http.StatusCreated, WebhookClientResponse{
		ClientID:         client.ClientID,
		WebhookURL:       client.WebhookURL,
		WebhookSecret:    client.WebhookSecret,
		EventFilters:     filters,
		IsActive:         client.IsActive,
		RetryMaxAttempts: client.RetryMaxAttempts,
		CreatedAt:        client.CreatedAt,
	})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"chain":  string(h.config.Chain),
	})
}

// parseIntQuery reads a non-negative integer query parameter
func parseIntQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return value, nil
}

// generateWebhookSecret draws a random hex secret for HMAC signing
func generateWebhookSecret() (string, error) {
	buf := make([]byte, webhookSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/databazaar/license-indexer/internal/adapter"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/store"
	"github.com/databazaar/license-indexer/internal/store/schema"
)

const (
	// userAgent identifies deliveries in client access logs
	userAgent = "License-Indexer-Webhook/1.0"

	// maxResponseBytes caps how much of the endpoint's response we keep
	maxResponseBytes = 4 * 1024

	// Retry backoff bounds between delivery attempts to the same client
	retryInitialInterval = 1 * time.Second
	retryMaxInterval     = 30 * time.Second
)

// DelivererConfig holds configuration for the webhook deliverer
type DelivererConfig struct {
	Timeout            time.Duration // Per-attempt HTTP timeout
	DefaultMaxAttempts int           // Attempt cap for clients without their own
	WorkerPoolSize     int           // Concurrent deliveries
	WorkerQueueSize    int           // Pending deliveries before DispatchEvent blocks
}

// Deliverer fans webhook events out to subscribed clients with signed
// payloads, per-client retry, and a delivery audit trail in the store.
//
//go:generate mockgen -source=deliverer.go -destination=../mocks/deliverer.go -package=mocks -mock_names=Deliverer=MockDeliverer
type Deliverer interface {
	// DispatchEvent creates a pending delivery record per matching client
	// and enqueues the HTTP deliveries. It returns once the deliveries are
	// queued; retries run in the background on the worker pool.
	DispatchEvent(ctx context.Context, event WebhookEvent) error

	// Close drains the worker pool, waiting for in-flight deliveries.
	Close()
}

type deliverer struct {
	config     *DelivererConfig
	store      store.Store
	httpClient adapter.HTTPClient
	io         adapter.IO
	json       adapter.JSON
	canon      adapter.JCS
	pool       pond.Pool

	// ctx bounds background retries so Close/shutdown can interrupt them
	ctx context.Context
}

// NewDeliverer creates a webhook deliverer. The context bounds all
// background delivery work; canceling it aborts pending retries.
func NewDeliverer(
	ctx context.Context,
	config *DelivererConfig,
	st store.Store,
	httpClient adapter.HTTPClient,
	ioAdapter adapter.IO,
	jsonAdapter adapter.JSON,
	canonicalizer adapter.JCS,
) Deliverer {
	return &deliverer{
		config:     config,
		store:      st,
		httpClient: httpClient,
		io:         ioAdapter,
		json:       jsonAdapter,
		canon:      canonicalizer,
		pool: pond.NewPool(
			config.WorkerPoolSize,
			pond.WithQueueSize(config.WorkerQueueSize),
			pond.WithContext(ctx),
		),
		ctx: ctx,
	}
}

// DispatchEvent looks up subscribed clients and queues one delivery per client
func (d *deliverer) DispatchEvent(ctx context.Context, event WebhookEvent) error {
	clients, err := d.store.GetActiveWebhookClientsByEventType(ctx, event.EventType)
	if err != nil {
		return fmt.Errorf("failed to load webhook clients: %w", err)
	}

	if len(clients) == 0 {
		logger.DebugCtx(ctx, "No webhook clients subscribed to event type",
			zap.String("event_type", event.EventType),
			zap.String("event_id", event.EventID))
		return nil
	}

	payload, err := d.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	for _, client := range clients {
		// Record the delivery before queuing so a crash between here and
		// the HTTP attempt still leaves a pending row to reconcile against.
		delivery := &schema.WebhookDelivery{
			ClientID:       client.ClientID,
			EventID:        event.EventID,
			EventType:      event.EventType,
			Payload:        datatypes.JSON(payload),
			DeliveryStatus: schema.WebhookDeliveryStatusPending,
		}
		if err := d.store.CreateWebhookDelivery(ctx, delivery); err != nil {
			return fmt.Errorf("failed to create webhook delivery record: %w", err)
		}

		d.pool.Submit(func() {
			d.deliverWithRetry(client, event, delivery.ID)
		})
	}

	logger.InfoCtx(ctx, "Queued webhook deliveries",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.Int("clients", len(clients)))

	return nil
}

// Close drains the worker pool and waits for in-flight deliveries
func (d *deliverer) Close() {
	d.pool.StopAndWait()
}

// deliverWithRetry attempts delivery to a single client with exponential
// backoff until it succeeds, exhausts the client's attempt budget, or the
// deliverer context is canceled.
func (d *deliverer) deliverWithRetry(client *schema.WebhookClient, event WebhookEvent, deliveryID uint64) {
	ctx := d.ctx

	maxAttempts := client.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = d.config.DefaultMaxAttempts
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5 // Add jitter to prevent thundering herd
	retrier := backoff.WithMaxRetries(backoff.WithContext(b, ctx), uint64(maxAttempts-1))

	var attempt int
	var result DeliveryResult
	operation := func() error {
		attempt++
		var err error
		result, err = d.attemptDelivery(ctx, client, event, deliveryID, attempt)
		return err
	}

	notifyOnError := func(err error, duration time.Duration) {
		logger.WarnCtx(ctx, "Webhook delivery failed, retrying",
			zap.Error(err),
			zap.String("client_id", client.ClientID),
			zap.String("event_id", event.EventID),
			zap.Int("attempt", attempt),
			zap.Duration("next_retry_in", duration),
		)
	}

	if err := backoff.RetryNotify(operation, retrier, notifyOnError); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("webhook delivery exhausted retries: %w", err),
			zap.String("client_id", client.ClientID),
			zap.String("event_id", event.EventID),
			zap.Int("attempts", attempt),
		)
		return
	}

	logger.InfoCtx(ctx, "Webhook delivered",
		zap.String("client_id", client.ClientID),
		zap.String("event_id", event.EventID),
		zap.Int("status_code", result.StatusCode),
		zap.Int("attempts", attempt),
	)
}

// attemptDelivery performs one signed HTTP POST to the client endpoint and
// records the outcome on the delivery row. A non-2xx response or transport
// error is returned for retry; signing failures are permanent.
func (d *deliverer) attemptDelivery(ctx context.Context, client *schema.WebhookClient, event WebhookEvent, deliveryID uint64, attempt int) (DeliveryResult, error) {
	logger.DebugCtx(ctx, "Attempting webhook delivery",
		zap.String("client_id", client.ClientID),
		zap.String("event_id", event.EventID),
		zap.Int("attempt", attempt))

	// Generate signed payload with HMAC-SHA256. The timestamp is part of
	// the signature, so each attempt is signed fresh.
	payload, signature, timestamp, err := GenerateSignedPayload(d.canon, client.WebhookSecret, event)
	if err != nil {
		d.recordFailure(ctx, client, deliveryID, attempt, nil, "", err)
		// Signing never recovers on retry
		return DeliveryResult{Success: false, Error: err.Error()}, backoff.Permanent(err)
	}

	headers := map[string]string{
		"Content-Type":  "application/json",
		"User-Agent":    userAgent,
		HeaderSignature: signature,
		HeaderTimestamp: fmt.Sprintf("%d", timestamp),
		HeaderEvent:     event.EventType,
	}

	attemptCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	resp, err := d.httpClient.PostWithHeadersNoRetry(attemptCtx, client.WebhookURL, headers, bytes.NewReader(payload))
	if err != nil {
		d.recordFailure(ctx, client, deliveryID, attempt, nil, "", err)
		return DeliveryResult{Success: false, Error: err.Error()}, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.WarnCtx(ctx, "failed to close response body",
				zap.Error(err), zap.String("url", client.WebhookURL))
		}
	}()

	// Read response body with a size limit to prevent memory exhaustion
	limitedReader := io.LimitReader(resp.Body, maxResponseBytes)

	respBody, err := d.io.ReadAll(limitedReader)
	if err != nil {
		logger.WarnCtx(ctx, "failed to read webhook response body",
			zap.Error(err), zap.String("client_id", client.ClientID))
		// Continue with empty body - don't fail the delivery
		respBody = []byte{}
	}

	// Check status code for non-2xx responses
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("HTTP %d", resp.StatusCode)
		d.recordFailure(ctx, client, deliveryID, attempt, &resp.StatusCode, string(respBody), err)
		return DeliveryResult{Success: false, StatusCode: resp.StatusCode, Body: string(respBody)}, err
	}

	if err := d.store.UpdateWebhookDeliveryStatus(ctx, deliveryID, schema.WebhookDeliveryStatusSuccess, attempt, &resp.StatusCode, string(respBody), ""); err != nil {
		logger.ErrorCtx(ctx, errors.New("failed to update webhook delivery status"),
			zap.Error(err), zap.String("client_id", client.ClientID))
	}

	return DeliveryResult{Success: true, StatusCode: resp.StatusCode, Body: string(respBody)}, nil
}

// recordFailure marks the delivery row failed for this attempt
func (d *deliverer) recordFailure(ctx context.Context, client *schema.WebhookClient, deliveryID uint64, attempt int, statusCode *int, body string, cause error) {
	if err := d.store.UpdateWebhookDeliveryStatus(ctx, deliveryID, schema.WebhookDeliveryStatusFailed, attempt, statusCode, body, cause.Error()); err != nil {
		logger.ErrorCtx(ctx, errors.New("failed to update webhook delivery status"),
			zap.Error(err),
			zap.String("client_id", client.ClientID))
	}
}

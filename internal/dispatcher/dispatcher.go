package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/databazaar/license-indexer/internal/adapter"
	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/logger"
	"github.com/databazaar/license-indexer/internal/webhook"
)

// holdingsSubject matches holdings change events from every chain
const holdingsSubject = "licenses.*.holdings_changed"

// Config holds the configuration for the webhook dispatcher
type Config struct {
	URL            string
	StreamName     string
	ConsumerName   string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	AckWaitTimeout time.Duration
	MaxDeliver     int
}

// Dispatcher consumes holdings change events from the broker and hands them
// to the webhook deliverer
type Dispatcher interface {
	// Run starts the dispatcher, blocking until ctx is done
	Run(ctx context.Context) error
	// Close closes the dispatcher and cleans up resources
	Close()
}

type dispatcher struct {
	nc        adapter.NatsConn
	js        adapter.JetStream
	deliverer webhook.Deliverer
	json      adapter.JSON
	config    Config
}

// NewDispatcher creates a new webhook dispatcher connected to the broker
func NewDispatcher(
	cfg Config,
	natsJS adapter.NatsJetStream,
	deliverer webhook.Deliverer,
	jsonAdapter adapter.JSON,
) (Dispatcher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &dispatcher{
		nc:        nc,
		js:        js,
		deliverer: deliverer,
		json:      jsonAdapter,
		config:    cfg,
	}, nil
}

// Run starts the webhook dispatcher
func (d *dispatcher) Run(ctx context.Context) error {
	logger.Info("Starting webhook dispatcher",
		zap.String("stream", d.config.StreamName),
		zap.String("consumer", d.config.ConsumerName),
	)

	// Create or get consumer
	consumerConfig := jetstream.ConsumerConfig{
		Durable:       d.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       d.config.AckWaitTimeout,
		MaxDeliver:    d.config.MaxDeliver,
		FilterSubject: holdingsSubject,
	}

	consumer, err := d.js.CreateOrUpdateConsumer(ctx, d.config.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	consumerInfo, err := consumer.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.Info("Consumer created/retrieved", zap.String("consumer", consumerInfo.Name))

	// Create subscription
	msgChan := make(chan adapter.Message, 100)
	sub, err := consumer.Consume(func(msg adapter.Message) {
		msgChan <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Stop()

	logger.Info("Started consuming messages")

	// Process messages
	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down webhook dispatcher")
			return ctx.Err()
		case msg := <-msgChan:
			d.handleMessage(ctx, msg)
		}
	}
}

// handleMessage processes a single NATS message
func (d *dispatcher) handleMessage(ctx context.Context, msg adapter.Message) {
	// Get metadata for logging
	metadata, _ := msg.Metadata()

	// Parse event
	var event domain.HoldingsChangedEvent
	if err := d.json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error(err, zap.String("message", "Failed to unmarshal event"))
		// Terminate message for unparseable data
		if err := msg.Term(); err != nil {
			logger.Error(err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	if !event.Valid() {
		logger.Warn("Dropping invalid holdings event",
			zap.String("event_id", event.EventID),
			zap.String("owner", event.Owner),
		)
		// Terminate: the event will never become valid on redelivery
		if err := msg.Term(); err != nil {
			logger.Error(err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	var deliveryCount uint64
	if metadata != nil {
		deliveryCount = metadata.NumDelivered
	}
	logger.Info("Received holdings event",
		zap.String("event_id", event.EventID),
		zap.String("chain", string(event.Chain)),
		zap.String("owner", event.Owner),
		zap.Uint64("deliveryCount", deliveryCount),
	)

	// Hand the event to the deliverer; it records deliveries per client and
	// retries on its own worker pool
	if err := d.deliverer.DispatchEvent(ctx, webhook.NewHoldingsChangedEvent(&event)); err != nil {
		logger.Error(err, zap.String("message", "Failed to dispatch event"))
		// NAK to retry
		if err := msg.Nak(); err != nil {
			logger.Error(err, zap.String("message", "Failed to NAK message"))
		}
		return
	}

	// ACK message after successful processing
	if err := msg.Ack(); err != nil {
		logger.Error(err, zap.String("message", "Failed to ACK message"))
	}
}

// Close closes the dispatcher and cleans up resources
func (d *dispatcher) Close() {
	if d.nc == nil {
		return
	}

	d.nc.Close()
}

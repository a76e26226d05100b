package worker

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PubSubHandler feeds history events from a Pub/Sub subscription into a Consumer.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	consumer         *Consumer
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Consumer         *Consumer
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Callbacks only queue work for the single writer.
	subscriber.ReceiveSettings.MaxOutstandingMessages = cfg.Consumer.config.QueueSize
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		consumer:         cfg.Consumer,
		logger:           cfg.Logger,
	}, nil
}

// Start runs the writer and receives messages until ctx is cancelled or
// the subscription fails.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.consumer.Run(gctx)
	})
	g.Go(func() error {
		// Receive returns nil on cancellation; stop the writer either way.
		defer cancel()
		return h.subscriber.Receive(gctx, h.handleMessage)
	})
	return g.Wait()
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	outcome := h.consumer.Handle(ctx, msg.Data)
	if outcome == Ack {
		msg.Ack()
	} else {
		msg.Nack()
	}

	h.logger.Debug().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Str("outcome", outcome.String()).
		Dur("duration", time.Since(startTime)).
		Msg("handled pubsub message")
}

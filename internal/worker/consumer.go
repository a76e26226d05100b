package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/riceadvisor/riceadvisor/internal/history"
)

// ErrConsumerStopped is returned when an event arrives after the writer has stopped.
var ErrConsumerStopped = errors.New("history consumer stopped")

// Outcome tells the transport what to do with a delivered message.
type Outcome int

const (
	// Ack removes the message: it was stored, was already stored, or can never be stored.
	Ack Outcome = iota
	// Nack asks for redelivery.
	Nack
)

func (o Outcome) String() string {
	if o == Ack {
		return "ack"
	}
	return "nack"
}

// Appender is the part of history.Repository the consumer writes to.
type Appender interface {
	Append(ctx context.Context, rec *history.Record) error
}

// Stats is a snapshot of consumer counters.
type Stats struct {
	Received     int64     `json:"received"`
	Appended     int64     `json:"appended"`
	Duplicates   int64     `json:"duplicates"`
	Dropped      int64     `json:"dropped"`
	Failed       int64     `json:"failed"`
	LastAppendAt time.Time `json:"last_append_at,omitzero"`
}

// ConsumerOptions holds dependencies for creating a Consumer.
type ConsumerOptions struct {
	Repository Appender
	Config     ConsumerConfig
	Logger     zerolog.Logger
}

type appendJob struct {
	rec  *history.Record
	done chan error
}

// Consumer decodes history events and hands them to one writer goroutine,
// so records are appended strictly one at a time.
type Consumer struct {
	repo   Appender
	config ConsumerConfig
	logger zerolog.Logger

	jobs    chan appendJob
	stopped chan struct{}
	running atomic.Bool

	received     atomic.Int64
	appended     atomic.Int64
	duplicates   atomic.Int64
	dropped      atomic.Int64
	failed       atomic.Int64
	lastAppendAt atomic.Int64
}

// NewConsumer creates a history consumer. Run must be started before Handle is called.
func NewConsumer(opts ConsumerOptions) *Consumer {
	cfg := opts.Config.withDefaults()
	return &Consumer{
		repo:    opts.Repository,
		config:  cfg,
		logger:  opts.Logger,
		jobs:    make(chan appendJob, cfg.QueueSize),
		stopped: make(chan struct{}),
	}
}

// Run is the single writer loop. It returns nil when ctx is cancelled.
// A Consumer can only be run once.
func (c *Consumer) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("history consumer already running")
	}
	defer close(c.stopped)

	c.logger.Info().Int("max_attempts", c.config.MaxAttempts).Msg("history writer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("history writer stopped")
			return nil
		case job := <-c.jobs:
			job.done <- c.appendWithRetry(ctx, job.rec)
		}
	}
}

// Handle decodes one message body and waits for the writer to store it.
func (c *Consumer) Handle(ctx context.Context, data []byte) Outcome {
	c.received.Add(1)

	var event history.Event
	if err := json.Unmarshal(data, &event); err != nil {
		c.dropped.Add(1)
		c.logger.Error().Err(err).Msg("dropping malformed history event")
		return Ack
	}
	if event.Type != history.EventTypeRecorded {
		c.dropped.Add(1)
		c.logger.Warn().Str("event_type", event.Type).Msg("dropping unknown history event type")
		return Ack
	}
	if event.Record == nil || event.Record.ID == "" {
		c.dropped.Add(1)
		c.logger.Error().Msg("dropping history event without a record id")
		return Ack
	}

	logger := c.logger.With().Str("record_id", event.Record.ID).Logger()

	err := c.submit(ctx, event.Record)
	switch {
	case err == nil:
		c.appended.Add(1)
		c.lastAppendAt.Store(time.Now().UnixNano())
		logger.Debug().Int64("sequence", event.Record.Sequence).Msg("history record stored")
		return Ack
	case errors.Is(err, history.ErrDuplicateRecord):
		c.duplicates.Add(1)
		logger.Debug().Msg("history record already stored")
		return Ack
	default:
		c.failed.Add(1)
		logger.Error().Err(err).Msg("storing history record failed")
		return Nack
	}
}

// Stats returns a snapshot of the consumer counters.
func (c *Consumer) Stats() Stats {
	s := Stats{
		Received:   c.received.Load(),
		Appended:   c.appended.Load(),
		Duplicates: c.duplicates.Load(),
		Dropped:    c.dropped.Load(),
		Failed:     c.failed.Load(),
	}
	if ns := c.lastAppendAt.Load(); ns != 0 {
		s.LastAppendAt = time.Unix(0, ns).UTC()
	}
	return s
}

func (c *Consumer) submit(ctx context.Context, rec *history.Record) error {
	job := appendJob{rec: rec, done: make(chan error, 1)}

	select {
	case c.jobs <- job:
	case <-c.stopped:
		return ErrConsumerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-job.done:
		return err
	case <-c.stopped:
		// The writer may have finished the job just before stopping.
		select {
		case err := <-job.done:
			return err
		default:
			return ErrConsumerStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) appendWithRetry(ctx context.Context, rec *history.Record) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialBackoff
	bo.MaxInterval = c.config.MaxBackoff
	bo.MaxElapsedTime = 0

	attempts := 0
	operation := func() error {
		attempts++
		appendCtx, cancel := context.WithTimeout(ctx, c.config.AppendTimeout)
		defer cancel()

		err := c.repo.Append(appendCtx, rec)
		if errors.Is(err, history.ErrDuplicateRecord) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn().
			Err(err).
			Str("record_id", rec.ID).
			Int("attempt", attempts).
			Dur("retry_in", wait).
			Msg("history append failed, retrying")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.config.MaxAttempts-1)), ctx) //nolint:gosec // MaxAttempts is at least 1
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		if errors.Is(err, history.ErrDuplicateRecord) {
			return err
		}
		return fmt.Errorf("append after %d attempts: %w", attempts, err)
	}
	return nil
}

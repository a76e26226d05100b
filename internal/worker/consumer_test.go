package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/riceadvisor/riceadvisor/internal/history"
	"github.com/riceadvisor/riceadvisor/internal/worker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// flakyRepository fails the first failures appends, then delegates.
type flakyRepository struct {
	inner    *history.InMemoryRepository
	failures int32
	calls    atomic.Int32
}

func (r *flakyRepository) Append(ctx context.Context, rec *history.Record) error {
	if r.calls.Add(1) <= r.failures {
		return errors.New("connection reset")
	}
	return r.inner.Append(ctx, rec)
}

func fastConfig() worker.ConsumerConfig {
	return worker.ConsumerConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		AppendTimeout:  time.Second,
	}
}

// startConsumer runs the writer until the test ends.
func startConsumer(t *testing.T, repo worker.Appender) *worker.Consumer {
	t.Helper()
	c := worker.NewConsumer(worker.ConsumerOptions{
		Repository: repo,
		Config:     fastConfig(),
		Logger:     zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return c
}

func eventBody(t *testing.T, id, farmer string) []byte {
	t.Helper()
	data, err := json.Marshal(history.Event{
		Type: history.EventTypeRecorded,
		Record: &history.Record{
			ID:             id,
			FarmerName:     farmer,
			PredictedYield: 12.03,
			PlantingDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	return data
}

func TestConsumer_StoresRecord(t *testing.T) {
	repo := history.NewInMemoryRepository()
	c := startConsumer(t, repo)

	outcome := c.Handle(context.Background(), eventBody(t, "hist_1", "Ravi"))
	assert.Equal(t, worker.Ack, outcome)

	records, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ravi", records[0].FarmerName)
	assert.Equal(t, int64(1), records[0].Sequence)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Received)
	assert.Equal(t, int64(1), stats.Appended)
	assert.False(t, stats.LastAppendAt.IsZero())
}

func TestConsumer_RedeliveryIsAcked(t *testing.T) {
	repo := history.NewInMemoryRepository()
	c := startConsumer(t, repo)
	body := eventBody(t, "hist_dup", "Meena")

	assert.Equal(t, worker.Ack, c.Handle(context.Background(), body))
	assert.Equal(t, worker.Ack, c.Handle(context.Background(), body))

	records, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int64(1), c.Stats().Duplicates)
}

func TestConsumer_DropsUnusableMessages(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"malformed json", []byte(`{"event_type":`)},
		{"unknown type", []byte(`{"event_type":"prediction_deleted","record":{"id":"hist_x"}}`)},
		{"missing record", []byte(`{"event_type":"prediction_recorded"}`)},
		{"missing id", []byte(`{"event_type":"prediction_recorded","record":{"farmer_name":"A"}}`)},
	}

	repo := history.NewInMemoryRepository()
	c := startConsumer(t, repo)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, worker.Ack, c.Handle(context.Background(), tt.body))
		})
	}

	records, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int64(len(tests)), c.Stats().Dropped)
}

func TestConsumer_RetriesTransientFailures(t *testing.T) {
	repo := &flakyRepository{inner: history.NewInMemoryRepository(), failures: 2}
	c := startConsumer(t, repo)

	assert.Equal(t, worker.Ack, c.Handle(context.Background(), eventBody(t, "hist_retry", "Arun")))
	assert.Equal(t, int32(3), repo.calls.Load())
}

func TestConsumer_NacksAfterMaxAttempts(t *testing.T) {
	repo := &flakyRepository{inner: history.NewInMemoryRepository(), failures: 100}
	c := startConsumer(t, repo)

	assert.Equal(t, worker.Nack, c.Handle(context.Background(), eventBody(t, "hist_fail", "Arun")))
	assert.Equal(t, int32(3), repo.calls.Load())
	assert.Equal(t, int64(1), c.Stats().Failed)
}

func TestConsumer_SingleWriterOrdersConcurrentEvents(t *testing.T) {
	repo := history.NewInMemoryRepository()
	c := startConsumer(t, repo)

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := eventBody(t, "hist_"+string(rune('a'+i)), "Farmer")
			assert.Equal(t, worker.Ack, c.Handle(context.Background(), body))
		}()
	}
	wg.Wait()

	records, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, n)
	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.Sequence)
	}
}

func TestConsumer_HandleAfterStopNacks(t *testing.T) {
	c := worker.NewConsumer(worker.ConsumerOptions{
		Repository: history.NewInMemoryRepository(),
		Config:     fastConfig(),
		Logger:     zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	// The queue is buffered, so the job may be accepted but is never written.
	assert.Equal(t, worker.Nack, c.Handle(context.Background(), eventBody(t, "hist_late", "Late")))
	assert.Error(t, c.Run(context.Background()))
}

func TestConsumer_HandleHonoursContext(t *testing.T) {
	blocking := &blockingRepository{release: make(chan struct{})}
	c := startConsumer(t, blocking)
	defer close(blocking.release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, worker.Nack, c.Handle(ctx, eventBody(t, "hist_slow", "Slow")))
}

type blockingRepository struct {
	release chan struct{}
}

func (r *blockingRepository) Append(ctx context.Context, _ *history.Record) error {
	select {
	case <-r.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ack", worker.Ack.String())
	assert.Equal(t, "nack", worker.Nack.String())
}

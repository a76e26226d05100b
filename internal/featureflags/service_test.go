package featureflags_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riceadvisor/riceadvisor/internal/featureflags"
)

// countingRepository wraps a repository, counting reads and optionally failing them.
type countingRepository struct {
	*featureflags.InMemoryRepository
	reads   atomic.Int32
	readErr error
	setErr  error
}

func (r *countingRepository) GetAllFlags(ctx context.Context) (map[string]*featureflags.Flag, error) {
	r.reads.Add(1)
	if r.readErr != nil {
		return nil, r.readErr
	}
	return r.InMemoryRepository.GetAllFlags(ctx)
}

func (r *countingRepository) SetFlags(ctx context.Context, flags []*featureflags.Flag) error {
	if r.setErr != nil {
		return r.setErr
	}
	return r.InMemoryRepository.SetFlags(ctx, flags)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newService(repo featureflags.Repository, c *clock) *featureflags.Service {
	return featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Minute,
		Now:        c.now,
	})
}

func TestService_DefaultsAreOff(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository(), &clock{t: time.Now()})
	ctx := context.Background()

	for _, key := range featureflags.Keys() {
		assert.False(t, service.IsEnabled(ctx, key), key)
	}
	assert.False(t, service.IsEnabled(ctx, "make_it_rain"))

	flags := service.GetAllFlags(ctx)
	assert.Len(t, flags, len(featureflags.Keys()))
}

func TestService_SetFlagsVisibleImmediately(t *testing.T) {
	c := &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	service := newService(featureflags.NewInMemoryRepository(), c)
	ctx := context.Background()

	require.False(t, service.IsEnabled(ctx, featureflags.FlagDisableChat))

	flags := []*featureflags.Flag{
		{Key: featureflags.FlagDisableChat, Value: true},
		{Key: featureflags.FlagFixedFieldVariability, Value: float64(1)},
	}
	require.NoError(t, service.SetFlags(ctx, flags))

	assert.True(t, service.IsEnabled(ctx, featureflags.FlagDisableChat))
	assert.True(t, service.IsEnabled(ctx, featureflags.FlagFixedFieldVariability))
	assert.False(t, service.IsEnabled(ctx, featureflags.FlagDisableHistoryRecording))
	assert.Equal(t, c.t, flags[0].UpdatedAt)
}

func TestService_SetFlagsFailure(t *testing.T) {
	repo := &countingRepository{InMemoryRepository: featureflags.NewInMemoryRepository(), setErr: errors.New("db down")}
	service := newService(repo, &clock{t: time.Now()})
	ctx := context.Background()

	err := service.SetFlags(ctx, []*featureflags.Flag{{Key: featureflags.FlagDisableChat, Value: true}})
	require.Error(t, err)
	assert.False(t, service.IsEnabled(ctx, featureflags.FlagDisableChat))
}

func TestService_CachesUntilTTL(t *testing.T) {
	repo := &countingRepository{InMemoryRepository: featureflags.NewInMemoryRepository()}
	c := &clock{t: time.Now()}
	service := newService(repo, c)
	ctx := context.Background()

	service.IsEnabled(ctx, featureflags.FlagDisableChat)
	service.IsEnabled(ctx, featureflags.FlagDisableInstructions)
	service.GetAllFlags(ctx)
	assert.Equal(t, int32(1), repo.reads.Load())

	// A write that bypasses the service shows up once the snapshot expires.
	require.NoError(t, repo.InMemoryRepository.SetFlags(ctx, []*featureflags.Flag{{Key: featureflags.FlagDisableChat, Value: true}}))
	assert.False(t, service.IsEnabled(ctx, featureflags.FlagDisableChat))

	c.advance(time.Minute)
	assert.True(t, service.IsEnabled(ctx, featureflags.FlagDisableChat))
	assert.Equal(t, int32(2), repo.reads.Load())
}

func TestService_InvalidateCache(t *testing.T) {
	repo := &countingRepository{InMemoryRepository: featureflags.NewInMemoryRepository()}
	service := newService(repo, &clock{t: time.Now()})
	ctx := context.Background()

	require.False(t, service.IsEnabled(ctx, featureflags.FlagDisableInstructions))
	require.NoError(t, repo.InMemoryRepository.SetFlags(ctx, []*featureflags.Flag{{Key: featureflags.FlagDisableInstructions, Value: true}}))

	service.InvalidateCache()

	assert.True(t, service.IsEnabled(ctx, featureflags.FlagDisableInstructions))
}

func TestService_RepositoryFailure(t *testing.T) {
	repo := &countingRepository{InMemoryRepository: featureflags.NewInMemoryRepository()}
	c := &clock{t: time.Now()}
	service := newService(repo, c)
	ctx := context.Background()

	require.NoError(t, service.SetFlags(ctx, []*featureflags.Flag{{Key: featureflags.FlagDisableChat, Value: true}}))
	require.True(t, service.IsEnabled(ctx, featureflags.FlagDisableChat))

	repo.readErr = errors.New("connection refused")
	c.advance(time.Hour)

	assert.True(t, service.IsEnabled(ctx, featureflags.FlagDisableChat), "last snapshot keeps being served")
	assert.Len(t, service.GetAllFlags(ctx), len(featureflags.Keys()))
}

func TestService_RepositoryFailureBeforeFirstLoad(t *testing.T) {
	repo := &countingRepository{
		InMemoryRepository: featureflags.NewInMemoryRepository(),
		readErr:            errors.New("connection refused"),
	}
	service := featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		DefaultFlags: map[string]*featureflags.Flag{
			featureflags.FlagFixedFieldVariability: {Key: featureflags.FlagFixedFieldVariability, Value: true},
		},
	})

	assert.True(t, service.IsEnabled(context.Background(), featureflags.FlagFixedFieldVariability))
	assert.False(t, service.IsEnabled(context.Background(), featureflags.FlagDisableChat))
}

func TestService_StoredValuesOverrideDefaults(t *testing.T) {
	repo := featureflags.NewInMemoryRepositoryWithFlags(map[string]*featureflags.Flag{
		featureflags.FlagDisableHistoryRecording: {Key: featureflags.FlagDisableHistoryRecording, Value: true},
	})
	service := newService(repo, &clock{t: time.Now()})
	ctx := context.Background()

	flags := service.GetAllFlags(ctx)
	require.Len(t, flags, len(featureflags.Keys()))
	assert.True(t, flags[featureflags.FlagDisableHistoryRecording].BoolValue(false))
	assert.False(t, flags[featureflags.FlagDisableChat].BoolValue(true))

	// Callers cannot change the cached snapshot.
	delete(flags, featureflags.FlagDisableChat)
	assert.Len(t, service.GetAllFlags(ctx), len(featureflags.Keys()))
}

func TestFlag_BoolValue(t *testing.T) {
	tests := []struct {
		name string
		flag *featureflags.Flag
		def  bool
		want bool
	}{
		{"nil flag", nil, true, true},
		{"true", &featureflags.Flag{Value: true}, false, true},
		{"false", &featureflags.Flag{Value: false}, true, false},
		{"non-zero number", &featureflags.Flag{Value: float64(2)}, false, true},
		{"zero number", &featureflags.Flag{Value: float64(0)}, true, false},
		{"string", &featureflags.Flag{Value: "yes"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.flag.BoolValue(tt.def))
		})
	}
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	ctx := context.Background()

	flags, err := repo.GetAllFlags(ctx)
	require.NoError(t, err)
	flags[featureflags.FlagDisableChat].Value = true

	again, err := repo.GetAllFlags(ctx)
	require.NoError(t, err)
	assert.False(t, again[featureflags.FlagDisableChat].BoolValue(true))
}

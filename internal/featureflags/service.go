package featureflags

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCacheTTL is how long a flag snapshot is served before the
// repository is read again.
const DefaultCacheTTL = time.Minute

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL bounds snapshot age (default: DefaultCacheTTL).
	CacheTTL time.Duration

	// DefaultFlags apply to keys the repository does not hold
	// (default: DefaultFlags()).
	DefaultFlags map[string]*Flag

	// Now is the clock (default: time.Now).
	Now func() time.Time
}

// Service evaluates flags from a cached snapshot of the repository merged
// over the defaults. When the repository cannot be read the last snapshot
// keeps being served.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration
	defaults map[string]*Flag
	now      func() time.Time

	mu       sync.RWMutex
	snapshot map[string]*Flag
	expires  time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: cfg.CacheTTL,
		defaults: cfg.DefaultFlags,
		now:      cfg.Now,
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = DefaultCacheTTL
	}
	if s.defaults == nil {
		s.defaults = DefaultFlags()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// IsEnabled reports whether the switch key is on. Unknown keys are off.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	return s.current(ctx)[key].BoolValue(false)
}

// GetAllFlags returns every known flag, stored values over defaults.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	return maps.Clone(s.current(ctx))
}

// SetFlags stores flags and drops the snapshot so the next read sees them.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	now := s.now()
	for _, f := range flags {
		f.UpdatedAt = now
	}
	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return err
	}
	s.InvalidateCache()
	return nil
}

// InvalidateCache forces the next read to go to the repository.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expires = time.Time{}
}

func (s *Service) current(ctx context.Context) map[string]*Flag {
	s.mu.RLock()
	snap, fresh := s.snapshot, s.now().Before(s.expires)
	s.mu.RUnlock()
	if snap != nil && fresh {
		return snap
	}

	stored, err := s.repo.GetAllFlags(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Warn().Err(err).Bool("stale", s.snapshot != nil).Msg("failed to load feature flags")
		if s.snapshot != nil {
			return s.snapshot
		}
		return s.defaults
	}

	merged := maps.Clone(s.defaults)
	maps.Copy(merged, stored)
	s.snapshot = merged
	s.expires = s.now().Add(s.cacheTTL)
	s.logger.Debug().Int("flags", len(merged)).Msg("feature flags loaded")
	return merged
}

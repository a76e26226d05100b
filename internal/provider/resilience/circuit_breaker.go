// Package resilience wraps calls to the advisory backends with circuit
// breakers, timeouts and retries, and tracks breaker health for the status
// endpoint.
package resilience

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultBreakerTimeout = 60 * time.Second

	// minTripRequests and tripFailureRatio define DefaultReadyToTrip.
	minTripRequests  = 5
	tripFailureRatio = 0.5
)

// CircuitBreakerConfig holds configuration for a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs and in the registry.
	Name string

	// MaxRequests is the number of trial requests let through while half-open
	// (default: 1).
	MaxRequests uint32

	// Interval clears the closed-state counts periodically; 0 never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open before trying again
	// (default: 60s).
	Timeout time.Duration

	// ReadyToTrip decides when to open (default: DefaultReadyToTrip).
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called after every transition.
	OnStateChange func(name string, from, to gobreaker.State)

	// Logger, when set, records every transition: opening at Warn, anything
	// else at Info.
	Logger *zerolog.Logger
}

// DefaultCircuitBreakerConfig returns the breaker settings used for the
// advisory backends.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     defaultBreakerTimeout,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

// DefaultReadyToTrip opens the breaker once at least 5 requests were seen and
// half or more of them failed.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < minTripRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= tripFailureRatio
}

// NewCircuitBreaker creates a breaker from cfg, filling unset fields with the
// defaults of DefaultCircuitBreakerConfig.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultBreakerTimeout
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = DefaultReadyToTrip
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   cfg.ReadyToTrip,
		OnStateChange: stateChangeHook(cfg.Logger, cfg.OnStateChange),
	})
}

func stateChangeHook(logger *zerolog.Logger, next func(string, gobreaker.State, gobreaker.State)) func(string, gobreaker.State, gobreaker.State) {
	if logger == nil {
		return next
	}
	return func(name string, from, to gobreaker.State) {
		ev := logger.Info()
		if to == gobreaker.StateOpen {
			ev = logger.Warn()
		}
		ev.Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
		if next != nil {
			next(name, from, to)
		}
	}
}

package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/riceadvisor/riceadvisor/internal/featureflags"
)

const instrumentationName = "github.com/riceadvisor/riceadvisor/internal/advisor"

// FlagSource reports runtime feature switches. *featureflags.Service implements it.
type FlagSource interface {
	IsEnabled(ctx context.Context, key string) bool
}

// ServiceConfig holds configuration for the advisor service.
type ServiceConfig struct {
	// Predictor serves statistical yield predictions. Optional.
	Predictor Predictor

	// Advisor serves instructions and chat. Optional.
	Advisor Advisor

	// Flags gates advisor features at runtime. Optional.
	Flags FlagSource

	Logger zerolog.Logger

	// CacheTTL is how long model predictions are cached per state and soil (default: 1 hour).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale predictions on provider errors (default: 24 hours).
	StaleIfErrorTTL time.Duration

	// FetchTimeout bounds a shared model prediction fetch (default: 30 seconds).
	FetchTimeout time.Duration

	// Meter records advisor request metrics. Defaults to the global meter provider.
	Meter metric.Meter
}

// Service fronts the predictor and advisor with caching, feature flags and metrics.
type Service struct {
	predictor       Predictor
	advisor         Advisor
	flags           FlagSource
	logger          zerolog.Logger
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	fetchTimeout    time.Duration

	requests metric.Int64Counter
	duration metric.Float64Histogram

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]*cachedPrediction
	now   func() time.Time
}

type cachedPrediction struct {
	prediction *ModelPrediction
	fetchedAt  time.Time
	expiresAt  time.Time
}

// NewService creates a new advisor service.
func NewService(cfg ServiceConfig) (*Service, error) {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Hour
	}
	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 24 * time.Hour
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = 30 * time.Second
	}
	meter := cfg.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	requests, err := meter.Int64Counter(
		"advisor.requests",
		metric.WithDescription("Advisor requests by operation and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"advisor.request.duration",
		metric.WithDescription("Duration of advisor provider calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Service{
		predictor:       cfg.Predictor,
		advisor:         cfg.Advisor,
		flags:           cfg.Flags,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		fetchTimeout:    fetchTimeout,
		requests:        requests,
		duration:        duration,
		cache:           make(map[string]*cachedPrediction),
		now:             time.Now,
	}, nil
}

// Outcomes recorded on the advisor.requests counter.
const (
	outcomeOK       = "ok"
	outcomeCached   = "cached"
	outcomeStale    = "stale"
	outcomeError    = "error"
	outcomeDisabled = "disabled"
)

func (s *Service) record(ctx context.Context, op, outcome string) {
	s.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func (s *Service) observe(ctx context.Context, op string, start time.Time) {
	s.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", op),
	))
}

func (s *Service) disabled(ctx context.Context, key string) bool {
	return s.flags != nil && s.flags.IsEnabled(ctx, key)
}

// Predict returns the statistical model prediction for a state and soil pair.
// Results are cached; on provider errors a stale entry is served if one exists.
func (s *Service) Predict(ctx context.Context, state, soil string) (*ModelPrediction, error) {
	const op = "predict"

	state, soil = strings.TrimSpace(state), strings.TrimSpace(soil)
	if state == "" || soil == "" {
		return nil, fmt.Errorf("%w: state and soil are required", ErrInvalidRequest)
	}
	if s.disabled(ctx, featureflags.FlagDisableModelPrediction) {
		s.record(ctx, op, outcomeDisabled)
		return nil, ErrDisabled
	}
	if s.predictor == nil {
		return nil, ErrUnavailable
	}

	key := strings.ToLower(state) + "|" + strings.ToLower(soil)

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && s.now().Before(cached.expiresAt) {
		s.record(ctx, op, outcomeCached)
		return cached.prediction, nil
	}

	// Concurrent misses share one fetch. It is detached from the caller that
	// started it, so a cancelled request does not fail the others waiting.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetchPrediction(fetchCtx, key, state, soil)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ModelPrediction), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) fetchPrediction(ctx context.Context, key, state, soil string) (*ModelPrediction, error) {
	const op = "predict"

	s.logger.Debug().
		Str("state", state).
		Str("soil", soil).
		Msg("fetching model prediction")

	start := s.now()
	p, err := s.predictor.Predict(ctx, state, soil)
	s.observe(ctx, op, start)

	if err != nil {
		if errors.Is(err, ErrNoModelData) {
			s.record(ctx, op, outcomeOK)
			return nil, err
		}

		s.logger.Error().Err(err).
			Str("state", state).
			Str("soil", soil).
			Msg("failed to fetch model prediction")

		s.mu.RLock()
		cached, ok := s.cache[key]
		s.mu.RUnlock()
		if ok && s.now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Msg("serving stale model prediction due to provider error")
			s.record(ctx, op, outcomeStale)
			return cached.prediction, nil
		}

		s.record(ctx, op, outcomeError)
		return nil, fmt.Errorf("model prediction: %w", err)
	}

	now := s.now()
	s.mu.Lock()
	s.cache[key] = &cachedPrediction{
		prediction: p,
		fetchedAt:  now,
		expiresAt:  now.Add(s.cacheTTL),
	}
	s.mu.Unlock()

	s.record(ctx, op, outcomeOK)
	return p, nil
}

// CachedModels returns the number of cached state and soil predictions.
func (s *Service) CachedModels() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Instructions generates cultivation instructions for a model prediction.
func (s *Service) Instructions(ctx context.Context, req InstructionsRequest) (*Instructions, error) {
	const op = "instructions"

	if len(req.Prediction) == 0 {
		return nil, fmt.Errorf("%w: prediction values are required", ErrInvalidRequest)
	}
	if s.disabled(ctx, featureflags.FlagDisableInstructions) {
		s.record(ctx, op, outcomeDisabled)
		return nil, ErrDisabled
	}
	if s.advisor == nil {
		return nil, ErrUnavailable
	}

	start := s.now()
	out, err := s.advisor.Instructions(ctx, req)
	s.observe(ctx, op, start)
	if err != nil {
		s.logger.Error().Err(err).Str("state", req.CropData.State).Msg("failed to generate instructions")
		s.record(ctx, op, outcomeError)
		return nil, fmt.Errorf("instructions: %w", err)
	}

	s.record(ctx, op, outcomeOK)
	return out, nil
}

// NewChat opens a chat session.
func (s *Service) NewChat(ctx context.Context) (*ChatSession, error) {
	const op = "chat_new"

	if s.disabled(ctx, featureflags.FlagDisableChat) {
		s.record(ctx, op, outcomeDisabled)
		return nil, ErrDisabled
	}
	if s.advisor == nil {
		return nil, ErrUnavailable
	}

	session, err := s.advisor.NewChat(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create chat session")
		s.record(ctx, op, outcomeError)
		return nil, fmt.Errorf("new chat: %w", err)
	}

	s.record(ctx, op, outcomeOK)
	return session, nil
}

// Chat sends one message in a session.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	const op = "chat"

	msg, err := ValidateMessage(req.Message)
	if err != nil {
		return nil, err
	}
	req.Message = msg
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	if s.disabled(ctx, featureflags.FlagDisableChat) {
		s.record(ctx, op, outcomeDisabled)
		return nil, ErrDisabled
	}
	if s.advisor == nil {
		return nil, ErrUnavailable
	}

	start := s.now()
	reply, err := s.advisor.Chat(ctx, req)
	s.observe(ctx, op, start)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("chat failed")
		s.record(ctx, op, outcomeError)
		return nil, fmt.Errorf("chat: %w", err)
	}

	s.record(ctx, op, outcomeOK)
	return reply, nil
}

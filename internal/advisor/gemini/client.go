// Package gemini implements the advisor interface in-process on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"

	"github.com/riceadvisor/riceadvisor/internal/advisor"
	"github.com/riceadvisor/riceadvisor/internal/provider/resilience"
)

const (
	// ProviderName identifies this advisor backend.
	ProviderName = "gemini"

	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-1.5-flash-8b"

	// DefaultSessionTTL is how long an idle chat session is kept.
	DefaultSessionTTL = 2 * time.Hour

	// DefaultMaxSessions bounds the number of live chat sessions.
	DefaultMaxSessions = 1000
)

// ErrAPIKeyRequired is returned when no API key is configured.
var ErrAPIKeyRequired = errors.New("gemini API key is required")

// ClientConfig holds configuration for the Gemini advisor.
type ClientConfig struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the Gemini model name (optional, defaults to DefaultModel).
	Model string

	// BaseURL overrides the API endpoint (optional).
	BaseURL string

	// HTTPClient is the HTTP client for API calls (optional).
	HTTPClient *http.Client

	// Predictor supplies model insights for chat context (optional).
	Predictor advisor.Predictor

	// SessionTTL evicts chat sessions idle for longer (default: DefaultSessionTTL).
	SessionTTL time.Duration

	// MaxSessions caps live chat sessions; the least recently used is evicted (default: DefaultMaxSessions).
	MaxSessions int

	// CircuitBreaker configures the breaker around API calls.
	// If nil, uses DefaultCircuitBreakerConfig.
	CircuitBreaker *resilience.CircuitBreakerConfig

	Logger zerolog.Logger
}

// Client is an in-process advisor backed by Gemini.
type Client struct {
	genai       *genai.Client
	model       string
	predictor   advisor.Predictor
	breaker     *gobreaker.CircuitBreaker[string]
	sessionTTL  time.Duration
	maxSessions int
	logger      zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

type session struct {
	mu       sync.Mutex
	chat     *genai.Chat
	lastUsed time.Time
}

// NewClient creates a Gemini advisor.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL == 0 {
		sessionTTL = DefaultSessionTTL
	}
	maxSessions := cfg.MaxSessions
	if maxSessions == 0 {
		maxSessions = DefaultMaxSessions
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	cbConfig := resilience.DefaultCircuitBreakerConfig(ProviderName)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}
	if cbConfig.Logger == nil {
		cbConfig.Logger = &cfg.Logger
	}

	return &Client{
		genai:       gc,
		model:       model,
		predictor:   cfg.Predictor,
		breaker:     resilience.NewCircuitBreaker[string](cbConfig),
		sessionTTL:  sessionTTL,
		maxSessions: maxSessions,
		logger:      cfg.Logger,
		sessions:    make(map[string]*session),
		now:         time.Now,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}

// ActiveSessions returns the number of live chat sessions.
func (c *Client) ActiveSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Instructions generates cultivation instructions in a one-off conversation.
func (c *Client) Instructions(ctx context.Context, req advisor.InstructionsRequest) (*advisor.Instructions, error) {
	if len(req.Prediction) == 0 {
		return nil, fmt.Errorf("%w: prediction values are required", advisor.ErrInvalidRequest)
	}

	prompt := instructionsPrompt(req)
	text, err := c.breaker.Execute(func() (string, error) {
		resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	})
	if err != nil {
		return nil, c.wrapErr(err)
	}

	return &advisor.Instructions{Text: text, GeneratedAt: c.now().UTC()}, nil
}

// NewChat opens a chat session.
func (c *Client) NewChat(context.Context) (*advisor.ChatSession, error) {
	id := uuid.NewString()[:8]
	if _, err := c.session(id); err != nil {
		return nil, err
	}
	return &advisor.ChatSession{
		ID:             id,
		WelcomeMessage: advisor.WelcomeMessage,
		CreatedAt:      c.now().UTC(),
	}, nil
}

// Chat answers one message. Messages unrelated to agriculture get a fixed
// redirect without calling the model; unknown session ids start a new session.
func (c *Client) Chat(ctx context.Context, req advisor.ChatRequest) (*advisor.ChatReply, error) {
	msg, err := advisor.ValidateMessage(req.Message)
	if err != nil {
		return nil, err
	}

	reply := &advisor.ChatReply{
		SessionID:          req.SessionID,
		AgricultureRelated: advisor.IsAgricultureRelated(msg),
		Timestamp:          c.now().UTC(),
	}
	if !reply.AgricultureRelated {
		reply.Response = advisor.OffTopicReply
		return reply, nil
	}

	s, err := c.session(req.SessionID)
	if err != nil {
		return nil, err
	}

	prompt := chatPrompt(msg, req.Context, c.insights(ctx, req.Context))

	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := c.breaker.Execute(func() (string, error) {
		resp, err := s.chat.SendMessage(ctx, genai.Part{Text: prompt})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	})
	if err != nil {
		return nil, c.wrapErr(err)
	}

	c.logger.Info().Str("session_id", req.SessionID).Msg("agriculture response generated")
	reply.Response = advisor.EnsureOnTopic(text)
	return reply, nil
}

// insights fetches model analysis for chat context; failures only drop the context.
func (c *Client) insights(ctx context.Context, crop advisor.CropData) *advisor.Analysis {
	if c.predictor == nil || crop.State == "" || crop.Soil == "" {
		return nil
	}
	p, err := c.predictor.Predict(ctx, crop.State, crop.Soil)
	if err != nil {
		c.logger.Debug().Err(err).
			Str("state", crop.State).
			Str("soil", crop.Soil).
			Msg("no model insights for chat")
		return nil
	}
	return advisor.Analyze(p)
}

// session returns the chat session for id, creating it if needed. Idle
// sessions are evicted first, then the least recently used one if the map is full.
func (c *Client) session(id string) (*session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: session id is required", advisor.ErrInvalidRequest)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if s, ok := c.sessions[id]; ok {
		s.lastUsed = now
		return s, nil
	}

	c.evictLocked(now)

	chat, err := c.genai.Chats.Create(context.Background(), c.model, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating chat session: %w", err)
	}
	s := &session{chat: chat, lastUsed: now}
	c.sessions[id] = s
	return s, nil
}

func (c *Client) evictLocked(now time.Time) {
	var oldestID string
	var oldest time.Time
	for id, s := range c.sessions {
		if now.Sub(s.lastUsed) > c.sessionTTL {
			delete(c.sessions, id)
			continue
		}
		if oldestID == "" || s.lastUsed.Before(oldest) {
			oldestID, oldest = id, s.lastUsed
		}
	}
	if len(c.sessions) >= c.maxSessions && oldestID != "" {
		delete(c.sessions, oldestID)
	}
}

func (c *Client) wrapErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", advisor.ErrUnavailable, resilience.ErrCircuitOpen)
	}
	return fmt.Errorf("gemini: %w", err)
}

var (
	_ advisor.Advisor    = (*Client)(nil)
	_ resilience.Breaker = (*Client)(nil)
)

// Package remote implements the advisor interfaces against the HTTP
// prediction and advisory backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/riceadvisor/riceadvisor/internal/advisor"
	"github.com/riceadvisor/riceadvisor/internal/provider/resilience"
)

const (
	// ProviderName identifies this advisor backend.
	ProviderName = "advisor-remote"

	// DefaultBaseURL is the backend address used in local development.
	DefaultBaseURL = "http://127.0.0.1:5000"

	maxErrorBody = 4 << 10
)

// ClientConfig holds configuration for the remote advisor client.
type ClientConfig struct {
	// BaseURL is the backend base URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client talks to the remote prediction and advisory backend.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new remote advisor client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// StatusError is returned for non-2xx backend responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Message)
}

// Predict fetches the statistical model prediction for a state and soil pair.
// A 404 from the backend maps to advisor.ErrNoModelData.
func (c *Client) Predict(ctx context.Context, state, soil string) (*advisor.ModelPrediction, error) {
	var resp predictResponse
	err := c.post(ctx, "/predict", predictRequest{State: state, Soil: soil}, &resp, true)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w for %s with %s soil", advisor.ErrNoModelData, state, soil)
		}
		return nil, err
	}

	p := &advisor.ModelPrediction{
		State:       resp.State,
		Soil:        resp.Soil,
		Values:      resp.Prediction,
		Performance: resp.ModelPerformance,
		GeneratedAt: parseTimestamp(resp.Timestamp),
	}
	if p.State == "" {
		p.State = state
	}
	if p.Soil == "" {
		p.Soil = soil
	}

	p.FeatureImportance = make([]advisor.FeatureWeight, 0, len(resp.FeatureImportance))
	for name, weight := range resp.FeatureImportance {
		p.FeatureImportance = append(p.FeatureImportance, advisor.FeatureWeight{Name: name, Weight: weight})
	}
	sort.Slice(p.FeatureImportance, func(i, j int) bool {
		a, b := p.FeatureImportance[i], p.FeatureImportance[j]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.Name < b.Name
	})

	return p, nil
}

// Instructions asks the backend for cultivation instructions.
func (c *Client) Instructions(ctx context.Context, req advisor.InstructionsRequest) (*advisor.Instructions, error) {
	var resp instructionsResponse
	body := instructionsRequest{Prediction: req.Prediction, CropData: req.CropData}
	if err := c.post(ctx, "/instructions", body, &resp, false); err != nil {
		return nil, err
	}
	return &advisor.Instructions{
		Text:        resp.Instructions,
		GeneratedAt: parseTimestamp(resp.GeneratedAt),
	}, nil
}

// NewChat opens a chat session on the backend.
func (c *Client) NewChat(ctx context.Context) (*advisor.ChatSession, error) {
	var resp newChatResponse
	if err := c.post(ctx, "/chat/new", struct{}{}, &resp, false); err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		return nil, errors.New("backend returned empty session id")
	}
	return &advisor.ChatSession{
		ID:             resp.SessionID,
		WelcomeMessage: resp.WelcomeMessage,
		CreatedAt:      parseTimestamp(resp.Timestamp),
	}, nil
}

// Chat sends one message to a backend chat session.
func (c *Client) Chat(ctx context.Context, req advisor.ChatRequest) (*advisor.ChatReply, error) {
	var resp chatResponse
	body := chatRequest{Message: req.Message, SessionID: req.SessionID, Context: req.Context}
	if err := c.post(ctx, "/chat", body, &resp, false); err != nil {
		return nil, err
	}
	sessionID := resp.SessionID
	if sessionID == "" {
		sessionID = req.SessionID
	}
	return &advisor.ChatReply{
		SessionID:          sessionID,
		Response:           resp.Response,
		AgricultureRelated: resp.IsAgricultureRelated,
		Timestamp:          parseTimestamp(resp.Timestamp),
	}, nil
}

// post sends a JSON request. Only idempotent calls are retried; the others
// append to a chat history or run a generation on the backend.
func (c *Client) post(ctx context.Context, path string, in, out any, idempotent bool) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	do := c.httpClient.DoOnce
	if idempotent {
		do = c.httpClient.Do
	}
	resp, err := do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{StatusCode: resp.StatusCode}
		var e errorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if json.Unmarshal(raw, &e) == nil {
			se.Message = e.Error
		}
		c.logger.Debug().
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("error", se.Message).
			Msg("advisor backend returned error")
		return se
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// parseTimestamp accepts RFC 3339 and the zone-less ISO form the backend emits.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

var (
	_ advisor.Predictor = (*Client)(nil)
	_ advisor.Advisor   = (*Client)(nil)
)

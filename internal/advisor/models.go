// Package advisor integrates the statistical yield model and the conversational
// agricultural advisor that complement the local scoring engine.
package advisor

import (
	"context"
	"errors"
	"time"
)

// Errors returned by advisors and the advisor service.
var (
	// ErrNoModelData is returned when no model exists for a state and soil pair.
	ErrNoModelData = errors.New("insufficient model data")

	// ErrInvalidRequest is returned for malformed advisor requests.
	ErrInvalidRequest = errors.New("invalid advisor request")

	// ErrMessageTooLong is returned for chat messages over MaxMessageLength.
	ErrMessageTooLong = errors.New("message too long")

	// ErrDisabled is returned when the feature is switched off.
	ErrDisabled = errors.New("advisor feature disabled")

	// ErrUnavailable is returned when no advisor backend is configured or reachable.
	ErrUnavailable = errors.New("advisor unavailable")
)

// MaxMessageLength is the longest accepted chat message, in characters.
const MaxMessageLength = 1000

// ModelPerformance describes the fit of the statistical model.
type ModelPerformance struct {
	TrainScore  float64 `json:"train_score"`
	TestScore   float64 `json:"test_score"`
	SampleCount int     `json:"sample_count"`
}

// FeatureWeight is one feature's importance in the statistical model.
type FeatureWeight struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// ModelPrediction holds the statistical model's yield predictions (t/ha)
// for a state and soil pair.
type ModelPrediction struct {
	State  string
	Soil   string
	Values []float64

	// FeatureImportance is sorted by descending weight.
	FeatureImportance []FeatureWeight
	Performance       ModelPerformance
	GeneratedAt       time.Time
}

// CropData is the farm context sent along with advisory requests.
type CropData struct {
	State      string  `json:"state,omitempty"`
	Soil       string  `json:"soil,omitempty"`
	LandArea   float64 `json:"land_area,omitempty"`
	Irrigation string  `json:"irrigation,omitempty"`
	Fertilizer string  `json:"fertilizer,omitempty"`
}

// InstructionsRequest asks for cultivation instructions.
type InstructionsRequest struct {
	Prediction []float64
	CropData   CropData

	// Analysis is included in the prompt when available.
	Analysis *Analysis
}

// Instructions is free-text cultivation guidance.
type Instructions struct {
	Text        string
	GeneratedAt time.Time
}

// ChatSession is a conversation with the advisor.
type ChatSession struct {
	ID             string
	WelcomeMessage string
	CreatedAt      time.Time
}

// ChatRequest is one user message in a session.
type ChatRequest struct {
	SessionID string
	Message   string
	Context   CropData
}

// ChatReply is the advisor's answer to a ChatRequest.
type ChatReply struct {
	SessionID          string
	Response           string
	AgricultureRelated bool
	Timestamp          time.Time
}

// Predictor produces statistical yield predictions.
type Predictor interface {
	Predict(ctx context.Context, state, soil string) (*ModelPrediction, error)
}

// Advisor generates instructions and runs chat sessions.
type Advisor interface {
	Instructions(ctx context.Context, req InstructionsRequest) (*Instructions, error)
	NewChat(ctx context.Context) (*ChatSession, error)
	Chat(ctx context.Context, req ChatRequest) (*ChatReply, error)
}

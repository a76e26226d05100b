// Package assessment orchestrates a farm form submission: local scoring,
// growth timeline, statistical model and advisory text, and history.
package assessment

import (
	"time"

	"github.com/riceadvisor/riceadvisor/internal/advisor"
	"github.com/riceadvisor/riceadvisor/internal/timeline"
	"github.com/riceadvisor/riceadvisor/internal/yield"
)

// Fallback texts shown when instructions cannot be produced.
const (
	InstructionsUnavailable = "Instructions generation temporarily unavailable."
	InstructionsSkipped     = "Instructions require a model prediction for this state and soil type."
	InstructionsDisabled    = "Instructions generation is currently disabled."
)

// Submission is one farm form as entered by the farmer.
type Submission struct {
	FarmerName     string
	State          string
	LandArea       float64
	SoilType       string
	Terrain        string
	Irrigation     string
	FertilizerType string

	// FertilizerQuantity in kg/ha. When nil, the typical quantity for the
	// fertilizer type is used.
	FertilizerQuantity *float64

	SeedType     string
	PreviousCrop string
	PlantingDate time.Time

	// ChatSessionID links the assessment to an open advisor chat. Optional.
	ChatSessionID string
}

// Status describes how an advisory section was produced.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
	StatusDisabled    Status = "disabled"
	StatusNoData      Status = "no_data"
	StatusSkipped     Status = "skipped"
)

// ModelSection carries the statistical model prediction.
type ModelSection struct {
	Status     Status
	Prediction *advisor.ModelPrediction
	Analysis   *advisor.Analysis

	// Summary is the analysis rendered as text, empty without a prediction.
	Summary string
}

// InstructionsSection carries cultivation instructions or a fallback text.
type InstructionsSection struct {
	Status      Status
	Text        string
	GeneratedAt time.Time
}

// Result is the dashboard payload for one submission.
type Result struct {
	// RecordID is the history record id, empty when history recording is off.
	RecordID string

	Submission   Submission
	Conditions   yield.FarmConditions
	Prediction   *yield.Prediction
	Scores       yield.ConditionScores
	Timeline     *timeline.Timeline
	Model        ModelSection
	Instructions InstructionsSection
	AssessedAt   time.Time
}

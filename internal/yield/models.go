// Package yield implements the heuristic rice yield scoring engine.
//
// The engine maps a FarmConditions record to a Prediction using a fixed set of
// lookup tables: a soil base yield, multiplicative adjustments for terrain,
// irrigation, fertilizer, seed and previous crop, a capped fertilizer quantity
// bonus and a bounded random field-variability factor.
package yield

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidInput is returned when FarmConditions cannot be scored.
var ErrInvalidInput = errors.New("invalid farm conditions")

// FarmConditions describes a single field as entered by the farmer.
// It is constructed once per prediction request and never modified.
type FarmConditions struct {
	SoilType           string
	Terrain            string
	Irrigation         string
	FertilizerType     string
	FertilizerQuantity float64 // kg/ha
	SeedType           string
	PreviousCrop       string
	LandArea           float64 // hectares
	PlantingDate       time.Time
}

// ImpactTier ranks how much a recommendation is expected to move the yield.
type ImpactTier string

const (
	ImpactHigh   ImpactTier = "High"
	ImpactMedium ImpactTier = "Medium"
	ImpactLow    ImpactTier = "Low"
)

// Recommendation is a single improvement suggestion taken from the catalog.
type Recommendation struct {
	Key               string
	Text              string
	Impact            ImpactTier
	PotentialIncrease string // e.g. "15-25%"
	Investment        string
	Timeline          string
}

// Prediction is the result of scoring a FarmConditions record.
type Prediction struct {
	// PredictedYield in tons per hectare.
	PredictedYield float64

	// IdealYield is the theoretical maximum yield in tons per hectare.
	IdealYield float64

	// Efficiency is PredictedYield as a percentage of IdealYield, in [0, 100].
	Efficiency float64

	// TotalYield is PredictedYield multiplied by the land area, in tons.
	TotalYield float64

	ExpectedIncome  float64
	PotentialIncome float64

	// YieldGap is IdealYield minus PredictedYield. Negative when the
	// prediction exceeds the theoretical maximum.
	YieldGap float64

	// Confidence is a heuristic accuracy score in [60, 95].
	Confidence int

	// VariabilityFactor is the field-variability multiplier applied, in [0.95, 1.05].
	VariabilityFactor float64

	// Recommendations holds at most MaxRecommendations entries in rule order.
	Recommendations []Recommendation
}

// FieldError describes one invalid FarmConditions field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every invalid field of a FarmConditions record.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap allows errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

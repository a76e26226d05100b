package yield

import (
	"math"
	"strings"
)

// MaxRecommendations caps the recommendation list of a Prediction.
const MaxRecommendations = 5

const (
	minVariability   = 0.95
	variabilitySpan  = 0.10
	neutralFactor    = 1.0
	maxEfficiency    = 100.0
	baseConfidence   = 85
	minConfidence    = 60
	maxConfidence    = 95
	lowEfficiency    = 40.0
	mediumEfficiency = 70.0
)

// Engine scores farm conditions against a set of lookup tables.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	tables *Tables
	rnd    RandomSource
}

// NewEngine creates a scoring engine. A nil rnd uses DefaultRandomSource.
func NewEngine(tables *Tables, rnd RandomSource) *Engine {
	if rnd == nil {
		rnd = DefaultRandomSource()
	}
	return &Engine{tables: tables, rnd: rnd}
}

// Tables returns the lookup tables the engine scores against.
func (e *Engine) Tables() *Tables {
	return e.tables
}

// Predict scores c with a field-variability factor drawn from the engine's random source.
func (e *Engine) Predict(c FarmConditions) (*Prediction, error) {
	return e.PredictWithFactor(c, VariabilityFactor(e.rnd.Float64()))
}

// VariabilityFactor maps a uniform value in [0, 1) to a factor in [0.95, 1.05).
func VariabilityFactor(u float64) float64 {
	if math.IsNaN(u) {
		return neutralFactor
	}
	u = math.Max(0, math.Min(u, 1))
	return minVariability + u*variabilitySpan
}

// PredictWithFactor scores c using an explicit variability factor.
// Factors outside [0.95, 1.05] are clamped.
func (e *Engine) PredictWithFactor(c FarmConditions, factor float64) (*Prediction, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}

	if math.IsNaN(factor) {
		factor = neutralFactor
	}
	factor = math.Max(minVariability, math.Min(factor, minVariability+variabilitySpan))

	predicted := e.BaseYield(c) * factor
	ideal := e.tables.TheoreticalMaxYield
	efficiency := math.Min(predicted/ideal*100, maxEfficiency)

	price := e.tables.PricePerTon
	p := &Prediction{
		PredictedYield:    round(predicted, 2),
		IdealYield:        ideal,
		Efficiency:        round(efficiency, 1),
		TotalYield:        round(predicted*c.LandArea, 2),
		ExpectedIncome:    math.Round(predicted * c.LandArea * price),
		PotentialIncome:   math.Round(ideal * c.LandArea * price),
		YieldGap:          round(ideal-predicted, 2),
		Confidence:        Confidence(c),
		VariabilityFactor: factor,
		Recommendations:   e.Recommend(c, efficiency),
	}
	return p, nil
}

// BaseYield returns the deterministic yield in t/ha before field variability:
// soil base yield, the categorical multipliers and the fertilizer quantity bonus.
func (e *Engine) BaseYield(c FarmConditions) float64 {
	t := e.tables

	y := t.SoilBaseYields.Lookup(c.SoilType, t.DefaultBaseYield)
	y *= t.TerrainMultipliers.Lookup(c.Terrain, 1.0)
	y *= t.IrrigationMultipliers.Lookup(c.Irrigation, 1.0)
	y *= t.FertilizerMultipliers.Lookup(c.FertilizerType, 1.0)
	y *= t.SeedMultipliers.Lookup(c.SeedType, 1.0)
	y *= t.PreviousCropMultipliers.Lookup(c.PreviousCrop, 1.0)

	b := t.FertilizerBonus
	bonus := math.Min(c.FertilizerQuantity/b.ReferenceQuantity*b.Rate, b.Cap)
	return y * (1 + bonus)
}

// Validate checks the numeric fields of c. Categorical fields are never
// rejected; unknown values fall back to neutral defaults when scored.
func Validate(c FarmConditions) error {
	var fields []FieldError
	switch {
	case math.IsNaN(c.LandArea) || math.IsInf(c.LandArea, 0):
		fields = append(fields, FieldError{Field: "landArea", Message: "must be a finite number"})
	case c.LandArea <= 0:
		fields = append(fields, FieldError{Field: "landArea", Message: "must be greater than 0"})
	}
	switch {
	case math.IsNaN(c.FertilizerQuantity) || math.IsInf(c.FertilizerQuantity, 0):
		fields = append(fields, FieldError{Field: "fertilizerQuantity", Message: "must be a finite number"})
	case c.FertilizerQuantity < 0:
		fields = append(fields, FieldError{Field: "fertilizerQuantity", Message: "must not be negative"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Confidence returns the heuristic accuracy score for c, clamped to [60, 95].
func Confidence(c FarmConditions) int {
	score := baseConfidence

	switch {
	case is(c.Irrigation, "Drip"):
		score += 5
	case is(c.Irrigation, "Rain-fed"):
		score -= 10
	}
	if is(c.SeedType, "Hybrid") {
		score += 3
	}
	switch {
	case is(c.FertilizerType, "None"):
		score -= 8
	case is(c.FertilizerType, "NPK"):
		score += 2
	}
	switch {
	case is(c.SoilType, "Loam"):
		score += 3
	case is(c.SoilType, "Sandy"):
		score -= 5
	}

	return max(minConfidence, min(score, maxConfidence))
}

// Recommend evaluates the recommendation rules in fixed order, appends the
// efficiency tier message when it applies, and truncates to MaxRecommendations.
func (e *Engine) Recommend(c FarmConditions, efficiency float64) []Recommendation {
	ideal := e.tables.Ideal

	var keys []string
	if !is(c.SoilType, ideal.SoilType) {
		keys = append(keys, RecSoilImprovement)
	}
	if !is(c.Irrigation, ideal.Irrigation) {
		keys = append(keys, RecIrrigationUpgrade)
	}
	if !is(c.SeedType, ideal.SeedType) {
		keys = append(keys, RecHybridSeeds)
	}
	if !is(c.FertilizerType, ideal.FertilizerType) || c.FertilizerQuantity < ideal.MinFertilizerQuantity {
		keys = append(keys, RecFertilizerOptimization)
	}
	if ideal.RotationPenaltyCrop != "" && is(c.PreviousCrop, ideal.RotationPenaltyCrop) {
		keys = append(keys, RecCropRotation)
	}

	switch {
	case efficiency < lowEfficiency:
		keys = append(keys, RecExtensionServices)
	case efficiency < mediumEfficiency:
		keys = append(keys, RecPrecisionAgriculture)
	}

	if len(keys) > MaxRecommendations {
		keys = keys[:MaxRecommendations]
	}

	recs := make([]Recommendation, 0, len(keys))
	for _, k := range keys {
		entry := e.tables.Recommendations[k]
		recs = append(recs, Recommendation{
			Key:               k,
			Text:              entry.Description,
			Impact:            entry.Impact,
			PotentialIncrease: entry.PotentialIncrease,
			Investment:        entry.Investment,
			Timeline:          entry.Timeline,
		})
	}
	return recs
}

func is(value, want string) bool {
	return strings.EqualFold(strings.TrimSpace(value), want)
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

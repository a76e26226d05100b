package yield

import "math"

const maxFertilizerQuantityFactor = 1.5

// ConditionScores rates each farm dimension on a 0-100 scale.
type ConditionScores struct {
	SoilQuality  float64
	Irrigation   float64
	Terrain      float64
	Fertilizer   float64
	SeedQuality  float64
	CropRotation float64
}

// ConditionScores rates c against the condition score tables.
// The fertilizer score is scaled by the applied quantity relative to the
// reference quantity, up to 1.5x, and is zero when no fertilizer is used.
func (e *Engine) ConditionScores(c FarmConditions) ConditionScores {
	st := e.tables.ConditionScores

	return ConditionScores{
		SoilQuality:  st.Soil.Score(c.SoilType),
		Irrigation:   st.Irrigation.Score(c.Irrigation),
		Terrain:      st.Terrain.Score(c.Terrain),
		Fertilizer:   e.fertilizerScore(c),
		SeedQuality:  st.Seed.Score(c.SeedType),
		CropRotation: st.CropRotation.Score(c.PreviousCrop),
	}
}

func (e *Engine) fertilizerScore(c FarmConditions) float64 {
	if is(c.FertilizerType, "None") {
		return 0
	}
	base := e.tables.ConditionScores.Fertilizer.Score(c.FertilizerType)
	ref := e.tables.FertilizerBonus.ReferenceQuantity
	qf := math.Min(math.Max(c.FertilizerQuantity, 0)/ref, maxFertilizerQuantityFactor)
	return round(math.Min(base*qf, 100), 1)
}

package models

// FarmInput describes a field as entered on the assessment form.
type FarmInput struct {
	SoilType         string  `json:"soilType"`
	TerrainType      string  `json:"terrainType"`
	IrrigationMethod string  `json:"irrigationMethod"`
	FertilizerType   string  `json:"fertilizerType"`
	LandArea         float64 `json:"landArea"`
	SeedType         string  `json:"seedType"`
	PreviousCrop     string  `json:"previousCrop"`

	// FertilizerQuantity in kg/ha. Omitted means the typical quantity for the type.
	FertilizerQuantity *float64 `json:"fertilizerQuantity,omitempty"`
}

// PredictionRequest is the body of POST /v1/predictions.
type PredictionRequest struct {
	FarmInput

	// PlantingDate is optional; when present the timeline is included.
	PlantingDate string `json:"plantingDate,omitempty"`

	// VariabilityFactor pins the field-variability factor, clamped to [0.95, 1.05].
	VariabilityFactor *float64 `json:"variabilityFactor,omitempty"`
}

// Recommendation is one improvement suggestion.
type Recommendation struct {
	Key               string `json:"key"`
	Text              string `json:"text"`
	Impact            string `json:"impact"`
	PotentialIncrease string `json:"potentialIncrease"`
	Investment        string `json:"investment"`
	Timeline          string `json:"timeline"`
}

// Prediction is the scoring engine output.
type Prediction struct {
	PredictedYield    float64          `json:"predictedYield"`
	IdealYield        float64          `json:"idealYield"`
	Efficiency        float64          `json:"efficiency"`
	TotalYield        float64          `json:"totalYield"`
	ExpectedIncome    float64          `json:"expectedIncome"`
	PotentialIncome   float64          `json:"potentialIncome"`
	YieldGap          float64          `json:"yieldGap"`
	Confidence        int              `json:"confidence"`
	VariabilityFactor float64          `json:"variabilityFactor"`
	Recommendations   []Recommendation `json:"recommendations"`
}

// ConditionScores rates each farm dimension on a 0-100 scale.
type ConditionScores struct {
	SoilQuality  float64 `json:"soilQuality"`
	Irrigation   float64 `json:"irrigation"`
	Terrain      float64 `json:"terrain"`
	Fertilizer   float64 `json:"fertilizer"`
	SeedQuality  float64 `json:"seedQuality"`
	CropRotation float64 `json:"cropRotation"`
}

// PredictionResponse is the response of POST /v1/predictions.
type PredictionResponse struct {
	Prediction Prediction      `json:"prediction"`
	Scores     ConditionScores `json:"scores"`

	// FertilizerQuantity is the quantity actually scored, in kg/ha.
	FertilizerQuantity float64   `json:"fertilizerQuantity"`
	Timeline           *Timeline `json:"timeline,omitempty"`
}

package models

// AssessmentRequest is the body of POST /v1/assessments.
type AssessmentRequest struct {
	FarmInput

	FarmerName    string `json:"farmerName"`
	State         string `json:"state"`
	PlantingDate  string `json:"plantingDate"`
	ChatSessionID string `json:"chatSessionId,omitempty"`
}

// FeatureWeight is one feature's importance in the statistical model.
type FeatureWeight struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// ModelAnalysis summarizes the statistical model prediction.
type ModelAnalysis struct {
	Min         float64  `json:"min"`
	Max         float64  `json:"max"`
	Mean        float64  `json:"mean"`
	Accuracy    float64  `json:"accuracy"`
	SampleCount int      `json:"sampleCount"`
	TopFactors  []string `json:"topFactors"`
	Summary     string   `json:"summary"`
}

// ModelSection is the statistical model part of an assessment.
type ModelSection struct {
	Status            string          `json:"status"`
	Values            []float64       `json:"values,omitempty"`
	FeatureImportance []FeatureWeight `json:"featureImportance,omitempty"`
	Analysis          *ModelAnalysis  `json:"analysis,omitempty"`
}

// InstructionsSection carries cultivation instructions or a fallback text.
type InstructionsSection struct {
	Status      string     `json:"status"`
	Text        string     `json:"text"`
	GeneratedAt *Timestamp `json:"generatedAt,omitempty"`
}

// AssessmentResponse is the dashboard payload for one submission.
type AssessmentResponse struct {
	RecordID      string              `json:"recordId,omitempty"`
	FarmerName    string              `json:"farmerName"`
	State         string              `json:"state"`
	ChatSessionID string              `json:"chatSessionId,omitempty"`
	Prediction    Prediction          `json:"prediction"`
	Scores        ConditionScores     `json:"scores"`
	Timeline      Timeline            `json:"timeline"`
	Model         ModelSection        `json:"model"`
	Instructions  InstructionsSection `json:"instructions"`
	AssessedAt    Timestamp           `json:"assessedAt"`
}

package remote

import "github.com/riceadvisor/riceadvisor/internal/advisor"

// Backend wire types.

type predictRequest struct {
	State string `json:"state"`
	Soil  string `json:"soil"`
}

type predictResponse struct {
	Prediction        []float64                `json:"prediction"`
	ModelPerformance  advisor.ModelPerformance `json:"model_performance"`
	FeatureImportance map[string]float64       `json:"feature_importance"`
	State             string                   `json:"state"`
	Soil              string                   `json:"soil"`
	Timestamp         string                   `json:"timestamp"`
}

type instructionsRequest struct {
	Prediction []float64        `json:"prediction"`
	CropData   advisor.CropData `json:"crop_data"`
}

type instructionsResponse struct {
	Instructions string `json:"instructions"`
	GeneratedAt  string `json:"generated_at"`
}

type newChatResponse struct {
	SessionID      string `json:"session_id"`
	WelcomeMessage string `json:"welcome_message"`
	Timestamp      string `json:"timestamp"`
}

type chatRequest struct {
	Message   string           `json:"message"`
	SessionID string           `json:"session_id"`
	Context   advisor.CropData `json:"context"`
}

type chatResponse struct {
	Response             string `json:"response"`
	SessionID            string `json:"session_id"`
	Timestamp            string `json:"timestamp"`
	IsAgricultureRelated bool   `json:"is_agriculture_related"`
}

type errorResponse struct {
	Error string `json:"error"`
}

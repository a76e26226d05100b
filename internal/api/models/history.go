package models

// HistoryRecord is one past prediction.
type HistoryRecord struct {
	ID                 string    `json:"id"`
	Sequence           int64     `json:"sequence"`
	FarmerName         string    `json:"farmerName"`
	State              string    `json:"state,omitempty"`
	PlantingDate       Date      `json:"plantingDate"`
	LandArea           float64   `json:"landArea"`
	SoilType           string    `json:"soilType"`
	TerrainType        string    `json:"terrainType"`
	IrrigationMethod   string    `json:"irrigationMethod"`
	FertilizerType     string    `json:"fertilizerType"`
	FertilizerQuantity float64   `json:"fertilizerQuantity"`
	SeedType           string    `json:"seedType"`
	PreviousCrop       string    `json:"previousCrop"`
	PredictedYield     float64   `json:"predictedYield"`
	Efficiency         float64   `json:"efficiency"`
	Income             float64   `json:"income"`
	HarvestDate        Date      `json:"harvestDate"`
	CreatedAt          Timestamp `json:"createdAt"`
}

// HistoryList is the response of GET /v1/history.
type HistoryList struct {
	Items []HistoryRecord `json:"items"`
	Total int             `json:"total"`
}

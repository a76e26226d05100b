package models

// TimelineRequest is the body of POST /v1/timeline.
type TimelineRequest struct {
	PlantingDate string `json:"plantingDate"`

	// AsOf overrides the reference date. Defaults to today.
	AsOf string `json:"asOf,omitempty"`
}

// Stage is a growing stage with its display status.
type Stage struct {
	Name        string `json:"name"`
	StartDay    int    `json:"startDay"`
	EndDay      int    `json:"endDay"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
}

// Timeline is the growth state of a field.
type Timeline struct {
	PlantingDate     Date    `json:"plantingDate"`
	AsOf             Date    `json:"asOf"`
	Stage            string  `json:"stage"`
	StageDescription string  `json:"stageDescription"`
	StageProgress    float64 `json:"stageProgress"`
	DaysElapsed      int     `json:"daysElapsed"`
	DaysToHarvest    int     `json:"daysToHarvest"`
	HarvestDate      Date    `json:"harvestDate"`
	Stages           []Stage `json:"stages"`
}

package models

// FormOptions lists the categorical values accepted by the form, the typical
// fertilizer quantities in kg/ha and the growing stages.
type FormOptions struct {
	SoilTypes                   []string           `json:"soilTypes"`
	TerrainTypes                []string           `json:"terrainTypes"`
	IrrigationMethods           []string           `json:"irrigationMethods"`
	FertilizerTypes             []string           `json:"fertilizerTypes"`
	SeedTypes                   []string           `json:"seedTypes"`
	PreviousCrops               []string           `json:"previousCrops"`
	TypicalFertilizerQuantities map[string]float64 `json:"typicalFertilizerQuantities"`
	Stages                      []Stage            `json:"stages"`
	SortFields                  []string           `json:"sortFields"`
}

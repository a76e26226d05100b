package handler

import (
	"net/http"

	"github.com/riceadvisor/riceadvisor/internal/api/models"
	"github.com/riceadvisor/riceadvisor/internal/api/response"
	"github.com/riceadvisor/riceadvisor/internal/history"
	"github.com/riceadvisor/riceadvisor/internal/timeline"
	"github.com/riceadvisor/riceadvisor/internal/yield"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct {
	options models.FormOptions
}

// NewMetadataHandler creates a new MetadataHandler. The tables are immutable,
// so the options are built once.
func NewMetadataHandler(tables *yield.Tables) *MetadataHandler {
	opts := tables.Options()

	typical := make(map[string]float64, len(opts.FertilizerTypes))
	for _, f := range opts.FertilizerTypes {
		if q, ok := tables.TypicalFertilizerQuantity(f); ok {
			typical[f] = q
		}
	}

	var stages []models.Stage
	for _, s := range timeline.Stages() {
		stages = append(stages, models.Stage{
			Name:        string(s.Stage),
			StartDay:    s.StartDay,
			EndDay:      s.EndDay,
			Description: s.Description,
		})
	}

	return &MetadataHandler{options: models.FormOptions{
		SoilTypes:                   opts.SoilTypes,
		TerrainTypes:                opts.Terrains,
		IrrigationMethods:           opts.IrrigationTypes,
		FertilizerTypes:             opts.FertilizerTypes,
		SeedTypes:                   opts.SeedTypes,
		PreviousCrops:               opts.PreviousCrops,
		TypicalFertilizerQuantities: typical,
		Stages:                      stages,
		SortFields: []string{
			string(history.SortDate),
			string(history.SortFarmerName),
			string(history.SortYield),
			string(history.SortIncome),
		},
	}}
}

// GetOptions handles GET /v1/metadata/options - form options.
func (h *MetadataHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.options)
}

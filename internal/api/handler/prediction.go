package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/riceadvisor/riceadvisor/internal/api/models"
	"github.com/riceadvisor/riceadvisor/internal/api/response"
	"github.com/riceadvisor/riceadvisor/internal/timeline"
	"github.com/riceadvisor/riceadvisor/internal/yield"
)

// PredictionHandler runs the scoring engine without the advisory backend.
type PredictionHandler struct {
	engine *yield.Engine
	now    func() time.Time
}

// NewPredictionHandler creates a new PredictionHandler. A nil now uses time.Now.
func NewPredictionHandler(engine *yield.Engine, now func() time.Time) *PredictionHandler {
	if now == nil {
		now = time.Now
	}
	return &PredictionHandler{engine: engine, now: now}
}

// CreatePrediction handles POST /v1/predictions - score farm conditions.
func (h *PredictionHandler) CreatePrediction(w http.ResponseWriter, r *http.Request) {
	var input models.PredictionRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	c := farmConditions(h.engine.Tables(), input.FarmInput)

	var tl *timeline.Timeline
	if input.PlantingDate != "" {
		planted, err := timeline.ParseDate(input.PlantingDate)
		if err == nil {
			tl, err = timeline.Compute(planted, h.now())
		}
		if err != nil {
			fieldError(w, r, "plantingDate", err)
			return
		}
		c.PlantingDate = planted
	}

	var (
		p   *yield.Prediction
		err error
	)
	if input.VariabilityFactor != nil {
		p, err = h.engine.PredictWithFactor(c, *input.VariabilityFactor)
	} else {
		p, err = h.engine.Predict(c)
	}
	if err != nil {
		var ve *yield.ValidationError
		if errors.As(err, &ve) {
			validationFailed(w, r, ve)
			return
		}
		response.InternalError(w, r, "failed to score farm conditions")
		return
	}

	out := models.PredictionResponse{
		Prediction:         toPrediction(p),
		Scores:             toScores(h.engine.ConditionScores(c)),
		FertilizerQuantity: c.FertilizerQuantity,
	}
	if tl != nil {
		t := toTimeline(tl)
		out.Timeline = &t
	}
	response.JSON(w, r, http.StatusOK, out)
}

// farmConditions builds the engine input, substituting the typical
// fertilizer quantity when none was given.
func farmConditions(tables *yield.Tables, in models.FarmInput) yield.FarmConditions {
	quantity := 0.0
	if in.FertilizerQuantity != nil {
		quantity = *in.FertilizerQuantity
	} else if typical, ok := tables.TypicalFertilizerQuantity(in.FertilizerType); ok {
		quantity = typical
	}
	return yield.FarmConditions{
		SoilType:           strings.TrimSpace(in.SoilType),
		Terrain:            strings.TrimSpace(in.TerrainType),
		Irrigation:         strings.TrimSpace(in.IrrigationMethod),
		FertilizerType:     strings.TrimSpace(in.FertilizerType),
		FertilizerQuantity: quantity,
		SeedType:           strings.TrimSpace(in.SeedType),
		PreviousCrop:       strings.TrimSpace(in.PreviousCrop),
		LandArea:           in.LandArea,
	}
}

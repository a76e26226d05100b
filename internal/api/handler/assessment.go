package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/riceadvisor/riceadvisor/internal/api/models"
	"github.com/riceadvisor/riceadvisor/internal/api/response"
	"github.com/riceadvisor/riceadvisor/internal/assessment"
	"github.com/riceadvisor/riceadvisor/internal/timeline"
	"github.com/riceadvisor/riceadvisor/internal/yield"
)

// Assessor runs form assessments. *assessment.Service implements it.
type Assessor interface {
	Assess(ctx context.Context, sub assessment.Submission) (*assessment.Result, error)
}

// AssessmentHandler handles form submissions.
type AssessmentHandler struct {
	service Assessor
	logger  zerolog.Logger
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(service Assessor, logger zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{service: service, logger: logger}
}

// CreateAssessment handles POST /v1/assessments - score a farm form and
// return the dashboard payload.
func (h *AssessmentHandler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	var input models.AssessmentRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	sub := assessment.Submission{
		FarmerName:         strings.TrimSpace(input.FarmerName),
		State:              strings.TrimSpace(input.State),
		LandArea:           input.LandArea,
		SoilType:           input.SoilType,
		Terrain:            input.TerrainType,
		Irrigation:         input.IrrigationMethod,
		FertilizerType:     input.FertilizerType,
		FertilizerQuantity: input.FertilizerQuantity,
		SeedType:           input.SeedType,
		PreviousCrop:       input.PreviousCrop,
		ChatSessionID:      input.ChatSessionID,
	}
	if input.PlantingDate != "" {
		planted, err := timeline.ParseDate(input.PlantingDate)
		if err != nil {
			fieldError(w, r, "plantingDate", err)
			return
		}
		sub.PlantingDate = planted
	}

	result, err := h.service.Assess(r.Context(), sub)
	if err != nil {
		var ve *yield.ValidationError
		if errors.As(err, &ve) {
			validationFailed(w, r, ve)
			return
		}
		h.logger.Error().Err(err).Msg("assessment failed")
		response.InternalError(w, r, "failed to assess farm conditions")
		return
	}

	out := models.AssessmentResponse{
		RecordID:      result.RecordID,
		FarmerName:    result.Submission.FarmerName,
		State:         result.Submission.State,
		ChatSessionID: result.Submission.ChatSessionID,
		Prediction:    toPrediction(result.Prediction),
		Scores:        toScores(result.Scores),
		Timeline:      toTimeline(result.Timeline),
		Model: toModelSection(string(result.Model.Status), result.Model.Prediction,
			result.Model.Analysis, result.Model.Summary),
		Instructions: models.InstructionsSection{
			Status:      string(result.Instructions.Status),
			Text:        result.Instructions.Text,
			GeneratedAt: models.TimestampPtr(&result.Instructions.GeneratedAt),
		},
		AssessedAt: models.Timestamp(result.AssessedAt),
	}
	response.JSON(w, r, http.StatusOK, out)
}

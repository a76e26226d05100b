package assessment

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/riceadvisor/riceadvisor/internal/advisor"
	"github.com/riceadvisor/riceadvisor/internal/featureflags"
	"github.com/riceadvisor/riceadvisor/internal/history"
	"github.com/riceadvisor/riceadvisor/internal/timeline"
	"github.com/riceadvisor/riceadvisor/internal/yield"
)

// Advisory is the statistical model and instruction source. *advisor.Service implements it.
type Advisory interface {
	Predict(ctx context.Context, state, soil string) (*advisor.ModelPrediction, error)
	Instructions(ctx context.Context, req advisor.InstructionsRequest) (*advisor.Instructions, error)
}

// Recorder appends assessments to the history log. *history.Service implements it.
type Recorder interface {
	Record(ctx context.Context, rec history.Record) (*history.Record, error)
}

// ServiceConfig holds configuration for the assessment service.
type ServiceConfig struct {
	Engine *yield.Engine

	// Advisory is optional; without it the model and instruction sections are unavailable.
	Advisory Advisory

	// History is optional; without it assessments are not recorded.
	History Recorder

	// Flags gates runtime behaviour. Optional.
	Flags advisor.FlagSource

	// AdvisoryTimeout bounds the remote calls of one assessment (default: 30 seconds).
	AdvisoryTimeout time.Duration

	Logger zerolog.Logger

	// Now returns the current time (default: time.Now).
	Now func() time.Time
}

// Service runs assessments.
type Service struct {
	engine          *yield.Engine
	advisory        Advisory
	history         Recorder
	flags           advisor.FlagSource
	advisoryTimeout time.Duration
	logger          zerolog.Logger
	now             func() time.Time
}

// NewService creates a new assessment service.
func NewService(cfg ServiceConfig) *Service {
	timeout := cfg.AdvisoryTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		engine:          cfg.Engine,
		advisory:        cfg.Advisory,
		history:         cfg.History,
		flags:           cfg.Flags,
		advisoryTimeout: timeout,
		logger:          cfg.Logger,
		now:             now,
	}
}

func (s *Service) enabled(ctx context.Context, key string) bool {
	return s.flags != nil && s.flags.IsEnabled(ctx, key)
}

// Assess validates sub and produces the dashboard payload. Local scoring and
// the timeline always succeed for a valid submission; the model and
// instruction sections degrade to a status and fallback text when the
// advisory backend fails. Invalid submissions return a *yield.ValidationError.
func (s *Service) Assess(ctx context.Context, sub Submission) (*Result, error) {
	now := s.now()

	conditions, err := s.conditions(sub)
	if err != nil {
		return nil, err
	}

	var prediction *yield.Prediction
	if s.enabled(ctx, featureflags.FlagFixedFieldVariability) {
		prediction, err = s.engine.PredictWithFactor(conditions, 1)
	} else {
		prediction, err = s.engine.Predict(conditions)
	}
	if err != nil {
		return nil, err
	}

	tl, err := timeline.Compute(sub.PlantingDate, now)
	if err != nil {
		return nil, &yield.ValidationError{Fields: []yield.FieldError{{Field: "plantingDate", Message: err.Error()}}}
	}

	result := &Result{
		Submission: sub,
		Conditions: conditions,
		Prediction: prediction,
		Scores:     s.engine.ConditionScores(conditions),
		Timeline:   tl,
		AssessedAt: now.UTC(),
	}

	actx, cancel := context.WithTimeout(ctx, s.advisoryTimeout)
	defer cancel()
	result.Model = s.model(actx, sub)
	result.Instructions = s.instructions(actx, sub, result.Model)

	if s.history != nil && !s.enabled(ctx, featureflags.FlagDisableHistoryRecording) {
		rec, err := s.history.Record(ctx, toRecord(sub, conditions, prediction, tl))
		if err != nil {
			s.logger.Error().Err(err).Str("farmer", sub.FarmerName).Msg("failed to record assessment")
		} else {
			result.RecordID = rec.ID
		}
	}

	s.logger.Info().
		Str("state", sub.State).
		Str("soil", sub.SoilType).
		Float64("predicted_yield", prediction.PredictedYield).
		Float64("efficiency", prediction.Efficiency).
		Str("model_status", string(result.Model.Status)).
		Str("instructions_status", string(result.Instructions.Status)).
		Msg("assessment completed")

	return result, nil
}

// conditions checks the required form fields and builds the scoring input.
func (s *Service) conditions(sub Submission) (yield.FarmConditions, error) {
	var fields []yield.FieldError
	required := []struct {
		field string
		value string
	}{
		{"farmerName", sub.FarmerName},
		{"state", sub.State},
		{"soilType", sub.SoilType},
		{"terrainType", sub.Terrain},
		{"irrigationMethod", sub.Irrigation},
		{"fertilizerType", sub.FertilizerType},
		{"seedType", sub.SeedType},
		{"previousCrop", sub.PreviousCrop},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			fields = append(fields, yield.FieldError{Field: r.field, Message: "is required"})
		}
	}
	if sub.PlantingDate.IsZero() {
		fields = append(fields, yield.FieldError{Field: "plantingDate", Message: "is required"})
	}

	quantity := 0.0
	if sub.FertilizerQuantity != nil {
		quantity = *sub.FertilizerQuantity
	} else if typical, ok := s.engine.Tables().TypicalFertilizerQuantity(sub.FertilizerType); ok {
		quantity = typical
	}

	c := yield.FarmConditions{
		SoilType:           strings.TrimSpace(sub.SoilType),
		Terrain:            strings.TrimSpace(sub.Terrain),
		Irrigation:         strings.TrimSpace(sub.Irrigation),
		FertilizerType:     strings.TrimSpace(sub.FertilizerType),
		FertilizerQuantity: quantity,
		SeedType:           strings.TrimSpace(sub.SeedType),
		PreviousCrop:       strings.TrimSpace(sub.PreviousCrop),
		LandArea:           sub.LandArea,
		PlantingDate:       sub.PlantingDate,
	}

	var ve *yield.ValidationError
	if err := yield.Validate(c); errors.As(err, &ve) {
		fields = append(fields, ve.Fields...)
	}
	if len(fields) > 0 {
		return c, &yield.ValidationError{Fields: fields}
	}
	return c, nil
}

func (s *Service) model(ctx context.Context, sub Submission) ModelSection {
	if s.advisory == nil {
		return ModelSection{Status: StatusUnavailable}
	}

	p, err := s.advisory.Predict(ctx, sub.State, sub.SoilType)
	switch {
	case err == nil:
		a := advisor.Analyze(p)
		section := ModelSection{Status: StatusOK, Prediction: p, Analysis: a}
		if a != nil {
			section.Summary = a.Summary()
		}
		return section
	case errors.Is(err, advisor.ErrNoModelData):
		return ModelSection{Status: StatusNoData}
	case errors.Is(err, advisor.ErrDisabled):
		return ModelSection{Status: StatusDisabled}
	default:
		s.logger.Warn().Err(err).
			Str("state", sub.State).
			Str("soil", sub.SoilType).
			Msg("model prediction unavailable")
		return ModelSection{Status: StatusUnavailable}
	}
}

func (s *Service) instructions(ctx context.Context, sub Submission, model ModelSection) InstructionsSection {
	if model.Prediction == nil || len(model.Prediction.Values) == 0 {
		return InstructionsSection{Status: StatusSkipped, Text: InstructionsSkipped}
	}

	out, err := s.advisory.Instructions(ctx, advisor.InstructionsRequest{
		Prediction: model.Prediction.Values,
		CropData: advisor.CropData{
			State:      sub.State,
			Soil:       sub.SoilType,
			LandArea:   sub.LandArea,
			Irrigation: sub.Irrigation,
			Fertilizer: sub.FertilizerType,
		},
		Analysis: model.Analysis,
	})
	switch {
	case err == nil && strings.TrimSpace(out.Text) != "":
		return InstructionsSection{Status: StatusOK, Text: out.Text, GeneratedAt: out.GeneratedAt}
	case errors.Is(err, advisor.ErrDisabled):
		return InstructionsSection{Status: StatusDisabled, Text: InstructionsDisabled}
	default:
		if err != nil {
			s.logger.Warn().Err(err).Msg("instructions unavailable")
		}
		return InstructionsSection{Status: StatusUnavailable, Text: InstructionsUnavailable}
	}
}

func toRecord(sub Submission, c yield.FarmConditions, p *yield.Prediction, tl *timeline.Timeline) history.Record {
	return history.Record{
		FarmerName:         strings.TrimSpace(sub.FarmerName),
		State:              strings.TrimSpace(sub.State),
		PlantingDate:       sub.PlantingDate,
		LandArea:           c.LandArea,
		SoilType:           c.SoilType,
		Terrain:            c.Terrain,
		Irrigation:         c.Irrigation,
		FertilizerType:     c.FertilizerType,
		FertilizerQuantity: c.FertilizerQuantity,
		SeedType:           c.SeedType,
		PreviousCrop:       c.PreviousCrop,
		PredictedYield:     p.PredictedYield,
		Efficiency:         p.Efficiency,
		Income:             math.Round(p.ExpectedIncome),
		HarvestDate:        tl.HarvestDate,
	}
}

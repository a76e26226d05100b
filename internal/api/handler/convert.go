package handler

import (
	"github.com/riceadvisor/riceadvisor/internal/advisor"
	"github.com/riceadvisor/riceadvisor/internal/api/models"
	"github.com/riceadvisor/riceadvisor/internal/history"
	"github.com/riceadvisor/riceadvisor/internal/timeline"
	"github.com/riceadvisor/riceadvisor/internal/yield"
)

func toPrediction(p *yield.Prediction) models.Prediction {
	recs := make([]models.Recommendation, 0, len(p.Recommendations))
	for _, r := range p.Recommendations {
		recs = append(recs, models.Recommendation{
			Key:               r.Key,
			Text:              r.Text,
			Impact:            string(r.Impact),
			PotentialIncrease: r.PotentialIncrease,
			Investment:        r.Investment,
			Timeline:          r.Timeline,
		})
	}
	return models.Prediction{
		PredictedYield:    p.PredictedYield,
		IdealYield:        p.IdealYield,
		Efficiency:        p.Efficiency,
		TotalYield:        p.TotalYield,
		ExpectedIncome:    p.ExpectedIncome,
		PotentialIncome:   p.PotentialIncome,
		YieldGap:          p.YieldGap,
		Confidence:        p.Confidence,
		VariabilityFactor: p.VariabilityFactor,
		Recommendations:   recs,
	}
}

func toScores(s yield.ConditionScores) models.ConditionScores {
	return models.ConditionScores{
		SoilQuality:  s.SoilQuality,
		Irrigation:   s.Irrigation,
		Terrain:      s.Terrain,
		Fertilizer:   s.Fertilizer,
		SeedQuality:  s.SeedQuality,
		CropRotation: s.CropRotation,
	}
}

func toTimeline(t *timeline.Timeline) models.Timeline {
	statuses := t.StageStatuses()
	stages := make([]models.Stage, 0, len(statuses))
	for _, s := range statuses {
		stages = append(stages, models.Stage{
			Name:        string(s.Stage),
			StartDay:    s.StartDay,
			EndDay:      s.EndDay,
			Description: s.Description,
			Status:      string(s.Status),
		})
	}
	return models.Timeline{
		PlantingDate:     models.Date(t.PlantingDate),
		AsOf:             models.Date(t.AsOf),
		Stage:            string(t.Stage),
		StageDescription: timeline.Describe(t.Stage),
		StageProgress:    t.StageProgress,
		DaysElapsed:      t.DaysElapsed,
		DaysToHarvest:    t.DaysToHarvest,
		HarvestDate:      models.Date(t.HarvestDate),
		Stages:           stages,
	}
}

func toHistoryRecord(rec *history.Record) models.HistoryRecord {
	return models.HistoryRecord{
		ID:                 rec.ID,
		Sequence:           rec.Sequence,
		FarmerName:         rec.FarmerName,
		State:              rec.State,
		PlantingDate:       models.Date(rec.PlantingDate),
		LandArea:           rec.LandArea,
		SoilType:           rec.SoilType,
		TerrainType:        rec.Terrain,
		IrrigationMethod:   rec.Irrigation,
		FertilizerType:     rec.FertilizerType,
		FertilizerQuantity: rec.FertilizerQuantity,
		SeedType:           rec.SeedType,
		PreviousCrop:       rec.PreviousCrop,
		PredictedYield:     rec.PredictedYield,
		Efficiency:         rec.Efficiency,
		Income:             rec.Income,
		HarvestDate:        models.Date(rec.HarvestDate),
		CreatedAt:          models.Timestamp(rec.CreatedAt),
	}
}

func toModelSection(status string, p *advisor.ModelPrediction, a *advisor.Analysis, summary string) models.ModelSection {
	section := models.ModelSection{Status: status}
	if p != nil {
		section.Values = p.Values
		for _, f := range p.FeatureImportance {
			section.FeatureImportance = append(section.FeatureImportance, models.FeatureWeight{Name: f.Name, Weight: f.Weight})
		}
	}
	if a != nil {
		section.Analysis = &models.ModelAnalysis{
			Min:         a.Min,
			Max:         a.Max,
			Mean:        a.Mean,
			Accuracy:    a.Accuracy,
			SampleCount: a.SampleCount,
			TopFactors:  a.TopFactors,
			Summary:     summary,
		}
	}
	return section
}

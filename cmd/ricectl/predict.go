package main

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/riceadvisor/riceadvisor/internal/timeline"
	"github.com/riceadvisor/riceadvisor/internal/yield"
)

var predictOpts struct {
	tablesPath   string
	soil         string
	terrain      string
	irrigation   string
	fertilizer   string
	quantity     float64
	seed         string
	previousCrop string
	landArea     float64
	factor       float64
}

// predictCmd scores farm conditions with the local engine
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score farm conditions with the local yield engine",
	Long: `Score a field with the local yield engine, without contacting the API.

The fertilizer quantity defaults to the typical quantity for the fertilizer
type. Pass --factor to pin the field-variability factor; without it a random
factor in [0.95, 1.05] is drawn.`,
	RunE: runPredict,
}

// timelineCmd shows the growth stage of a field
var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show the growth stage of a field",
	RunE:  runTimeline,
}

var timelineOpts struct {
	planted string
	asOf    string
}

func init() {
	f := predictCmd.Flags()
	f.StringVar(&predictOpts.tablesPath, "tables", "", "Scoring tables YAML (default: embedded tables)")
	f.StringVar(&predictOpts.soil, "soil", "Loam", "Soil type")
	f.StringVar(&predictOpts.terrain, "terrain", "Flat", "Terrain type")
	f.StringVar(&predictOpts.irrigation, "irrigation", "Flood", "Irrigation method")
	f.StringVar(&predictOpts.fertilizer, "fertilizer", "NPK", "Fertilizer type")
	f.Float64Var(&predictOpts.quantity, "quantity", -1, "Fertilizer quantity in kg/ha (default: typical for the type)")
	f.StringVar(&predictOpts.seed, "seed", "Normal", "Seed type")
	f.StringVar(&predictOpts.previousCrop, "previous-crop", "None", "Previous crop")
	f.Float64Var(&predictOpts.landArea, "area", 1, "Land area in hectares")
	f.Float64Var(&predictOpts.factor, "factor", math.NaN(), "Field-variability factor")

	timelineCmd.Flags().StringVar(&timelineOpts.planted, "planted", "", "Planting date, YYYY-MM-DD")
	timelineCmd.Flags().StringVar(&timelineOpts.asOf, "as-of", "", "Reference date, YYYY-MM-DD (default: today)")
	_ = timelineCmd.MarkFlagRequired("planted") //nolint:errcheck // flag is defined above
}

func runPredict(cmd *cobra.Command, _ []string) error {
	tables, err := yield.DefaultTables()
	if predictOpts.tablesPath != "" {
		tables, err = yield.LoadTables(predictOpts.tablesPath)
	}
	if err != nil {
		return err
	}
	engine := yield.NewEngine(tables, yield.DefaultRandomSource())

	c := yield.FarmConditions{
		SoilType:           predictOpts.soil,
		Terrain:            predictOpts.terrain,
		Irrigation:         predictOpts.irrigation,
		FertilizerType:     predictOpts.fertilizer,
		FertilizerQuantity: predictOpts.quantity,
		SeedType:           predictOpts.seed,
		PreviousCrop:       predictOpts.previousCrop,
		LandArea:           predictOpts.landArea,
	}
	if c.FertilizerQuantity < 0 {
		c.FertilizerQuantity, _ = tables.TypicalFertilizerQuantity(c.FertilizerType)
	}

	var p *yield.Prediction
	if math.IsNaN(predictOpts.factor) {
		p, err = engine.Predict(c)
	} else {
		p, err = engine.PredictWithFactor(c, predictOpts.factor)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), p)
	}
	writePrediction(cmd.OutOrStdout(), c, p)
	return nil
}

func writePrediction(w io.Writer, c yield.FarmConditions, p *yield.Prediction) {
	fmt.Fprintf(w, "Predicted yield:  %.2f t/ha (ideal %.3f t/ha)\n", p.PredictedYield, p.IdealYield)
	fmt.Fprintf(w, "Efficiency:       %.1f%%\n", p.Efficiency)
	fmt.Fprintf(w, "Total yield:      %.2f t on %.2f ha\n", p.TotalYield, c.LandArea)
	fmt.Fprintf(w, "Expected income:  INR %.0f (potential %.0f)\n", p.ExpectedIncome, p.PotentialIncome)
	fmt.Fprintf(w, "Confidence:       %d%%\n", p.Confidence)
	fmt.Fprintf(w, "Variability:      %.3f\n", p.VariabilityFactor)
	if len(p.Recommendations) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRecommendations:")
	for _, r := range p.Recommendations {
		fmt.Fprintf(w, "  [%s] %s (+%s)\n", r.Impact, r.Text, r.PotentialIncrease)
	}
}

func runTimeline(cmd *cobra.Command, _ []string) error {
	planted, err := timeline.ParseDate(timelineOpts.planted)
	if err != nil {
		return err
	}
	asOf := time.Now().UTC()
	if timelineOpts.asOf != "" {
		if asOf, err = timeline.ParseDate(timelineOpts.asOf); err != nil {
			return err
		}
	}

	tl, err := timeline.Compute(planted, asOf)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), tl)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Stage:          %s (%.0f%%)\n", tl.Stage, tl.StageProgress)
	fmt.Fprintf(w, "Days elapsed:   %d\n", tl.DaysElapsed)
	fmt.Fprintf(w, "Harvest date:   %s (%d days)\n", tl.HarvestDate.Format(time.DateOnly), tl.DaysToHarvest)
	fmt.Fprintln(w)
	for _, s := range tl.StageStatuses() {
		fmt.Fprintf(w, "  %-16s day %3d-%3d  %s\n", s.Stage, s.StartDay, s.EndDay, s.Status)
	}
	return nil
}

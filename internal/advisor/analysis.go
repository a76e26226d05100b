package advisor

import (
	"fmt"
	"math"
	"strings"
)

const topFactorCount = 3

// Analysis summarizes a ModelPrediction for display and prompting.
type Analysis struct {
	Min         float64
	Max         float64
	Mean        float64
	Accuracy    float64 // test score as a percentage
	SampleCount int
	TopFactors  []string
}

// Analyze summarizes p. It returns nil when p carries no predictions.
func Analyze(p *ModelPrediction) *Analysis {
	if p == nil || len(p.Values) == 0 {
		return nil
	}

	a := &Analysis{
		Min:         math.Inf(1),
		Max:         math.Inf(-1),
		Accuracy:    math.Round(p.Performance.TestScore*1000) / 10,
		SampleCount: p.Performance.SampleCount,
	}

	var sum float64
	for _, v := range p.Values {
		a.Min = math.Min(a.Min, v)
		a.Max = math.Max(a.Max, v)
		sum += v
	}
	a.Mean = sum / float64(len(p.Values))

	for i, f := range p.FeatureImportance {
		if i == topFactorCount {
			break
		}
		a.TopFactors = append(a.TopFactors, f.Name)
	}
	return a
}

// Summary renders the analysis as a single paragraph.
func (a *Analysis) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Predicted yield range: %.2f - %.2f tons/hectare (average %.2f). ", a.Min, a.Max, a.Mean)
	fmt.Fprintf(&b, "Model accuracy: %.1f%% based on %d samples.", a.Accuracy, a.SampleCount)
	if len(a.TopFactors) > 0 {
		fmt.Fprintf(&b, " Key factors: %s.", strings.Join(a.TopFactors, ", "))
	}
	return b.String()
}

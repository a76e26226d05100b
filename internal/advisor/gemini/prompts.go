package gemini

import (
	"fmt"
	"strings"

	"github.com/riceadvisor/riceadvisor/internal/advisor"
)

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}

func instructionsPrompt(req advisor.InstructionsRequest) string {
	var sum float64
	for _, v := range req.Prediction {
		sum += v
	}
	avg := sum / float64(len(req.Prediction))

	landArea := "Not specified"
	if req.CropData.LandArea > 0 {
		landArea = fmt.Sprintf("%g", req.CropData.LandArea)
	}

	var b strings.Builder
	b.WriteString("As an expert agricultural advisor, provide comprehensive farming instructions based on:\n\n")
	fmt.Fprintf(&b, "Predicted Yield Values: %s\n", formatValues(req.Prediction))
	fmt.Fprintf(&b, "Average Predicted Yield: %.2f tons/hectare\n\n", avg)
	b.WriteString("Farm Details:\n")
	fmt.Fprintf(&b, "- State: %s\n", orUnspecified(req.CropData.State))
	fmt.Fprintf(&b, "- Soil Type: %s\n", orUnspecified(req.CropData.Soil))
	fmt.Fprintf(&b, "- Land Area: %s hectares\n", landArea)
	fmt.Fprintf(&b, "- Irrigation: %s\n", orUnspecified(req.CropData.Irrigation))
	fmt.Fprintf(&b, "- Fertilizer: %s\n\n", orUnspecified(req.CropData.Fertilizer))

	if a := req.Analysis; a != nil {
		b.WriteString("Model Analysis:\n")
		fmt.Fprintf(&b, "- Model Confidence: %.1f%%\n", a.Accuracy)
		if len(a.TopFactors) > 0 {
			fmt.Fprintf(&b, "- Key Influencing Factors: %s\n", strings.Join(a.TopFactors, ", "))
		}
		fmt.Fprintf(&b, "- Data based on %d similar farms\n\n", a.SampleCount)
	}

	b.WriteString(`Provide specific, actionable recommendations for:
1. Yield optimization strategies
2. Soil and nutrient management
3. Water and irrigation planning
4. Pest and disease prevention
5. Harvest timing and post-harvest handling
6. Market preparation advice

Keep advice practical and region-appropriate.`)
	return b.String()
}

func chatPrompt(message string, crop advisor.CropData, a *advisor.Analysis) string {
	var modelContext string
	if a != nil {
		var b strings.Builder
		fmt.Fprintf(&b, "Based on our predictive model for %s with %s soil:\n", crop.State, crop.Soil)
		fmt.Fprintf(&b, "- Expected yield range: %.2f - %.2f tons/hectare\n", a.Min, a.Max)
		fmt.Fprintf(&b, "- Average predicted yield: %.2f tons/hectare\n", a.Mean)
		fmt.Fprintf(&b, "- Model confidence: %.1f%%\n", a.Accuracy)
		fmt.Fprintf(&b, "- Data based on %d samples\n", a.SampleCount)
		if len(a.TopFactors) > 0 {
			fmt.Fprintf(&b, "- Key factors: %s\n", strings.Join(a.TopFactors, ", "))
		}
		modelContext = b.String()
	}

	return fmt.Sprintf(`You are an expert agricultural advisor specializing in crop cultivation, particularly rice farming.
Your responses must be:
1. Strictly focused on agriculture, farming, and crop-related topics
2. Practical and actionable
3. Based on scientific agricultural principles
4. Helpful for farmers and agricultural professionals

%s
User's question: %s

Provide detailed, practical advice while staying within agricultural topics. If the question is not agriculture-related, politely redirect to farming topics.`, modelContext, message)
}

func formatValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.2f", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

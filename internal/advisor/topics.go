package advisor

import "strings"

// agricultureKeywords gates chat messages to agricultural topics.
var agricultureKeywords = []string{
	"crop", "farming", "agriculture", "rice", "wheat", "irrigation", "fertilizer",
	"soil", "seed", "harvest", "yield", "plant", "cultivation", "pesticide",
	"organic", "compost", "nitrogen", "phosphorus", "potassium", "weather",
	"climate", "season", "monsoon", "drought", "flood", "pest", "disease",
	"fungus", "bacteria", "virus", "insect", "weed", "herbicide", "growth",
	"plantation", "field", "farm", "farmer", "agricultural", "agronomy",
	"horticulture", "livestock", "dairy", "poultry", "aquaculture",
}

// coreKeywords is the subset a model reply must mention to count as on-topic.
var coreKeywords = agricultureKeywords[:10]

// WelcomeMessage greets a new chat session.
const WelcomeMessage = "Hello! I'm your agricultural advisor. I can help you with farming questions, " +
	"especially about rice cultivation, soil management, irrigation, and crop optimization. " +
	"What would you like to know?"

// OffTopicReply answers messages unrelated to agriculture.
const OffTopicReply = `I'm an agricultural expert focused on helping with farming and crop-related questions.
Please ask me about topics like:
- Rice cultivation and yield optimization
- Soil management and fertilizers
- Irrigation techniques
- Crop diseases and pest control
- Weather and climate impacts on farming
- Harvest timing and post-harvest handling

How can I help you with your agricultural needs?`

// IsAgricultureRelated reports whether msg mentions an agricultural topic.
func IsAgricultureRelated(msg string) bool {
	return containsAny(strings.ToLower(msg), agricultureKeywords)
}

// EnsureOnTopic prefixes replies that mention none of the core farming terms.
func EnsureOnTopic(reply string) string {
	if containsAny(strings.ToLower(reply), coreKeywords) {
		return reply
	}
	return "Based on agricultural best practices: " + reply +
		"\n\nFor more specific advice about your crops, please provide details about your farming situation."
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// ValidateMessage trims msg and checks it is non-empty and within MaxMessageLength.
func ValidateMessage(msg string) (string, error) {
	msg = strings.TrimSpace(msg)
	switch {
	case msg == "":
		return "", ErrInvalidRequest
	case len([]rune(msg)) > MaxMessageLength:
		return "", ErrMessageTooLong
	}
	return msg, nil
}

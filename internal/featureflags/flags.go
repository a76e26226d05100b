// Package featureflags provides feature flag management for runtime configuration.
package featureflags

import "time"

// Well-known feature flag keys.
const (
	// FlagDisableChat switches off advisor chat sessions.
	FlagDisableChat = "disable_chat"

	// FlagDisableInstructions skips cultivation instruction generation.
	FlagDisableInstructions = "disable_instructions"

	// FlagDisableModelPrediction skips the statistical model prediction.
	FlagDisableModelPrediction = "disable_model_prediction"

	// FlagFixedFieldVariability pins the field variability factor to 1.0.
	FlagFixedFieldVariability = "fixed_field_variability"

	// FlagDisableHistoryRecording stops assessments from being written to history.
	FlagDisableHistoryRecording = "disable_history_recording"
)

// Flag is a runtime switch. Values arrive as JSON, so a switch may be stored
// as a boolean or as a number.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate represents a single flag update request.
type FlagUpdate struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// FlagUpdateRequest represents a request to update feature flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// BoolValue reports the switch position, or defaultValue for a nil flag or a
// value that is neither a boolean nor a number.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON unmarshals numbers as float64
		return v != 0
	default:
		return defaultValue
	}
}

// DefaultFlags returns the default feature flags for the application.
// Every switch defaults to off.
func DefaultFlags() map[string]*Flag {
	now := time.Now()
	flags := make(map[string]*Flag, len(Keys()))
	for _, key := range Keys() {
		flags[key] = &Flag{Key: key, Value: false, UpdatedAt: now}
	}
	return flags
}

// Keys returns the well-known flag keys.
func Keys() []string {
	return []string{
		FlagDisableChat,
		FlagDisableInstructions,
		FlagDisableModelPrediction,
		FlagFixedFieldVariability,
		FlagDisableHistoryRecording,
	}
}

// Package history keeps the append-only log of past yield predictions.
package history

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errors returned by the history package.
var (
	ErrDuplicateRecord = errors.New("history record already exists")
	ErrInvalidSort     = errors.New("invalid sort field")
)

// Record is one past prediction. Records are immutable once appended.
type Record struct {
	ID       string `json:"id"`
	Sequence int64  `json:"sequence"`

	FarmerName         string    `json:"farmer_name"`
	State              string    `json:"state,omitempty"`
	PlantingDate       time.Time `json:"planting_date"`
	LandArea           float64   `json:"land_area"`
	SoilType           string    `json:"soil_type"`
	Terrain            string    `json:"terrain"`
	Irrigation         string    `json:"irrigation"`
	FertilizerType     string    `json:"fertilizer_type"`
	FertilizerQuantity float64   `json:"fertilizer_quantity"`
	SeedType           string    `json:"seed_type"`
	PreviousCrop       string    `json:"previous_crop"`

	PredictedYield float64   `json:"predicted_yield"`
	Efficiency     float64   `json:"efficiency"`
	Income         float64   `json:"income"`
	HarvestDate    time.Time `json:"harvest_date"`

	CreatedAt time.Time `json:"created_at"`
}

// SortField selects the display order of a history listing.
type SortField string

const (
	SortInsertion  SortField = ""
	SortDate       SortField = "date"
	SortFarmerName SortField = "farmer_name"
	SortYield      SortField = "yield"
	SortIncome     SortField = "income"
)

// ParseSortField validates a sort field name. "actual_yield" is accepted as
// an alias for "yield".
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case SortInsertion, SortDate, SortFarmerName, SortYield, SortIncome:
		return f, nil
	case "actual_yield":
		return SortYield, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSort, s)
	}
}

// Query filters and orders a history listing. It never changes the stored log.
type Query struct {
	// Search is a case-insensitive substring matched against farmer name,
	// soil type, irrigation and fertilizer type.
	Search string
	SortBy SortField
}

// EventTypeRecorded is the event type published for each new record.
const EventTypeRecorded = "prediction_recorded"

// Event is the message published when a record is created.
type Event struct {
	Type   string  `json:"event_type"`
	Record *Record `json:"record"`
}

// Package timeline derives the rice growth stage of a field from its planting date.
package timeline

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidDate is returned for unparseable or implausible planting dates.
var ErrInvalidDate = errors.New("invalid planting date")

const (
	// HarvestOffsetDays is the agronomic offset used to project the harvest date.
	HarvestOffsetDays = 110

	// HarvestReadyDay is the first day of the terminal stage. It differs from
	// HarvestOffsetDays and both are kept as-is.
	HarvestReadyDay = 120

	minYear      = 1900
	maxLeadYears = 1
	day          = 24 * time.Hour
)

// Stage is a rice growth stage.
type Stage string

const (
	StageGermination    Stage = "germination"
	StageSeedling       Stage = "seedling"
	StageTillering      Stage = "tillering"
	StageStemElongation Stage = "stem_elongation"
	StageHeading        Stage = "heading"
	StageMaturity       Stage = "maturity"
	StageHarvestReady   Stage = "harvest_ready"
)

// StageInfo describes a growing stage and its half-open day range [StartDay, EndDay).
type StageInfo struct {
	Stage       Stage
	StartDay    int
	EndDay      int
	Description string
}

var stages = []StageInfo{
	{StageGermination, 0, 10, "Seed sprouting and root development"},
	{StageSeedling, 10, 30, "Early leaf and shoot growth"},
	{StageTillering, 30, 60, "Plant branching and tiller formation"},
	{StageStemElongation, 60, 80, "Rapid height increase and node development"},
	{StageHeading, 80, 100, "Panicle emergence and grain formation"},
	{StageMaturity, 100, HarvestReadyDay, "Grain filling and harvest readiness"},
}

// Stages returns the six growing stages in order. The terminal harvest_ready
// state is not part of the catalog.
func Stages() []StageInfo {
	out := make([]StageInfo, len(stages))
	copy(out, stages)
	return out
}

// Describe returns the human-readable description of a stage.
func Describe(s Stage) string {
	if s == StageHarvestReady {
		return "Ready for harvest"
	}
	for _, info := range stages {
		if info.Stage == s {
			return info.Description
		}
	}
	return string(s)
}

// Timeline is the growth state of a field at a point in time.
type Timeline struct {
	PlantingDate time.Time
	AsOf         time.Time
	Stage        Stage

	// StageProgress is the percent completion of the current stage, in [0, 100].
	StageProgress float64

	// DaysElapsed is the number of whole days since planting, or 0 while
	// the planting date lies in the future.
	DaysElapsed int

	DaysToHarvest int
	HarvestDate   time.Time
}

// Compute returns the timeline of a field planted on planting as of now.
func Compute(planting, now time.Time) (*Timeline, error) {
	if err := validate(planting, now); err != nil {
		return nil, err
	}

	elapsed := wholeDays(now.Sub(planting))
	harvest := planting.AddDate(0, 0, HarvestOffsetDays)

	stage, progress := classify(elapsed)

	return &Timeline{
		PlantingDate:  planting,
		AsOf:          now,
		Stage:         stage,
		StageProgress: progress,
		DaysElapsed:   max(0, elapsed),
		DaysToHarvest: max(0, wholeDays(harvest.Sub(now))),
		HarvestDate:   harvest,
	}, nil
}

func validate(planting, now time.Time) error {
	switch {
	case planting.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidDate)
	case now.IsZero():
		return fmt.Errorf("%w: reference date is required", ErrInvalidDate)
	case planting.Year() < minYear:
		return fmt.Errorf("%w: %s is before %d", ErrInvalidDate, planting.Format(time.DateOnly), minYear)
	case planting.After(now.AddDate(maxLeadYears, 0, 0)):
		return fmt.Errorf("%w: %s is more than %d year ahead", ErrInvalidDate, planting.Format(time.DateOnly), maxLeadYears)
	}
	return nil
}

func classify(elapsed int) (Stage, float64) {
	if elapsed < 0 {
		return StageGermination, 0
	}
	for _, info := range stages {
		if elapsed >= info.StartDay && elapsed < info.EndDay {
			progress := float64(elapsed-info.StartDay) / float64(info.EndDay-info.StartDay) * 100
			return info.Stage, math.Max(0, math.Min(progress, 100))
		}
	}
	return StageHarvestReady, 100
}

func wholeDays(d time.Duration) int {
	return int(math.Floor(float64(d) / float64(day)))
}

// ParseDate parses a planting date given as YYYY-MM-DD or RFC 3339.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrInvalidDate)
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD or RFC 3339", ErrInvalidDate, s)
	}
	return t, nil
}

// StageStatus is the display state of a stage relative to the current one.
type StageStatus string

const (
	StatusCompleted StageStatus = "completed"
	StatusActive    StageStatus = "active"
	StatusFuture    StageStatus = "future"
)

// StageState pairs a catalog stage with its status.
type StageState struct {
	StageInfo
	Status StageStatus
}

// StageStatuses marks each growing stage as completed, active or future.
// Every stage is completed once the field is harvest ready.
func (t *Timeline) StageStatuses() []StageState {
	current := len(stages)
	for i, info := range stages {
		if info.Stage == t.Stage {
			current = i
			break
		}
	}

	out := make([]StageState, 0, len(stages))
	for i, info := range stages {
		status := StatusFuture
		switch {
		case i < current:
			status = StatusCompleted
		case i == current:
			status = StatusActive
		}
		out = append(out, StageState{StageInfo: info, Status: status})
	}
	return out
}

package history

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the history service.
type ServiceConfig struct {
	Repository Repository

	// Publisher, when set, receives new records instead of the repository.
	// A worker consuming the published events is then the only writer.
	Publisher Publisher

	Logger zerolog.Logger
}

// Service records and lists past predictions.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates a new history service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repository,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// Record assigns an ID and creation time to rec and appends it to the log.
func (s *Service) Record(ctx context.Context, rec Record) (*Record, error) {
	rec.ID = "hist_" + uuid.New().String()[:22]
	rec.CreatedAt = s.now().UTC()

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, &rec); err != nil {
			return nil, fmt.Errorf("publishing history record: %w", err)
		}
		s.logger.Debug().Str("record_id", rec.ID).Msg("history record published")
		return &rec, nil
	}

	if err := s.repo.Append(ctx, &rec); err != nil {
		return nil, fmt.Errorf("appending history record: %w", err)
	}
	s.logger.Debug().
		Str("record_id", rec.ID).
		Int64("sequence", rec.Sequence).
		Msg("history record appended")
	return &rec, nil
}

// List returns the records matching q in the requested order.
// The default order is insertion order.
func (s *Service) List(ctx context.Context, q Query) ([]*Record, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return Apply(records, q), nil
}

// Apply filters and stably sorts records according to q. The input slice is not modified.
func Apply(records []*Record, q Query) []*Record {
	term := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]*Record, 0, len(records))
	for _, rec := range records {
		if term == "" || matches(rec, term) {
			out = append(out, rec)
		}
	}

	switch q.SortBy {
	case SortDate:
		slices.SortStableFunc(out, func(a, b *Record) int {
			return b.PlantingDate.Compare(a.PlantingDate)
		})
	case SortFarmerName:
		slices.SortStableFunc(out, func(a, b *Record) int {
			return strings.Compare(strings.ToLower(a.FarmerName), strings.ToLower(b.FarmerName))
		})
	case SortYield:
		slices.SortStableFunc(out, func(a, b *Record) int {
			return compareDesc(a.PredictedYield, b.PredictedYield)
		})
	case SortIncome:
		slices.SortStableFunc(out, func(a, b *Record) int {
			return compareDesc(a.Income, b.Income)
		})
	}
	return out
}

func matches(rec *Record, term string) bool {
	for _, field := range []string{rec.FarmerName, rec.SoilType, rec.Irrigation, rec.FertilizerType} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func compareDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

package featureflags

import "context"

// Repository stores flag overrides. Keys absent from the store fall back to
// DefaultFlags.
type Repository interface {
	// GetAllFlags returns every stored flag keyed by flag key.
	GetAllFlags(ctx context.Context) (map[string]*Flag, error)

	// SetFlags upserts flags in one write; either all are stored or none.
	SetFlags(ctx context.Context, flags []*Flag) error
}

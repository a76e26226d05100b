package history

import "context"

// Repository persists history records.
type Repository interface {
	// Append stores a record and assigns its Sequence.
	// Returns ErrDuplicateRecord if a record with the same ID exists.
	Append(ctx context.Context, rec *Record) error

	// List returns all records in insertion order.
	List(ctx context.Context) ([]*Record, error)
}

// Publisher hands new records to the single history writer.
type Publisher interface {
	Publish(ctx context.Context, rec *Record) error
}

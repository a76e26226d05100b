package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the history table. The BIGSERIAL sequence preserves insertion order.
const Schema = `
CREATE TABLE IF NOT EXISTS history_records (
	seq                 BIGSERIAL PRIMARY KEY,
	id                  TEXT NOT NULL UNIQUE,
	farmer_name         TEXT NOT NULL,
	state               TEXT NOT NULL DEFAULT '',
	planting_date       DATE NOT NULL,
	land_area           DOUBLE PRECISION NOT NULL,
	soil_type           TEXT NOT NULL,
	terrain             TEXT NOT NULL,
	irrigation          TEXT NOT NULL,
	fertilizer_type     TEXT NOT NULL,
	fertilizer_quantity DOUBLE PRECISION NOT NULL,
	seed_type           TEXT NOT NULL,
	previous_crop       TEXT NOT NULL,
	predicted_yield     DOUBLE PRECISION NOT NULL,
	efficiency          DOUBLE PRECISION NOT NULL,
	income              DOUBLE PRECISION NOT NULL,
	harvest_date        DATE NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL history repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the history table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("creating history schema: %w", err)
	}
	return nil
}

// Append inserts rec. Redelivered records with a known ID are reported as
// ErrDuplicateRecord.
func (r *PostgresRepository) Append(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO history_records (
			id, farmer_name, state, planting_date, land_area,
			soil_type, terrain, irrigation, fertilizer_type, fertilizer_quantity,
			seed_type, previous_crop, predicted_yield, efficiency, income,
			harvest_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO NOTHING
		RETURNING seq
	`

	err := r.pool.QueryRow(ctx, query,
		rec.ID,
		rec.FarmerName,
		rec.State,
		rec.PlantingDate,
		rec.LandArea,
		rec.SoilType,
		rec.Terrain,
		rec.Irrigation,
		rec.FertilizerType,
		rec.FertilizerQuantity,
		rec.SeedType,
		rec.PreviousCrop,
		rec.PredictedYield,
		rec.Efficiency,
		rec.Income,
		rec.HarvestDate,
		rec.CreatedAt,
	).Scan(&rec.Sequence)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("inserting history record: %w", err)
	}
	return nil
}

// List returns all records ordered by insertion sequence.
func (r *PostgresRepository) List(ctx context.Context) ([]*Record, error) {
	query := `
		SELECT
			seq, id, farmer_name, state, planting_date, land_area,
			soil_type, terrain, irrigation, fertilizer_type, fertilizer_quantity,
			seed_type, previous_crop, predicted_yield, efficiency, income,
			harvest_date, created_at
		FROM history_records
		ORDER BY seq ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying history records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.Sequence,
			&rec.ID,
			&rec.FarmerName,
			&rec.State,
			&rec.PlantingDate,
			&rec.LandArea,
			&rec.SoilType,
			&rec.Terrain,
			&rec.Irrigation,
			&rec.FertilizerType,
			&rec.FertilizerQuantity,
			&rec.SeedType,
			&rec.PreviousCrop,
			&rec.PredictedYield,
			&rec.Efficiency,
			&rec.Income,
			&rec.HarvestDate,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning history record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

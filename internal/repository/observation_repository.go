package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketpulse/internal/domain"
)

// ObservationRepositoryImpl implements the ObservationRepository interface
type ObservationRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewObservationRepository creates a new ObservationRepository
func NewObservationRepository(db *pgxpool.Pool) domain.ObservationRepository {
	return &ObservationRepositoryImpl{db: db}
}

// SaveRaw inserts a raw observation
func (r *ObservationRepositoryImpl) SaveRaw(ctx context.Context, raw *domain.RawObservation) error {
	query := `
		INSERT INTO raw_observations (
			id, cycle_id, source, asset, unit, observed_date, value, payload, checksum
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.db.Exec(ctx, query,
		raw.ID,
		raw.CycleID,
		raw.SourceLabel,
		raw.Asset,
		raw.Unit,
		raw.Date,
		raw.Value,
		raw.Payload,
		raw.Checksum,
	)
	if err != nil {
		return fmt.Errorf("failed to save raw observation: %w", err)
	}

	return nil
}

// SaveNormalized inserts a normalized observation
func (r *ObservationRepositoryImpl) SaveNormalized(ctx context.Context, n *domain.NormalizedObservation) error {
	query := `
		INSERT INTO normalized_observations (
			id, cycle_id, raw_id, asset_code, asset_type, asset, sub_type, side,
			value, unit, effective_at, source
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := r.db.Exec(ctx, query,
		n.ID,
		n.CycleID,
		n.RawRef,
		n.AssetCode,
		n.AssetType,
		n.Asset,
		n.SubType,
		n.Side,
		n.Value,
		n.Unit,
		n.EffectiveAt,
		n.SourceLabel,
	)
	if err != nil {
		return fmt.Errorf("failed to save normalized observation: %w", err)
	}

	return nil
}

// GetNormalizedByCycle retrieves the normalized observations of a cycle
func (r *ObservationRepositoryImpl) GetNormalizedByCycle(ctx context.Context, cycleID uuid.UUID) ([]domain.NormalizedObservation, error) {
	query := `
		SELECT n.id, n.cycle_id, n.raw_id, n.asset_code, n.asset_type, n.asset, n.sub_type, n.side,
		       n.value, n.unit, n.effective_at, n.source, r.unit
		FROM normalized_observations n
		JOIN raw_observations r ON r.id = n.raw_id
		WHERE n.cycle_id = $1
		ORDER BY n.created_at ASC, n.id ASC
	`

	rows, err := r.db.Query(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query normalized observations: %w", err)
	}
	defer rows.Close()

	var out []domain.NormalizedObservation
	for rows.Next() {
		var n domain.NormalizedObservation
		var rawUnit string
		if err := rows.Scan(
			&n.ID,
			&n.CycleID,
			&n.RawRef,
			&n.AssetCode,
			&n.AssetType,
			&n.Asset,
			&n.SubType,
			&n.Side,
			&n.Value,
			&n.Unit,
			&n.EffectiveAt,
			&n.SourceLabel,
			&rawUnit,
		); err != nil {
			return nil, fmt.Errorf("failed to scan normalized observation: %w", err)
		}
		n.Origin = domain.RawKey{Asset: n.Asset, Source: n.SourceLabel, Unit: rawUnit}
		out = append(out, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating normalized observations: %w", err)
	}

	return out, nil
}

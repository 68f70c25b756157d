package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketpulse/internal/domain"
)

// SignalRepositoryImpl implements the SignalRepository interface
type SignalRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewSignalRepository creates a new SignalRepository
func NewSignalRepository(db *pgxpool.Pool) domain.SignalRepository {
	return &SignalRepositoryImpl{db: db}
}

// Save saves a new signal to the database
func (r *SignalRepositoryImpl) Save(ctx context.Context, signal *domain.Signal) error {
	query := `
		INSERT INTO signals (
			id, cycle_id, asset, asset_code, sub_type, side, direction,
			magnitude_percent, confidence, based_on_ids, previous_id, lineage
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	refs := signal.BasedOnRefs
	if refs == nil {
		refs = []uuid.UUID{}
	}

	_, err := r.db.Exec(ctx, query,
		signal.ID,
		signal.CycleID,
		signal.Asset,
		signal.AssetCode,
		signal.Series.SubType,
		signal.Series.Side,
		signal.Direction,
		signal.MagnitudePercent,
		signal.Confidence,
		refs,
		signal.PreviousRef,
		signal.Lineage,
	)
	if err != nil {
		return fmt.Errorf("failed to save signal: %w", err)
	}

	return nil
}

// GetByCycle retrieves the signals of a cycle
func (r *SignalRepositoryImpl) GetByCycle(ctx context.Context, cycleID uuid.UUID) ([]*domain.Signal, error) {
	query := `
		SELECT id, cycle_id, asset, asset_code, sub_type, side, direction,
		       magnitude_percent, confidence, based_on_ids, previous_id, lineage
		FROM signals
		WHERE cycle_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []*domain.Signal
	for rows.Next() {
		s := &domain.Signal{}
		if err := rows.Scan(
			&s.ID,
			&s.CycleID,
			&s.Asset,
			&s.AssetCode,
			&s.Series.SubType,
			&s.Series.Side,
			&s.Direction,
			&s.MagnitudePercent,
			&s.Confidence,
			&s.BasedOnRefs,
			&s.PreviousRef,
			&s.Lineage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		s.Series.Asset = s.Asset
		signals = append(signals, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signals: %w", err)
	}

	return signals, nil
}

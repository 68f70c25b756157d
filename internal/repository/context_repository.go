package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketpulse/internal/domain"
)

// ContextRepositoryImpl implements the ContextRepository interface
type ContextRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewContextRepository creates a new ContextRepository
func NewContextRepository(db *pgxpool.Pool) domain.ContextRepository {
	return &ContextRepositoryImpl{db: db}
}

// Save inserts a market context
func (r *ContextRepositoryImpl) Save(ctx context.Context, mc *domain.MarketContext) error {
	query := `
		INSERT INTO market_contexts (
			id, cycle_id, context, severity, confidence, summary, signal_refs, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	refs := mc.SignalRefs
	if refs == nil {
		refs = []uuid.UUID{}
	}

	_, err := r.db.Exec(ctx, query,
		mc.ID,
		mc.CycleID,
		mc.Context,
		mc.Severity,
		mc.Confidence,
		mc.Summary,
		refs,
		mc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save market context: %w", err)
	}

	return nil
}

// GetByCycle retrieves the context of a cycle
func (r *ContextRepositoryImpl) GetByCycle(ctx context.Context, cycleID uuid.UUID) (*domain.MarketContext, error) {
	query := `
		SELECT id, cycle_id, context, severity, confidence, summary, signal_refs, created_at
		FROM market_contexts
		WHERE cycle_id = $1
	`

	mc := &domain.MarketContext{}
	err := r.db.QueryRow(ctx, query, cycleID).Scan(
		&mc.ID,
		&mc.CycleID,
		&mc.Context,
		&mc.Severity,
		&mc.Confidence,
		&mc.Summary,
		&mc.SignalRefs,
		&mc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market context: %w", err)
	}

	return mc, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketpulse/internal/domain"
)

// CycleRepositoryImpl implements the CycleRepository interface
type CycleRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewCycleRepository creates a new CycleRepository
func NewCycleRepository(db *pgxpool.Pool) domain.CycleRepository {
	return &CycleRepositoryImpl{db: db}
}

// Create inserts a new cycle
func (r *CycleRepositoryImpl) Create(ctx context.Context, cycle *domain.Cycle) error {
	query := `
		INSERT INTO cycles (id, kind, status, started_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Exec(ctx, query, cycle.ID, cycle.Kind, cycle.Status, cycle.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create cycle: %w", err)
	}

	return nil
}

// Finish sets the terminal status of a running cycle
func (r *CycleRepositoryImpl) Finish(ctx context.Context, id uuid.UUID, status string, note *string, finishedAt time.Time) (bool, error) {
	query := `
		UPDATE cycles
		SET status = $1, note = $2, finished_at = $3
		WHERE id = $4 AND status = 'running'
	`

	tag, err := r.db.Exec(ctx, query, status, note, finishedAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to finish cycle: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetByID retrieves a cycle by its ID
func (r *CycleRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.Cycle, error) {
	query := `
		SELECT id, kind, status, started_at, finished_at, note
		FROM cycles
		WHERE id = $1
	`

	cycle, err := scanCycle(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCycleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}

	return cycle, nil
}

// GetRecent retrieves the most recent cycles
func (r *CycleRepositoryImpl) GetRecent(ctx context.Context, limit int) ([]*domain.Cycle, error) {
	query := `
		SELECT id, kind, status, started_at, finished_at, note
		FROM cycles
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*domain.Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, cycle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycles: %w", err)
	}

	return cycles, nil
}

// GetLastWithData retrieves the latest successful cycle of kind started before the given time.
// Cycles that finished without observations are skipped.
func (r *CycleRepositoryImpl) GetLastWithData(ctx context.Context, kind string, before time.Time) (*domain.Cycle, error) {
	query := `
		SELECT id, kind, status, started_at, finished_at, note
		FROM cycles c
		WHERE c.kind = $1 AND c.status = 'success' AND c.started_at < $2
		  AND EXISTS (SELECT 1 FROM normalized_observations n WHERE n.cycle_id = c.id)
		ORDER BY c.started_at DESC
		LIMIT 1
	`

	cycle, err := scanCycle(r.db.QueryRow(ctx, query, kind, before))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous cycle: %w", err)
	}

	return cycle, nil
}

func scanCycle(row pgx.Row) (*domain.Cycle, error) {
	cycle := &domain.Cycle{}
	err := row.Scan(
		&cycle.ID,
		&cycle.Kind,
		&cycle.Status,
		&cycle.StartedAt,
		&cycle.FinishedAt,
		&cycle.Note,
	)
	if err != nil {
		return nil, err
	}
	return cycle, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketpulse/internal/domain"
)

// NotificationRepositoryImpl implements the NotificationRepository interface
type NotificationRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *pgxpool.Pool) domain.NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

// Save inserts a notification record
func (r *NotificationRepositoryImpl) Save(ctx context.Context, rec *domain.NotificationRecord) error {
	query := `
		INSERT INTO notification_records (
			id, cycle_id, user_id, channel, type, content, status, attempts, error, sent_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.CycleID,
		rec.UserID,
		rec.Channel,
		rec.Type,
		rec.Content,
		rec.Status,
		rec.Attempts,
		rec.Error,
		rec.SentAt,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save notification record: %w", err)
	}

	return nil
}

// GetByCycle retrieves the delivery records of a cycle
func (r *NotificationRepositoryImpl) GetByCycle(ctx context.Context, cycleID uuid.UUID) ([]*domain.NotificationRecord, error) {
	query := `
		SELECT id, cycle_id, user_id, channel, type, content, status, attempts, error, sent_at, created_at
		FROM notification_records
		WHERE cycle_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification records: %w", err)
	}
	defer rows.Close()

	var records []*domain.NotificationRecord
	for rows.Next() {
		rec := &domain.NotificationRecord{}
		if err := rows.Scan(
			&rec.ID,
			&rec.CycleID,
			&rec.UserID,
			&rec.Channel,
			&rec.Type,
			&rec.Content,
			&rec.Status,
			&rec.Attempts,
			&rec.Error,
			&rec.SentAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification records: %w", err)
	}

	return records, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketpulse/internal/domain"
)

// UserRepositoryImpl implements RecipientRepository and GoalService over the users tables
type UserRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepositoryImpl {
	return &UserRepositoryImpl{db: db}
}

// GetActive retrieves all active users with a linked Telegram chat
func (r *UserRepositoryImpl) GetActive(ctx context.Context) ([]domain.Recipient, error) {
	query := `
		SELECT id, username, telegram_chat_id
		FROM users
		WHERE is_active = TRUE AND telegram_chat_id IS NOT NULL AND telegram_chat_id <> ''
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipients: %w", err)
	}
	defer rows.Close()

	var recipients []domain.Recipient
	for rows.Next() {
		var rc domain.Recipient
		if err := rows.Scan(&rc.UserID, &rc.Name, &rc.ChatID); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, rc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipients: %w", err)
	}

	return recipients, nil
}

// LinkChat attaches a Telegram chat id to a user
func (r *UserRepositoryImpl) LinkChat(ctx context.Context, userID uuid.UUID, chatID string) error {
	query := `
		UPDATE users
		SET telegram_chat_id = $1, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := r.db.Exec(ctx, query, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to link chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecipientNotFound
	}

	return nil
}

// GetWeeklyGoals retrieves goals whose date range covers the week containing at
func (r *UserRepositoryImpl) GetWeeklyGoals(ctx context.Context, userID uuid.UUID, at time.Time) ([]domain.Goal, error) {
	query := `
		SELECT title, description, start_date, end_date
		FROM user_goals
		WHERE user_id = $1 AND start_date <= $2 AND end_date >= $2
		ORDER BY start_date ASC
	`

	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := r.db.Query(ctx, query, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly goals: %w", err)
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		var g domain.Goal
		if err := rows.Scan(&g.Title, &g.Description, &g.StartDate, &g.EndDate); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}

	return goals, nil
}

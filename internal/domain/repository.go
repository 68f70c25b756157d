package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CycleRepository defines the interface for cycle data operations
type CycleRepository interface {
	// Create inserts a new cycle
	Create(ctx context.Context, cycle *Cycle) error

	// Finish sets the terminal status of a running cycle. A cycle already
	// terminal is left untouched and reported as not updated.
	Finish(ctx context.Context, id uuid.UUID, status string, note *string, finishedAt time.Time) (bool, error)

	// GetByID retrieves a cycle by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Cycle, error)

	// GetRecent retrieves the most recent cycles
	GetRecent(ctx context.Context, limit int) ([]*Cycle, error)

	// GetLastWithData retrieves the latest successful cycle of a kind started before the given time
	// that stored normalized observations. Returns nil without error when there is none.
	GetLastWithData(ctx context.Context, kind string, before time.Time) (*Cycle, error)
}

// ObservationRepository defines the interface for raw and normalized observations
type ObservationRepository interface {
	// SaveRaw inserts a raw observation
	SaveRaw(ctx context.Context, raw *RawObservation) error

	// SaveNormalized inserts a normalized observation
	SaveNormalized(ctx context.Context, n *NormalizedObservation) error

	// GetNormalizedByCycle retrieves the normalized observations of a cycle
	GetNormalizedByCycle(ctx context.Context, cycleID uuid.UUID) ([]NormalizedObservation, error)
}

// SignalRepository defines the interface for signal data operations
type SignalRepository interface {
	// Save inserts a signal
	Save(ctx context.Context, signal *Signal) error

	// GetByCycle retrieves the signals of a cycle
	GetByCycle(ctx context.Context, cycleID uuid.UUID) ([]*Signal, error)
}

// ContextRepository defines the interface for market context records
type ContextRepository interface {
	// Save inserts a market context
	Save(ctx context.Context, mc *MarketContext) error

	// GetByCycle retrieves the context of a cycle, nil when absent
	GetByCycle(ctx context.Context, cycleID uuid.UUID) (*MarketContext, error)
}

// NotificationRepository defines the interface for delivery records
type NotificationRepository interface {
	// Save inserts a notification record
	Save(ctx context.Context, record *NotificationRecord) error

	// GetByCycle retrieves the delivery records of a cycle
	GetByCycle(ctx context.Context, cycleID uuid.UUID) ([]*NotificationRecord, error)
}

// RecipientRepository defines the interface for digest recipients
type RecipientRepository interface {
	// GetActive retrieves all users with a linked chat
	GetActive(ctx context.Context) ([]Recipient, error)

	// LinkChat attaches a chat id to a user
	LinkChat(ctx context.Context, userID uuid.UUID, chatID string) error
}

package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SourceClient fetches observations from one third-party provider
type SourceClient interface {
	// Name returns the source name used in logs and metrics
	Name() string

	// Fetch retrieves the current observations. A missing or malformed
	// field is reported as an error for the whole source.
	Fetch(ctx context.Context) ([]RawObservation, error)
}

// NotificationChannel delivers a message to one chat
type NotificationChannel interface {
	Name() string

	// Limit returns the maximum message length in characters
	Limit() int

	// Send delivers text. When plain is true no markup parse mode is requested.
	// Non-2xx responses are returned as *ChannelError.
	Send(ctx context.Context, chatID, text string, plain bool) error
}

// GoalService provides a user's weekly goals
type GoalService interface {
	GetWeeklyGoals(ctx context.Context, userID uuid.UUID, at time.Time) ([]Goal, error)
}

// QuoteService provides a short quote for the digest
type QuoteService interface {
	GetQuote(ctx context.Context, mood string) (*Quote, error)
}

// CycleEvent is published when a cycle reaches a terminal status
type CycleEvent struct {
	CycleID    uuid.UUID       `json:"cycle_id"`
	Kind       string          `json:"kind"`
	Status     string          `json:"status"`
	Context    string          `json:"context,omitempty"`
	Signals    int             `json:"signals"`
	Delivery   DeliverySummary `json:"delivery"`
	FinishedAt time.Time       `json:"finished_at"`
}

// EventPublisher publishes cycle events to downstream consumers
type EventPublisher interface {
	PublishCycle(ctx context.Context, event CycleEvent) error
	Close() error
}

// Locker grants exclusive leases keyed by name
type Locker interface {
	// TryLock acquires the lease when free. acquired is false when another holder owns it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, acquired bool, err error)
}

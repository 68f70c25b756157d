package domain

import (
	"time"

	"github.com/google/uuid"
)

// Delivery status
const (
	DeliveryStatusSuccess = "success"
	DeliveryStatusFailed  = "failed"
)

// ChannelTelegram is the only delivery channel currently wired
const ChannelTelegram = "telegram"

// Recipient is a user registered for market digests
type Recipient struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	ChatID string    `json:"chat_id"`
}

// NotificationRecord is the terminal outcome of delivering to one recipient.
// Exactly one is written per recipient per dispatch.
type NotificationRecord struct {
	ID        uuid.UUID  `json:"id"`
	CycleID   *uuid.UUID `json:"cycle_id,omitempty"`
	UserID    uuid.UUID  `json:"user_id"`
	Channel   string     `json:"channel"`
	Type      string     `json:"type"`
	Content   string     `json:"content"`
	Status    string     `json:"status"`
	Attempts  int        `json:"attempts"`
	Error     string     `json:"error,omitempty"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// DeliveryOutcome is returned to the caller of a dispatch
type DeliveryOutcome struct {
	Recipient Recipient `json:"recipient"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	Fallback  bool      `json:"fallback"`
	Err       error     `json:"-"`
}

// DeliverySummary aggregates outcomes of one batch
type DeliverySummary struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Add counts one outcome
func (s *DeliverySummary) Add(o DeliveryOutcome) {
	if o.Status == DeliveryStatusSuccess {
		s.Sent++
		return
	}
	s.Failed++
}

// Goal is a weekly goal supplied by the goal service
type Goal struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// Quote is a short motivational line supplied by the quote service
type Quote struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

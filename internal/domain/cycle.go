package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cycle represents one end-to-end pipeline run
type Cycle struct {
	ID         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"` // running, success, failed
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Note       *string    `json:"note,omitempty"`
}

// CycleStatus constants
const (
	CycleStatusRunning = "running"
	CycleStatusSuccess = "success"
	CycleStatusFailed  = "failed"
)

// CycleKindDaily is the kind used by the scheduled market digest
const CycleKindDaily = "daily_market"

// NoDataNote is recorded when a cycle finishes without any crawled data
const NoDataNote = "no data to process"

// IsTerminal reports whether the cycle has reached success or failed
func (c *Cycle) IsTerminal() bool {
	return c.Status == CycleStatusSuccess || c.Status == CycleStatusFailed
}

// CycleReport bundles a cycle with what it produced, for the admin API
type CycleReport struct {
	Cycle         *Cycle                `json:"cycle"`
	Signals       []*Signal             `json:"signals"`
	Context       *MarketContext        `json:"context,omitempty"`
	Notifications []*NotificationRecord `json:"notifications"`
}

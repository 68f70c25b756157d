package domain

import (
	"time"

	"github.com/google/uuid"
)

// Market context labels
const (
	ContextSystemStress = "SYSTEM_STRESS"
	ContextRiskOff      = "RISK_OFF"
	ContextNormal       = "NORMAL"
)

// Severity levels
const (
	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// ContextResult is the outcome of classifying a set of signals
type ContextResult struct {
	Context    string  `json:"context"`
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
}

// MarketContext is a persisted context classification for one cycle
type MarketContext struct {
	ID         uuid.UUID   `json:"id"`
	CycleID    uuid.UUID   `json:"cycle_id"`
	Context    string      `json:"context"`
	Severity   string      `json:"severity"`
	Confidence float64     `json:"confidence"`
	Summary    string      `json:"summary"`
	SignalRefs []uuid.UUID `json:"signal_refs"`
	CreatedAt  time.Time   `json:"created_at"`
}

package dto

import (
	"time"

	"marketpulse/internal/domain"
)

// RunCycleRequest represents the manual trigger request
type RunCycleRequest struct {
	Kind string `json:"kind"`
}

// CycleOutput represents a cycle in API responses
type CycleOutput struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Status     string  `json:"status"`
	StartedAt  string  `json:"started_at"`
	FinishedAt *string `json:"finished_at,omitempty"`
	Note       *string `json:"note,omitempty"`
}

// SignalOutput represents a signal in API responses
type SignalOutput struct {
	ID               string   `json:"id"`
	AssetCode        string   `json:"asset_code"`
	Series           string   `json:"series"`
	Direction        string   `json:"direction"`
	MagnitudePercent float64  `json:"magnitude_percent"`
	Confidence       float64  `json:"confidence"`
	Lineage          string   `json:"lineage"`
	BasedOn          []string `json:"based_on"`
}

// ContextOutput represents a market context in API responses
type ContextOutput struct {
	Context    string  `json:"context"`
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
}

// DeliveryOutput represents one notification record in API responses
type DeliveryOutput struct {
	UserID   string  `json:"user_id"`
	Channel  string  `json:"channel"`
	Status   string  `json:"status"`
	Attempts int     `json:"attempts"`
	Error    string  `json:"error,omitempty"`
	SentAt   *string `json:"sent_at,omitempty"`
}

// CycleReportOutput represents a cycle with everything it produced
type CycleReportOutput struct {
	Cycle      CycleOutput      `json:"cycle"`
	Signals    []SignalOutput   `json:"signals"`
	Context    *ContextOutput   `json:"context,omitempty"`
	Deliveries []DeliveryOutput `json:"deliveries"`
}

// NewCycleOutput converts a domain cycle
func NewCycleOutput(c *domain.Cycle) CycleOutput {
	out := CycleOutput{
		ID:        c.ID.String(),
		Kind:      c.Kind,
		Status:    c.Status,
		StartedAt: c.StartedAt.Format(time.RFC3339),
		Note:      c.Note,
	}
	if c.FinishedAt != nil {
		f := c.FinishedAt.Format(time.RFC3339)
		out.FinishedAt = &f
	}
	return out
}

// NewCycleReportOutput converts a domain report
func NewCycleReportOutput(r *domain.CycleReport) CycleReportOutput {
	out := CycleReportOutput{
		Cycle:      NewCycleOutput(r.Cycle),
		Signals:    make([]SignalOutput, 0, len(r.Signals)),
		Deliveries: make([]DeliveryOutput, 0, len(r.Notifications)),
	}

	for _, s := range r.Signals {
		refs := make([]string, 0, len(s.BasedOnRefs))
		for _, id := range s.BasedOnRefs {
			refs = append(refs, id.String())
		}
		out.Signals = append(out.Signals, SignalOutput{
			ID:               s.ID.String(),
			AssetCode:        s.AssetCode,
			Series:           s.Series.String(),
			Direction:        s.Direction,
			MagnitudePercent: s.MagnitudePercent,
			Confidence:       s.Confidence,
			Lineage:          s.Lineage,
			BasedOn:          refs,
		})
	}

	if r.Context != nil {
		out.Context = &ContextOutput{
			Context:    r.Context.Context,
			Severity:   r.Context.Severity,
			Confidence: r.Context.Confidence,
			Summary:    r.Context.Summary,
		}
	}

	for _, n := range r.Notifications {
		d := DeliveryOutput{
			UserID:   n.UserID.String(),
			Channel:  n.Channel,
			Status:   n.Status,
			Attempts: n.Attempts,
			Error:    n.Error,
		}
		if n.SentAt != nil {
			s := n.SentAt.Format(time.RFC3339)
			d.SentAt = &s
		}
		out.Deliveries = append(out.Deliveries, d)
	}

	return out
}

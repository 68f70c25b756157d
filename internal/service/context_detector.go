package service

import (
	"marketpulse/internal/domain"
)

// ContextRule classifies a signal set. Rules are evaluated in order; the first match wins.
type ContextRule struct {
	Name   string
	Match  func(signals []*domain.Signal) bool
	Result domain.ContextResult
}

// DefaultContextRules returns the stock rule table, most specific first
func DefaultContextRules() []ContextRule {
	return []ContextRule{
		{
			Name: "gold_and_usd_up",
			Match: func(s []*domain.Signal) bool {
				return anyMoved(s, domain.AssetGold, domain.DirectionUp) && anyMoved(s, domain.AssetUSD, domain.DirectionUp)
			},
			Result: domain.ContextResult{
				Context:    domain.ContextSystemStress,
				Severity:   domain.SeverityHigh,
				Confidence: 0.9,
				Summary:    "Gold and USD are rising together, a sign of systemic stress",
			},
		},
		{
			Name: "gold_up_stock_down",
			Match: func(s []*domain.Signal) bool {
				return anyMoved(s, domain.AssetGold, domain.DirectionUp) && anyMoved(s, domain.AssetStock, domain.DirectionDown)
			},
			Result: domain.ContextResult{
				Context:    domain.ContextRiskOff,
				Severity:   domain.SeverityMedium,
				Confidence: 0.8,
				Summary:    "Money is moving from equities into gold",
			},
		},
	}
}

var normalContext = domain.ContextResult{
	Context:    domain.ContextNormal,
	Severity:   domain.SeverityLow,
	Confidence: 0.6,
	Summary:    "Markets are moving within normal ranges",
}

// ContextDetector classifies the overall market state from signals
type ContextDetector struct {
	rules []ContextRule
}

// NewContextDetector creates a detector over the given rules
func NewContextDetector(rules []ContextRule) *ContextDetector {
	return &ContextDetector{rules: rules}
}

// DetectContext returns the result of the first matching rule, or NORMAL
func (d *ContextDetector) DetectContext(signals []*domain.Signal) domain.ContextResult {
	for _, rule := range d.rules {
		if rule.Match(signals) {
			return rule.Result
		}
	}
	return normalContext
}

// anyMoved reports whether any signal for asset moved in direction
func anyMoved(signals []*domain.Signal, asset, direction string) bool {
	for _, s := range signals {
		if s.Asset == asset && s.Direction == direction {
			return true
		}
	}
	return false
}

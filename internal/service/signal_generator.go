package service

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketpulse/internal/domain"
)

// SignalPolicy holds the thresholds used to classify changes
type SignalPolicy struct {
	DeadBandPercent   float64 `yaml:"dead_band_percent" default:"0.1" validate:"gte=0"`
	MatchedConfidence float64 `yaml:"matched_confidence" default:"0.9" validate:"gte=0,lte=1"`
	DefaultConfidence float64 `yaml:"default_confidence" default:"0.5" validate:"gte=0,lte=1"`
}

// DefaultSignalPolicy returns the stock thresholds
func DefaultSignalPolicy() SignalPolicy {
	return SignalPolicy{
		DeadBandPercent:   0.1,
		MatchedConfidence: 0.9,
		DefaultConfidence: 0.5,
	}
}

var hundred = decimal.NewFromInt(100)

// SignalGenerator compares today's observations with the previous period
type SignalGenerator struct {
	policy SignalPolicy
}

// NewSignalGenerator creates a new SignalGenerator
func NewSignalGenerator(policy SignalPolicy) *SignalGenerator {
	return &SignalGenerator{policy: policy}
}

// GenerateSignals emits one signal per observation in today, in order.
// previous may be empty.
func (g *SignalGenerator) GenerateSignals(today, previous []domain.NormalizedObservation) []*domain.Signal {
	prevBySeries := make(map[domain.SeriesKey]domain.NormalizedObservation, len(previous))
	for _, p := range previous {
		if _, seen := prevBySeries[p.Series()]; !seen {
			prevBySeries[p.Series()] = p
		}
	}

	signals := make([]*domain.Signal, 0, len(today))
	for _, t := range today {
		signal := &domain.Signal{
			CycleID:    t.CycleID,
			Asset:      t.Asset,
			AssetCode:  t.AssetCode,
			Series:     t.Series(),
			Direction:  domain.DirectionFlat,
			Confidence: g.policy.DefaultConfidence,
		}

		prev, ok := prevBySeries[t.Series()]
		if ok && !prev.Value.IsZero() {
			direction, magnitude := g.compare(t.Value, prev.Value)
			signal.Direction = direction
			signal.MagnitudePercent = magnitude
			signal.Confidence = g.policy.MatchedConfidence
			if prev.ID != uuid.Nil {
				ref := prev.ID
				signal.PreviousRef = &ref
			}
		}

		signals = append(signals, signal)
	}

	return signals
}

func (g *SignalGenerator) compare(today, prev decimal.Decimal) (string, float64) {
	pct := today.Sub(prev).Div(prev).Mul(hundred)
	band := decimal.NewFromFloat(g.policy.DeadBandPercent)
	magnitude := pct.Abs().Round(2).InexactFloat64()

	switch {
	case pct.GreaterThan(band):
		return domain.DirectionUp, magnitude
	case pct.LessThan(band.Neg()):
		return domain.DirectionDown, magnitude
	}
	return domain.DirectionFlat, magnitude
}

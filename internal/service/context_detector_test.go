package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketpulse/internal/domain"
)

func sig(asset, direction string) *domain.Signal {
	return &domain.Signal{Asset: asset, Direction: direction}
}

func TestContextDetector_DetectContext(t *testing.T) {
	detector := NewContextDetector(DefaultContextRules())

	tests := []struct {
		name           string
		signals        []*domain.Signal
		wantContext    string
		wantSeverity   string
		wantConfidence float64
		description    string
	}{
		{
			name:           "gold and usd up",
			signals:        []*domain.Signal{sig(domain.AssetGold, domain.DirectionUp), sig(domain.AssetUSD, domain.DirectionUp)},
			wantContext:    domain.ContextSystemStress,
			wantSeverity:   domain.SeverityHigh,
			wantConfidence: 0.9,
		},
		{
			name:           "gold up stock down",
			signals:        []*domain.Signal{sig(domain.AssetGold, domain.DirectionUp), sig(domain.AssetStock, domain.DirectionDown)},
			wantContext:    domain.ContextRiskOff,
			wantSeverity:   domain.SeverityMedium,
			wantConfidence: 0.8,
		},
		{
			name:           "nothing notable",
			signals:        []*domain.Signal{sig(domain.AssetGold, domain.DirectionFlat), sig(domain.AssetUSD, domain.DirectionUp)},
			wantContext:    domain.ContextNormal,
			wantSeverity:   domain.SeverityLow,
			wantConfidence: 0.6,
		},
		{
			name: "first rule wins",
			signals: []*domain.Signal{
				sig(domain.AssetGold, domain.DirectionUp),
				sig(domain.AssetUSD, domain.DirectionUp),
				sig(domain.AssetStock, domain.DirectionDown),
			},
			wantContext:    domain.ContextSystemStress,
			wantSeverity:   domain.SeverityHigh,
			wantConfidence: 0.9,
			description:    "stress outranks risk-off when both match",
		},
		{
			name: "any gold side qualifies",
			signals: []*domain.Signal{
				sig(domain.AssetGold, domain.DirectionFlat),
				sig(domain.AssetGold, domain.DirectionUp),
				sig(domain.AssetUSD, domain.DirectionUp),
			},
			wantContext:    domain.ContextSystemStress,
			wantSeverity:   domain.SeverityHigh,
			wantConfidence: 0.9,
		},
		{
			name:           "no signals",
			wantContext:    domain.ContextNormal,
			wantSeverity:   domain.SeverityLow,
			wantConfidence: 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detector.DetectContext(tt.signals)
			assert.Equal(t, tt.wantContext, got.Context, tt.description)
			assert.Equal(t, tt.wantSeverity, got.Severity)
			assert.Equal(t, tt.wantConfidence, got.Confidence)
			assert.NotEmpty(t, got.Summary)
		})
	}
}

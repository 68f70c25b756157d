package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"marketpulse/internal/domain"
)

// valuePrecision is the number of fractional digits kept on normalized values
const valuePrecision = 8

// Date layouts accepted from source clients, tried in order
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

// Normalizer converts raw observations into the canonical schema.
// It performs no I/O.
type Normalizer struct {
	location *time.Location
}

// NewNormalizer creates a Normalizer. Dates without an offset are read in loc.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{location: loc}
}

// Normalize converts a batch. Any observation that violates the raw contract
// fails the whole batch with ErrContractViolation.
func (n *Normalizer) Normalize(raw []domain.RawObservation) ([]domain.NormalizedObservation, error) {
	out := make([]domain.NormalizedObservation, 0, len(raw))
	for _, r := range raw {
		norm, err := n.normalizeOne(r)
		if err != nil {
			return nil, err
		}
		out = append(out, norm)
	}
	return out, nil
}

func (n *Normalizer) normalizeOne(r domain.RawObservation) (domain.NormalizedObservation, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(r.Value))
	if err != nil {
		return domain.NormalizedObservation{}, fmt.Errorf("%w: %s value %q is not numeric", domain.ErrContractViolation, r.Key(), r.Value)
	}

	effectiveAt, err := n.parseDate(r.Date)
	if err != nil {
		return domain.NormalizedObservation{}, fmt.Errorf("%w: %s date %q: %v", domain.ErrContractViolation, r.Key(), r.Date, err)
	}

	subType := subTypeFromLabel(r.Asset, r.SourceLabel)
	side := sideFromLabel(r.SourceLabel)

	assetCode, assetType, err := classify(r.Asset, subType, side)
	if err != nil {
		return domain.NormalizedObservation{}, fmt.Errorf("%w: %s: %v", domain.ErrContractViolation, r.Key(), err)
	}

	return domain.NormalizedObservation{
		CycleID:     r.CycleID,
		AssetCode:   assetCode,
		AssetType:   assetType,
		Asset:       r.Asset,
		SubType:     subType,
		Side:        side,
		Value:       value.Round(valuePrecision),
		Unit:        strings.ToUpper(r.Unit),
		EffectiveAt: effectiveAt,
		SourceLabel: r.SourceLabel,
		Origin:      r.Key(),
	}, nil
}

func (n *Normalizer) parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, n.location); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}

// subTypeFromLabel infers the instrument within an asset class from the source label
func subTypeFromLabel(asset, label string) string {
	if asset != domain.AssetCrypto {
		return ""
	}
	upper := strings.ToUpper(label)
	switch {
	case strings.Contains(upper, "BTC"):
		return "BTC"
	case strings.Contains(upper, "ETH"):
		return "ETH"
	}
	return ""
}

// sideFromLabel infers BUY or SELL from a label suffix
func sideFromLabel(label string) string {
	upper := strings.ToUpper(label)
	switch {
	case strings.HasSuffix(upper, "_SELL"):
		return domain.SideSell
	case strings.HasSuffix(upper, "_BUY"):
		return domain.SideBuy
	}
	return ""
}

func classify(asset, subType, side string) (code, assetType string, err error) {
	switch asset {
	case domain.AssetUSD:
		return "USDVND", domain.AssetTypeFX, nil
	case domain.AssetGold:
		code = "XAUVND"
		if side != "" {
			code += "_" + side
		}
		return code, domain.AssetTypeGold, nil
	case domain.AssetCrypto:
		if subType == "" {
			return "", "", fmt.Errorf("unknown crypto instrument")
		}
		return subType + "USD", domain.AssetTypeCrypto, nil
	case domain.AssetStock:
		return "VNINDEX", domain.AssetTypeStock, nil
	}
	return "", "", fmt.Errorf("unknown asset %q", asset)
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Asset constants as emitted by source clients
const (
	AssetGold   = "GOLD"
	AssetUSD    = "USD"
	AssetCrypto = "CRYPTO"
	AssetStock  = "STOCK"
)

// Canonical asset types
const (
	AssetTypeFX     = "fx"
	AssetTypeGold   = "gold"
	AssetTypeCrypto = "crypto"
	AssetTypeStock  = "stock"
)

// Units
const (
	UnitVND   = "VND"
	UnitUSD   = "USD"
	UnitPoint = "POINT"
)

// Quote sides
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// RawObservation is a single reading exactly as a source client produced it.
// It is never modified after being written.
type RawObservation struct {
	ID          uuid.UUID `json:"id"`
	CycleID     uuid.UUID `json:"cycle_id"`
	SourceLabel string    `json:"source"`
	Asset       string    `json:"asset"`
	Unit        string    `json:"unit"`
	Date        string    `json:"date"`
	Value       string    `json:"value"`
	Payload     []byte    `json:"payload,omitempty"`
	Checksum    string    `json:"checksum"`
}

// Key returns the lineage key of the raw observation
func (r RawObservation) Key() RawKey {
	return RawKey{Asset: r.Asset, Source: r.SourceLabel, Unit: r.Unit}
}

// NormalizedObservation is the canonical form of a raw observation
type NormalizedObservation struct {
	ID          uuid.UUID       `json:"id"`
	CycleID     uuid.UUID       `json:"cycle_id"`
	RawRef      uuid.UUID       `json:"raw_ref"`
	AssetCode   string          `json:"asset_code"`
	AssetType   string          `json:"asset_type"`
	Asset       string          `json:"asset"`
	SubType     string          `json:"sub_type,omitempty"`
	Side        string          `json:"side,omitempty"`
	Value       decimal.Decimal `json:"value"`
	Unit        string          `json:"unit"`
	EffectiveAt time.Time       `json:"effective_at"`
	SourceLabel string          `json:"source"`

	// Origin is the lineage key of the raw observation this was derived from
	Origin RawKey `json:"-"`
}

// Series returns the key used to match this observation across periods
func (n NormalizedObservation) Series() SeriesKey {
	return SeriesKey{Asset: n.Asset, SubType: n.SubType, Side: n.Side}
}

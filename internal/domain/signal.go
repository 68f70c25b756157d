package domain

import (
	"github.com/google/uuid"
)

// Signal directions
const (
	DirectionUp   = "UP"
	DirectionDown = "DOWN"
	DirectionFlat = "FLAT"
)

// Signal is a directional change derived for one series
type Signal struct {
	ID               uuid.UUID   `json:"id"`
	CycleID          uuid.UUID   `json:"cycle_id"`
	Asset            string      `json:"asset"`
	AssetCode        string      `json:"asset_code"`
	Series           SeriesKey   `json:"series"`
	Direction        string      `json:"direction"`
	MagnitudePercent float64     `json:"magnitude_percent"`
	Confidence       float64     `json:"confidence"`
	BasedOnRefs      []uuid.UUID `json:"based_on_refs"`
	PreviousRef      *uuid.UUID  `json:"previous_ref,omitempty"`
	Lineage          string      `json:"lineage"`
}

package domain

import "fmt"

// RawKey identifies a raw observation within one cycle
type RawKey struct {
	Asset  string
	Source string
	Unit   string
}

func (k RawKey) String() string {
	return fmt.Sprintf("%s_%s_%s", k.Asset, k.Source, k.Unit)
}

// SeriesKey identifies a comparable price series across periods
type SeriesKey struct {
	Asset   string `json:"asset"`
	SubType string `json:"sub_type,omitempty"`
	Side    string `json:"side,omitempty"`
}

func (k SeriesKey) String() string {
	s := k.Asset
	if k.SubType != "" {
		s += "/" + k.SubType
	}
	if k.Side != "" {
		s += "/" + k.Side
	}
	return s
}

// Lineage status of a signal
const (
	LineageResolved   = "resolved"
	LineageUnresolved = "unresolved"
)

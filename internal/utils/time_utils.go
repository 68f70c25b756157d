package utils

import (
	"sync"
	"time"
)

var (
	mu        sync.RWMutex
	marketLoc = loadOrLocal("Asia/Ho_Chi_Minh")
)

func loadOrLocal(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Fallback to Local if timezone data is missing.
		// In production docker, ensure tzdata is installed
		return time.Local
	}
	return loc
}

// SetLocation replaces the market timezone
func SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	marketLoc = loc
}

// GetLocation returns the market *time.Location
func GetLocation() *time.Location {
	mu.RLock()
	defer mu.RUnlock()
	return marketLoc
}

// GetMarketTime returns current time in the market timezone
func GetMarketTime() time.Time {
	return time.Now().In(GetLocation())
}

// GetStartOfDay returns 00:00:00 of t's calendar day in the market timezone
func GetStartOfDay(t time.Time) time.Time {
	loc := GetLocation()
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

package model

import "time"

// Direction classifies a crossover event.
type Direction string

const (
	// CrossBullish means the fast EMA crossed above the slow EMA.
	CrossBullish Direction = "bullish"
	// CrossBearish means the fast EMA crossed below the slow EMA.
	CrossBearish Direction = "bearish"
)

// CrossEvent records a single detected EMA crossover. Immutable after
// creation.
type CrossEvent struct {
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Index      int       `json:"index"` // index into the indicator bundle
	Direction  Direction `json:"direction"`
	FastPeriod int       `json:"fast_period"`
	SlowPeriod int       `json:"slow_period"`
	DetectedAt time.Time `json:"detected_at"`
}

// CandlesSince returns how many candles have elapsed between the cross
// and currentIndex.
func (e *CrossEvent) CandlesSince(currentIndex int) int {
	return currentIndex - e.Index
}

// WithinWindow reports whether currentIndex is still inside the
// post-cross evaluation window (inclusive boundary).
func (e *CrossEvent) WithinWindow(currentIndex, window int) bool {
	return e.CandlesSince(currentIndex) <= window
}

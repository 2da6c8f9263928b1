// Package cross detects EMA crossover events on an indicator bundle.
//
// A bullish cross is the fast EMA closing above the slow EMA after being
// at or below it on the previous candle; a bearish cross is the mirror.
// Detection scans a short recent window most-recent-first so that a slow
// polling cycle cannot silently skip a cross.
package cross

import (
	"log"
	"math"
	"time"

	"crossbot/internal/model"
)

// DefaultLookback is how many recent candles Detect scans for a cross.
const DefaultLookback = 5

// Detector finds crossovers between a fast and a slow EMA series.
type Detector struct {
	fastPeriod int
	slowPeriod int
}

// NewDetector creates a detector for the given EMA pair.
// fastPeriod < slowPeriod (e.g. 50 and 200).
func NewDetector(fastPeriod, slowPeriod int) *Detector {
	return &Detector{fastPeriod: fastPeriod, slowPeriod: slowPeriod}
}

// Detect scans the last lookback candles, newest first, and returns the
// most recent cross found, or nil when none occurred. Returns nil when
// either EMA series is shorter than lookback+1: an absent or truncated
// series can never produce a cross.
func (d *Detector) Detect(b *model.Bundle, lookback int) *model.CrossEvent {
	fast := b.EMASeries(d.fastPeriod)
	slow := b.EMASeries(d.slowPeriod)
	if len(fast) < lookback+1 || len(slow) < lookback+1 {
		log.Printf("[cross] insufficient EMA data for %s %s", b.Symbol, b.Timeframe)
		return nil
	}

	currentIdx := len(fast) - 1
	for i := 0; i < lookback; i++ {
		idx := currentIdx - i
		dir, ok := classify(fast[idx-1], fast[idx], slow[idx-1], slow[idx])
		if !ok {
			continue
		}
		log.Printf("[cross] %s cross detected: %s %s at index %d (%d candles back)",
			dir, b.Symbol, b.Timeframe, idx, i)
		return &model.CrossEvent{
			Symbol:     b.Symbol,
			Timeframe:  b.Timeframe,
			Index:      idx,
			Direction:  dir,
			FastPeriod: d.fastPeriod,
			SlowPeriod: d.slowPeriod,
			DetectedAt: time.Now().UTC(),
		}
	}
	return nil
}

// FindRecent returns every cross within the last maxLookback candles in
// chronological order. Used by the one-shot scanner to show history.
func (d *Detector) FindRecent(b *model.Bundle, maxLookback int) []model.CrossEvent {
	fast := b.EMASeries(d.fastPeriod)
	slow := b.EMASeries(d.slowPeriod)
	if len(fast) < 2 || len(slow) < 2 {
		return nil
	}

	var crosses []model.CrossEvent
	start := len(fast) - maxLookback
	if start < 1 {
		start = 1
	}
	for i := start; i < len(fast); i++ {
		dir, ok := classify(fast[i-1], fast[i], slow[i-1], slow[i])
		if !ok {
			continue
		}
		crosses = append(crosses, model.CrossEvent{
			Symbol:     b.Symbol,
			Timeframe:  b.Timeframe,
			Index:      i,
			Direction:  dir,
			FastPeriod: d.fastPeriod,
			SlowPeriod: d.slowPeriod,
			DetectedAt: time.Now().UTC(),
		})
	}
	return crosses
}

// Strength measures the current separation between the EMAs as a
// fraction of the slow EMA. Zero when the slow EMA is zero or a series
// is missing.
func (d *Detector) Strength(b *model.Bundle) float64 {
	fast := b.EMASeries(d.fastPeriod)
	slow := b.EMASeries(d.slowPeriod)
	if len(fast) == 0 || len(slow) == 0 {
		return 0
	}
	last := len(slow) - 1
	if slow[last] == 0 {
		return 0
	}
	return math.Abs(fast[len(fast)-1]-slow[last]) / slow[last]
}

// IsValid reports whether the EMAs have separated enough after the cross
// for it to count as significant.
func (d *Detector) IsValid(b *model.Bundle, minSeparation float64) bool {
	return d.Strength(b) >= minSeparation
}

// classify decides whether the pair of consecutive EMA values forms a
// cross, and in which direction.
func classify(fastPrev, fastCurr, slowPrev, slowCurr float64) (model.Direction, bool) {
	if fastPrev <= slowPrev && fastCurr > slowCurr {
		return model.CrossBullish, true
	}
	if fastPrev >= slowPrev && fastCurr < slowCurr {
		return model.CrossBearish, true
	}
	return "", false
}

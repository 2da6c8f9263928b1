// Package feature computes the confirmation features that decide whether
// an armed EMA cross becomes a signal.
//
// Every feature is evaluated on each pass, never short-circuited, so the
// full picture lands in logs and notifications even when an early check
// already failed. Undefined indicator values (NaN before warm-up) compare
// false against thresholds and so fail their check closed.
package feature

import (
	"log"
	"math"

	"crossbot/internal/model"
)

// Config carries the thresholds for all confirmation checks.
type Config struct {
	// Trend strength: ADX on both timeframes must exceed its threshold.
	ADXThreshold15m float64
	ADXThreshold1h  float64

	// Momentum bias: RSI on both timeframes must exceed its threshold.
	RSIThreshold15m float64
	RSIThreshold1h  float64

	// Structure hold (informational).
	StructureLookback int
	StructureMinHolds int

	// Reclaim pattern (informational).
	ReclaimLookback int

	// EMA expansion: (fast-slow)/slow spread must exceed this.
	ExpansionThreshold float64

	// Volume confirmation, measured at cross time.
	VolumeCrossWindow    int
	VolumeBaselinePeriod int
	VolumeMinRatio       float64

	// Informational minimum age of the cross, in hours.
	MinHoursSinceCross float64

	FastEMA int
	SlowEMA int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		ADXThreshold15m:      25,
		ADXThreshold1h:       22,
		RSIThreshold15m:      50,
		RSIThreshold1h:       50,
		StructureLookback:    5,
		StructureMinHolds:    2,
		ReclaimLookback:      4,
		ExpansionThreshold:   0.002,
		VolumeCrossWindow:    2,
		VolumeBaselinePeriod: 50,
		VolumeMinRatio:       2.0,
		MinHoursSinceCross:   0,
		FastEMA:              50,
		SlowEMA:              200,
	}
}

// Calculator evaluates all confirmation features for a cross.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a calculator with the given thresholds.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Calculate computes every feature for the active cross. Trend and
// momentum need both the 15m and 1h bundles; the remaining checks read
// the 15m bundle only.
func (c *Calculator) Calculate(b15m, b1h *model.Bundle, ev *model.CrossEvent) model.Features {
	var f model.Features

	f.TrendOK, f.ADX15m, f.ADX1h = c.trendStrength(b15m, b1h)
	f.MomentumOK, f.RSI15m, f.RSI1h = c.momentumBias(b15m, b1h)
	f.StructureOK, f.HoldCount = c.structureHold(b15m)
	f.Reclaim = c.reclaimPattern(b15m)
	f.Expanding, f.ExpansionSpread = c.emaExpansion(b15m)
	f.SlopeRising, f.SlopeRatio = c.slopeFilter(b15m, ev)
	f.VolumeScore, f.VolumeRatio = c.volumeScore(b15m, ev)
	f.HoursSinceCross = c.hoursSinceCross(b15m, ev)

	return f
}

// MeetsMinimumAge reports whether the cross is at least the configured
// number of hours old. Informational only.
func (c *Calculator) MeetsMinimumAge(b *model.Bundle, ev *model.CrossEvent) (bool, float64) {
	hours := c.hoursSinceCross(b, ev)
	return hours >= c.cfg.MinHoursSinceCross, hours
}

func (c *Calculator) hoursSinceCross(b *model.Bundle, ev *model.CrossEvent) float64 {
	return model.CandlesToHours(ev.CandlesSince(b.LastIndex()), ev.Timeframe)
}

// trendStrength checks ADX on both timeframes. Both must exceed their
// threshold; a missing series fails the check.
func (c *Calculator) trendStrength(b15m, b1h *model.Bundle) (bool, float64, float64) {
	if len(b15m.ADX) == 0 {
		return false, 0, 0
	}
	adx15m := b15m.ADX[len(b15m.ADX)-1]
	if len(b1h.ADX) == 0 {
		return false, adx15m, 0
	}
	adx1h := b1h.ADX[len(b1h.ADX)-1]

	ok := adx15m > c.cfg.ADXThreshold15m && adx1h > c.cfg.ADXThreshold1h
	return ok, adx15m, adx1h
}

// momentumBias checks RSI on both timeframes. NaN warm-up values never
// clear a threshold.
func (c *Calculator) momentumBias(b15m, b1h *model.Bundle) (bool, float64, float64) {
	if len(b15m.RSI) == 0 {
		return false, 0, 0
	}
	rsi15m := b15m.RSI[len(b15m.RSI)-1]
	if len(b1h.RSI) == 0 {
		return false, rsi15m, 0
	}
	rsi1h := b1h.RSI[len(b1h.RSI)-1]

	ok := rsi15m > c.cfg.RSIThreshold15m && rsi1h > c.cfg.RSIThreshold1h
	return ok, rsi15m, rsi1h
}

// structureHold counts how many of the last StructureLookback closes sit
// above the slow EMA.
func (c *Calculator) structureHold(b *model.Bundle) (bool, int) {
	lookback := c.cfg.StructureLookback
	ema := b.EMASeries(c.cfg.SlowEMA)
	if len(b.Close) < lookback || len(ema) < lookback {
		return false, 0
	}

	holds := 0
	for i := len(b.Close) - lookback; i < len(b.Close); i++ {
		if b.Close[i] > ema[i] {
			holds++
		}
	}
	return holds >= c.cfg.StructureMinHolds, holds
}

// reclaimPattern checks whether price dipped below the slow EMA within
// the lookback window but has closed back above it now.
func (c *Calculator) reclaimPattern(b *model.Bundle) bool {
	lookback := c.cfg.ReclaimLookback
	ema := b.EMASeries(c.cfg.SlowEMA)
	if len(b.Close) < lookback || len(ema) < lookback {
		return false
	}

	n := len(b.Close)
	minClose, minEMA := math.Inf(1), math.Inf(1)
	for i := n - lookback; i < n-1; i++ {
		if b.Close[i] < minClose {
			minClose = b.Close[i]
		}
		if ema[i] < minEMA {
			minEMA = ema[i]
		}
	}

	currentAbove := b.Close[n-1] > ema[n-1]
	wasBelow := minClose < minEMA
	return wasBelow && currentAbove
}

// emaExpansion measures the fast/slow EMA spread as a fraction of the
// slow EMA.
func (c *Calculator) emaExpansion(b *model.Bundle) (bool, float64) {
	fast := b.EMASeries(c.cfg.FastEMA)
	slow := b.EMASeries(c.cfg.SlowEMA)
	if len(fast) == 0 || len(slow) == 0 {
		return false, 0
	}
	slowNow := slow[len(slow)-1]
	if slowNow == 0 {
		return false, 0
	}

	spread := (fast[len(fast)-1] - slowNow) / slowNow
	return spread > c.cfg.ExpansionThreshold, spread
}

// slopeFilter compares the slow EMA now against its value at the cross.
// A cross index outside the series fails closed, as does a zero base.
func (c *Calculator) slopeFilter(b *model.Bundle, ev *model.CrossEvent) (bool, float64) {
	ema := b.EMASeries(c.cfg.SlowEMA)
	if len(ema) == 0 || ev.Index < 0 || ev.Index >= len(ema) {
		log.Printf("[feature] %s %s: cross index %d outside EMA%d series (len %d)",
			b.Symbol, b.Timeframe, ev.Index, c.cfg.SlowEMA, len(ema))
		return false, 0
	}

	atCross := ema[ev.Index]
	now := ema[len(ema)-1]
	if atCross == 0 {
		return false, 0
	}
	return now > atCross, (now - atCross) / atCross
}

// volumeScore compares the average volume in a small window around the
// cross against the average over a baseline stretch before that window.
// The score is 1 only when the ratio clears VolumeMinRatio; a baseline
// shorter than half its configured period cannot score.
func (c *Calculator) volumeScore(b *model.Bundle, ev *model.CrossEvent) (int, float64) {
	window := c.cfg.VolumeCrossWindow
	baselinePeriod := c.cfg.VolumeBaselinePeriod

	crossStart := ev.Index - window
	if crossStart < 0 {
		crossStart = 0
	}
	crossEnd := ev.Index + window + 1
	if crossEnd > len(b.Volume) {
		crossEnd = len(b.Volume)
	}
	if crossEnd <= crossStart {
		return 0, 0
	}

	baselineStart := crossStart - baselinePeriod
	if baselineStart < 0 {
		baselineStart = 0
	}
	baseline := b.Volume[baselineStart:crossStart]
	if len(baseline) < baselinePeriod/2 {
		log.Printf("[feature] %s %s: baseline too short for volume check (%d candles)",
			b.Symbol, b.Timeframe, len(baseline))
		return 0, 0
	}

	avgCross := mean(b.Volume[crossStart:crossEnd])
	avgBaseline := mean(baseline)
	if avgBaseline == 0 {
		return 0, 0
	}

	ratio := avgCross / avgBaseline
	if ratio >= c.cfg.VolumeMinRatio {
		return 1, ratio
	}
	return 0, ratio
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

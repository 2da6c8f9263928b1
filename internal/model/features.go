package model

// Features is the checklist snapshot computed for one evaluation.
// Recomputed fresh every time; never merged with a prior value.
//
// TrendOK, MomentumOK, Expanding, SlopeRising and VolumeScore feed the
// compulsory gate. StructureOK, Reclaim and HoursSinceCross are
// informational only.
type Features struct {
	// Trend strength (ADX, both timeframes).
	TrendOK  bool    `json:"trend_ok"`
	ADX15m   float64 `json:"adx_15m"`
	ADX1h    float64 `json:"adx_1h"`

	// Momentum bias (RSI, both timeframes).
	MomentumOK bool    `json:"momentum_ok"`
	RSI15m     float64 `json:"rsi_15m"`
	RSI1h      float64 `json:"rsi_1h"`

	// Structure hold: closes above EMA200 over the recent lookback.
	StructureOK bool `json:"structure_ok"`
	HoldCount   int  `json:"hold_count"`

	// Reclaim pattern: dipped below EMA200 recently, back above now.
	Reclaim bool `json:"reclaim"`

	// EMA expansion: fast/slow spread.
	Expanding       bool    `json:"expanding"`
	ExpansionSpread float64 `json:"expansion_spread"`

	// EMA200 slope: now vs at cross.
	SlopeRising bool    `json:"slope_rising"`
	SlopeRatio  float64 `json:"slope_ratio"`

	// Volume around the cross vs pre-cross baseline.
	VolumeScore int     `json:"volume_score"` // 1 = pass, 0 = fail
	VolumeRatio float64 `json:"volume_ratio"`

	// Elapsed time since the cross, for reporting only.
	HoursSinceCross float64 `json:"hours_since_cross"`
}

// GatePass reports whether every compulsory criterion passed.
// Structure and reclaim are deliberately absent.
func (f *Features) GatePass() bool {
	return f.TrendOK &&
		f.MomentumOK &&
		f.Expanding &&
		f.SlopeRising &&
		f.VolumeScore == 1
}

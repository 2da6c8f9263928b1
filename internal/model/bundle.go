package model

// Bundle holds the per-timeframe indicator series for one symbol.
// Every slice is aligned index-for-index with the candle series it was
// computed from: index i across all columns refers to the same candle.
// Leading RSI entries before warm-up are NaN; leading ADX entries are 0.
//
// EMA series are keyed by period explicitly (no name-based lookup):
// a missing period returns nil from EMASeries and downstream checks
// fail closed on it.
type Bundle struct {
	Symbol    string
	Timeframe string

	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64

	EMA map[int][]float64
	RSI []float64
	ADX []float64
}

// Len returns the candle count of the bundle.
func (b *Bundle) Len() int { return len(b.Close) }

// LastIndex returns the index of the newest candle, or -1 if empty.
func (b *Bundle) LastIndex() int { return len(b.Close) - 1 }

// EMASeries returns the full EMA series for the given period,
// or nil if that period was not configured.
func (b *Bundle) EMASeries(period int) []float64 {
	if b.EMA == nil {
		return nil
	}
	return b.EMA[period]
}

// HasMinCandles reports whether every column carries at least n values.
// Used as the data-quality gate before evaluation.
func (b *Bundle) HasMinCandles(n int) bool {
	if len(b.Close) < n || len(b.Volume) < n || len(b.RSI) < n || len(b.ADX) < n {
		return false
	}
	for _, series := range b.EMA {
		if len(series) < n {
			return false
		}
	}
	return len(b.EMA) > 0
}

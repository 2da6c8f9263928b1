package indicator

// EMA computes the full exponential moving average series for the given
// closes, seeded with the first close (no SMA warm-up):
//
//	ema[0] = close[0]
//	ema[i] = ema[i-1] + α·(close[i] - ema[i-1]),  α = 2/(period+1)
//
// Every entry is defined from index 0 onward.
func EMA(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}

	alpha := 2.0 / float64(period+1)
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = out[i-1] + alpha*(closes[i]-out[i-1])
	}
	return out
}

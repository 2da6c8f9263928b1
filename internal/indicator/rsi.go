package indicator

import "math"

// RSI computes the full Wilder-style RSI series. The first period entries
// are NaN. The seed averages are the simple mean of the deltas inside the
// first period candles (period-1 deltas), applied separately to the gain
// and loss streams; from index period onward the running averages use
// Wilder's smoothing:
//
//	avg = (avg*(period-1) + current) / period
//
// RSI saturates at 100 when the average loss is zero.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if period < 2 || len(closes) <= period {
		return out
	}

	var gainSum, lossSum float64
	for i := 1; i < period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period-1)
	avgLoss := lossSum / float64(period-1)

	p := float64(period)
	for i := period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p

		if avgLoss == 0 {
			out[i] = 100.0
		} else {
			rs := avgGain / avgLoss
			out[i] = 100.0 - 100.0/(1.0+rs)
		}
	}
	return out
}

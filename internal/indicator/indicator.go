// Package indicator provides technical indicator calculations over candle data.
//
// All functions are pure: given the same input series they reproduce the
// same output bit-for-bit, which the cross detector and feature calculator
// rely on for exact index alignment. Every function returns a series of the
// same length as its input; entries before an indicator's warm-up window
// are NaN (RSI, RMA) or zero (ADX), and NaN compares false against any
// threshold.
package indicator

import "math"

// RMA computes Wilder's running moving average: the first defined value
// (at index period-1) is the simple mean of the first period inputs, after
// which rma[i] = (rma[i-1]*(period-1) + v[i]) / period. Entries before
// index period-1 are NaN, as is the whole series when the input is shorter
// than period.
func RMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out[period-1] = sum / float64(period)

	p := float64(period)
	for i := period; i < len(values); i++ {
		out[i] = (out[i-1]*(p-1) + values[i]) / p
	}
	return out
}

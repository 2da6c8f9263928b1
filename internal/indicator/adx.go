package indicator

import "math"

// ADX computes the full Average Directional Index series from the
// directional-movement system:
//
//   - +DM/-DM keep only the larger, positive directional move per bar
//     (ties zero both).
//   - True range = max(high-low, |high-prevClose|, |low-prevClose|);
//     the first bar's TR is simply high-low.
//   - TR, +DM and -DM are smoothed with Wilder's RMA over diPeriod,
//     +DI/-DI derived from the smoothed values, DX from the DI spread,
//     and ADX is RMA(DX, adxPeriod) scaled to 0..100.
//
// DX is zero wherever its inputs are undefined or its denominator is
// zero, so those bars contribute zeros to the ADX seed. Entries before
// the ADX warm-up are returned as 0, never dropped: the output always
// has the same length as the input.
func ADX(highs, lows, closes []float64, diPeriod, adxPeriod int) []float64 {
	n := len(closes)
	if n == 0 || len(highs) != n || len(lows) != n {
		return make([]float64, n)
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]

	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}

		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	trRMA := RMA(tr, diPeriod)
	plusRMA := RMA(plusDM, diPeriod)
	minusRMA := RMA(minusDM, diPeriod)

	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(trRMA[i]) || trRMA[i] == 0 {
			continue // dx stays 0
		}
		plusDI := 100.0 * plusRMA[i] / trRMA[i]
		minusDI := 100.0 * minusRMA[i] / trRMA[i]
		sum := plusDI + minusDI
		if sum == 0 {
			continue
		}
		dx[i] = math.Abs(plusDI-minusDI) / sum
	}

	adx := RMA(dx, adxPeriod)
	for i := range adx {
		if math.IsNaN(adx[i]) {
			adx[i] = 0
		} else {
			adx[i] *= 100.0
		}
	}
	return adx
}

package indicator

import (
	"math"
	"testing"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// ────────────────────────────────────────────────────────────
// RMA Correctness
// ────────────────────────────────────────────────────────────

func TestRMA_Correctness_Period3(t *testing.T) {
	// Hand-calculated RMA(3) for [1, 2, 3, 4, 5]:
	// seed at index 2: (1+2+3)/3 = 2.0
	// index 3: (2*2 + 4)/3 = 8/3 ≈ 2.6667
	// index 4: (8/3*2 + 5)/3 = 31/9 ≈ 3.4444
	out := RMA([]float64{1, 2, 3, 4, 5}, 3)

	if len(out) != 5 {
		t.Fatalf("length: got %d, want 5", len(out))
	}
	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Errorf("warm-up entries should be NaN, got %v %v", out[0], out[1])
	}
	assertClose(t, "RMA(3)[2]", out[2], 2.0, 1e-9)
	assertClose(t, "RMA(3)[3]", out[3], 8.0/3.0, 1e-9)
	assertClose(t, "RMA(3)[4]", out[4], 31.0/9.0, 1e-9)
}

func TestRMA_ShortInput(t *testing.T) {
	out := RMA([]float64{1, 2}, 3)
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Errorf("index %d: expected NaN for input shorter than period, got %v", i, v)
		}
	}
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period3(t *testing.T) {
	// α = 2/(3+1) = 0.5, seeded with the first close:
	// ema[0] = 10
	// ema[1] = 10 + 0.5*(11-10) = 10.5
	// ema[2] = 10.5 + 0.5*(12-10.5) = 11.25
	// ema[3] = 11.25 + 0.5*(13-11.25) = 12.125
	out := EMA([]float64{10, 11, 12, 13}, 3)
	want := []float64{10, 10.5, 11.25, 12.125}

	if len(out) != len(want) {
		t.Fatalf("length: got %d, want %d", len(out), len(want))
	}
	for i := range want {
		assertClose(t, "EMA(3)", out[i], want[i], 1e-9)
	}
}

func TestEMA_LengthMatchesInput(t *testing.T) {
	for _, n := range []int{0, 1, 5, 500} {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = float64(i) + 1
		}
		if got := len(EMA(closes, 200)); got != n {
			t.Errorf("n=%d: EMA length %d", n, got)
		}
	}
}

// ────────────────────────────────────────────────────────────
// RSI Correctness
// ────────────────────────────────────────────────────────────

func TestRSI_Correctness_Period3(t *testing.T) {
	// Closes: 1, 2, 3, 4, 3, 2. Seed over the deltas inside the first
	// 3 candles: gains (1, 1), losses none → avgGain=1, avgLoss=0.
	// i=3 (Δ=+1): avgGain=1, avgLoss=0        → RSI=100
	// i=4 (Δ=-1): avgGain=2/3, avgLoss=1/3    → RS=2   → RSI=66.6667
	// i=5 (Δ=-1): avgGain=4/9, avgLoss=5/9    → RS=0.8 → RSI=44.4444
	out := RSI([]float64{1, 2, 3, 4, 3, 2}, 3)

	if len(out) != 6 {
		t.Fatalf("length: got %d, want 6", len(out))
	}
	for i := 0; i < 3; i++ {
		if !math.IsNaN(out[i]) {
			t.Errorf("index %d: expected NaN before warm-up, got %v", i, out[i])
		}
	}
	assertClose(t, "RSI[3]", out[3], 100.0, 1e-9)
	assertClose(t, "RSI[4]", out[4], 100.0-100.0/3.0, 1e-9)
	assertClose(t, "RSI[5]", out[5], 100.0-100.0/1.8, 1e-9)
}

func TestRSI_SaturatesAt100(t *testing.T) {
	// Strictly rising closes: average loss stays zero, RSI pegs at 100.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = float64(i) + 1
	}
	out := RSI(closes, 14)
	for i := 14; i < len(out); i++ {
		assertClose(t, "RSI rising", out[i], 100.0, 1e-9)
	}
}

func TestRSI_NaNComparesFalse(t *testing.T) {
	out := RSI([]float64{1, 2, 3}, 14)
	for i, v := range out {
		if v > 50 {
			t.Errorf("index %d: undefined RSI must not pass a threshold check", i)
		}
	}
}

// ────────────────────────────────────────────────────────────
// ADX Correctness
// ────────────────────────────────────────────────────────────

func TestADX_FlatSeriesIsZero(t *testing.T) {
	n := 50
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i], lows[i], closes[i] = 100, 100, 100
	}

	out := ADX(highs, lows, closes, 14, 14)
	if len(out) != n {
		t.Fatalf("length: got %d, want %d", len(out), n)
	}
	for i, v := range out {
		if v != 0 {
			t.Errorf("index %d: flat series ADX should be 0, got %v", i, v)
		}
	}
}

func TestADX_StrongUptrend(t *testing.T) {
	// One-directional movement: +DM every bar, -DM never, so DX→1 and
	// the smoothed ADX climbs toward 100.
	n := 60
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = float64(i) + 1
		lows[i] = float64(i)
		closes[i] = float64(i) + 0.8
	}

	out := ADX(highs, lows, closes, 3, 3)

	// Warm-up entries reported as zero, never dropped.
	if out[0] != 0 || out[1] != 0 {
		t.Errorf("warm-up entries should be 0, got %v %v", out[0], out[1])
	}
	// Seed at index 2 averages two zero DX bars with one full bar.
	assertClose(t, "ADX seed", out[2], 100.0/3.0, 1e-6)
	if out[n-1] < 90 {
		t.Errorf("sustained uptrend: ADX should approach 100, got %.2f", out[n-1])
	}
	for i := 3; i < n; i++ {
		if out[i] <= out[i-1] {
			t.Errorf("index %d: ADX should rise monotonically here (%.4f <= %.4f)", i, out[i], out[i-1])
		}
	}
}

func TestADX_LengthMatchesInput(t *testing.T) {
	for _, n := range []int{0, 1, 10, 500} {
		highs := make([]float64, n)
		lows := make([]float64, n)
		closes := make([]float64, n)
		for i := 0; i < n; i++ {
			highs[i] = float64(i) + 2
			lows[i] = float64(i)
			closes[i] = float64(i) + 1
		}
		if got := len(ADX(highs, lows, closes, 14, 14)); got != n {
			t.Errorf("n=%d: ADX length %d", n, got)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Determinism
// ────────────────────────────────────────────────────────────

func TestIndicators_Deterministic(t *testing.T) {
	n := 300
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		base := 100 + 10*math.Sin(float64(i)/7)
		highs[i] = base + 1.5
		lows[i] = base - 1.5
		closes[i] = base + math.Cos(float64(i)/3)
	}

	ema1, ema2 := EMA(closes, 50), EMA(closes, 50)
	rsi1, rsi2 := RSI(closes, 14), RSI(closes, 14)
	adx1, adx2 := ADX(highs, lows, closes, 14, 14), ADX(highs, lows, closes, 14, 14)

	for i := 0; i < n; i++ {
		if ema1[i] != ema2[i] {
			t.Fatalf("EMA not reproducible at %d", i)
		}
		if rsi1[i] != rsi2[i] && !(math.IsNaN(rsi1[i]) && math.IsNaN(rsi2[i])) {
			t.Fatalf("RSI not reproducible at %d", i)
		}
		if adx1[i] != adx2[i] {
			t.Fatalf("ADX not reproducible at %d", i)
		}
	}
}

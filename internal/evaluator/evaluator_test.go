package evaluator

import (
	"math"
	"testing"

	"crossbot/internal/feature"
	"crossbot/internal/model"
	"crossbot/internal/regime"
)

// passingBundle builds an n-candle 15m bundle with a bullish 50/200
// cross at crossIdx and every confirmation criterion passing: rising
// EMA200, 1% expansion, ADX 30, RSI 60, a 3x volume spike around the
// cross, and price well above the EMA200.
func passingBundle(n, crossIdx int) *model.Bundle {
	closes := make([]float64, n)
	vols := make([]float64, n)
	ema50 := make([]float64, n)
	ema200 := make([]float64, n)
	rsi := make([]float64, n)
	adx := make([]float64, n)

	for i := 0; i < n; i++ {
		closes[i] = 110
		vols[i] = 1000
		ema200[i] = 100 + 0.01*float64(i)
		if i < crossIdx {
			ema50[i] = ema200[i] - 1
		} else {
			ema50[i] = ema200[i] * 1.01
		}
		rsi[i] = 60
		adx[i] = 30
	}
	for i := crossIdx - 2; i <= crossIdx+2; i++ {
		if i >= 0 && i < n {
			vols[i] = 3000
		}
	}

	return &model.Bundle{
		Symbol:    "BTCUSDT",
		Timeframe: "15m",
		Close:     closes,
		High:      closes,
		Low:       closes,
		Open:      closes,
		Volume:    vols,
		EMA:       map[int][]float64{50: ema50, 200: ema200},
		RSI:       rsi,
		ADX:       adx,
	}
}

// noCrossBundle is a passing-quality bundle whose fast EMA stays above
// the slow EMA for the whole series, so no cross can be detected.
func noCrossBundle(n int) *model.Bundle {
	b := passingBundle(n, 0)
	ema200 := b.EMA[200]
	ema50 := b.EMA[50]
	for i := range ema50 {
		ema50[i] = ema200[i] * 1.01
	}
	return b
}

func hourlyBundle(n int) *model.Bundle {
	b := noCrossBundle(n)
	b.Timeframe = "1h"
	return b
}

func newEvaluator() *Evaluator {
	return New(DefaultConfig(), feature.DefaultConfig())
}

func newState() *regime.State {
	return &regime.State{Symbol: "BTCUSDT", Timeframe: "15m"}
}

func TestEvaluate_FullPassEmitsSignal(t *testing.T) {
	b15m := passingBundle(300, 297)
	b1h := hourlyBundle(300)
	state := newState()

	sig := newEvaluator().Evaluate(b15m, b1h, state)
	if sig == nil {
		t.Fatal("expected a signal when every criterion passes")
	}
	if sig.Cross.Index != 297 || sig.Cross.Direction != model.CrossBullish {
		t.Errorf("cross: got %s at %d, want bullish at 297", sig.Cross.Direction, sig.Cross.Index)
	}
	if sig.Price != 110 {
		t.Errorf("price: got %v, want 110", sig.Price)
	}
	if math.Abs(sig.EMA200-102.99) > 1e-9 {
		t.Errorf("ema200: got %v, want 102.99", sig.EMA200)
	}
	if !sig.Features.GatePass() {
		t.Error("emitted signal must carry a passing feature snapshot")
	}
	if state.ActiveCross == nil || state.LastCheckIndex != 299 {
		t.Errorf("state not advanced: cross=%v lastCheck=%d", state.ActiveCross, state.LastCheckIndex)
	}
}

func TestProcessUpdate_AtMostOneAlertPerCross(t *testing.T) {
	b15m := passingBundle(300, 297)
	b1h := hourlyBundle(300)
	state := newState()
	e := newEvaluator()

	sig, alert := e.ProcessUpdate(b15m, b1h, state)
	if sig == nil || !alert {
		t.Fatalf("first pass: want signal with alert, got sig=%v alert=%v", sig, alert)
	}
	if !state.AlertSent {
		t.Fatal("alert flag must be set after the first alert")
	}

	// Same cross re-detected on the next cycle: the gate still passes
	// but no second alert fires.
	sig, alert = e.ProcessUpdate(b15m, b1h, state)
	if sig == nil {
		t.Fatal("second pass: evaluation should still produce a signal")
	}
	if alert {
		t.Error("second pass: the same cross must not alert twice")
	}
	if state.ActiveCross == nil || state.ActiveCross.Index != 297 {
		t.Errorf("re-detection must keep the armed cross, got %+v", state.ActiveCross)
	}
}

func TestEvaluate_WeakHourlyADXRejects(t *testing.T) {
	b15m := passingBundle(300, 297)
	b1h := hourlyBundle(300)
	b1h.ADX[len(b1h.ADX)-1] = 20 // below the 22 threshold
	state := newState()

	sig := newEvaluator().Evaluate(b15m, b1h, state)
	if sig != nil {
		t.Fatal("1h ADX of 20 must block the signal")
	}
	// The regime stays armed for later candles in the window.
	if state.ActiveCross == nil || state.ActiveCross.Index != 297 {
		t.Errorf("state should stay cross-armed, got %+v", state.ActiveCross)
	}
	if state.AlertSent {
		t.Error("no alert fired, flag must stay false")
	}
}

func TestEvaluate_PriceBelowEMA200Rejects(t *testing.T) {
	b15m := passingBundle(300, 297)
	for i := range b15m.Close {
		b15m.Close[i] = 95 // below the ~103 EMA200
	}
	b1h := hourlyBundle(300)
	state := newState()

	if sig := newEvaluator().Evaluate(b15m, b1h, state); sig != nil {
		t.Fatal("price at or below EMA200 must block the signal")
	}
	if state.ActiveCross == nil {
		t.Error("rejection must not disarm the cross")
	}
}

func TestEvaluate_WindowExpiryResetsState(t *testing.T) {
	b15m := noCrossBundle(300)
	b1h := hourlyBundle(300)
	state := newState()
	state.SetCross(&model.CrossEvent{
		Symbol: "BTCUSDT", Timeframe: "15m", Index: 100,
		Direction: model.CrossBullish, FastPeriod: 50, SlowPeriod: 200,
	})
	state.AlertSent = true

	sig := newEvaluator().Evaluate(b15m, b1h, state) // 199 candles since cross
	if sig != nil {
		t.Fatal("expired window must not emit")
	}
	if state.ActiveCross != nil {
		t.Error("expiry must clear the active cross")
	}
	if state.AlertSent {
		t.Error("expiry must clear the alert flag")
	}
}

func TestEvaluate_WindowBoundaryInclusive(t *testing.T) {
	b1h := hourlyBundle(300)
	e := newEvaluator()

	// Cross 96 candles ago: still inside the window, signal emits.
	b15m := passingBundle(300, 203)
	state := newState()
	state.SetCross(&model.CrossEvent{
		Symbol: "BTCUSDT", Timeframe: "15m", Index: 203,
		Direction: model.CrossBullish, FastPeriod: 50, SlowPeriod: 200,
	})
	if sig := e.Evaluate(b15m, b1h, state); sig == nil {
		t.Error("exactly evaluation_window candles since cross is still inside the window")
	}

	// Cross 97 candles ago: expired, state resets.
	b15m = passingBundle(300, 202)
	state = newState()
	state.SetCross(&model.CrossEvent{
		Symbol: "BTCUSDT", Timeframe: "15m", Index: 202,
		Direction: model.CrossBullish, FastPeriod: 50, SlowPeriod: 200,
	})
	if sig := e.Evaluate(b15m, b1h, state); sig != nil {
		t.Error("one candle past the window must not emit")
	}
	if state.ActiveCross != nil {
		t.Error("one candle past the window must reset the state")
	}
}

func TestEvaluate_BearishCrossDoesNotArm(t *testing.T) {
	b15m := passingBundle(300, 297)
	// Invert the fast EMA around the slow one: the cross at 297 becomes
	// bearish.
	ema50 := b15m.EMA[50]
	ema200 := b15m.EMA[200]
	for i := range ema50 {
		ema50[i] = 2*ema200[i] - ema50[i]
	}
	b1h := hourlyBundle(300)
	state := newState()

	if sig := newEvaluator().Evaluate(b15m, b1h, state); sig != nil {
		t.Fatal("a bearish cross must never emit")
	}
	if state.ActiveCross != nil {
		t.Error("a bearish cross must not arm the regime")
	}
}

func TestEvaluate_FreshCrossReplacesActiveOne(t *testing.T) {
	b15m := passingBundle(300, 297)
	b1h := hourlyBundle(300)
	state := newState()
	state.SetCross(&model.CrossEvent{
		Symbol: "BTCUSDT", Timeframe: "15m", Index: 250,
		Direction: model.CrossBullish, FastPeriod: 50, SlowPeriod: 200,
	})
	state.AlertSent = true

	sig := newEvaluator().Evaluate(b15m, b1h, state)
	if state.ActiveCross == nil || state.ActiveCross.Index != 297 {
		t.Fatalf("fresh cross must replace the armed one, got %+v", state.ActiveCross)
	}
	if sig == nil {
		t.Fatal("fresh cross with passing gate should emit")
	}
	if state.AlertSent {
		t.Error("replacing the cross must have cleared the alert flag before evaluation")
	}
}

func TestEvaluate_NoCrossNoSignal(t *testing.T) {
	b15m := noCrossBundle(300)
	b1h := hourlyBundle(300)
	state := newState()

	if sig := newEvaluator().Evaluate(b15m, b1h, state); sig != nil {
		t.Fatal("no cross, no armed state: nothing to emit")
	}
	if state.ActiveCross != nil {
		t.Error("state must stay idle")
	}
}

func TestStatusFor(t *testing.T) {
	e := newEvaluator()
	state := newState()

	if s := e.StatusFor(state, 300); s.State != "waiting" {
		t.Errorf("idle state: got %q, want waiting", s.State)
	}

	state.SetCross(&model.CrossEvent{Index: 280})
	s := e.StatusFor(state, 300)
	if s.State != "evaluating" || s.CandlesSince != 19 || s.CandlesRemaining != 77 {
		t.Errorf("evaluating status: %+v", s)
	}

	state.ActiveCross.Index = 100
	if s := e.StatusFor(state, 300); s.State != "expired" {
		t.Errorf("expired status: got %q", s.State)
	}
}

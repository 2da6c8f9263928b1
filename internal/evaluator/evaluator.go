// Package evaluator orchestrates the signal pipeline for one
// symbol-timeframe pair: cross detection, window management, feature
// calculation and the compulsory gate.
package evaluator

import (
	"log"
	"time"

	"crossbot/internal/cross"
	"crossbot/internal/feature"
	"crossbot/internal/model"
	"crossbot/internal/regime"
)

// Config sets the detection and window parameters.
type Config struct {
	EvaluationWindow int // candles after the cross to keep evaluating
	CrossLookback    int // recent candles scanned for a new cross
	FastEMA          int
	SlowEMA          int
}

// DefaultConfig returns the production evaluation parameters.
func DefaultConfig() Config {
	return Config{
		EvaluationWindow: 96, // 24 hours on 15m
		CrossLookback:    cross.DefaultLookback,
		FastEMA:          50,
		SlowEMA:          200,
	}
}

// Evaluator runs the full detection-to-signal workflow. Stateless apart
// from its collaborators; all per-pair state lives in the regime.State
// passed to each call.
type Evaluator struct {
	cfg      Config
	detector *cross.Detector
	features *feature.Calculator
}

// New creates an evaluator from the given configs.
func New(cfg Config, featureCfg feature.Config) *Evaluator {
	return &Evaluator{
		cfg:      cfg,
		detector: cross.NewDetector(cfg.FastEMA, cfg.SlowEMA),
		features: feature.NewCalculator(featureCfg),
	}
}

// Evaluate advances the state machine for one pair by one polling cycle:
//
//  1. Scan for a new cross; a bullish one arms (or re-arms) the state.
//  2. Drop out when no armed cross is inside the evaluation window,
//     resetting the state if the window just expired.
//  3. Compute all features against both timeframes.
//  4. Gate: current price must close above the slow EMA, then every
//     compulsory feature must pass.
//
// Returns a Signal when the gate passes, nil otherwise. The caller
// decides whether the signal becomes an alert.
func (e *Evaluator) Evaluate(b15m, b1h *model.Bundle, state *regime.State) *model.Signal {
	currentIndex := b15m.LastIndex()

	if ev := e.detector.Detect(b15m, e.cfg.CrossLookback); ev != nil && ev.Direction == model.CrossBullish {
		// Re-detecting the cross already armed must not clear the alert
		// flag, or the same cross could alert once per cycle while it
		// stays inside the scan lookback.
		if state.ActiveCross == nil || state.ActiveCross.Index != ev.Index {
			log.Printf("[evaluator] new bullish cross: %s %s at index %d", ev.Symbol, ev.Timeframe, ev.Index)
			state.SetCross(ev)
			state.LastCheckIndex = currentIndex
		}
	}

	if !state.ShouldEvaluate(currentIndex, e.cfg.EvaluationWindow) {
		if state.ActiveCross != nil {
			since := state.ActiveCross.CandlesSince(currentIndex)
			if since > e.cfg.EvaluationWindow {
				log.Printf("[evaluator] window expired for %s %s (%d candles since cross)",
					state.Symbol, state.Timeframe, since)
				state.Reset()
			}
		}
		return nil
	}

	ev := state.ActiveCross
	log.Printf("[evaluator] evaluating %s %s: %d/%d candles since cross",
		state.Symbol, state.Timeframe, ev.CandlesSince(currentIndex), e.cfg.EvaluationWindow)

	f := e.features.Calculate(b15m, b1h, ev)

	price := b15m.Close[currentIndex]
	slowEMA := b15m.EMASeries(e.cfg.SlowEMA)
	if len(slowEMA) != len(b15m.Close) {
		log.Printf("[evaluator] %s %s: EMA%d misaligned with closes, rejecting",
			state.Symbol, state.Timeframe, e.cfg.SlowEMA)
		return nil
	}
	ema200 := slowEMA[currentIndex]

	if price <= ema200 {
		log.Printf("[evaluator] rejected %s %s: price %.4f not above EMA200 %.4f",
			state.Symbol, state.Timeframe, price, ema200)
		return nil
	}

	if !f.GatePass() {
		log.Printf("[evaluator] rejected %s %s: trend=%v momentum=%v expanding=%v slope=%v volume=%d",
			state.Symbol, state.Timeframe, f.TrendOK, f.MomentumOK, f.Expanding, f.SlopeRising, f.VolumeScore)
		return nil
	}

	state.LastCheckIndex = currentIndex
	log.Printf("[evaluator] all criteria met: %s %s at %.4f", state.Symbol, state.Timeframe, price)

	return &model.Signal{
		Symbol:    state.Symbol,
		Timeframe: state.Timeframe,
		Cross:     *ev,
		Features:  f,
		Price:     price,
		EMA200:    ema200,
		Timestamp: time.Now().UTC(),
	}
}

// ProcessUpdate runs Evaluate and applies the at-most-one-alert rule:
// the first signal for an armed cross flips AlertSent and is returned
// with alert=true; repeats for the same cross return alert=false.
func (e *Evaluator) ProcessUpdate(b15m, b1h *model.Bundle, state *regime.State) (sig *model.Signal, alert bool) {
	sig = e.Evaluate(b15m, b1h, state)
	if sig == nil || state.AlertSent {
		return sig, false
	}
	state.AlertSent = true
	log.Printf("[evaluator] confirmed alert triggered: %s %s", sig.Symbol, sig.Timeframe)
	return sig, true
}

// Status describes where a pair sits in its evaluation lifecycle, for
// the periodic status report.
type Status struct {
	State            string // "waiting", "evaluating" or "expired"
	CandlesSince     int
	CandlesRemaining int
	AlertSent        bool
}

// StatusFor reports the lifecycle position of a state given the current
// series length.
func (e *Evaluator) StatusFor(state *regime.State, dataLen int) Status {
	if state.ActiveCross == nil {
		return Status{State: "waiting"}
	}
	since := state.ActiveCross.CandlesSince(dataLen - 1)
	remaining := e.cfg.EvaluationWindow - since
	if remaining > 0 {
		return Status{
			State:            "evaluating",
			CandlesSince:     since,
			CandlesRemaining: remaining,
			AlertSent:        state.AlertSent,
		}
	}
	return Status{State: "expired", CandlesSince: since, AlertSent: state.AlertSent}
}

// Package regime tracks per symbol-timeframe crossover state across
// polling cycles: which cross is armed, how far evaluation has advanced,
// and whether the alert for the current cross already went out.
package regime

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"crossbot/internal/model"
)

// State is the evaluation state for one symbol-timeframe pair.
// Not safe for concurrent use; the bot's run goroutine owns each state
// exclusively and all evaluation goes through it.
type State struct {
	Symbol    string
	Timeframe string

	ActiveCross    *model.CrossEvent
	LastCheckIndex int
	AlertSent      bool
}

// SetCross arms a new cross and clears the alert flag, so a fresh cross
// always gets its own evaluation run even if the previous one alerted.
func (s *State) SetCross(ev *model.CrossEvent) {
	s.ActiveCross = ev
	s.AlertSent = false
}

// Reset disarms the state after the evaluation window expires.
// LastCheckIndex is kept: it records progress through the series, not
// cross state.
func (s *State) Reset() {
	s.ActiveCross = nil
	s.AlertSent = false
}

// ShouldEvaluate reports whether an armed cross is still inside its
// evaluation window at currentIndex.
func (s *State) ShouldEvaluate(currentIndex, window int) bool {
	if s.ActiveCross == nil {
		return false
	}
	return s.ActiveCross.WithinWindow(currentIndex, window)
}

// Summary aggregates tracker-wide counters for status reporting.
type Summary struct {
	TotalRegimes  int
	ActiveCrosses int
	AlertsSent    int
	BySymbol      map[string]SymbolSummary
}

// SymbolSummary is the per-symbol slice of a Summary.
type SymbolSummary struct {
	Total      int
	Active     int
	AlertsSent int
}

// Tracker holds regime states keyed by normalized symbol and timeframe.
// Safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	regimes map[string]*State
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{regimes: make(map[string]*State)}
}

// key normalizes lookups: symbols are upper-cased, timeframes
// lower-cased, so BTCUSDT/15m and btcusdt/15M share one state.
func key(symbol, timeframe string) string {
	return strings.ToUpper(symbol) + "/" + strings.ToLower(timeframe)
}

// Get returns the state for the pair, creating it on first access.
func (t *Tracker) Get(symbol, timeframe string) *State {
	k := key(symbol, timeframe)

	t.mu.RLock()
	s, ok := t.regimes[k]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok = t.regimes[k]; ok {
		return s
	}
	s = &State{
		Symbol:    strings.ToUpper(symbol),
		Timeframe: strings.ToLower(timeframe),
	}
	t.regimes[k] = s
	return s
}

// HasActiveCross reports whether the pair currently has an armed cross.
func (t *Tracker) HasActiveCross(symbol, timeframe string) bool {
	return t.Get(symbol, timeframe).ActiveCross != nil
}

// Reset disarms a single pair.
func (t *Tracker) Reset(symbol, timeframe string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.regimes[key(symbol, timeframe)]; ok {
		s.Reset()
		log.Printf("[regime] reset state: %s %s", s.Symbol, s.Timeframe)
	}
}

// ResetAll disarms every tracked pair, or just one symbol's pairs when
// symbol is non-empty.
func (t *Tracker) ResetAll(symbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prefix := ""
	if symbol != "" {
		prefix = strings.ToUpper(symbol) + "/"
	}
	for k, s := range t.regimes {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			s.Reset()
		}
	}
}

// ActiveCrosses counts pairs with an armed cross.
func (t *Tracker) ActiveCrosses() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, s := range t.regimes {
		if s.ActiveCross != nil {
			n++
		}
	}
	return n
}

// Symbols returns all tracked symbols, sorted.
func (t *Tracker) Symbols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, s := range t.regimes {
		seen[s.Symbol] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for sym := range seen {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Summarize rolls the tracker state into counters.
func (t *Tracker) Summarize() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sum := Summary{BySymbol: make(map[string]SymbolSummary)}
	for _, s := range t.regimes {
		sum.TotalRegimes++
		ss := sum.BySymbol[s.Symbol]
		ss.Total++
		if s.ActiveCross != nil {
			sum.ActiveCrosses++
			ss.Active++
		}
		if s.AlertSent {
			sum.AlertsSent++
			ss.AlertsSent++
		}
		sum.BySymbol[s.Symbol] = ss
	}
	return sum
}

// StatusString renders a human-readable tracker report for the periodic
// status log.
func (t *Tracker) StatusString() string {
	sum := t.Summarize()

	var b strings.Builder
	b.WriteString(strings.Repeat("=", 50) + "\n")
	b.WriteString("REGIME TRACKER STATUS\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Total Regimes: %d\n", sum.TotalRegimes)
	fmt.Fprintf(&b, "Active Crosses: %d\n", sum.ActiveCrosses)
	fmt.Fprintf(&b, "Alerts Sent: %d\n", sum.AlertsSent)

	if len(sum.BySymbol) > 0 {
		syms := make([]string, 0, len(sum.BySymbol))
		for sym := range sum.BySymbol {
			syms = append(syms, sym)
		}
		sort.Strings(syms)

		b.WriteString("\nBy Symbol:\n")
		for _, sym := range syms {
			ss := sum.BySymbol[sym]
			if ss.Active == 0 && ss.AlertsSent == 0 {
				continue
			}
			fmt.Fprintf(&b, "  %s: active %d/%d, alerts %d\n", sym, ss.Active, ss.Total, ss.AlertsSent)
		}
	}
	b.WriteString(strings.Repeat("=", 50) + "\n")
	return b.String()
}

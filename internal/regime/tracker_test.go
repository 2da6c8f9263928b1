package regime

import (
	"strings"
	"sync"
	"testing"

	"crossbot/internal/model"
)

func bullishCross(idx int) *model.CrossEvent {
	return &model.CrossEvent{
		Symbol:     "BTCUSDT",
		Timeframe:  "15m",
		Index:      idx,
		Direction:  model.CrossBullish,
		FastPeriod: 50,
		SlowPeriod: 200,
	}
}

func TestState_SetCrossClearsAlertFlag(t *testing.T) {
	s := &State{Symbol: "BTCUSDT", Timeframe: "15m"}
	s.SetCross(bullishCross(100))
	s.AlertSent = true

	// A fresh cross replaces the old one and re-arms alerting.
	s.SetCross(bullishCross(150))
	if s.AlertSent {
		t.Error("new cross must clear AlertSent")
	}
	if s.ActiveCross.Index != 150 {
		t.Errorf("active cross index: got %d, want 150", s.ActiveCross.Index)
	}
}

func TestState_ResetKeepsLastCheckIndex(t *testing.T) {
	s := &State{Symbol: "BTCUSDT", Timeframe: "15m"}
	s.SetCross(bullishCross(100))
	s.AlertSent = true
	s.LastCheckIndex = 180

	s.Reset()
	if s.ActiveCross != nil || s.AlertSent {
		t.Error("reset must disarm the cross and clear the alert flag")
	}
	if s.LastCheckIndex != 180 {
		t.Errorf("reset must not rewind LastCheckIndex, got %d", s.LastCheckIndex)
	}
}

func TestState_ShouldEvaluate(t *testing.T) {
	s := &State{Symbol: "BTCUSDT", Timeframe: "15m"}
	if s.ShouldEvaluate(100, 96) {
		t.Error("no armed cross: nothing to evaluate")
	}

	s.SetCross(bullishCross(100))
	cases := []struct {
		current int
		want    bool
	}{
		{100, true},  // cross candle itself
		{150, true},  // mid-window
		{196, true},  // inclusive boundary
		{197, false}, // one past the window
	}
	for _, tc := range cases {
		if got := s.ShouldEvaluate(tc.current, 96); got != tc.want {
			t.Errorf("ShouldEvaluate(%d, 96) = %v, want %v", tc.current, got, tc.want)
		}
	}
}

func TestTracker_KeyNormalization(t *testing.T) {
	tr := NewTracker()
	a := tr.Get("btcusdt", "15M")
	b := tr.Get("BTCUSDT", "15m")
	if a != b {
		t.Fatal("case variants of the same pair must share one state")
	}
	if a.Symbol != "BTCUSDT" || a.Timeframe != "15m" {
		t.Errorf("stored identity should be normalized, got %s %s", a.Symbol, a.Timeframe)
	}
}

func TestTracker_DistinctPairsAreIndependent(t *testing.T) {
	tr := NewTracker()
	tr.Get("BTCUSDT", "15m").SetCross(bullishCross(10))

	if tr.Get("BTCUSDT", "1h").ActiveCross != nil {
		t.Error("1h state must not inherit the 15m cross")
	}
	if tr.Get("ETHUSDT", "15m").ActiveCross != nil {
		t.Error("another symbol must not inherit the cross")
	}
	if got := tr.ActiveCrosses(); got != 1 {
		t.Errorf("active crosses: got %d, want 1", got)
	}
}

func TestTracker_ResetAll(t *testing.T) {
	tr := NewTracker()
	tr.Get("BTCUSDT", "15m").SetCross(bullishCross(10))
	tr.Get("BTCUSDT", "1h").SetCross(bullishCross(10))
	tr.Get("ETHUSDT", "15m").SetCross(bullishCross(10))

	tr.ResetAll("btcusdt")
	if tr.HasActiveCross("BTCUSDT", "15m") || tr.HasActiveCross("BTCUSDT", "1h") {
		t.Error("symbol-scoped reset must disarm all of that symbol's pairs")
	}
	if !tr.HasActiveCross("ETHUSDT", "15m") {
		t.Error("symbol-scoped reset must leave other symbols armed")
	}

	tr.ResetAll("")
	if tr.ActiveCrosses() != 0 {
		t.Error("full reset must disarm everything")
	}
}

func TestTracker_Summarize(t *testing.T) {
	tr := NewTracker()
	tr.Get("BTCUSDT", "15m").SetCross(bullishCross(10))
	tr.Get("BTCUSDT", "15m").AlertSent = true
	tr.Get("BTCUSDT", "1h")
	tr.Get("ETHUSDT", "15m").SetCross(bullishCross(20))

	sum := tr.Summarize()
	if sum.TotalRegimes != 3 {
		t.Errorf("total: got %d, want 3", sum.TotalRegimes)
	}
	if sum.ActiveCrosses != 2 {
		t.Errorf("active: got %d, want 2", sum.ActiveCrosses)
	}
	if sum.AlertsSent != 1 {
		t.Errorf("alerts: got %d, want 1", sum.AlertsSent)
	}
	btc := sum.BySymbol["BTCUSDT"]
	if btc.Total != 2 || btc.Active != 1 || btc.AlertsSent != 1 {
		t.Errorf("BTCUSDT summary: %+v", btc)
	}

	status := tr.StatusString()
	if !strings.Contains(status, "Active Crosses: 2") {
		t.Errorf("status should report active crosses:\n%s", status)
	}
}

func TestTracker_Symbols(t *testing.T) {
	tr := NewTracker()
	tr.Get("ethusdt", "15m")
	tr.Get("BTCUSDT", "15m")
	tr.Get("BTCUSDT", "1h")

	got := tr.Symbols()
	want := []string{"BTCUSDT", "ETHUSDT"}
	if len(got) != len(want) {
		t.Fatalf("symbols: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("symbols[%d]: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestTracker_ConcurrentAccess(t *testing.T) {
	// Each worker owns one symbol, mirroring the per-symbol fan-out in
	// the bot: the tracker only needs to serialize map access.
	symbols := []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT"}
	tr := NewTracker()
	var wg sync.WaitGroup
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tr.Get(sym, "15m")
				tr.Get(sym, "1h")
				tr.ActiveCrosses()
			}
		}(sym)
	}
	wg.Wait()

	if got := len(tr.Symbols()); got != len(symbols) {
		t.Errorf("symbols tracked: got %d, want %d", got, len(symbols))
	}
}

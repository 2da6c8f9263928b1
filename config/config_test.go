package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.SymbolMode != "top_volume" {
		t.Errorf("symbol mode: %q", cfg.SymbolMode)
	}
	if cfg.TopNCoins != 400 || cfg.CandlesLimit != 500 {
		t.Errorf("universe defaults: top=%d limit=%d", cfg.TopNCoins, cfg.CandlesLimit)
	}
	if cfg.FastEMA != 50 || cfg.SlowEMA != 200 || cfg.CrossLookback != 5 || cfg.EvaluationWindow != 96 {
		t.Errorf("cross defaults: %+v", cfg)
	}
	if cfg.ADXThreshold15m != 25 || cfg.ADXThreshold1h != 22 {
		t.Errorf("adx thresholds: %g / %g", cfg.ADXThreshold15m, cfg.ADXThreshold1h)
	}
	if cfg.VolumeMinRatio != 2.0 || cfg.VolumeBaseline != 50 || cfg.VolumeCrossWindow != 2 {
		t.Errorf("volume defaults: %+v", cfg)
	}
	if cfg.PollInterval != time.Minute {
		t.Errorf("poll interval: %s", cfg.PollInterval)
	}
}

func TestTimeframes_PrimaryFirst(t *testing.T) {
	cfg := Load()
	tfs := cfg.Timeframes()
	if len(tfs) != 2 || tfs[0] != "15m" || tfs[1] != "1h" {
		t.Errorf("timeframes: %v", tfs)
	}
}

func TestParseCustomSymbols(t *testing.T) {
	cfg := &Config{CustomSymbols: " btcusdt, ETHUSDT ,,bnbusdt "}
	got := cfg.ParseCustomSymbols()
	want := []string{"BTCUSDT", "ETHUSDT", "BNBUSDT"}
	if len(got) != len(want) {
		t.Fatalf("symbols: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("symbol %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseEMAPeriods_SkipsInvalid(t *testing.T) {
	cfg := &Config{EMAPeriods: "50,abc,200,-5,"}
	got := cfg.ParseEMAPeriods()
	if len(got) != 2 || got[0] != 50 || got[1] != 200 {
		t.Errorf("periods: %v", got)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("CROSSBOT_TEST_INT", "7")
	if got := getInt("CROSSBOT_TEST_INT", 1); got != 7 {
		t.Errorf("getInt: %d", got)
	}
	t.Setenv("CROSSBOT_TEST_INT", "nope")
	if got := getInt("CROSSBOT_TEST_INT", 1); got != 1 {
		t.Errorf("getInt fallback: %d", got)
	}

	t.Setenv("CROSSBOT_TEST_DUR", "90s")
	if got := getDuration("CROSSBOT_TEST_DUR", time.Minute); got != 90*time.Second {
		t.Errorf("getDuration: %s", got)
	}

	t.Setenv("CROSSBOT_TEST_BOOL", "true")
	if !getBool("CROSSBOT_TEST_BOOL", false) {
		t.Error("getBool: want true")
	}
}

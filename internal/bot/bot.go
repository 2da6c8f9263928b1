// Package bot wires the polling loop together: market data in, signals
// evaluated per pair, alerts out. One Bot instance owns the regime
// tracker and the run statistics for its whole lifetime.
package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"crossbot/internal/evaluator"
	"crossbot/internal/metrics"
	"crossbot/internal/model"
	"crossbot/internal/notification"
	"crossbot/internal/regime"
)

// DataSource supplies indicator bundles per cycle. *marketdata.Manager
// satisfies it.
type DataSource interface {
	FetchMultiple(ctx context.Context, symbols, timeframes []string) map[string]map[string]*model.Bundle
}

// Journal persists emitted signals. *sqlite.Journal satisfies it.
type Journal interface {
	Record(ctx context.Context, sig *model.Signal) error
}

// Config holds the bot runtime parameters.
type Config struct {
	Symbols          []string
	PrimaryTimeframe string // cross detection, e.g. "15m"
	TrendTimeframe   string // confirmation, e.g. "1h"
	PollInterval     time.Duration
	StatusInterval   time.Duration
}

// Stats aggregates run counters across the bot lifetime.
type Stats struct {
	StartTime        time.Time
	LastRun          time.Time
	TotalRuns        int
	SymbolsProcessed int
	Evaluations      int
	CrossesDetected  int
	SignalsEmitted   int
	AlertsSent       int
	Errors           int
	SignalsBySymbol  map[string]int
}

// Bot coordinates one polling loop over all monitored symbols. All
// evaluation runs on the Run goroutine, which is the sole owner of the
// per-pair regime state; candle-close events queue into closeC and are
// drained there rather than evaluated on the caller's goroutine.
type Bot struct {
	cfg      Config
	source   DataSource
	eval     *evaluator.Evaluator
	tracker  *regime.Tracker
	notifier notification.Notifier
	journal  Journal          // may be nil
	metrics  *metrics.Metrics // may be nil

	closeC chan string

	mu    sync.Mutex
	stats Stats
}

// New creates a bot. journal and m may be nil.
func New(cfg Config, source DataSource, eval *evaluator.Evaluator, notifier notification.Notifier, journal Journal, m *metrics.Metrics) *Bot {
	if cfg.PrimaryTimeframe == "" {
		cfg.PrimaryTimeframe = "15m"
	}
	if cfg.TrendTimeframe == "" {
		cfg.TrendTimeframe = "1h"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Minute
	}
	if notifier == nil {
		notifier = notification.NewLogNotifier()
	}

	log.Printf("[bot] initialized for %d symbols (%s crosses, %s confirmation)",
		len(cfg.Symbols), cfg.PrimaryTimeframe, cfg.TrendTimeframe)

	return &Bot{
		cfg:      cfg,
		source:   source,
		eval:     eval,
		tracker:  regime.NewTracker(),
		notifier: notifier,
		journal:  journal,
		metrics:  m,
		closeC:   make(chan string, 256),
		stats: Stats{
			StartTime:       time.Now(),
			SignalsBySymbol: make(map[string]int),
		},
	}
}

// Tracker exposes the regime tracker for status tooling.
func (b *Bot) Tracker() *regime.Tracker { return b.tracker }

// Stats returns a snapshot of the run counters.
func (b *Bot) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := b.stats
	snap.SignalsBySymbol = make(map[string]int, len(b.stats.SignalsBySymbol))
	for k, v := range b.stats.SignalsBySymbol {
		snap.SignalsBySymbol[k] = v
	}
	return snap
}

// RunCycle executes one full polling cycle: fetch every symbol, run the
// evaluator on each pair that has both timeframes, deliver any alerts.
// An error is returned only when no symbol produced usable data.
func (b *Bot) RunCycle(ctx context.Context) error {
	start := time.Now()

	b.mu.Lock()
	b.stats.TotalRuns++
	b.stats.LastRun = start
	run := b.stats.TotalRuns
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.CyclesTotal.Inc()
		defer func() { b.metrics.CycleDur.Observe(time.Since(start).Seconds()) }()
	}

	log.Printf("[bot] cycle #%d: fetching %d symbols", run, len(b.cfg.Symbols))
	timeframes := []string{b.cfg.PrimaryTimeframe, b.cfg.TrendTimeframe}
	fetchStart := time.Now()
	all := b.source.FetchMultiple(ctx, b.cfg.Symbols, timeframes)

	if b.metrics != nil {
		b.metrics.FetchDur.Observe(time.Since(fetchStart).Seconds())
		b.metrics.SymbolsFetched.Set(float64(len(all)))
		if dropped := len(b.cfg.Symbols) - len(all); dropped > 0 {
			b.metrics.FetchErrors.Add(float64(dropped))
		}
	}
	if len(all) == 0 {
		b.mu.Lock()
		b.stats.Errors++
		b.mu.Unlock()
		if b.metrics != nil {
			b.metrics.CycleErrors.Inc()
		}
		return fmt.Errorf("cycle #%d: no market data fetched", run)
	}

	alerts := 0
	for symbol, bundles := range all {
		if ctx.Err() != nil {
			break
		}
		b15m, ok15 := bundles[b.cfg.PrimaryTimeframe]
		b1h, ok1h := bundles[b.cfg.TrendTimeframe]
		if !ok15 || !ok1h {
			log.Printf("[bot] %s: missing required timeframes, skipping", symbol)
			continue
		}
		if b.processPair(ctx, symbol, b15m, b1h) {
			alerts++
		}
	}

	b.mu.Lock()
	b.stats.SymbolsProcessed += len(all)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.ActiveCrosses.Set(float64(b.tracker.ActiveCrosses()))
	}

	if alerts > 0 {
		log.Printf("[bot] cycle #%d: %d alerts sent", run, alerts)
	} else {
		log.Printf("[bot] cycle #%d: no alerts triggered", run)
	}
	return nil
}

// processPair runs the evaluator for one symbol and delivers the alert
// if one fires. Returns true when an alert went out.
func (b *Bot) processPair(ctx context.Context, symbol string, b15m, b1h *model.Bundle) bool {
	state := b.tracker.Get(symbol, b.cfg.PrimaryTimeframe)
	prevIndex := -1
	if state.ActiveCross != nil {
		prevIndex = state.ActiveCross.Index
	}

	evalStart := time.Now()
	sig, alert := b.eval.ProcessUpdate(b15m, b1h, state)
	// A fresh cross can replace one still armed, so compare indices
	// rather than just nil-ness.
	newCross := state.ActiveCross != nil && state.ActiveCross.Index != prevIndex
	if b.metrics != nil {
		b.metrics.EvaluationDur.Observe(time.Since(evalStart).Seconds())
		if newCross {
			b.metrics.CrossesDetected.WithLabelValues(string(state.ActiveCross.Direction)).Inc()
		}
	}

	b.mu.Lock()
	b.stats.Evaluations++
	if newCross {
		b.stats.CrossesDetected++
	}
	if sig != nil {
		b.stats.SignalsEmitted++
		b.stats.SignalsBySymbol[sig.Symbol]++
	}
	b.mu.Unlock()

	if sig != nil && b.metrics != nil {
		b.metrics.SignalsEmitted.Inc()
	}
	if !alert {
		return false
	}

	b.deliver(ctx, sig)
	return true
}

// deliver journals the signal and pushes the alert out. Neither a
// journal nor a notifier failure re-arms the alert; the cross already
// had its one shot.
func (b *Bot) deliver(ctx context.Context, sig *model.Signal) {
	if b.journal != nil {
		if err := b.journal.Record(ctx, sig); err != nil {
			log.Printf("[bot] journal record failed for %s: %v", sig.Symbol, err)
		}
	}

	if err := b.notifier.Send(ctx, notification.FormatSignal(sig)); err != nil {
		log.Printf("[bot] alert delivery failed for %s %s: %v", sig.Symbol, sig.Timeframe, err)
		b.mu.Lock()
		b.stats.Errors++
		b.mu.Unlock()
		if b.metrics != nil {
			b.metrics.AlertSendErrors.Inc()
		}
		return
	}

	b.mu.Lock()
	b.stats.AlertsSent++
	b.mu.Unlock()
	if b.metrics != nil {
		b.metrics.AlertsSent.Inc()
	}
	log.Printf("[bot] alert sent: %s %s", sig.Symbol, sig.Timeframe)
}

// OnCandleClose queues an early evaluation pass for one symbol,
// typically from a websocket candle-close event. The pass itself runs
// on the Run goroutine so regime state keeps a single owner; when the
// queue is full the event is dropped and the next cycle covers it.
func (b *Bot) OnCandleClose(symbol string) {
	select {
	case b.closeC <- symbol:
	default:
	}
}

// evaluateSymbol runs one immediate evaluation pass for a single
// symbol. The fetch goes through the normal data source, so an
// invalidated cache yields fresh candles.
func (b *Bot) evaluateSymbol(ctx context.Context, symbol string) {
	timeframes := []string{b.cfg.PrimaryTimeframe, b.cfg.TrendTimeframe}
	all := b.source.FetchMultiple(ctx, []string{symbol}, timeframes)

	bundles, ok := all[symbol]
	if !ok {
		return
	}
	b15m, ok15 := bundles[b.cfg.PrimaryTimeframe]
	b1h, ok1h := bundles[b.cfg.TrendTimeframe]
	if !ok15 || !ok1h {
		return
	}

	log.Printf("[bot] early evaluation for %s on candle close", symbol)
	b.processPair(ctx, symbol, b15m, b1h)
}

// Run polls continuously until the context is cancelled. The first
// cycle runs immediately; a status report goes out every StatusInterval.
func (b *Bot) Run(ctx context.Context) error {
	log.Printf("[bot] started: %d symbols, %s interval", len(b.cfg.Symbols), b.cfg.PollInterval)
	b.sendStartupNotice(ctx)

	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()

	var statusC <-chan time.Time
	if b.cfg.StatusInterval > 0 {
		statusTicker := time.NewTicker(b.cfg.StatusInterval)
		defer statusTicker.Stop()
		statusC = statusTicker.C
	}

	if err := b.RunCycle(ctx); err != nil {
		log.Printf("[bot] %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			b.sendShutdownNotice()
			return ctx.Err()
		case <-ticker.C:
			if err := b.RunCycle(ctx); err != nil {
				log.Printf("[bot] %v", err)
			}
		case symbol := <-b.closeC:
			b.evaluateSymbol(ctx, symbol)
		case <-statusC:
			log.Print(b.StatusReport())
			b.sendStatusNotice(ctx)
		}
	}
}

// StatusReport renders the run counters and tracker state.
func (b *Bot) StatusReport() string {
	stats := b.Stats()
	runtime := time.Since(stats.StartTime).Round(time.Second)

	var sb strings.Builder
	sb.WriteString("\n" + strings.Repeat("=", 60) + "\n")
	sb.WriteString("BOT STATUS REPORT\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Symbols Monitored: %d\n", len(b.cfg.Symbols))
	fmt.Fprintf(&sb, "Timeframes: %s, %s\n", b.cfg.PrimaryTimeframe, b.cfg.TrendTimeframe)
	fmt.Fprintf(&sb, "Runtime: %s\n", runtime)
	fmt.Fprintf(&sb, "Total Runs: %d\n", stats.TotalRuns)
	fmt.Fprintf(&sb, "Evaluations: %d\n", stats.Evaluations)
	fmt.Fprintf(&sb, "Crosses Detected: %d\n", stats.CrossesDetected)
	fmt.Fprintf(&sb, "Signals Emitted: %d\n", stats.SignalsEmitted)
	fmt.Fprintf(&sb, "Alerts Sent: %d\n", stats.AlertsSent)
	fmt.Fprintf(&sb, "Errors: %d\n", stats.Errors)

	if len(stats.SignalsBySymbol) > 0 {
		syms := make([]string, 0, len(stats.SignalsBySymbol))
		for sym := range stats.SignalsBySymbol {
			syms = append(syms, sym)
		}
		sort.Strings(syms)
		sb.WriteString("\nSignals By Symbol:\n")
		for _, sym := range syms {
			fmt.Fprintf(&sb, "  %s: %d\n", sym, stats.SignalsBySymbol[sym])
		}
	}
	sb.WriteString("\n")
	sb.WriteString(b.tracker.StatusString())
	return sb.String()
}

func (b *Bot) sendStartupNotice(ctx context.Context) {
	err := b.notifier.Send(ctx, notification.Alert{
		Level: notification.AlertInfo,
		Title: "Signal Bot Started",
		Message: fmt.Sprintf("Symbols: %d pairs\nMode: %s crosses + %s confirmation\nInterval: %s",
			len(b.cfg.Symbols), b.cfg.PrimaryTimeframe, b.cfg.TrendTimeframe, b.cfg.PollInterval),
	})
	if err != nil {
		log.Printf("[bot] startup notice failed: %v", err)
	}
}

func (b *Bot) sendShutdownNotice() {
	// The run context is already cancelled; give the notice its own.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats := b.Stats()
	err := b.notifier.Send(ctx, notification.Alert{
		Level: notification.AlertInfo,
		Title: "Signal Bot Stopped",
		Message: fmt.Sprintf("Total Runs: %d\nAlerts Sent: %d\nRuntime: %s",
			stats.TotalRuns, stats.AlertsSent, time.Since(stats.StartTime).Round(time.Second)),
	})
	if err != nil {
		log.Printf("[bot] shutdown notice failed: %v", err)
	}
}

func (b *Bot) sendStatusNotice(ctx context.Context) {
	stats := b.Stats()
	sum := b.tracker.Summarize()
	err := b.notifier.Send(ctx, notification.FormatStatus(map[string]string{
		"Total Runs":     fmt.Sprintf("%d", stats.TotalRuns),
		"Active Crosses": fmt.Sprintf("%d", sum.ActiveCrosses),
		"Alerts Sent":    fmt.Sprintf("%d", stats.AlertsSent),
		"Errors":         fmt.Sprintf("%d", stats.Errors),
	}))
	if err != nil {
		log.Printf("[bot] status notice failed: %v", err)
	}
}

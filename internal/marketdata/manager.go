// Package marketdata turns raw exchange klines into indicator bundles
// ready for evaluation. The manager owns the fetch path: REST client,
// optional Redis read-through cache, and the indicator math.
package marketdata

import (
	"context"
	"fmt"
	"log"

	"crossbot/internal/indicator"
	"crossbot/internal/model"
)

// Fetcher is the kline source. *binance.Client satisfies it; tests
// inject a fake.
type Fetcher interface {
	Klines(ctx context.Context, symbol, interval string, limit int) (*model.Series, error)
}

// SeriesCache is the optional read-through cache in front of the
// fetcher. *redis.Cache satisfies it.
type SeriesCache interface {
	Get(ctx context.Context, symbol, timeframe string) *model.Series
	Put(ctx context.Context, series *model.Series)
}

// Config holds the indicator periods the manager computes for every
// fetched series.
type Config struct {
	EMAPeriods  []int
	RSIPeriod   int
	ADXDIPeriod int
	ADXPeriod   int

	// CandleLimit is how many candles to request per fetch.
	CandleLimit int

	// MinCandles is the data-quality floor: every indicator column
	// must carry at least this many values or the bundle is rejected.
	MinCandles int
}

// DefaultConfig returns the periods the signal pipeline expects.
func DefaultConfig() Config {
	return Config{
		EMAPeriods:  []int{9, 25, 50, 99, 200},
		RSIPeriod:   14,
		ADXDIPeriod: 14,
		ADXPeriod:   14,
		CandleLimit: 500,
		MinCandles:  200,
	}
}

// Manager fetches candle series and computes their indicator bundles.
type Manager struct {
	fetcher Fetcher
	cache   SeriesCache // may be nil
	cfg     Config
}

// New creates a manager. cache may be nil to fetch straight from the
// exchange every time.
func New(fetcher Fetcher, cache SeriesCache, cfg Config) *Manager {
	if cfg.CandleLimit == 0 {
		cfg.CandleLimit = 500
	}
	if cfg.MinCandles == 0 {
		cfg.MinCandles = 200
	}
	return &Manager{fetcher: fetcher, cache: cache, cfg: cfg}
}

// fetchSeries returns the candle series for one pair, consulting the
// cache first when one is configured.
func (m *Manager) fetchSeries(ctx context.Context, symbol, timeframe string) (*model.Series, error) {
	if m.cache != nil {
		if s := m.cache.Get(ctx, symbol, timeframe); s != nil {
			return s, nil
		}
	}

	series, err := m.fetcher.Klines(ctx, symbol, timeframe, m.cfg.CandleLimit)
	if err != nil {
		return nil, err
	}
	if m.cache != nil {
		m.cache.Put(ctx, series)
	}
	return series, nil
}

// buildBundle computes every configured indicator over a series. All
// output slices are aligned with the candle series.
func (m *Manager) buildBundle(series *model.Series) *model.Bundle {
	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()

	emas := make(map[int][]float64, len(m.cfg.EMAPeriods))
	for _, p := range m.cfg.EMAPeriods {
		emas[p] = indicator.EMA(closes, p)
	}

	return &model.Bundle{
		Symbol:    series.Symbol,
		Timeframe: series.Timeframe,
		Open:      series.Opens(),
		High:      highs,
		Low:       lows,
		Close:     closes,
		Volume:    series.Volumes(false),
		EMA:       emas,
		RSI:       indicator.RSI(closes, m.cfg.RSIPeriod),
		ADX:       indicator.ADX(highs, lows, closes, m.cfg.ADXDIPeriod, m.cfg.ADXPeriod),
	}
}

// Fetch returns indicator bundles for one symbol across the requested
// timeframes. A timeframe that fails to fetch or fails the data-quality
// floor is absent from the result; an error is returned only when no
// timeframe survived.
func (m *Manager) Fetch(ctx context.Context, symbol string, timeframes []string) (map[string]*model.Bundle, error) {
	bundles := make(map[string]*model.Bundle, len(timeframes))
	var lastErr error

	for _, tf := range timeframes {
		series, err := m.fetchSeries(ctx, symbol, tf)
		if err != nil {
			log.Printf("[marketdata] fetch %s %s: %v", symbol, tf, err)
			lastErr = err
			continue
		}

		b := m.buildBundle(series)
		if !b.HasMinCandles(m.cfg.MinCandles) {
			log.Printf("[marketdata] %s %s: insufficient data (%d candles, need %d)",
				symbol, tf, b.Len(), m.cfg.MinCandles)
			continue
		}
		bundles[tf] = b
	}

	if len(bundles) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("no usable data for %s: %w", symbol, lastErr)
		}
		return nil, fmt.Errorf("no usable data for %s", symbol)
	}
	return bundles, nil
}

// FetchMultiple fetches bundles for a list of symbols. A symbol whose
// fetch fails is simply absent from the cycle; stale data is never
// substituted.
func (m *Manager) FetchMultiple(ctx context.Context, symbols, timeframes []string) map[string]map[string]*model.Bundle {
	all := make(map[string]map[string]*model.Bundle, len(symbols))

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		bundles, err := m.Fetch(ctx, symbol, timeframes)
		if err != nil {
			log.Printf("[marketdata] skipping %s: %v", symbol, err)
			continue
		}
		all[symbol] = bundles
	}

	log.Printf("[marketdata] fetched %d/%d symbols", len(all), len(symbols))
	return all
}

// Summary holds the latest indicator values for one pair, for status
// output and the scan tool.
type Summary struct {
	Symbol    string
	Timeframe string
	Price     float64
	EMA50     float64
	EMA200    float64
	RSI       float64
	ADX       float64
	Volume    float64
	Candles   int
}

// IndicatorSummary fetches one pair and reports its latest values.
func (m *Manager) IndicatorSummary(ctx context.Context, symbol, timeframe string) (*Summary, error) {
	bundles, err := m.Fetch(ctx, symbol, []string{timeframe})
	if err != nil {
		return nil, err
	}
	b, ok := bundles[timeframe]
	if !ok {
		return nil, fmt.Errorf("no data for %s %s", symbol, timeframe)
	}

	last := b.LastIndex()
	s := &Summary{
		Symbol:    b.Symbol,
		Timeframe: b.Timeframe,
		Price:     b.Close[last],
		RSI:       b.RSI[last],
		ADX:       b.ADX[last],
		Volume:    b.Volume[last],
		Candles:   b.Len(),
	}
	if ema := b.EMASeries(50); len(ema) > last {
		s.EMA50 = ema[last]
	}
	if ema := b.EMASeries(200); len(ema) > last {
		s.EMA200 = ema[last]
	}
	return s, nil
}

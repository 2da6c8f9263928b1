// Package binance provides a Binance USDT-margined futures client: a
// REST client for symbol discovery and kline history, and a websocket
// consumer for live kline-close events.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"crossbot/internal/model"
)

// DefaultBaseURL is the production futures REST endpoint.
const DefaultBaseURL = "https://fapi.binance.com"

// Config configures the REST client.
type Config struct {
	BaseURL string
	APIKey  string // optional, public endpoints work without it
	Timeout time.Duration
}

// Client is a Binance futures REST client. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a REST client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("binance: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("binance: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("binance: read %s: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("binance: %s: status %d: %s", endpoint, resp.StatusCode, truncate(body, 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("binance: decode %s: %w", endpoint, err)
	}
	return nil
}

// Ping verifies API connectivity.
func (c *Client) Ping(ctx context.Context) error {
	var empty struct{}
	if err := c.get(ctx, "/fapi/v1/ping", nil, &empty); err != nil {
		return err
	}
	log.Printf("[binance] API connection successful")
	return nil
}

// ServerTime returns the exchange server time in milliseconds.
func (c *Client) ServerTime(ctx context.Context) (int64, error) {
	var st serverTime
	if err := c.get(ctx, "/fapi/v1/time", nil, &st); err != nil {
		return 0, err
	}
	return st.ServerTime, nil
}

// AllSymbols returns every actively trading USDT-quoted futures pair.
func (c *Client) AllSymbols(ctx context.Context) ([]string, error) {
	var info exchangeInfo
	if err := c.get(ctx, "/fapi/v1/exchangeInfo", nil, &info); err != nil {
		return nil, err
	}

	var symbols []string
	for _, s := range info.Symbols {
		if s.Status == "TRADING" && s.QuoteAsset == "USDT" {
			symbols = append(symbols, s.Symbol)
		}
	}
	log.Printf("[binance] found %d active USDT futures pairs", len(symbols))
	return symbols, nil
}

// TopVolumeSymbols returns the topN USDT pairs ranked by 24h quote
// volume, highest first.
func (c *Client) TopVolumeSymbols(ctx context.Context, topN int) ([]string, error) {
	ranked, err := c.rankedByVolume(ctx, nil, 0)
	if err != nil {
		return nil, err
	}
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	log.Printf("[binance] top %d volume symbols selected", len(ranked))
	return ranked, nil
}

// FilterByVolume keeps only the given symbols whose 24h quote volume is
// at least minVolume, sorted by volume descending. A zero minVolume
// just sorts.
func (c *Client) FilterByVolume(ctx context.Context, symbols []string, minVolume float64) ([]string, error) {
	keep := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		keep[s] = struct{}{}
	}
	filtered, err := c.rankedByVolume(ctx, keep, minVolume)
	if err != nil {
		return nil, err
	}
	log.Printf("[binance] %d/%d symbols meet the %.0f volume floor", len(filtered), len(symbols), minVolume)
	return filtered, nil
}

// rankedByVolume fetches the full 24h ticker list and returns USDT
// symbols sorted by quote volume descending. keep, when non-nil,
// restricts the result to that set.
func (c *Client) rankedByVolume(ctx context.Context, keep map[string]struct{}, minVolume float64) ([]string, error) {
	var tickers []ticker24h
	if err := c.get(ctx, "/fapi/v1/ticker/24hr", nil, &tickers); err != nil {
		return nil, err
	}

	type rankedSymbol struct {
		symbol string
		volume float64
	}
	var ranked []rankedSymbol
	for _, t := range tickers {
		if len(t.Symbol) < 4 || t.Symbol[len(t.Symbol)-4:] != "USDT" {
			continue
		}
		if keep != nil {
			if _, ok := keep[t.Symbol]; !ok {
				continue
			}
		}
		vol, err := strconv.ParseFloat(t.QuoteVolume, 64)
		if err != nil {
			continue
		}
		if vol < minVolume {
			continue
		}
		ranked = append(ranked, rankedSymbol{t.Symbol, vol})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].volume > ranked[j].volume })

	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.symbol
	}
	return out, nil
}

// Klines fetches up to limit candles for the symbol and interval,
// oldest first. The in-progress candle is the last entry.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) (*model.Series, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var raw [][]json.RawMessage
	if err := c.get(ctx, "/fapi/v1/klines", params, &raw); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(raw))
	for i, row := range raw {
		candle, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("binance: kline %d for %s %s: %w", i, symbol, interval, err)
		}
		candles = append(candles, candle)
	}
	return &model.Series{Symbol: symbol, Timeframe: interval, Candles: candles}, nil
}

// parseKline decodes one kline row. The wire format mixes integer
// timestamps with string-encoded decimals:
//
//	[openTime, open, high, low, close, volume,
//	 closeTime, quoteVolume, trades, takerBuyBase, takerBuyQuote, ignore]
func parseKline(row []json.RawMessage) (model.Candle, error) {
	var c model.Candle
	if len(row) < 11 {
		return c, fmt.Errorf("short kline row: %d fields", len(row))
	}

	var err error
	if err = json.Unmarshal(row[0], &c.OpenTime); err != nil {
		return c, fmt.Errorf("open time: %w", err)
	}
	if c.Open, err = stringField(row[1]); err != nil {
		return c, fmt.Errorf("open: %w", err)
	}
	if c.High, err = stringField(row[2]); err != nil {
		return c, fmt.Errorf("high: %w", err)
	}
	if c.Low, err = stringField(row[3]); err != nil {
		return c, fmt.Errorf("low: %w", err)
	}
	if c.Close, err = stringField(row[4]); err != nil {
		return c, fmt.Errorf("close: %w", err)
	}
	if c.Volume, err = stringField(row[5]); err != nil {
		return c, fmt.Errorf("volume: %w", err)
	}
	if err = json.Unmarshal(row[6], &c.CloseTime); err != nil {
		return c, fmt.Errorf("close time: %w", err)
	}
	if c.QuoteVolume, err = stringField(row[7]); err != nil {
		return c, fmt.Errorf("quote volume: %w", err)
	}
	if err = json.Unmarshal(row[8], &c.Trades); err != nil {
		return c, fmt.Errorf("trades: %w", err)
	}
	if c.TakerBuyBase, err = stringField(row[9]); err != nil {
		return c, fmt.Errorf("taker buy base: %w", err)
	}
	return c, nil
}

// stringField parses a JSON string holding a decimal number.
func stringField(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}

// CurrentPrice returns the latest trade price for the symbol.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var tp tickerPrice
	if err := c.get(ctx, "/fapi/v1/ticker/price", params, &tp); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(tp.Price, 64)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

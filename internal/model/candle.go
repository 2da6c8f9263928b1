// Package model defines the shared data types for the signal bot:
// candles, indicator bundles, cross events, features, and signals.
package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV kline as returned by the exchange.
// Times are epoch milliseconds (UTC).
type Candle struct {
	OpenTime     int64   `json:"open_time"`
	Open         float64 `json:"open"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Close        float64 `json:"close"`
	Volume       float64 `json:"volume"`
	CloseTime    int64   `json:"close_time"`
	QuoteVolume  float64 `json:"quote_volume"`
	Trades       int64   `json:"trades"`
	TakerBuyBase float64 `json:"taker_buy_base"`
}

// OpenedAt returns the candle open time as a time.Time.
func (c *Candle) OpenedAt() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}

// ClosedAt returns the candle close time as a time.Time.
func (c *Candle) ClosedAt() time.Time {
	return time.UnixMilli(c.CloseTime).UTC()
}

// Series is an ordered candle sequence (oldest first) for one
// symbol and timeframe. A series is immutable once fetched; a new
// fetch replaces the whole thing.
type Series struct {
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"timeframe"`
	Candles   []Candle `json:"candles"`
}

// Len returns the number of candles in the series.
func (s *Series) Len() int { return len(s.Candles) }

// Closes extracts the close column.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i := range s.Candles {
		out[i] = s.Candles[i].Close
	}
	return out
}

// Highs extracts the high column.
func (s *Series) Highs() []float64 {
	out := make([]float64, len(s.Candles))
	for i := range s.Candles {
		out[i] = s.Candles[i].High
	}
	return out
}

// Lows extracts the low column.
func (s *Series) Lows() []float64 {
	out := make([]float64, len(s.Candles))
	for i := range s.Candles {
		out[i] = s.Candles[i].Low
	}
	return out
}

// Opens extracts the open column.
func (s *Series) Opens() []float64 {
	out := make([]float64, len(s.Candles))
	for i := range s.Candles {
		out[i] = s.Candles[i].Open
	}
	return out
}

// Volumes extracts the volume column. When quote is true, the quote
// volume is used instead of the base-asset volume.
func (s *Series) Volumes(quote bool) []float64 {
	out := make([]float64, len(s.Candles))
	for i := range s.Candles {
		if quote {
			out[i] = s.Candles[i].QuoteVolume
		} else {
			out[i] = s.Candles[i].Volume
		}
	}
	return out
}

// JSON returns the JSON-encoded series (ignoring errors for cache-path usage).
func (s *Series) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}

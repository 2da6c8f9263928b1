package model

import (
	"encoding/json"
	"time"
)

// Signal is emitted when every compulsory criterion passed for an
// active cross. Immutable; consumed once by the notifier.
type Signal struct {
	Symbol    string     `json:"symbol"`
	Timeframe string     `json:"timeframe"`
	Cross     CrossEvent `json:"cross"`
	Features  Features   `json:"features"`
	Price     float64    `json:"price"`  // current close at emission
	EMA200    float64    `json:"ema200"` // current EMA200 at emission
	Timestamp time.Time  `json:"timestamp"`
}

// JSON returns the JSON-encoded signal (ignoring errors for journal usage).
func (s *Signal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}

package model

// timeframeMinutes is the fixed interval→minutes table used for
// human-readable elapsed-time reporting. Unknown timeframes fall back
// to 15 minutes.
var timeframeMinutes = map[string]int{
	"1m":  1,
	"3m":  3,
	"5m":  5,
	"15m": 15,
	"30m": 30,
	"1h":  60,
	"2h":  120,
	"4h":  240,
	"6h":  360,
	"12h": 720,
	"1d":  1440,
}

// TimeframeMinutes returns the candle duration in minutes for a
// timeframe string such as "15m" or "1h".
func TimeframeMinutes(timeframe string) int {
	if m, ok := timeframeMinutes[timeframe]; ok {
		return m
	}
	return 15
}

// CandlesToHours converts a candle count on the given timeframe into
// elapsed hours.
func CandlesToHours(candles int, timeframe string) float64 {
	return float64(candles*TimeframeMinutes(timeframe)) / 60.0
}

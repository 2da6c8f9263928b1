package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultStreamURL is the production futures combined-stream endpoint.
const DefaultStreamURL = "wss://fstream.binance.com/stream"

// maxStreamsPerConn is Binance's per-connection stream limit.
const maxStreamsPerConn = 200

// CandleClose is emitted when a kline closes on the stream. It carries
// just enough to name the pair that needs re-evaluation; the polling
// path refetches the full series.
type CandleClose struct {
	Symbol    string
	Timeframe string
	CloseTime int64 // epoch ms
	Close     float64
}

// StreamConfig configures the kline stream consumer.
type StreamConfig struct {
	URL        string
	Symbols    []string
	Timeframes []string

	// Reconnect backoff bounds.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// KlineStream subscribes to combined kline streams and emits an event
// whenever a candle closes. Open (still forming) klines are dropped.
type KlineStream struct {
	cfg     StreamConfig
	streams []string

	// OnReconnect is called after every re-dial, for metrics.
	OnReconnect func()
}

// NewKlineStream builds a stream consumer for the given pairs. Binance
// caps combined streams per connection; pairs beyond the cap are left
// to the polling loop and logged.
func NewKlineStream(cfg StreamConfig) *KlineStream {
	if cfg.URL == "" {
		cfg.URL = DefaultStreamURL
	}
	if cfg.MinBackoff == 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = time.Minute
	}

	var streams []string
	for _, sym := range cfg.Symbols {
		for _, tf := range cfg.Timeframes {
			streams = append(streams, fmt.Sprintf("%s@kline_%s", strings.ToLower(sym), strings.ToLower(tf)))
		}
	}
	if len(streams) > maxStreamsPerConn {
		log.Printf("[binance-ws] %d streams requested, capping at %d (remaining pairs covered by polling)",
			len(streams), maxStreamsPerConn)
		streams = streams[:maxStreamsPerConn]
	}

	return &KlineStream{cfg: cfg, streams: streams}
}

// Run connects and feeds candle-close events into out until ctx is
// cancelled. Reconnects with exponential backoff on any error. Events
// are dropped, not buffered, when out is full: the polling loop remains
// the source of truth.
func (ks *KlineStream) Run(ctx context.Context, out chan<- CandleClose) error {
	if len(ks.streams) == 0 {
		log.Printf("[binance-ws] no streams configured, websocket trigger disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	url := ks.cfg.URL + "?streams=" + strings.Join(ks.streams, "/")
	backoff := ks.cfg.MinBackoff

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := ks.consume(ctx, url, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[binance-ws] connection lost: %v (reconnecting in %s)", err, backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > ks.cfg.MaxBackoff {
			backoff = ks.cfg.MaxBackoff
		}
	}
}

// consume runs one websocket session. Returns on any read error; the
// caller decides whether to reconnect.
func (ks *KlineStream) consume(ctx context.Context, url string, out chan<- CandleClose) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	log.Printf("[binance-ws] connected (%d streams)", len(ks.streams))
	if ks.OnReconnect != nil {
		ks.OnReconnect()
	}

	// Binance pings periodically and expects a pong within 10 minutes.
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	// The watcher unblocks the read below on cancellation. It is scoped
	// to this session so reconnects do not accumulate watchers.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var wrapped combinedStreamMessage
		if err := json.Unmarshal(msg, &wrapped); err != nil {
			log.Printf("[binance-ws] bad message: %v", err)
			continue
		}
		k := wrapped.Data.Kline
		if wrapped.Data.EventType != "kline" || !k.Closed {
			continue
		}

		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			log.Printf("[binance-ws] bad close price %q: %v", k.Close, err)
			continue
		}

		ev := CandleClose{
			Symbol:    strings.ToUpper(wrapped.Data.Symbol),
			Timeframe: k.Interval,
			CloseTime: k.CloseTime,
			Close:     closePrice,
		}
		select {
		case out <- ev:
		default:
			// Polling will pick the candle up on its next cycle.
		}
	}
}

// Package redis provides a read-through cache for candle series, backed
// by Redis and guarded by a circuit breaker. Cache failures are never
// fatal: a miss, a decode error or an open breaker all just send the
// caller upstream to the exchange.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"crossbot/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// CacheConfig configures the candle cache.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int

	// TTL bounds how stale a cached series may be. It should stay well
	// under the shortest polled timeframe; expired entries force a
	// refetch rather than ever serving an old series.
	TTL time.Duration

	// Breaker settings; zero values get defaults (5 failures, 10s).
	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration
}

// Cache stores recently fetched candle series keyed by symbol and
// timeframe.
type Cache struct {
	client  *goredis.Client
	ttl     time.Duration
	breaker *CircuitBreaker
}

// NewCache connects to Redis and pings it.
func NewCache(cfg CacheConfig) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if cfg.TTL == 0 {
		cfg.TTL = 45 * time.Second
	}
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	resetTimeout := cfg.BreakerResetTimeout
	if resetTimeout == 0 {
		resetTimeout = 10 * time.Second
	}

	breaker := NewCircuitBreaker(maxFailures, resetTimeout)
	breaker.OnStateChange = func(from, to State) {
		log.Printf("[redis-cache] breaker %s -> %s", from, to)
	}

	log.Printf("[redis-cache] connected to %s (ttl=%s)", cfg.Addr, cfg.TTL)
	return &Cache{client: client, ttl: cfg.TTL, breaker: breaker}, nil
}

func seriesKey(symbol, timeframe string) string {
	return "candles:" + strings.ToUpper(symbol) + ":" + strings.ToLower(timeframe)
}

// Get returns the cached series for the pair, or nil on a miss. Every
// failure mode (open breaker, Redis error, corrupt entry) reads as a
// miss.
func (c *Cache) Get(ctx context.Context, symbol, timeframe string) *model.Series {
	var series *model.Series
	err := c.breaker.Execute(func() error {
		data, err := c.client.Get(ctx, seriesKey(symbol, timeframe)).Result()
		if err == goredis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		var s model.Series
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			// Corrupt entry: drop it and treat as a miss.
			log.Printf("[redis-cache] corrupt entry for %s %s: %v", symbol, timeframe, err)
			c.client.Del(ctx, seriesKey(symbol, timeframe))
			return nil
		}
		series = &s
		return nil
	})
	if err != nil && err != ErrCircuitOpen {
		log.Printf("[redis-cache] get %s %s: %v", symbol, timeframe, err)
	}
	return series
}

// Put stores a series under the configured TTL. Errors are logged, not
// returned: the caller already holds the fresh data.
func (c *Cache) Put(ctx context.Context, series *model.Series) {
	err := c.breaker.Execute(func() error {
		return c.client.Set(ctx, seriesKey(series.Symbol, series.Timeframe), series.JSON(), c.ttl).Err()
	})
	if err != nil && err != ErrCircuitOpen {
		log.Printf("[redis-cache] put %s %s: %v", series.Symbol, series.Timeframe, err)
	}
}

// Invalidate drops the cached series for a pair, typically after a
// websocket candle-close makes it stale.
func (c *Cache) Invalidate(ctx context.Context, symbol, timeframe string) {
	err := c.breaker.Execute(func() error {
		return c.client.Del(ctx, seriesKey(symbol, timeframe)).Err()
	})
	if err != nil && err != ErrCircuitOpen {
		log.Printf("[redis-cache] invalidate %s %s: %v", symbol, timeframe, err)
	}
}

// BreakerState exposes the breaker state for health reporting.
func (c *Cache) BreakerState() State {
	return c.breaker.CurrentState()
}

// Client exposes the underlying Redis client for liveness probes.
func (c *Cache) Client() *goredis.Client {
	return c.client
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

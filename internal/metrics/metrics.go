package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal bot.
type Metrics struct {
	CyclesTotal    prometheus.Counter
	CycleDur       prometheus.Histogram
	CycleErrors    prometheus.Counter
	SymbolsFetched prometheus.Gauge

	FetchErrors prometheus.Counter
	FetchDur    prometheus.Histogram

	CrossesDetected *prometheus.CounterVec // labels: direction
	ActiveCrosses   prometheus.Gauge
	EvaluationDur   prometheus.Histogram
	SignalsEmitted  prometheus.Counter

	AlertsSent      prometheus.Counter
	AlertSendErrors prometheus.Counter

	WSReconnects   prometheus.Counter
	WSCandleCloses prometheus.Counter

	CacheBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossbot_cycles_total",
			Help: "Total polling cycles run",
		}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crossbot_cycle_duration_seconds",
			Help:    "Full polling cycle latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		CycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossbot_cycle_errors_total",
			Help: "Cycles that failed entirely (no symbol data)",
		}),
		SymbolsFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crossbot_symbols_fetched",
			Help: "Symbols with usable data in the last cycle",
		}),

		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossbot_fetch_errors_total",
			Help: "Symbols dropped from a cycle because their fetch failed",
		}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crossbot_fetch_duration_seconds",
			Help:    "Kline fetch plus indicator compute latency per cycle",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		CrossesDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crossbot_crosses_detected_total",
			Help: "EMA crosses detected (by direction)",
		}, []string{"direction"}),
		ActiveCrosses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crossbot_active_crosses",
			Help: "Pairs currently inside an evaluation window",
		}),
		EvaluationDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crossbot_evaluation_duration_seconds",
			Help:    "Feature evaluation latency per pair",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		SignalsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossbot_signals_emitted_total",
			Help: "Confirmed signals that passed every compulsory criterion",
		}),

		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossbot_alerts_sent_total",
			Help: "Alerts delivered to notification channels",
		}),
		AlertSendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossbot_alert_send_errors_total",
			Help: "Alert deliveries that failed",
		}),

		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossbot_ws_reconnects_total",
			Help: "WebSocket stream reconnection attempts",
		}),
		WSCandleCloses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossbot_ws_candle_closes_total",
			Help: "Closed-candle events received from the stream",
		}),

		CacheBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crossbot_cache_breaker_state",
			Help: "Redis cache circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.CycleDur,
		m.CycleErrors,
		m.SymbolsFetched,
		m.FetchErrors,
		m.FetchDur,
		m.CrossesDetected,
		m.ActiveCrosses,
		m.EvaluationDur,
		m.SignalsEmitted,
		m.AlertsSent,
		m.AlertSendErrors,
		m.WSReconnects,
		m.WSCandleCloses,
		m.CacheBreakerState,
	)

	return m
}

// HealthStatus represents the bot health.
type HealthStatus struct {
	mu sync.RWMutex

	RESTOK         bool      `json:"rest_ok"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	WSConnected    bool      `json:"ws_connected"`
	LastCycleTime  time.Time `json:"last_cycle_time"`
	SymbolsTracked int       `json:"symbols_tracked"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetRESTOK(v bool) {
	h.mu.Lock()
	h.RESTOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetWSConnected(v bool) {
	h.mu.Lock()
	h.WSConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCycleTime(t time.Time) {
	h.mu.Lock()
	h.LastCycleTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetSymbolsTracked(n int) {
	h.mu.Lock()
	h.SymbolsTracked = n
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// The REST client is the only hard dependency: the cache and the
	// journal degrade gracefully, the stream is a freshness hint.
	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.RESTOK {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	} else if !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
	}

	cycleAge := ""
	if !h.LastCycleTime.IsZero() {
		cycleAge = time.Since(h.LastCycleTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RESTOK          bool    `json:"rest_ok"`
		WSConnected     bool    `json:"ws_connected"`
		LastCycleTime   string  `json:"last_cycle_time"`
		CycleAge        string  `json:"cycle_age"`
		SymbolsTracked  int     `json:"symbols_tracked"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RESTOK:          h.RESTOK,
		WSConnected:     h.WSConnected,
		LastCycleTime:   h.LastCycleTime.Format(time.RFC3339),
		CycleAge:        cycleAge,
		SymbolsTracked:  h.SymbolsTracked,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

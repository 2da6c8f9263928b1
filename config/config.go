package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Binance (public market data works without credentials)
	BinanceAPIKey  string
	BinanceBaseURL string
	CandlesLimit   int

	// Symbol universe: "custom", "all" or "top_volume"
	SymbolMode      string
	CustomSymbols   string // comma-separated, used when SymbolMode=custom
	TopNCoins       int    // used when SymbolMode=top_volume
	MinVolumeFilter float64

	// Timeframes
	PrimaryTimeframe string // cross detection and evaluation
	TrendTimeframe   string // higher-timeframe confirmation

	// Indicator periods
	EMAPeriods string // comma-separated
	RSIPeriod  int
	ADXPeriod  int

	// Cross detection and evaluation
	FastEMA          int
	SlowEMA          int
	CrossLookback    int
	EvaluationWindow int

	// Compulsory thresholds
	ADXThreshold15m    float64
	ADXThreshold1h     float64
	RSIThreshold15m    float64
	RSIThreshold1h     float64
	ExpansionThreshold float64
	VolumeCrossWindow  int
	VolumeBaseline     int
	VolumeMinRatio     float64

	// Informational checks
	StructureLookback int
	StructureMinHolds int
	ReclaimLookback   int

	// Runtime
	PollInterval   time.Duration
	StatusInterval time.Duration

	// Websocket stream (optional freshness hints)
	EnableStream bool

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	SQLitePath    string
	MetricsAddr   string

	// Notifications
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		BinanceAPIKey:  getEnv("BINANCE_API_KEY", ""),
		BinanceBaseURL: getEnv("BINANCE_BASE_URL", "https://fapi.binance.com"),
		CandlesLimit:   getInt("CANDLES_LIMIT", 500),

		SymbolMode:      getEnv("SYMBOL_MODE", "top_volume"),
		CustomSymbols:   getEnv("CUSTOM_SYMBOLS", "BTCUSDT,ETHUSDT,BNBUSDT"),
		TopNCoins:       getInt("TOP_N_COINS", 400),
		MinVolumeFilter: getFloat("MIN_VOLUME_FILTER", 0),

		PrimaryTimeframe: getEnv("PRIMARY_TIMEFRAME", "15m"),
		TrendTimeframe:   getEnv("TREND_TIMEFRAME", "1h"),

		EMAPeriods: getEnv("EMA_PERIODS", "50,200"),
		RSIPeriod:  getInt("RSI_PERIOD", 14),
		ADXPeriod:  getInt("ADX_PERIOD", 14),

		FastEMA:          getInt("FAST_EMA", 50),
		SlowEMA:          getInt("SLOW_EMA", 200),
		CrossLookback:    getInt("CROSS_LOOKBACK", 5),
		EvaluationWindow: getInt("EVALUATION_WINDOW", 96),

		ADXThreshold15m:    getFloat("ADX_THRESHOLD_15M", 25),
		ADXThreshold1h:     getFloat("ADX_THRESHOLD_1H", 22),
		RSIThreshold15m:    getFloat("RSI_THRESHOLD_15M", 50),
		RSIThreshold1h:     getFloat("RSI_THRESHOLD_1H", 50),
		ExpansionThreshold: getFloat("EXPANSION_THRESHOLD", 0.002),
		VolumeCrossWindow:  getInt("VOLUME_CROSS_WINDOW", 2),
		VolumeBaseline:     getInt("VOLUME_BASELINE_PERIOD", 50),
		VolumeMinRatio:     getFloat("VOLUME_MIN_RATIO", 2.0),

		StructureLookback: getInt("STRUCTURE_LOOKBACK", 5),
		StructureMinHolds: getInt("STRUCTURE_MIN_HOLDS", 2),
		ReclaimLookback:   getInt("RECLAIM_LOOKBACK", 4),

		PollInterval:   getDuration("POLL_INTERVAL", time.Minute),
		StatusInterval: getDuration("STATUS_INTERVAL", time.Hour),

		EnableStream: getBool("ENABLE_STREAM", false),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),
		CacheTTL:      getDuration("CACHE_TTL", 45*time.Second),
		SQLitePath:    getEnv("SQLITE_PATH", "data/signals.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}
}

// Timeframes returns the monitored timeframes, primary first.
func (c *Config) Timeframes() []string {
	return []string{c.PrimaryTimeframe, c.TrendTimeframe}
}

// ParseCustomSymbols parses the CustomSymbols string into uppercase symbols.
func (c *Config) ParseCustomSymbols() []string {
	parts := strings.Split(c.CustomSymbols, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		symbols = append(symbols, p)
	}
	return symbols
}

// ParseEMAPeriods parses the EMAPeriods string into a slice of periods.
func (c *Config) ParseEMAPeriods() []int {
	parts := strings.Split(c.EMAPeriods, ",")
	periods := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			log.Printf("[config] skipping invalid EMA period: %q", p)
			continue
		}
		periods = append(periods, n)
	}
	return periods
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"crossbot/config"
	"crossbot/internal/binance"
	"crossbot/internal/bot"
	"crossbot/internal/evaluator"
	"crossbot/internal/feature"
	"crossbot/internal/marketdata"
	"crossbot/internal/metrics"
	"crossbot/internal/notification"
	redisstore "crossbot/internal/store/redis"
	sqlitestore "crossbot/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("[main] starting...")

	cfg := config.Load()

	// ---- Binance REST client ----
	client := binance.New(binance.Config{
		BaseURL: cfg.BinanceBaseURL,
		APIKey:  cfg.BinanceAPIKey,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("[main] binance unreachable: %v", err)
	}
	pingCancel()
	log.Println("[main] binance connectivity OK")

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetRESTOK(true)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Redis candle cache (optional) ----
	var cache marketdata.SeriesCache
	var redisCache *redisstore.Cache
	if cfg.RedisAddr != "" {
		c, err := redisstore.NewCache(redisstore.CacheConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			log.Printf("[main] WARNING: redis cache unavailable: %v (continuing without cache)", err)
		} else {
			defer c.Close()
			cache = c
			redisCache = c
			health.SetRedisConnected(true)
			log.Println("[main] redis candle cache ready")
		}
	}

	// ---- SQLite signal journal ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	journal, err := sqlitestore.NewJournal(sqlitestore.JournalConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[main] sqlite init failed: %v", err)
	}
	defer journal.Close()
	health.SetSQLiteOK(true)

	// ---- Periodic liveness probes + breaker gauge ----
	var rdb *goredis.Client
	if redisCache != nil {
		rdb = redisCache.Client()
	}
	health.StartLivenessChecker(ctx, rdb, journal.DB(), 30*time.Second)
	if redisCache != nil {
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					prom.CacheBreakerState.Set(float64(redisCache.BreakerState()))
				}
			}
		}()
	}

	// ---- Symbol universe ----
	symbols := resolveSymbols(ctx, client, cfg)
	if len(symbols) == 0 {
		log.Fatal("[main] no symbols to monitor")
	}
	preview := symbols
	if len(preview) > 5 {
		preview = preview[:5]
	}
	log.Printf("[main] monitoring %d symbols: %s...", len(symbols), strings.Join(preview, ", "))
	health.SetSymbolsTracked(len(symbols))

	// ---- Notification channels ----
	notifier := buildNotifier(ctx, cfg)

	// ---- Pipeline ----
	mgrCfg := marketdata.DefaultConfig()
	mgrCfg.EMAPeriods = cfg.ParseEMAPeriods()
	mgrCfg.RSIPeriod = cfg.RSIPeriod
	mgrCfg.ADXDIPeriod = cfg.ADXPeriod
	mgrCfg.ADXPeriod = cfg.ADXPeriod
	mgrCfg.CandleLimit = cfg.CandlesLimit
	manager := marketdata.New(client, cache, mgrCfg)

	eval := evaluator.New(evaluator.Config{
		EvaluationWindow: cfg.EvaluationWindow,
		CrossLookback:    cfg.CrossLookback,
		FastEMA:          cfg.FastEMA,
		SlowEMA:          cfg.SlowEMA,
	}, feature.Config{
		ADXThreshold15m:      cfg.ADXThreshold15m,
		ADXThreshold1h:       cfg.ADXThreshold1h,
		RSIThreshold15m:      cfg.RSIThreshold15m,
		RSIThreshold1h:       cfg.RSIThreshold1h,
		StructureLookback:    cfg.StructureLookback,
		StructureMinHolds:    cfg.StructureMinHolds,
		ReclaimLookback:      cfg.ReclaimLookback,
		ExpansionThreshold:   cfg.ExpansionThreshold,
		VolumeCrossWindow:    cfg.VolumeCrossWindow,
		VolumeBaselinePeriod: cfg.VolumeBaseline,
		VolumeMinRatio:       cfg.VolumeMinRatio,
		FastEMA:              cfg.FastEMA,
		SlowEMA:              cfg.SlowEMA,
	})

	b := bot.New(bot.Config{
		Symbols:          symbols,
		PrimaryTimeframe: cfg.PrimaryTimeframe,
		TrendTimeframe:   cfg.TrendTimeframe,
		PollInterval:     cfg.PollInterval,
		StatusInterval:   cfg.StatusInterval,
	}, manager, eval, notifier, journal, prom)

	// ---- Keep /healthz cycle freshness current ----
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				health.SetLastCycleTime(b.Stats().LastRun)
			}
		}
	}()

	// ---- Optional websocket early-evaluation triggers ----
	if cfg.EnableStream {
		startStream(ctx, cfg, symbols, cache, b, prom, health)
	}

	// ---- Run until signalled ----
	go func() {
		sig := <-sigCh
		log.Printf("[main] received %v, shutting down...", sig)
		cancel()
	}()

	if err := b.Run(ctx); err != nil && err != context.Canceled {
		log.Printf("[main] run ended: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	metricsSrv.Stop(shutdownCtx)
	shutdownCancel()

	log.Print(b.StatusReport())
	log.Println("[main] stopped")
}

// resolveSymbols builds the monitored universe from the configured mode.
func resolveSymbols(ctx context.Context, client *binance.Client, cfg *config.Config) []string {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch cfg.SymbolMode {
	case "custom":
		return cfg.ParseCustomSymbols()

	case "all":
		symbols, err := client.AllSymbols(ctx)
		if err != nil {
			log.Printf("[main] fetching symbols failed: %v", err)
			return nil
		}
		if cfg.MinVolumeFilter > 0 {
			filtered, err := client.FilterByVolume(ctx, symbols, cfg.MinVolumeFilter)
			if err != nil {
				log.Printf("[main] volume filter failed: %v", err)
				return symbols
			}
			return filtered
		}
		return symbols

	case "top_volume":
		symbols, err := client.TopVolumeSymbols(ctx, cfg.TopNCoins)
		if err != nil {
			log.Printf("[main] fetching top-volume symbols failed: %v", err)
			return nil
		}
		return symbols

	default:
		log.Printf("[main] unknown symbol mode %q", cfg.SymbolMode)
		return nil
	}
}

// buildNotifier assembles the alert fan-out from whatever channels are
// configured, falling back to log-only.
func buildNotifier(ctx context.Context, cfg *config.Config) notification.Notifier {
	var backends []notification.Notifier

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		tg := notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := notification.Verify(testCtx, tg); err != nil {
			log.Printf("[main] WARNING: telegram test failed: %v", err)
		} else {
			log.Println("[main] telegram notifications enabled")
		}
		cancel()
		backends = append(backends, tg)
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
		log.Println("[main] webhook notifications enabled")
	}

	switch len(backends) {
	case 0:
		log.Println("[main] no notification channel configured, alerts go to the log")
		return notification.NewLogNotifier()
	case 1:
		return backends[0]
	default:
		return notification.NewMultiNotifier(backends...)
	}
}

// startStream runs the combined kline stream in the background. A
// closed primary-timeframe candle invalidates the cache and triggers an
// immediate evaluation pass for that symbol; polling stays the source
// of truth.
func startStream(ctx context.Context, cfg *config.Config, symbols []string, cache marketdata.SeriesCache, b *bot.Bot, prom *metrics.Metrics, health *metrics.HealthStatus) {
	stream := binance.NewKlineStream(binance.StreamConfig{
		Symbols:    symbols,
		Timeframes: cfg.Timeframes(),
	})
	stream.OnReconnect = func() {
		prom.WSReconnects.Inc()
		health.SetWSConnected(true)
	}

	closes := make(chan binance.CandleClose, 1024)
	go func() {
		if err := stream.Run(ctx, closes); err != nil && err != context.Canceled {
			log.Printf("[main] kline stream ended: %v", err)
		}
		health.SetWSConnected(false)
	}()

	invalidator, _ := cache.(interface {
		Invalidate(ctx context.Context, symbol, timeframe string)
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case cc := <-closes:
				prom.WSCandleCloses.Inc()
				if invalidator != nil {
					invalidator.Invalidate(ctx, cc.Symbol, cc.Timeframe)
				}
				if strings.EqualFold(cc.Timeframe, cfg.PrimaryTimeframe) {
					b.OnCandleClose(cc.Symbol)
				}
			}
		}
	}()
}

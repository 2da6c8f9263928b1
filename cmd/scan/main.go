// Command scan is a one-shot diagnostic: fetch one or more symbols,
// list every recent EMA cross and print the latest indicator snapshot.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"crossbot/config"
	"crossbot/internal/binance"
	"crossbot/internal/cross"
	"crossbot/internal/marketdata"
	"crossbot/internal/model"
)

func main() {
	log.SetFlags(0)

	var (
		symbolsFlag = flag.String("symbols", "BTCUSDT", "comma-separated symbols to scan")
		timeframe   = flag.String("tf", "15m", "timeframe to scan")
		lookback    = flag.Int("lookback", 96, "how many candles back to list crosses")
	)
	flag.Parse()

	cfg := config.Load()
	client := binance.New(binance.Config{
		BaseURL: cfg.BinanceBaseURL,
		APIKey:  cfg.BinanceAPIKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mgrCfg := marketdata.DefaultConfig()
	mgrCfg.EMAPeriods = cfg.ParseEMAPeriods()
	mgrCfg.CandleLimit = cfg.CandlesLimit
	manager := marketdata.New(client, nil, mgrCfg)
	detector := cross.NewDetector(cfg.FastEMA, cfg.SlowEMA)

	failed := 0
	for _, symbol := range strings.Split(*symbolsFlag, ",") {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		if err := scanSymbol(ctx, manager, detector, symbol, *timeframe, *lookback); err != nil {
			log.Printf("%s: %v", symbol, err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func scanSymbol(ctx context.Context, manager *marketdata.Manager, detector *cross.Detector, symbol, timeframe string, lookback int) error {
	bundles, err := manager.Fetch(ctx, symbol, []string{timeframe})
	if err != nil {
		return err
	}
	b := bundles[timeframe]

	last := b.LastIndex()
	fmt.Printf("%s %s: %d candles\n", symbol, timeframe, b.Len())
	fmt.Printf("  price %.4f | rsi %.1f | adx %.1f\n", b.Close[last], b.RSI[last], b.ADX[last])

	crosses := detector.FindRecent(b, lookback)
	if len(crosses) == 0 {
		fmt.Printf("  no crosses in the last %d candles\n", lookback)
		return nil
	}

	for _, ev := range crosses {
		fmt.Printf("  %s cross at index %d (%d candles ago)\n",
			ev.Direction, ev.Index, last-ev.Index)
	}
	printStrength(detector, b)
	return nil
}

func printStrength(detector *cross.Detector, b *model.Bundle) {
	fmt.Printf("  current separation: %.4f%%\n", detector.Strength(b)*100)
}

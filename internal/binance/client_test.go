package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
}

func TestKlines_ParsesMixedRow(t *testing.T) {
	payload := `[
		[1700000000000,"42000.10","42100.50","41900.00","42050.25","1234.567",1700000899999,"51900000.12",4321,"600.100","25200000.50","0"],
		[1700000900000,"42050.25","42200.00","42000.00","42150.00","987.654",1700001799999,"41500000.00",3210,"500.000","21000000.00","0"]
	]`
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol param: %s", got)
		}
		if got := r.URL.Query().Get("limit"); got != "500" {
			t.Errorf("limit param: %s", got)
		}
		w.Write([]byte(payload))
	})

	series, err := c.Klines(context.Background(), "BTCUSDT", "15m", 500)
	if err != nil {
		t.Fatalf("Klines: %v", err)
	}
	if series.Symbol != "BTCUSDT" || series.Timeframe != "15m" {
		t.Errorf("identity: %s %s", series.Symbol, series.Timeframe)
	}
	if series.Len() != 2 {
		t.Fatalf("candles: got %d, want 2", series.Len())
	}

	first := series.Candles[0]
	if first.OpenTime != 1700000000000 {
		t.Errorf("open time: %d", first.OpenTime)
	}
	if first.Open != 42000.10 || first.High != 42100.50 || first.Low != 41900.00 || first.Close != 42050.25 {
		t.Errorf("ohlc: %+v", first)
	}
	if first.Volume != 1234.567 || first.QuoteVolume != 51900000.12 {
		t.Errorf("volumes: %v %v", first.Volume, first.QuoteVolume)
	}
	if first.Trades != 4321 || first.TakerBuyBase != 600.100 {
		t.Errorf("trades/taker: %d %v", first.Trades, first.TakerBuyBase)
	}

	closes := series.Closes()
	if closes[0] != 42050.25 || closes[1] != 42150.00 {
		t.Errorf("closes column: %v", closes)
	}
}

func TestKlines_MalformedRowFails(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1700000000000,"not-a-number","1","1","1","1",1700000899999,"1",1,"1","1","0"]]`))
	})

	if _, err := c.Klines(context.Background(), "BTCUSDT", "15m", 500); err == nil {
		t.Fatal("malformed decimal must fail the fetch, not silently zero")
	}
}

func TestKlines_ErrorStatus(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})

	if _, err := c.Klines(context.Background(), "NOPEUSDT", "15m", 500); err == nil {
		t.Fatal("non-200 must surface as an error")
	}
}

func TestAllSymbols_FiltersTradingUSDT(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(exchangeInfo{Symbols: []symbolInfo{
			{Symbol: "BTCUSDT", Status: "TRADING", QuoteAsset: "USDT"},
			{Symbol: "ETHBTC", Status: "TRADING", QuoteAsset: "BTC"},
			{Symbol: "OLDUSDT", Status: "SETTLING", QuoteAsset: "USDT"},
			{Symbol: "ETHUSDT", Status: "TRADING", QuoteAsset: "USDT"},
		}})
	})

	symbols, err := c.AllSymbols(context.Background())
	if err != nil {
		t.Fatalf("AllSymbols: %v", err)
	}
	want := []string{"BTCUSDT", "ETHUSDT"}
	if len(symbols) != len(want) {
		t.Fatalf("got %v, want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("symbols[%d]: got %s, want %s", i, symbols[i], want[i])
		}
	}
}

func tickerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]ticker24h{
			{Symbol: "ETHUSDT", QuoteVolume: "200000000"},
			{Symbol: "BTCUSDT", QuoteVolume: "900000000"},
			{Symbol: "ETHBTC", QuoteVolume: "999999999"}, // not USDT-quoted
			{Symbol: "DOGEUSDT", QuoteVolume: "50000000"},
			{Symbol: "SOLUSDT", QuoteVolume: "150000000"},
		})
	}
}

func TestTopVolumeSymbols_RanksByQuoteVolume(t *testing.T) {
	c := testServer(t, tickerHandler())

	symbols, err := c.TopVolumeSymbols(context.Background(), 3)
	if err != nil {
		t.Fatalf("TopVolumeSymbols: %v", err)
	}
	want := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	if len(symbols) != 3 {
		t.Fatalf("got %v", symbols)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("rank %d: got %s, want %s", i, symbols[i], want[i])
		}
	}
}

func TestFilterByVolume(t *testing.T) {
	c := testServer(t, tickerHandler())

	symbols, err := c.FilterByVolume(context.Background(),
		[]string{"BTCUSDT", "DOGEUSDT", "SOLUSDT"}, 100000000)
	if err != nil {
		t.Fatalf("FilterByVolume: %v", err)
	}
	// DOGEUSDT is under the floor; result sorted by volume descending.
	want := []string{"BTCUSDT", "SOLUSDT"}
	if len(symbols) != len(want) {
		t.Fatalf("got %v, want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("filtered[%d]: got %s, want %s", i, symbols[i], want[i])
		}
	}
}

func TestCurrentPrice(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tickerPrice{Symbol: "BTCUSDT", Price: "42123.45"})
	})

	price, err := c.CurrentPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if price != 42123.45 {
		t.Errorf("price: got %v", price)
	}
}

func TestPing(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

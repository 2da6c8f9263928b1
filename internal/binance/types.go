package binance

// exchangeInfo is the subset of /fapi/v1/exchangeInfo we read.
type exchangeInfo struct {
	Symbols []symbolInfo `json:"symbols"`
}

type symbolInfo struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	QuoteAsset string `json:"quoteAsset"`
}

// ticker24h is one entry of /fapi/v1/ticker/24hr.
type ticker24h struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
	LastPrice   string `json:"lastPrice"`
}

// tickerPrice is /fapi/v1/ticker/price for one symbol.
type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// serverTime is /fapi/v1/time.
type serverTime struct {
	ServerTime int64 `json:"serverTime"`
}

// combinedStreamMessage wraps every event on a combined websocket stream.
type combinedStreamMessage struct {
	Stream string     `json:"stream"`
	Data   klineEvent `json:"data"`
}

// klineEvent is a kline/candlestick websocket update.
type klineEvent struct {
	EventType string       `json:"e"`
	EventTime int64        `json:"E"`
	Symbol    string       `json:"s"`
	Kline     klinePayload `json:"k"`
}

type klinePayload struct {
	OpenTime  int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
	Trades    int64  `json:"n"`
	Closed    bool   `json:"x"`
	QuoteVol  string `json:"q"`
	TakerBase string `json:"V"`
}

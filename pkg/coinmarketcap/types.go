package coinmarketcap

import (
	"encoding/json"
	"time"
)

// Quote is the latest market data for one asset in one convert currency.
type Quote struct {
	Symbol           string
	Name             string
	Convert          string    // e.g. "USD"
	Price            float64   // price in Convert
	PercentChange24h float64   // percent, e.g. -1.25
	MarketCap        float64   // in Convert
	LastUpdated      time.Time // zero when not reported
}

// QuotesLatestResponse is the envelope of /v1/cryptocurrency/quotes/latest.
// Data is keyed by symbol and decoded lazily.
type QuotesLatestResponse struct {
	Status Status                     `json:"status"`
	Data   map[string]json.RawMessage `json:"data"`
}

type Status struct {
	ErrorCode    int    `json:"error_code"`    // 0 on success
	ErrorMessage string `json:"error_message"` // null on success
	CreditCount  int    `json:"credit_count"`
}

type cryptocurrency struct {
	Name   string                    `json:"name"`
	Symbol string                    `json:"symbol"`
	Quote  map[string]currencyFields `json:"quote"`
}

// Pointers distinguish a missing field from a zero value.
type currencyFields struct {
	Price            *float64 `json:"price"`
	PercentChange24h *float64 `json:"percent_change_24h"`
	MarketCap        *float64 `json:"market_cap"`
	LastUpdated      string   `json:"last_updated"`
}

package models

import (
	"encoding/json"
	"time"
)

// StockQuote is an Indian equity or index snapshot in the NSE field layout.
type StockQuote struct {
	Symbol            string  `json:"symbol"`
	Identifier        string  `json:"identifier"`
	LastPrice         float64 `json:"lastPrice"`
	Change            float64 `json:"change"`
	PChange           float64 `json:"pChange"`
	Open              float64 `json:"open"`
	DayHigh           float64 `json:"dayHigh"`
	DayLow            float64 `json:"dayLow"`
	PreviousClose     float64 `json:"previousClose"`
	TotalTradedVolume int64   `json:"totalTradedVolume"`
	YearHigh          float64 `json:"yearHigh,omitempty"`
	YearLow           float64 `json:"yearLow,omitempty"`
	LastUpdateTime    string  `json:"lastUpdateTime,omitempty"`
}

// MarketResult wraps a provider payload together with the source that
// served it. Data is either typed quotes or the raw upstream body.
type MarketResult struct {
	Success bool   `json:"success"`
	Source  string `json:"source"`
	Symbol  string `json:"symbol,omitempty"`
	Query   string `json:"query,omitempty"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
}

// ProviderPayload is a raw upstream body tagged with its provider.
type ProviderPayload struct {
	Source string          `json:"source"`
	Data   json.RawMessage `json:"data"`
}

// AggregatedMarketData combines the three global providers. A nil member
// means that provider failed.
type AggregatedMarketData struct {
	Quote        *ProviderPayload `json:"quote"`
	Profile      *ProviderPayload `json:"profile"`
	MarketStatus *ProviderPayload `json:"marketStatus"`
	Timestamp    time.Time        `json:"timestamp"`
}

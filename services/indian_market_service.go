package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	sourceNSE             = "NSE India API"
	sourceNSEIndices      = "NSE India API - Real Data"
	sourceRapidAPI        = "RapidAPI - Indian Market"
	sourceRapidAPIIndices = "RapidAPI - Indian Market Indices"
	sourceRapidAPIPopular = "RapidAPI - Popular Indian Stocks"
	sourceDemoIndices     = "Demo Data - Indian Market Indices"
	sourceDemoPopular     = "Demo Data - Popular Indian Stocks"

	providerNSE      = "nse"
	providerRapidAPI = "rapidapi"

	searchResultLimit = 10
)

// PopularSymbols are the large caps served by the popular endpoint.
var PopularSymbols = []string{
	"RELIANCE", "TCS", "HDFCBANK", "INFY", "HINDUNILVR",
	"ICICIBANK", "SBIN", "BHARTIARTL", "ITC", "KOTAKBANK",
}

var errRapidAPIKeyMissing = errors.New("RapidAPI key not configured")

// IndianMarketConfig holds NSE and RapidAPI endpoints.
type IndianMarketConfig struct {
	RapidAPIKey     string
	RapidAPIHost    string
	RapidAPIBaseURL string
	NSEBaseURL      string
}

func (c *IndianMarketConfig) applyDefaults() {
	if c.RapidAPIHost == "" {
		c.RapidAPIHost = "latest-stock-price.p.rapidapi.com"
	}
	if c.RapidAPIBaseURL == "" {
		c.RapidAPIBaseURL = "https://" + c.RapidAPIHost
	}
	if c.NSEBaseURL == "" {
		c.NSEBaseURL = "https://www.nseindia.com/api"
	}
}

// IndianMarketService serves NSE equities and indices. Each read tries NSE,
// then RapidAPI, and falls back to static demo data where the public API
// promises a response.
type IndianMarketService struct {
	config      IndianMarketConfig
	upstream    *upstreamClient
	httpMetrics *shared.HTTPMetrics
	now         func() time.Time
}

func NewIndianMarketService(config IndianMarketConfig, httpClient *http.Client, serviceConfig shared.ServiceConfig, httpMetrics *shared.HTTPMetrics) *IndianMarketService {
	config.applyDefaults()
	if httpMetrics == nil {
		httpMetrics = shared.NewHTTPMetrics()
	}
	return &IndianMarketService{
		config:      config,
		upstream:    newUpstreamClient(httpClient, serviceConfig, httpMetrics),
		httpMetrics: httpMetrics,
		now:         time.Now,
	}
}

func (s *IndianMarketService) logger() *logrus.Entry {
	return logrus.WithField("component", "indian_market")
}

func (s *IndianMarketService) rapidAPI(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if s.config.RapidAPIKey == "" {
		return nil, errRapidAPIKeyMissing
	}
	target := s.config.RapidAPIBaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return s.upstream.getJSON(ctx, providerRapidAPI, target, map[string]string{
		"X-RapidAPI-Key":  s.config.RapidAPIKey,
		"X-RapidAPI-Host": s.config.RapidAPIHost,
	})
}

func (s *IndianMarketService) nseIndex(ctx context.Context, index string) ([]json.RawMessage, error) {
	raw, err := s.upstream.getJSON(ctx, providerNSE,
		s.config.NSEBaseURL+"/equity-stockIndices?index="+url.QueryEscape(index), nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data) == 0 {
		return nil, errors.New("NSE returned no constituents for " + index)
	}
	return envelope.Data, nil
}

func (s *IndianMarketService) fallback(result *models.MarketResult, reason error) *models.MarketResult {
	s.httpMetrics.RecordFallback()
	s.logger().WithError(reason).WithField("source", result.Source).Info("Serving demo market data")
	return result
}

// GetAllStocks returns the NIFTY 50 constituents.
func (s *IndianMarketService) GetAllStocks(ctx context.Context) *models.MarketResult {
	stocks, err := s.nseIndex(ctx, "NIFTY 50")
	if err == nil {
		return &models.MarketResult{Success: true, Source: sourceNSE, Data: stocks}
	}
	s.logger().WithError(err).Info("NSE unavailable, trying RapidAPI")

	raw, err := s.rapidAPI(ctx, "/any", nil)
	if err == nil {
		return &models.MarketResult{Success: true, Source: sourceRapidAPI, Data: raw}
	}
	return s.fallback(demoPopularStocks(), err)
}

// indexRecord accepts both the NSE index and quote field names.
type indexRecord struct {
	Last              *float64 `json:"last"`
	LastPrice         *float64 `json:"lastPrice"`
	Change            float64  `json:"change"`
	PChange           *float64 `json:"pChange"`
	PerChange         *float64 `json:"perChange"`
	Open              float64  `json:"open"`
	DayHigh           *float64 `json:"dayHigh"`
	High              *float64 `json:"high"`
	DayLow            *float64 `json:"dayLow"`
	Low               *float64 `json:"low"`
	PreviousClose     float64  `json:"previousClose"`
	TotalTradedVolume int64    `json:"totalTradedVolume"`
}

func firstOf(values ...*float64) float64 {
	for _, v := range values {
		if v != nil && *v != 0 {
			return *v
		}
	}
	return 0
}

func (r indexRecord) toQuote(name string, updated time.Time) models.StockQuote {
	return models.StockQuote{
		Symbol:            name,
		Identifier:        name,
		LastPrice:         firstOf(r.Last, r.LastPrice),
		Change:            r.Change,
		PChange:           firstOf(r.PChange, r.PerChange),
		Open:              r.Open,
		DayHigh:           firstOf(r.DayHigh, r.High),
		DayLow:            firstOf(r.DayLow, r.Low),
		PreviousClose:     r.PreviousClose,
		TotalTradedVolume: r.TotalTradedVolume,
		LastUpdateTime:    updated.UTC().Format(time.RFC3339),
	}
}

// GetIndices returns NIFTY 50 and NIFTY BANK.
func (s *IndianMarketService) GetIndices(ctx context.Context) *models.MarketResult {
	names := []string{"NIFTY 50", "NIFTY BANK"}
	records := make([][]json.RawMessage, len(names))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, name := range names {
		group.Go(func() error {
			data, err := s.nseIndex(groupCtx, name)
			records[i] = data
			return err
		})
	}

	err := group.Wait()
	if err == nil {
		now := s.now()
		var indices []models.StockQuote
		for i, name := range names {
			var record indexRecord
			if json.Unmarshal(records[i][0], &record) == nil {
				indices = append(indices, record.toQuote(name, now))
			}
		}
		if len(indices) > 0 {
			return &models.MarketResult{Success: true, Source: sourceNSEIndices, Data: indices}
		}
		return s.fallback(s.demoIndices(), errors.New("NSE index records could not be decoded"))
	}
	s.logger().WithError(err).Info("NSE unavailable, trying RapidAPI")

	raw, err := s.rapidAPI(ctx, "/price", url.Values{"Indices": {"NIFTY 50,NIFTY BANK,SENSEX"}})
	if err == nil {
		return &models.MarketResult{Success: true, Source: sourceRapidAPIIndices, Data: raw}
	}
	return s.fallback(s.demoIndices(), err)
}

// GetPopularStocks returns quotes for PopularSymbols.
func (s *IndianMarketService) GetPopularStocks(ctx context.Context) *models.MarketResult {
	raw, err := s.rapidAPI(ctx, "/prices", url.Values{"Indices": {strings.Join(PopularSymbols, ",")}})
	if err == nil {
		return &models.MarketResult{Success: true, Source: sourceRapidAPIPopular, Data: raw}
	}
	return s.fallback(demoPopularStocks(), err)
}

// stockItems flattens a result's data into individual JSON records.
func stockItems(data any) ([]json.RawMessage, error) {
	switch v := data.(type) {
	case []json.RawMessage:
		return v, nil
	case json.RawMessage:
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err != nil {
			return nil, err
		}
		return items, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var items []json.RawMessage
		err = json.Unmarshal(encoded, &items)
		return items, err
	}
}

// SearchStocks filters all stocks by symbol or name, case-insensitively,
// and keeps the first ten matches.
func (s *IndianMarketService) SearchStocks(ctx context.Context, query string) (*models.MarketResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, shared.NewValidationError("Search query (q) is required")
	}

	all := s.GetAllStocks(ctx)
	items, err := stockItems(all.Data)
	if err != nil {
		return nil, shared.NewUnavailableError("Search failed", err)
	}

	needle := strings.ToLower(query)
	matches := make([]json.RawMessage, 0, searchResultLimit)
	for _, item := range items {
		var names struct {
			Symbol     string `json:"symbol"`
			Identifier string `json:"identifier"`
		}
		if json.Unmarshal(item, &names) != nil {
			continue
		}
		if strings.Contains(strings.ToLower(names.Symbol), needle) ||
			strings.Contains(strings.ToLower(names.Identifier), needle) {
			matches = append(matches, item)
			if len(matches) == searchResultLimit {
				break
			}
		}
	}

	return &models.MarketResult{Success: true, Source: all.Source, Query: query, Data: matches}, nil
}

// GetStockPrice returns the RapidAPI price for one symbol.
func (s *IndianMarketService) GetStockPrice(ctx context.Context, symbol string) (*models.MarketResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	raw, err := s.rapidAPI(ctx, "/price", url.Values{"Indices": {symbol}})
	if err != nil {
		return nil, notFound("STOCK_NOT_FOUND", "Stock not found", "get_stock_price", err)
	}
	return &models.MarketResult{Success: true, Source: sourceRapidAPI, Symbol: symbol, Data: raw}, nil
}

// ParseSymbolList splits a comma separated symbol list, upper-casing each
// entry and dropping blanks.
func ParseSymbolList(symbols string) []string {
	var parsed []string
	for _, symbol := range strings.Split(symbols, ",") {
		if symbol = strings.ToUpper(strings.TrimSpace(symbol)); symbol != "" {
			parsed = append(parsed, symbol)
		}
	}
	return parsed
}

// GetStockPrices returns RapidAPI prices for several symbols.
func (s *IndianMarketService) GetStockPrices(ctx context.Context, symbols []string) (*models.MarketResult, error) {
	if len(symbols) == 0 {
		return nil, shared.NewValidationError("Symbols parameter is required")
	}
	raw, err := s.rapidAPI(ctx, "/prices", url.Values{"Indices": {strings.Join(symbols, ",")}})
	if err != nil {
		return nil, shared.NewUnavailableError("Unable to fetch stock prices", err)
	}
	return &models.MarketResult{Success: true, Source: sourceRapidAPI, Data: raw}, nil
}

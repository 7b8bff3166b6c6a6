package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"golang.org/x/sync/errgroup"
)

const (
	sourceAlphaVantage = "AlphaVantage"
	sourceFinnhub      = "Finnhub"
	sourcePolygon      = "Polygon"

	calendarDateLayout = "2006-01-02"
)

// MarketDataConfig holds the global provider credentials and base URLs.
type MarketDataConfig struct {
	AlphaVantageKey     string
	FinnhubKey          string
	PolygonKey          string
	AlphaVantageBaseURL string
	FinnhubBaseURL      string
	PolygonBaseURL      string
}

func (c *MarketDataConfig) applyDefaults() {
	if c.AlphaVantageBaseURL == "" {
		c.AlphaVantageBaseURL = "https://www.alphavantage.co"
	}
	if c.FinnhubBaseURL == "" {
		c.FinnhubBaseURL = "https://finnhub.io/api/v1"
	}
	if c.PolygonBaseURL == "" {
		c.PolygonBaseURL = "https://api.polygon.io"
	}
}

// MarketDataService proxies global market data: AlphaVantage quotes,
// Finnhub profiles and IPO calendar, Polygon market status.
type MarketDataService struct {
	config   MarketDataConfig
	upstream *upstreamClient
	now      func() time.Time
}

func NewMarketDataService(config MarketDataConfig, httpClient *http.Client, serviceConfig shared.ServiceConfig, httpMetrics *shared.HTTPMetrics) *MarketDataService {
	config.applyDefaults()
	return &MarketDataService{
		config:   config,
		upstream: newUpstreamClient(httpClient, serviceConfig, httpMetrics),
		now:      time.Now,
	}
}

func notFound(code, message, operation string, cause error) error {
	return shared.NewServiceError(shared.ErrorCategoryNotFound, code, message, "market-data", operation, false, cause)
}

// isEmptyJSON reports whether a provider answered with nothing useful.
func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}"))
}

// GetStockQuote returns AlphaVantage's GLOBAL_QUOTE for symbol.
func (s *MarketDataService) GetStockQuote(ctx context.Context, symbol string) (*models.ProviderPayload, error) {
	query := url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {strings.ToUpper(strings.TrimSpace(symbol))},
		"apikey":   {s.config.AlphaVantageKey},
	}
	raw, err := s.upstream.getJSON(ctx, sourceAlphaVantage, s.config.AlphaVantageBaseURL+"/query?"+query.Encode(), nil)
	if err != nil {
		return nil, notFound("QUOTE_NOT_FOUND", "Stock data not found", "get_stock_quote", err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil || isEmptyJSON(envelope["Global Quote"]) {
		return nil, notFound("QUOTE_NOT_FOUND", "Stock data not found", "get_stock_quote", err)
	}
	return &models.ProviderPayload{Source: sourceAlphaVantage, Data: envelope["Global Quote"]}, nil
}

// GetCompanyProfile returns Finnhub's profile2 for symbol.
func (s *MarketDataService) GetCompanyProfile(ctx context.Context, symbol string) (*models.ProviderPayload, error) {
	query := url.Values{
		"symbol": {strings.ToUpper(strings.TrimSpace(symbol))},
		"token":  {s.config.FinnhubKey},
	}
	raw, err := s.upstream.getJSON(ctx, sourceFinnhub, s.config.FinnhubBaseURL+"/stock/profile2?"+query.Encode(), nil)
	if err != nil {
		return nil, notFound("PROFILE_NOT_FOUND", "Company profile not found", "get_company_profile", err)
	}
	if isEmptyJSON(raw) {
		return nil, notFound("PROFILE_NOT_FOUND", "Company profile not found", "get_company_profile", nil)
	}
	return &models.ProviderPayload{Source: sourceFinnhub, Data: raw}, nil
}

// GetMarketStatus returns Polygon's current market status.
func (s *MarketDataService) GetMarketStatus(ctx context.Context) (*models.ProviderPayload, error) {
	query := url.Values{"apiKey": {s.config.PolygonKey}}
	raw, err := s.upstream.getJSON(ctx, sourcePolygon, s.config.PolygonBaseURL+"/v1/marketstatus/now?"+query.Encode(), nil)
	if err != nil {
		return nil, shared.NewUnavailableError("Market data unavailable", err)
	}
	return &models.ProviderPayload{Source: sourcePolygon, Data: raw}, nil
}

// CalendarWindow resolves the IPO calendar range. Missing bounds default to
// today and ninety days ahead.
func (s *MarketDataService) CalendarWindow(from, to string) (time.Time, time.Time, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	start, end := today, today.AddDate(0, 0, 90)

	if from != "" {
		parsed, err := time.Parse(calendarDateLayout, from)
		if err != nil {
			return time.Time{}, time.Time{}, shared.NewValidationError("from must be a date in YYYY-MM-DD format")
		}
		start = parsed
	}
	if to != "" {
		parsed, err := time.Parse(calendarDateLayout, to)
		if err != nil {
			return time.Time{}, time.Time{}, shared.NewValidationError("to must be a date in YYYY-MM-DD format")
		}
		end = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, shared.NewValidationError("to must not be before from")
	}
	return start, end, nil
}

func (s *MarketDataService) fetchIPOCalendar(ctx context.Context, from, to time.Time, token string) (json.RawMessage, error) {
	query := url.Values{
		"from":  {from.Format(calendarDateLayout)},
		"to":    {to.Format(calendarDateLayout)},
		"token": {token},
	}
	return s.upstream.getJSON(ctx, sourceFinnhub, s.config.FinnhubBaseURL+"/calendar/ipo?"+query.Encode(), nil)
}

// GetIPOCalendar returns Finnhub's IPO calendar between from and to.
func (s *MarketDataService) GetIPOCalendar(ctx context.Context, from, to string) (*models.ProviderPayload, error) {
	start, end, err := s.CalendarWindow(from, to)
	if err != nil {
		return nil, err
	}
	raw, err := s.fetchIPOCalendar(ctx, start, end, s.config.FinnhubKey)
	if err != nil {
		return nil, notFound("IPO_CALENDAR_NOT_FOUND", "IPO calendar not found", "get_ipo_calendar", err)
	}
	return &models.ProviderPayload{Source: sourceFinnhub, Data: raw}, nil
}

// GetAggregatedMarketData queries all three providers concurrently. A
// failing provider leaves its member nil; the call itself never fails.
func (s *MarketDataService) GetAggregatedMarketData(ctx context.Context, symbol string) *models.AggregatedMarketData {
	result := &models.AggregatedMarketData{}

	var group errgroup.Group
	group.Go(func() error {
		result.Quote, _ = s.GetStockQuote(ctx, symbol)
		return nil
	})
	group.Go(func() error {
		result.Profile, _ = s.GetCompanyProfile(ctx, symbol)
		return nil
	})
	group.Go(func() error {
		result.MarketStatus, _ = s.GetMarketStatus(ctx)
		return nil
	})
	_ = group.Wait()

	result.Timestamp = s.now()
	return result
}

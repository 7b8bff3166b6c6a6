package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultLotSize          = 100
	subscriptionWindowDays  = 3
	listingAfterCloseDays   = 5
	defaultTotalSharesValue = 100_000_000
	syncActor               = "ipo-sync"
)

var (
	defaultPriceMin  = decimal.NewFromInt(10)
	priceMaxFallback = decimal.NewFromFloat(1.2)
)

// FinnhubIPOCalendarProvider reads the Finnhub IPO calendar. Without an API
// key the public "demo" token is used.
type FinnhubIPOCalendarProvider struct {
	market *MarketDataService
	token  string
}

func NewFinnhubIPOCalendarProvider(market *MarketDataService) *FinnhubIPOCalendarProvider {
	token := market.config.FinnhubKey
	if token == "" {
		token = "demo"
	}
	return &FinnhubIPOCalendarProvider{market: market, token: token}
}

func (p *FinnhubIPOCalendarProvider) Name() string { return "finnhub" }

type finnhubIPO struct {
	Date             string          `json:"date"`
	Exchange         string          `json:"exchange"`
	Name             string          `json:"name"`
	NumberOfShares   decimal.Decimal `json:"numberOfShares"`
	Price            json.RawMessage `json:"price"`
	Status           string          `json:"status"`
	Symbol           string          `json:"symbol"`
	TotalSharesValue decimal.Decimal `json:"totalSharesValue"`
}

func (p *FinnhubIPOCalendarProvider) FetchCalendar(ctx context.Context, from, to time.Time) ([]IPOCalendarEntry, error) {
	raw, err := p.market.fetchIPOCalendar(ctx, from, to, p.token)
	if err != nil {
		return nil, err
	}
	var calendar struct {
		IPOCalendar []finnhubIPO `json:"ipoCalendar"`
	}
	if err := json.Unmarshal(raw, &calendar); err != nil {
		return nil, fmt.Errorf("failed to decode Finnhub IPO calendar: %w", err)
	}

	utility := NewUtilityService()
	entries := make([]IPOCalendarEntry, 0, len(calendar.IPOCalendar))
	for _, item := range calendar.IPOCalendar {
		openDate := utility.ParseDate(item.Date)
		symbol := utility.NormalizeSymbol(item.Symbol)
		if openDate == nil || symbol == "" || strings.TrimSpace(item.Name) == "" {
			continue
		}
		// price is either "18.00-22.00", "20.00" or a bare number
		price := strings.Trim(string(item.Price), `"`)
		if price == "null" {
			price = ""
		}
		entries = append(entries, IPOCalendarEntry{
			CompanyName:      strings.TrimSpace(item.Name),
			Symbol:           symbol,
			OpenDate:         *openDate,
			PriceBand:        utility.ParsePriceBand(price),
			TotalSharesValue: item.TotalSharesValue,
			NumberOfShares:   item.NumberOfShares.IntPart(),
			Exchange:         item.Exchange,
		})
	}
	return entries, nil
}

// DemoIPOCalendarProvider returns a fixed set of sample IPOs dated relative
// to now. It is the last resort of the sync.
type DemoIPOCalendarProvider struct {
	now func() time.Time
}

func NewDemoIPOCalendarProvider() *DemoIPOCalendarProvider {
	return &DemoIPOCalendarProvider{now: time.Now}
}

func (p *DemoIPOCalendarProvider) Name() string { return "demo" }

func (p *DemoIPOCalendarProvider) FetchCalendar(_ context.Context, _, _ time.Time) ([]IPOCalendarEntry, error) {
	today := p.now().UTC().Truncate(24 * time.Hour)
	entry := func(name, symbol string, inDays int, low, high, value int64) IPOCalendarEntry {
		return IPOCalendarEntry{
			CompanyName:      name,
			Symbol:           symbol,
			OpenDate:         today.AddDate(0, 0, inDays),
			PriceBand:        []decimal.Decimal{decimal.NewFromInt(low), decimal.NewFromInt(high)},
			TotalSharesValue: decimal.NewFromInt(value),
		}
	}
	return []IPOCalendarEntry{
		entry("TechVision AI Corp", "TVAI", 5, 18, 22, 500_000_000),
		entry("GreenEnergy Solutions Ltd", "GESL", 0, 25, 30, 750_000_000),
		entry("HealthTech Innovations", "HTCI", 10, 15, 18, 300_000_000),
		entry("CloudNet Systems Inc", "CNSI", 0, 30, 35, 1_000_000_000),
		entry("FinTech Global Partners", "FTGP", 15, 20, 24, 600_000_000),
		entry("BioPharm Research Co", "BPRC", 3, 28, 32, 850_000_000),
		entry("Quantum Computing Labs", "QCLA", 0, 40, 45, 1_200_000_000),
		entry("EduTech Platform Inc", "ETPI", 20, 12, 15, 250_000_000),
	}, nil
}

// IPOUpserter is the registry operation the sync writes through.
type IPOUpserter interface {
	UpsertIPOs(ctx context.Context, ipos []models.IPO, actor string) (models.UpsertResult, error)
}

// SyncResult reports one sync run.
type SyncResult struct {
	models.UpsertResult
	Source string `json:"source"`
}

// IPOSyncService pulls IPO calendars from the configured providers, first
// non-empty answer wins, and upserts them into the registry by symbol.
type IPOSyncService struct {
	providers      []IPOCalendarProvider
	registry       IPOUpserter
	utilityService *UtilityService
	serviceMetrics *shared.ServiceMetrics
	now            func() time.Time

	// serializes manual and scheduled runs
	running sync.Mutex
}

func NewIPOSyncService(registry IPOUpserter, metrics *shared.ServiceMetrics, providers ...IPOCalendarProvider) *IPOSyncService {
	if metrics == nil {
		metrics = shared.NewServiceMetrics("IPO_Sync_Service")
	}
	return &IPOSyncService{
		providers:      providers,
		registry:       registry,
		utilityService: NewUtilityService(),
		serviceMetrics: metrics,
		now:            time.Now,
	}
}

// SyncWindow is one month back to ninety days ahead of now.
func (s *IPOSyncService) SyncWindow() (time.Time, time.Time) {
	now := s.now().UTC()
	return now.AddDate(0, -1, 0), now.AddDate(0, 0, 90)
}

func (s *IPOSyncService) fetch(ctx context.Context) ([]IPOCalendarEntry, string, error) {
	from, to := s.SyncWindow()
	var errs []error
	for _, provider := range s.providers {
		logger := logrus.WithFields(logrus.Fields{
			"component": "ipo_sync",
			"provider":  provider.Name(),
		})
		entries, err := provider.FetchCalendar(ctx, from, to)
		if err != nil {
			logger.WithError(err).Warn("IPO calendar provider failed")
			errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(entries) == 0 {
			logger.Info("IPO calendar provider returned no entries")
			continue
		}
		return entries, provider.Name(), nil
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("every provider returned an empty calendar"))
	}
	return nil, "", errors.Join(errs...)
}

// Sync runs one fetch-transform-upsert cycle.
func (s *IPOSyncService) Sync(ctx context.Context) (*SyncResult, error) {
	s.running.Lock()
	defer s.running.Unlock()

	start := time.Now()
	entries, source, err := s.fetch(ctx)
	if err != nil {
		s.serviceMetrics.RecordRequest(false, time.Since(start))
		return nil, shared.NewUnavailableError("No IPO data source available", err)
	}

	ipos := make([]models.IPO, 0, len(entries))
	for _, entry := range entries {
		ipos = append(ipos, s.TransformEntry(entry))
	}

	upserted, err := s.registry.UpsertIPOs(ctx, ipos, syncActor)
	s.serviceMetrics.RecordRequest(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"component": "ipo_sync",
		"source":    source,
		"created":   upserted.Created,
		"updated":   upserted.Updated,
		"total":     upserted.Total,
		"duration":  time.Since(start),
	}).Info("IPO sync complete")
	return &SyncResult{UpsertResult: upserted, Source: source}, nil
}

// TransformEntry turns a calendar entry into a registry record. Missing
// close and listing dates follow a three day window and a listing five days
// after close; the status is derived from that window.
func (s *IPOSyncService) TransformEntry(entry IPOCalendarEntry) models.IPO {
	openDate := entry.OpenDate
	closeDate := openDate.AddDate(0, 0, subscriptionWindowDays)
	if entry.CloseDate != nil && !entry.CloseDate.Before(openDate) {
		closeDate = *entry.CloseDate
	}
	listingDate := closeDate.AddDate(0, 0, listingAfterCloseDays)
	if entry.ListingDate != nil && !entry.ListingDate.Before(closeDate) {
		listingDate = *entry.ListingDate
	}

	priceMin := defaultPriceMin
	if len(entry.PriceBand) > 0 && entry.PriceBand[0].IsPositive() {
		priceMin = entry.PriceBand[0]
	}
	priceMax := priceMin.Mul(priceMaxFallback)
	if len(entry.PriceBand) > 1 && entry.PriceBand[1].GreaterThanOrEqual(priceMin) {
		priceMax = entry.PriceBand[1]
	}

	lotSize := entry.LotSize
	if lotSize <= 0 {
		lotSize = defaultLotSize
	}

	totalShares := entry.NumberOfShares
	if !entry.TotalSharesValue.IsZero() || totalShares <= 0 {
		value := entry.TotalSharesValue
		if !value.IsPositive() {
			value = decimal.NewFromInt(defaultTotalSharesValue)
		}
		totalShares = value.Div(priceMin).Floor().IntPart()
	}
	if totalShares <= 0 {
		totalShares = 1
	}

	description := fmt.Sprintf("%s is going public. This IPO offers investors an opportunity to participate in the company's growth story.", entry.CompanyName)
	sector := s.utilityService.DetermineSector(entry.CompanyName)

	return models.IPO{
		CompanyName:   entry.CompanyName,
		Symbol:        entry.Symbol,
		PriceRange:    models.PriceRange{Min: priceMin.Round(2), Max: priceMax.Round(2)},
		LotSize:       lotSize,
		TotalShares:   totalShares,
		MinInvestment: priceMin.Mul(decimal.NewFromInt(int64(lotSize))).Round(2),
		OpenDate:      openDate,
		CloseDate:     closeDate,
		ListingDate:   &listingDate,
		Status:        s.utilityService.CalculateIPOStatus(openDate, closeDate, s.now()),
		Description:   &description,
		Sector:        &sector,
	}
}

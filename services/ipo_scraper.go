package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/gocolly/colly/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const scraperUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// croreRupees converts an issue size given in crore to rupees.
var croreRupees = decimal.NewFromInt(10_000_000)

// IPOCalendarEntry is one upcoming or current IPO as reported by a data
// provider, before it is turned into a registry record.
type IPOCalendarEntry struct {
	CompanyName      string
	Symbol           string
	OpenDate         time.Time
	CloseDate        *time.Time
	ListingDate      *time.Time
	PriceBand        []decimal.Decimal
	LotSize          int
	TotalSharesValue decimal.Decimal
	NumberOfShares   int64
	Exchange         string
}

// IPOCalendarProvider fetches IPO calendar entries from one source.
type IPOCalendarProvider interface {
	Name() string
	FetchCalendar(ctx context.Context, from, to time.Time) ([]IPOCalendarEntry, error)
}

// HTMLIPOCalendarScraper reads an IPO calendar table from a web page, such as
// chittorgarh's mainboard IPO list.
type HTMLIPOCalendarScraper struct {
	pageURL            string
	configuration      shared.ServiceConfig
	requestRateLimiter *shared.HTTPRequestRateLimiter
	utilityService     *UtilityService
	httpMetrics        *shared.HTTPMetrics
}

func NewHTMLIPOCalendarScraper(pageURL string, config shared.ServiceConfig, httpMetrics *shared.HTTPMetrics) *HTMLIPOCalendarScraper {
	if httpMetrics == nil {
		httpMetrics = shared.NewHTTPMetrics()
	}
	return &HTMLIPOCalendarScraper{
		pageURL:            pageURL,
		configuration:      config,
		requestRateLimiter: shared.NewHTTPRequestRateLimiter(config.RequestRateLimit),
		utilityService:     NewUtilityService(),
		httpMetrics:        httpMetrics,
	}
}

func (s *HTMLIPOCalendarScraper) Name() string { return "html_scraper" }

// calendarColumns maps table columns to fields; -1 marks a missing column.
type calendarColumns struct {
	company, symbol, openDate, closeDate, listingDate, priceBand, issueSize, lotSize int
}

func (s *HTMLIPOCalendarScraper) resolveColumns(headers []string) (calendarColumns, bool) {
	find := func(field string) int {
		return s.utilityService.FindColumnByLabel(headers, s.utilityService.GetTargetLabelsForField(field))
	}
	columns := calendarColumns{
		company:     find("company"),
		symbol:      find("symbol"),
		openDate:    find("open_date"),
		closeDate:   find("close_date"),
		listingDate: find("listing_date"),
		priceBand:   find("price_band"),
		issueSize:   find("issue_size"),
		lotSize:     find("lot_size"),
	}
	return columns, columns.company >= 0 && columns.openDate >= 0
}

// FetchCalendar scrapes the page and keeps entries opening within
// [from, to]. The window is ignored for rows without a parsable open date;
// those rows are dropped.
func (s *HTMLIPOCalendarScraper) FetchCalendar(ctx context.Context, from, to time.Time) ([]IPOCalendarEntry, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "HTMLIPOCalendarScraper",
		"url":       s.pageURL,
	})
	if s.pageURL == "" {
		return nil, shared.NewServiceError(shared.ErrorCategoryConfiguration, "SCRAPE_URL_MISSING",
			"no IPO calendar page configured", "ipo-scraper", "fetch_calendar", false, nil)
	}
	if err := s.requestRateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	collector := colly.NewCollector(
		colly.UserAgent(scraperUserAgent),
		colly.StdlibContext(ctx),
	)
	collector.SetRequestTimeout(s.configuration.HTTPRequestTimeout)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var entries []IPOCalendarEntry
	tableFound := false
	collector.OnHTML("table", func(e *colly.HTMLElement) {
		if tableFound {
			return
		}
		headers := e.DOM.Find("thead th")
		if headers.Length() == 0 {
			headers = e.DOM.Find("tr").First().Find("th, td")
		}
		var headerTexts []string
		headers.Each(func(_ int, cell *goquery.Selection) {
			headerTexts = append(headerTexts, strings.TrimSpace(cell.Text()))
		})

		columns, ok := s.resolveColumns(headerTexts)
		if !ok {
			return
		}
		tableFound = true

		e.DOM.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.Find("td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.Join(strings.Fields(cell.Text()), " "))
			})
			entry, ok := s.parseRow(cells, columns)
			if !ok {
				return
			}
			if entry.OpenDate.Before(from) || entry.OpenDate.After(to) {
				return
			}
			entries = append(entries, entry)
		})
	})

	collector.OnError(func(r *colly.Response, err error) {
		logger.WithError(err).WithField("status_code", r.StatusCode).Warn("IPO calendar page request failed")
	})

	start := time.Now()
	err := collector.Visit(s.pageURL)
	s.httpMetrics.RecordHTTPRequest(s.Name(), err == nil, time.Since(start))
	if err != nil {
		return nil, shared.NewUnavailableError("IPO calendar page unavailable", err)
	}
	if !tableFound {
		return nil, fmt.Errorf("no IPO calendar table found at %s", s.pageURL)
	}

	logger.WithField("entries", len(entries)).Info("Scraped IPO calendar")
	return entries, nil
}

func cellAt(cells []string, index int) string {
	if index < 0 || index >= len(cells) {
		return ""
	}
	return cells[index]
}

func (s *HTMLIPOCalendarScraper) parseRow(cells []string, columns calendarColumns) (IPOCalendarEntry, bool) {
	u := s.utilityService

	name := strings.TrimSpace(strings.TrimSuffix(cellAt(cells, columns.company), " IPO"))
	openDate := u.ParseDate(cellAt(cells, columns.openDate))
	if name == "" || openDate == nil {
		return IPOCalendarEntry{}, false
	}

	entry := IPOCalendarEntry{
		CompanyName: name,
		Symbol:      u.NormalizeSymbol(cellAt(cells, columns.symbol)),
		OpenDate:    *openDate,
		CloseDate:   u.ParseDate(cellAt(cells, columns.closeDate)),
		ListingDate: u.ParseDate(cellAt(cells, columns.listingDate)),
		PriceBand:   u.ParsePriceBand(cellAt(cells, columns.priceBand)),
	}
	if entry.Symbol == "" {
		entry.Symbol = u.ExtractCompanyCodeFromText(name)
	}
	if lot, ok := u.ExtractNumeric(cellAt(cells, columns.lotSize)); ok && lot.IsPositive() {
		entry.LotSize = int(lot.IntPart())
	}
	if size, ok := u.ExtractNumeric(cellAt(cells, columns.issueSize)); ok && size.IsPositive() {
		entry.TotalSharesValue = size.Mul(croreRupees)
	}
	return entry, true
}

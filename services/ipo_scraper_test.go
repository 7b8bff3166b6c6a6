package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calendarPage = `<html><body>
<table>
  <thead><tr><th>Date</th><th>Event</th></tr></thead>
  <tbody><tr><td>Mar 19, 2024</td><td>Holiday</td></tr></tbody>
</table>
<table>
  <thead><tr>
    <th>Company</th><th>Symbol</th><th>Opening Date</th><th>Closing Date</th>
    <th>Listing Date</th><th>Price Band</th><th>Issue Size (Rs Cr)</th><th>Lot Size</th>
  </tr></thead>
  <tbody>
    <tr><td>Acme   Tech IPO</td><td>ACME</td><td>Mar 20, 2024</td><td>Mar 22, 2024</td>
        <td>Mar 27, 2024</td><td>₹95 - ₹100</td><td>1,200.50</td><td>150</td></tr>
    <tr><td>Zen Robotics Ltd</td><td>-</td><td>Mar 25, 2024</td><td>TBA</td>
        <td>TBA</td><td>250</td><td>TBA</td><td>TBA</td></tr>
    <tr><td>Far Future Ltd</td><td>FFL</td><td>Dec 1, 2024</td><td>Dec 4, 2024</td>
        <td>Dec 9, 2024</td><td>10 - 12</td><td>50</td><td>1000</td></tr>
    <tr><td>Pending Ltd</td><td>PND</td><td>TBA</td><td>TBA</td>
        <td>TBA</td><td>TBA</td><td>TBA</td><td>TBA</td></tr>
  </tbody>
</table>
</body></html>`

func serveHTML(t *testing.T, status int, body string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func TestHTMLScraper_ParsesCalendarTable(t *testing.T) {
	scraper := NewHTMLIPOCalendarScraper(serveHTML(t, http.StatusOK, calendarPage), testServiceConfig(), nil)
	from := time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC)

	entries, err := scraper.FetchCalendar(context.Background(), from, from.AddDate(0, 0, 42))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	acme := entries[0]
	assert.Equal(t, "Acme Tech", acme.CompanyName)
	assert.Equal(t, "ACME", acme.Symbol)
	assert.Equal(t, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), acme.OpenDate)
	require.NotNil(t, acme.CloseDate)
	assert.Equal(t, time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC), *acme.CloseDate)
	require.NotNil(t, acme.ListingDate)
	require.Len(t, acme.PriceBand, 2)
	assert.Equal(t, "95", acme.PriceBand[0].String())
	assert.Equal(t, "100", acme.PriceBand[1].String())
	assert.Equal(t, "12005000000", acme.TotalSharesValue.String())
	assert.Equal(t, 150, acme.LotSize)

	zen := entries[1]
	assert.Equal(t, "ZEN", zen.Symbol)
	assert.Nil(t, zen.CloseDate)
	require.Len(t, zen.PriceBand, 1)
	assert.Zero(t, zen.LotSize)
	assert.True(t, zen.TotalSharesValue.IsZero())
}

func TestHTMLScraper_EntriesFeedTheSync(t *testing.T) {
	scraper := NewHTMLIPOCalendarScraper(serveHTML(t, http.StatusOK, calendarPage), testServiceConfig(), nil)
	syncer := NewIPOSyncService(nil, nil, scraper)
	syncer.now = fixedNow

	from := time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC)
	entries, err := scraper.FetchCalendar(context.Background(), from, from.AddDate(0, 0, 42))
	require.NoError(t, err)

	for _, entry := range entries {
		ipo := syncer.TransformEntry(entry)
		assert.NoError(t, ValidateIPO(&ipo), entry.CompanyName)
	}
}

func TestHTMLScraper_NoCalendarTable(t *testing.T) {
	scraper := NewHTMLIPOCalendarScraper(serveHTML(t, http.StatusOK, "<html><body><p>Nothing here</p></body></html>"), testServiceConfig(), nil)

	_, err := scraper.FetchCalendar(context.Background(), fixedNow(), fixedNow().AddDate(0, 1, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no IPO calendar table found")
}

func TestHTMLScraper_ErrorStatusIsUnavailable(t *testing.T) {
	metrics := shared.NewHTTPMetrics()
	scraper := NewHTMLIPOCalendarScraper(serveHTML(t, http.StatusBadGateway, "bad gateway"), testServiceConfig(), metrics)

	_, err := scraper.FetchCalendar(context.Background(), fixedNow(), fixedNow().AddDate(0, 1, 0))
	assert.True(t, shared.IsCategory(err, shared.ErrorCategoryUnavailable))
	assert.Equal(t, int64(1), metrics.Snapshot()["failed_requests"])
}

func TestHTMLScraper_RequiresURL(t *testing.T) {
	scraper := NewHTMLIPOCalendarScraper("", testServiceConfig(), nil)

	_, err := scraper.FetchCalendar(context.Background(), fixedNow(), fixedNow())
	assert.True(t, shared.IsCategory(err, shared.ErrorCategoryConfiguration))
}

package services

import (
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
)

// Static quotes served when every upstream fails.

func (s *IndianMarketService) demoIndices() *models.MarketResult {
	updated := s.now().UTC().Format(time.RFC3339)
	return &models.MarketResult{
		Success: true,
		Source:  sourceDemoIndices,
		Data: []models.StockQuote{
			{Symbol: "NIFTY 50", Identifier: "NIFTY 50", LastPrice: 21456.65, Change: 125.30, PChange: 0.59,
				Open: 21350.00, DayHigh: 21480.50, DayLow: 21320.00, PreviousClose: 21331.35,
				TotalTradedVolume: 245678900, LastUpdateTime: updated},
			{Symbol: "SENSEX", Identifier: "SENSEX", LastPrice: 71234.50, Change: 234.80, PChange: 0.33,
				Open: 71050.00, DayHigh: 71280.00, DayLow: 71020.00, PreviousClose: 70999.70,
				TotalTradedVolume: 189456700, LastUpdateTime: updated},
			{Symbol: "NIFTY BANK", Identifier: "NIFTY BANK", LastPrice: 46789.25, Change: -89.50, PChange: -0.19,
				Open: 46900.00, DayHigh: 46950.00, DayLow: 46750.00, PreviousClose: 46878.75,
				TotalTradedVolume: 156789000, LastUpdateTime: updated},
		},
	}
}

func demoPopularStocks() *models.MarketResult {
	return &models.MarketResult{
		Success: true,
		Source:  sourceDemoPopular,
		Data: []models.StockQuote{
			{Symbol: "RELIANCE", Identifier: "Reliance Industries Ltd", LastPrice: 2456.75, Change: 25.30, PChange: 1.04,
				Open: 2435.00, DayHigh: 2465.00, DayLow: 2430.00, PreviousClose: 2431.45,
				TotalTradedVolume: 8765432, YearHigh: 2750.00, YearLow: 2100.00},
			{Symbol: "TCS", Identifier: "Tata Consultancy Services Ltd", LastPrice: 3678.50, Change: 45.20, PChange: 1.24,
				Open: 3640.00, DayHigh: 3690.00, DayLow: 3635.00, PreviousClose: 3633.30,
				TotalTradedVolume: 2345678, YearHigh: 4050.00, YearLow: 3200.00},
			{Symbol: "HDFCBANK", Identifier: "HDFC Bank Ltd", LastPrice: 1567.80, Change: -12.50, PChange: -0.79,
				Open: 1580.00, DayHigh: 1585.00, DayLow: 1565.00, PreviousClose: 1580.30,
				TotalTradedVolume: 5678901, YearHigh: 1750.00, YearLow: 1400.00},
			{Symbol: "INFY", Identifier: "Infosys Ltd", LastPrice: 1456.25, Change: 18.75, PChange: 1.30,
				Open: 1440.00, DayHigh: 1460.00, DayLow: 1438.00, PreviousClose: 1437.50,
				TotalTradedVolume: 4567890, YearHigh: 1650.00, YearLow: 1250.00},
			{Symbol: "HINDUNILVR", Identifier: "Hindustan Unilever Ltd", LastPrice: 2345.60, Change: 8.90, PChange: 0.38,
				Open: 2338.00, DayHigh: 2350.00, DayLow: 2335.00, PreviousClose: 2336.70,
				TotalTradedVolume: 1234567, YearHigh: 2650.00, YearLow: 2100.00},
			{Symbol: "ICICIBANK", Identifier: "ICICI Bank Ltd", LastPrice: 987.45, Change: 5.60, PChange: 0.57,
				Open: 982.00, DayHigh: 990.00, DayLow: 980.00, PreviousClose: 981.85,
				TotalTradedVolume: 6789012, YearHigh: 1100.00, YearLow: 850.00},
			{Symbol: "SBIN", Identifier: "State Bank of India", LastPrice: 567.80, Change: -3.20, PChange: -0.56,
				Open: 571.00, DayHigh: 572.00, DayLow: 566.00, PreviousClose: 571.00,
				TotalTradedVolume: 9876543, YearHigh: 650.00, YearLow: 480.00},
			{Symbol: "BHARTIARTL", Identifier: "Bharti Airtel Ltd", LastPrice: 876.90, Change: 12.40, PChange: 1.43,
				Open: 865.00, DayHigh: 880.00, DayLow: 863.00, PreviousClose: 864.50,
				TotalTradedVolume: 3456789, YearHigh: 950.00, YearLow: 700.00},
			{Symbol: "ITC", Identifier: "ITC Ltd", LastPrice: 432.15, Change: 2.85, PChange: 0.66,
				Open: 430.00, DayHigh: 434.00, DayLow: 429.00, PreviousClose: 429.30,
				TotalTradedVolume: 7890123, YearHigh: 480.00, YearLow: 380.00},
			{Symbol: "KOTAKBANK", Identifier: "Kotak Mahindra Bank Ltd", LastPrice: 1789.50, Change: -8.30, PChange: -0.46,
				Open: 1798.00, DayHigh: 1800.00, DayLow: 1785.00, PreviousClose: 1797.80,
				TotalTradedVolume: 2345678, YearHigh: 2000.00, YearLow: 1600.00},
		},
	}
}

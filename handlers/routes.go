package handlers

import (
	"github.com/fenilmodi00/ipo-subscription-backend/middleware"
	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/gofiber/fiber/v2"
)

// Routes wires the API handlers under one router. Nil handlers leave their
// route group unregistered.
type Routes struct {
	Tokens *middleware.TokenManager

	Health       *HealthHandler
	IPOs         *IPOHandler
	Applications *ApplicationHandler
	Transactions *TransactionHandler
	Market       *MarketHandler
	IndianMarket *IndianMarketHandler
	Admin        *AdminHandler
}

// Register mounts every route on api, normally the /api group.
func (r *Routes) Register(api fiber.Router) {
	protect := middleware.Protect(r.Tokens)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	if r.Health != nil {
		api.Get("/health", r.Health.Health)
	}

	if h := r.IPOs; h != nil {
		ipos := api.Group("/ipos")
		ipos.Get("/", h.GetIPOs)
		ipos.Get("/active", h.GetActiveIPOs)
		ipos.Get("/upcoming", h.GetUpcomingIPOs)
		ipos.Get("/:id", h.GetIPOByID)
		ipos.Post("/", protect, adminOnly, h.CreateIPO)
		ipos.Put("/:id", protect, adminOnly, h.UpdateIPO)
		ipos.Delete("/:id", protect, adminOnly, h.DeleteIPO)
	}

	if h := r.Applications; h != nil {
		apps := api.Group("/applications", protect)
		apps.Post("/", h.SubmitApplication)
		apps.Get("/my-applications", h.GetMyApplications)
		apps.Get("/", adminOnly, h.GetAllApplications)
		apps.Get("/:id/history", h.GetApplicationHistory)
		apps.Get("/:id", h.GetApplicationByID)
		apps.Put("/:id/status", adminOnly, h.UpdateApplicationStatus)
	}

	if h := r.Transactions; h != nil {
		txns := api.Group("/transactions", protect)
		txns.Get("/my-transactions", h.GetMyTransactions)
		txns.Get("/", adminOnly, h.GetAllTransactions)
		txns.Get("/:id", h.GetTransactionByID)
	}

	if h := r.Market; h != nil {
		market := api.Group("/market-data", protect)
		market.Get("/quote/:symbol", h.GetStockQuote)
		market.Get("/profile/:symbol", h.GetCompanyProfile)
		market.Get("/market-status", h.GetMarketStatus)
		market.Get("/ipo-calendar", h.GetIPOCalendar)
		market.Get("/aggregated/:symbol", h.GetAggregatedMarketData)
	}

	if h := r.IndianMarket; h != nil {
		indian := api.Group("/indian-market")
		indian.Get("/all-stocks", h.GetAllStocks)
		indian.Get("/indices", h.GetIndices)
		indian.Get("/popular", h.GetPopularStocks)
		indian.Get("/search", h.SearchStocks)
		indian.Get("/price/:symbol", h.GetStockPrice)
		indian.Get("/prices", h.GetStockPrices)
	}

	if h := r.Admin; h != nil {
		admin := api.Group("/admin", protect, adminOnly)
		admin.Post("/sync-ipos", h.SyncIPOs)
		admin.Get("/metrics", h.GetMetrics)
	}
}

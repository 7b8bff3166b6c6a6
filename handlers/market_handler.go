package handlers

import (
	"github.com/fenilmodi00/ipo-subscription-backend/services"
	"github.com/gofiber/fiber/v2"
)

// MarketHandler proxies the global market-data providers.
type MarketHandler struct {
	Service *services.MarketDataService
}

func NewMarketHandler(service *services.MarketDataService) *MarketHandler {
	return &MarketHandler{Service: service}
}

func (h *MarketHandler) GetStockQuote(c *fiber.Ctx) error {
	payload, err := h.Service.GetStockQuote(c.UserContext(), c.Params("symbol"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, payload)
}

func (h *MarketHandler) GetCompanyProfile(c *fiber.Ctx) error {
	payload, err := h.Service.GetCompanyProfile(c.UserContext(), c.Params("symbol"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, payload)
}

func (h *MarketHandler) GetMarketStatus(c *fiber.Ctx) error {
	payload, err := h.Service.GetMarketStatus(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, payload)
}

// GetIPOCalendar takes optional from/to query dates in YYYY-MM-DD form.
func (h *MarketHandler) GetIPOCalendar(c *fiber.Ctx) error {
	payload, err := h.Service.GetIPOCalendar(c.UserContext(), c.Query("from"), c.Query("to"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, payload)
}

// GetAggregatedMarketData never fails; members whose provider failed are null.
func (h *MarketHandler) GetAggregatedMarketData(c *fiber.Ctx) error {
	return respond(c, fiber.StatusOK, h.Service.GetAggregatedMarketData(c.UserContext(), c.Params("symbol")))
}

// IndianMarketHandler serves NSE / RapidAPI data with demo fallbacks.
type IndianMarketHandler struct {
	Service *services.IndianMarketService
}

func NewIndianMarketHandler(service *services.IndianMarketService) *IndianMarketHandler {
	return &IndianMarketHandler{Service: service}
}

func (h *IndianMarketHandler) GetAllStocks(c *fiber.Ctx) error {
	return c.JSON(h.Service.GetAllStocks(c.UserContext()))
}

func (h *IndianMarketHandler) GetIndices(c *fiber.Ctx) error {
	return c.JSON(h.Service.GetIndices(c.UserContext()))
}

func (h *IndianMarketHandler) GetPopularStocks(c *fiber.Ctx) error {
	return c.JSON(h.Service.GetPopularStocks(c.UserContext()))
}

func (h *IndianMarketHandler) SearchStocks(c *fiber.Ctx) error {
	result, err := h.Service.SearchStocks(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func (h *IndianMarketHandler) GetStockPrice(c *fiber.Ctx) error {
	result, err := h.Service.GetStockPrice(c.UserContext(), c.Params("symbol"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetStockPrices takes a comma separated symbols query parameter.
func (h *IndianMarketHandler) GetStockPrices(c *fiber.Ctx) error {
	result, err := h.Service.GetStockPrices(c.UserContext(), services.ParseSymbolList(c.Query("symbols")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

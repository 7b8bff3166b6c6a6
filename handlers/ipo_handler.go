package handlers

import (
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/middleware"
	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/services"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type IPOHandler struct {
	Service *services.IPOService
}

func NewIPOHandler(service *services.IPOService) *IPOHandler {
	return &IPOHandler{Service: service}
}

type priceRangeRequest struct {
	Min *decimal.Decimal `json:"min" validate:"required,min=0"`
	Max *decimal.Decimal `json:"max" validate:"required,min=0"`
}

func (r *priceRangeRequest) toModel() models.PriceRange {
	return models.PriceRange{Min: *r.Min, Max: *r.Max}
}

type createIPORequest struct {
	CompanyName   string             `json:"companyName" validate:"required,max=255"`
	Symbol        string             `json:"symbol" validate:"required,max=20"`
	PriceRange    *priceRangeRequest `json:"priceRange" validate:"required"`
	LotSize       int                `json:"lotSize" validate:"required,gt=0"`
	TotalShares   int64              `json:"totalShares" validate:"required,gt=0"`
	MinInvestment *decimal.Decimal   `json:"minInvestment" validate:"required,gt=0"`
	OpenDate      string             `json:"openDate" validate:"required,isodate"`
	CloseDate     string             `json:"closeDate" validate:"required,isodate"`
	ListingDate   *string            `json:"listingDate" validate:"omitempty,isodate"`
	Status        models.IPOStatus   `json:"status" validate:"omitempty,oneof=upcoming active closed listed"`
	Description   *string            `json:"description" validate:"omitempty,max=2000"`
	Sector        *string            `json:"sector" validate:"omitempty,max=100"`
}

// toModel converts a validated request. Dates were checked by the isodate tag.
func (r *createIPORequest) toModel() *models.IPO {
	open, _ := parseRequestDate(r.OpenDate)
	closeDate, _ := parseRequestDate(r.CloseDate)
	ipo := &models.IPO{
		CompanyName:   r.CompanyName,
		Symbol:        r.Symbol,
		PriceRange:    r.PriceRange.toModel(),
		LotSize:       r.LotSize,
		TotalShares:   r.TotalShares,
		MinInvestment: *r.MinInvestment,
		OpenDate:      open,
		CloseDate:     closeDate,
		Status:        r.Status,
		Description:   r.Description,
		Sector:        r.Sector,
	}
	if r.ListingDate != nil {
		listing, _ := parseRequestDate(*r.ListingDate)
		ipo.ListingDate = &listing
	}
	return ipo
}

type updateIPORequest struct {
	CompanyName   *string            `json:"companyName" validate:"omitempty,min=1,max=255"`
	Symbol        *string            `json:"symbol" validate:"omitempty,min=1,max=20"`
	PriceRange    *priceRangeRequest `json:"priceRange" validate:"omitempty"`
	LotSize       *int               `json:"lotSize" validate:"omitempty,gt=0"`
	TotalShares   *int64             `json:"totalShares" validate:"omitempty,gt=0"`
	MinInvestment *decimal.Decimal   `json:"minInvestment" validate:"omitempty,gt=0"`
	OpenDate      *string            `json:"openDate" validate:"omitempty,isodate"`
	CloseDate     *string            `json:"closeDate" validate:"omitempty,isodate"`
	ListingDate   *string            `json:"listingDate" validate:"omitempty,isodate"`
	Status        *models.IPOStatus  `json:"status" validate:"omitempty,oneof=upcoming active closed listed"`
	Description   *string            `json:"description" validate:"omitempty,max=2000"`
	Sector        *string            `json:"sector" validate:"omitempty,max=100"`
}

func optionalDate(value *string) *time.Time {
	if value == nil {
		return nil
	}
	t, err := parseRequestDate(*value)
	if err != nil {
		return nil
	}
	return &t
}

func (r *updateIPORequest) toPatch() models.IPOPatch {
	patch := models.IPOPatch{
		CompanyName:   r.CompanyName,
		Symbol:        r.Symbol,
		LotSize:       r.LotSize,
		TotalShares:   r.TotalShares,
		MinInvestment: r.MinInvestment,
		OpenDate:      optionalDate(r.OpenDate),
		CloseDate:     optionalDate(r.CloseDate),
		ListingDate:   optionalDate(r.ListingDate),
		Status:        r.Status,
		Description:   r.Description,
		Sector:        r.Sector,
	}
	if r.PriceRange != nil {
		pr := r.PriceRange.toModel()
		patch.PriceRange = &pr
	}
	return patch
}

func actorOf(c *fiber.Ctx) string {
	if principal, ok := middleware.CurrentPrincipal(c); ok {
		return principal.UserID
	}
	return ""
}

func (h *IPOHandler) GetIPOs(c *fiber.Ctx) error {
	filter := models.IPOFilter{
		Status:      models.IPOStatus(c.Query("status")),
		Search:      c.Query("search"),
		PageRequest: pageRequest(c),
	}
	ipos, pagination, err := h.Service.ListIPOs(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return respondPage(c, ipos, pagination)
}

func (h *IPOHandler) GetActiveIPOs(c *fiber.Ctx) error {
	ipos, err := h.Service.GetActiveIPOs(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, ipos)
}

func (h *IPOHandler) GetUpcomingIPOs(c *fiber.Ctx) error {
	ipos, err := h.Service.GetUpcomingIPOs(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, ipos)
}

func (h *IPOHandler) GetIPOByID(c *fiber.Ctx) error {
	ipo, err := h.Service.GetIPOByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, ipo)
}

func (h *IPOHandler) CreateIPO(c *fiber.Ctx) error {
	var req createIPORequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	ipo := req.toModel()
	if err := h.Service.CreateIPO(c.UserContext(), ipo, actorOf(c)); err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusCreated, ipo)
}

func (h *IPOHandler) UpdateIPO(c *fiber.Ctx) error {
	var req updateIPORequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	ipo, err := h.Service.UpdateIPO(c.UserContext(), c.Params("id"), req.toPatch(), actorOf(c))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, ipo)
}

func (h *IPOHandler) DeleteIPO(c *fiber.Ctx) error {
	if err := h.Service.DeleteIPO(c.UserContext(), c.Params("id"), actorOf(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "IPO deleted successfully",
	})
}

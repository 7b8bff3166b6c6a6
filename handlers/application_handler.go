package handlers

import (
	"github.com/fenilmodi00/ipo-subscription-backend/middleware"
	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/services"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ApplicationHandler struct {
	Service *services.ApplicationService
}

func NewApplicationHandler(service *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{Service: service}
}

type submitApplicationRequest struct {
	IPOID    string           `json:"ipoId" validate:"required"`
	Quantity int              `json:"quantity" validate:"required,min=1"`
	BidPrice *decimal.Decimal `json:"bidPrice" validate:"required,min=0"`
}

type updateStatusRequest struct {
	Status           models.ApplicationStatus `json:"status" validate:"required,oneof=pending approved rejected allotted not_allotted"`
	AllottedQuantity int                      `json:"allottedQuantity" validate:"min=0"`
}

func applicationFilter(c *fiber.Ctx) models.ApplicationFilter {
	return models.ApplicationFilter{
		Status:      models.ApplicationStatus(c.Query("status")),
		PageRequest: pageRequest(c),
	}
}

// SubmitApplication places the caller's bid on an IPO.
func (h *ApplicationHandler) SubmitApplication(c *fiber.Ctx) error {
	var req submitApplicationRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	if !models.HasMoneyPrecision(*req.BidPrice) {
		return respondError(c, &RequestValidationError{Errors: []FieldError{
			{Field: "bidPrice", Message: "bidPrice must have at most 2 decimal places"},
		}})
	}

	app, err := h.Service.SubmitApplication(c.UserContext(), services.SubmitApplicationInput{
		UserID:   actorOf(c),
		IPOID:    req.IPOID,
		Quantity: req.Quantity,
		BidPrice: *req.BidPrice,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Application submitted successfully",
		"data":    app,
	})
}

func (h *ApplicationHandler) GetMyApplications(c *fiber.Ctx) error {
	apps, pagination, err := h.Service.GetMyApplications(c.UserContext(), actorOf(c), applicationFilter(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondPage(c, apps, pagination)
}

func (h *ApplicationHandler) GetAllApplications(c *fiber.Ctx) error {
	apps, pagination, err := h.Service.GetAllApplications(c.UserContext(), applicationFilter(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondPage(c, apps, pagination)
}

func (h *ApplicationHandler) GetApplicationByID(c *fiber.Ctx) error {
	principal, _ := middleware.CurrentPrincipal(c)
	app, err := h.Service.GetApplicationByID(c.UserContext(), c.Params("id"), principal)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, app)
}

// GetApplicationHistory returns the status changes recorded for an application.
func (h *ApplicationHandler) GetApplicationHistory(c *fiber.Ctx) error {
	principal, _ := middleware.CurrentPrincipal(c)
	history, err := h.Service.GetApplicationHistory(c.UserContext(), c.Params("id"), principal)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, history)
}

func (h *ApplicationHandler) UpdateApplicationStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	app, err := h.Service.UpdateApplicationStatus(c.UserContext(), c.Params("id"), services.StatusUpdateInput{
		Status:           req.Status,
		AllottedQuantity: req.AllottedQuantity,
		ChangedBy:        actorOf(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Application status updated successfully",
		"data":    app,
	})
}

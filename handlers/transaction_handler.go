package handlers

import (
	"github.com/fenilmodi00/ipo-subscription-backend/middleware"
	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/services"
	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	Service *services.LedgerService
}

func NewTransactionHandler(service *services.LedgerService) *TransactionHandler {
	return &TransactionHandler{Service: service}
}

func transactionFilter(c *fiber.Ctx) models.TransactionFilter {
	return models.TransactionFilter{
		Type:        models.TransactionType(c.Query("type")),
		Status:      models.TransactionStatus(c.Query("status")),
		PageRequest: pageRequest(c),
	}
}

func (h *TransactionHandler) GetMyTransactions(c *fiber.Ctx) error {
	txns, pagination, err := h.Service.GetMyTransactions(c.UserContext(), actorOf(c), transactionFilter(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondPage(c, txns, pagination)
}

func (h *TransactionHandler) GetAllTransactions(c *fiber.Ctx) error {
	txns, pagination, err := h.Service.GetAllTransactions(c.UserContext(), transactionFilter(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondPage(c, txns, pagination)
}

func (h *TransactionHandler) GetTransactionByID(c *fiber.Ctx) error {
	principal, _ := middleware.CurrentPrincipal(c)
	txn, err := h.Service.GetTransactionByID(c.UserContext(), c.Params("id"), principal)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, txn)
}

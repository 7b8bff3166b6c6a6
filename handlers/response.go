package handlers

import (
	"errors"
	"net/http"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func respondPage(c *fiber.Ctx, data any, pagination models.Pagination) error {
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       data,
		"pagination": pagination,
	})
}

// respondError writes the failure envelope for err. Internal failures are
// logged and reported without their cause.
func respondError(c *fiber.Ctx, err error) error {
	var validationErr *RequestValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"errors":  validationErr.Errors,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"success": false,
			"message": fiberErr.Message,
		})
	}

	status := shared.HTTPStatusForError(err)
	if status == http.StatusInternalServerError {
		var serviceErr *shared.ServiceError
		if errors.As(err, &serviceErr) {
			serviceErr.LogError()
		} else {
			logrus.WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
				"error":  err,
			}).Error("Unhandled request error")
		}
	}

	body := fiber.Map{
		"success": false,
		"message": shared.PublicMessage(err),
	}
	var serviceErr *shared.ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Category == shared.ErrorCategoryValidation && serviceErr.Details != nil {
		body["errors"] = serviceErr.Details
	}
	return c.Status(status).JSON(body)
}

// ErrorHandler is the Fiber error handler for the API. Middleware and
// handlers that return an error end up here.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return respondError(c, err)
}

// NotFound answers requests that matched no route.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"message": "Route " + c.OriginalURL() + " not found",
	})
}

func pageRequest(c *fiber.Ctx) models.PageRequest {
	return models.PageRequest{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", models.DefaultPageLimit),
	}.Normalized()
}

package handlers

import (
	"errors"

	"league-run-system/logger"
	"league-run-system/services"

	"github.com/gofiber/fiber/v2"
)

// fail maps a service error to its HTTP response. Persistence failures get
// an operator-facing log and a generic 500 — the caller must never see a
// success they didn't get.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrLimitExceeded):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrPersistence):
		logger.Error("persistence failure", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage unavailable, operation aborted"})
	default:
		logger.Error("unhandled error", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

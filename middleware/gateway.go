// middleware/gateway.go
package middleware

import (
	"os"
	"strings"

	"league-run-system/logger"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware validates the Bearer token from the chat gateway.
// Every request must come through the gateway; there is no direct user
// traffic.
func GatewayAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("LEAGUE_SERVICE_TOKEN")

	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			logger.Error("LEAGUE_SERVICE_TOKEN is not set — rejecting gateway traffic")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "service is not configured for gateway authentication",
			})
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			logger.Warn("missing Authorization header", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		// Parse "Bearer <token>"
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			// no "Bearer " prefix — try raw value (e.g., if the gateway sends a raw token)
			token = authHeader
		}

		if token != expectedToken {
			logger.Warn("invalid gateway token", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}

		return c.Next()
	}
}

// middleware/auth.go
package middleware

import (
	"strings"

	"league-run-system/logger"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts the acting player's identity and roles set
// by the gateway. The gateway is the AdminIdentity collaborator: the roles
// header is the capability token, and core logic never re-checks it.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		userName := c.Get("X-User-Name")
		rolesStr := c.Get("X-User-Roles")

		if userID == "" {
			logger.Warn("X-User-ID missing on secured route", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		if rolesStr != "" {
			for _, r := range strings.Split(rolesStr, ",") {
				r = strings.TrimSpace(r)
				if r != "" {
					roles = append(roles, r)
				}
			}
		}

		c.Locals("user_id", userID)
		c.Locals("user_name", userName)
		c.Locals("user_roles", roles)

		return c.Next()
	}
}

// RequireAdmin gates the admin override surface on the admin capability.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !hasAdminRole(c) {
			logger.Warn("admin route denied", "path", c.Path(), "user", c.Locals("user_id"))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin capability required",
			})
		}
		return c.Next()
	}
}

func hasAdminRole(c *fiber.Ctx) bool {
	roles, _ := c.Locals("user_roles").([]string)
	for _, r := range roles {
		if r == "admin" {
			return true
		}
	}
	return false
}

// UserID reads the acting player's id from the request context.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

// UserName reads the acting player's display name, falling back to the id.
func UserName(c *fiber.Ctx) string {
	name, _ := c.Locals("user_name").(string)
	if name == "" {
		return UserID(c)
	}
	return name
}

// IsAdmin reports whether the acting player carries the admin capability.
func IsAdmin(c *fiber.Ctx) bool {
	return hasAdminRole(c)
}

package handlers

import (
	"league-run-system/middleware"
	"league-run-system/services"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler exposes the override surface. Every route requires the
// admin capability from the gateway's role headers.
type AdminHandler struct {
	Admin     *services.AdminService
	Standings *services.StandingsService
}

// SetupAdminRoutes registers the admin override surface.
func SetupAdminRoutes(app *fiber.App, h *AdminHandler) {
	admin := app.Group("/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	admin.Post("/force-result", h.ForceResult)
	admin.Post("/cancel-run", h.CancelRun)
	admin.Post("/reactivate-run", h.ReactivateRun)
	admin.Get("/runs/:run_id", h.GetRunData)
	admin.Delete("/runs/:run_id", h.DeleteRun)
	admin.Get("/users/:player/history", h.UserRunHistory)
	admin.Get("/queue", h.Queue)
	admin.Post("/disputes/:session_id/resolve", h.ResolveDispute)
	admin.Post("/matches/:pairing_id/void", h.VoidMatch)
	admin.Post("/reactivations/:run_id/approve", h.ApproveReactivation)
	admin.Post("/reactivations/:run_id/deny", h.DenyReactivation)
	admin.Post("/reports/:report", h.PublishReport)
}

type forceResultRequest struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
}

// ForceResult manually logs a match result, bypassing confirmation.
func (h *AdminHandler) ForceResult(c *fiber.Ctx) error {
	var req forceResultRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Winner == "" || req.Loser == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "winner and loser are required"})
	}
	if err := h.Admin.ForceResult(req.Winner, req.Loser); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "✅ Force logged"})
}

type cancelRunRequest struct {
	Player       string `json:"player"`
	ClearHistory bool   `json:"clear_history"`
}

// CancelRun deletes a player's active run without archiving.
func (h *AdminHandler) CancelRun(c *fiber.Ctx) error {
	var req cancelRunRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Player == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "player is required"})
	}
	if err := h.Admin.CancelRun(req.Player, req.ClearHistory); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "🗑️ Run cancelled", "history_cleared": req.ClearHistory})
}

type reactivateRunRequest struct {
	RunID string `json:"run_id"`
}

// ReactivateRun restores an archived run directly.
func (h *AdminHandler) ReactivateRun(c *fiber.Ctx) error {
	var req reactivateRunRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.RunID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "run_id is required"})
	}
	run, err := h.Admin.ReactivateRun(req.RunID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "♻️ Run reactivated", "run": run})
}

// GetRunData fetches full data for one run, active or archived.
func (h *AdminHandler) GetRunData(c *fiber.Ctx) error {
	run, err := h.Admin.GetRunData(c.Params("run_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"run": run})
}

// DeleteRun removes a run from all records.
func (h *AdminHandler) DeleteRun(c *fiber.Ctx) error {
	if err := h.Admin.DeleteRun(c.Params("run_id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "🗑️ Run deleted"})
}

// UserRunHistory lists every run a player has owned.
func (h *AdminHandler) UserRunHistory(c *fiber.Ctx) error {
	refs, err := h.Admin.UserRunHistory(c.Params("player"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"runs": refs})
}

// Queue shows the current waiting list.
func (h *AdminHandler) Queue(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"queue": h.Admin.QueueSnapshot()})
}

type resolveDisputeRequest struct {
	Winner string `json:"winner"`
}

// ResolveDispute settles a disputed session by naming the actual winner.
func (h *AdminHandler) ResolveDispute(c *fiber.Ctx) error {
	var req resolveDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Winner == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "winner is required"})
	}
	if err := h.Admin.ResolveDispute(c.Params("session_id"), req.Winner); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "✅ Dispute resolved"})
}

// VoidMatch cancels an unreported pairing after a no-show report.
func (h *AdminHandler) VoidMatch(c *fiber.Ctx) error {
	if err := h.Admin.VoidMatch(c.Params("pairing_id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "✅ Match voided, players freed"})
}

// ApproveReactivation grants a player's reactivation request.
func (h *AdminHandler) ApproveReactivation(c *fiber.Ctx) error {
	run, err := h.Admin.ApproveReactivation(c.Params("run_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "✅ Reactivation approved", "run": run})
}

// DenyReactivation declines a player's reactivation request.
func (h *AdminHandler) DenyReactivation(c *fiber.Ctx) error {
	if err := h.Admin.DenyReactivation(c.Params("run_id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "❌ Reactivation denied"})
}

// PublishReport renders one of the league report tables on demand.
func (h *AdminHandler) PublishReport(c *fiber.Ctx) error {
	url, err := h.Standings.Publish(c.Params("report"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"artifact_url": url})
}

package handlers

import (
	"errors"
	"fmt"

	"league-run-system/middleware"
	"league-run-system/models"
	"league-run-system/services"

	"github.com/gofiber/fiber/v2"
)

// LeagueHandler is the player-facing command surface, called by the chat
// gateway on behalf of players.
type LeagueHandler struct {
	Lifecycle *services.RunLifecycle
	Exporter  *services.Exporter
}

// SetupLeagueRoutes registers the player command surface.
func SetupLeagueRoutes(app *fiber.App, h *LeagueHandler) {
	league := app.Group("/league", middleware.UserContextMiddleware())

	league.Post("/runs/start", h.StartRun)
	league.Post("/runs/register", h.RegisterDeck)
	league.Post("/runs/finish", h.FinishRun)
	league.Get("/status", h.Status)
	league.Post("/queue/enter", h.EnterQueue)
	league.Post("/queue/leave", h.LeaveQueue)
	league.Get("/queue", h.QueueStatus)
	league.Post("/matches/report", h.ReportMatch)
	league.Post("/export", h.Export)
	league.Post("/reactivation/request", h.RequestReactivation)
	league.Get("/help", h.Help)
}

// StartRun opens the deck-registration flow for a new run.
func (h *LeagueHandler) StartRun(c *fiber.Ctx) error {
	player := middleware.UserID(c)
	if err := h.Lifecycle.StartRegistration(player); err != nil {
		if errors.Is(err, services.ErrDuplicateActiveRun) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "you already have an active run",
				"hint":  "enter the queue when you are ready to play",
			})
		}
		if errors.Is(err, services.ErrDailyLimitReached) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "you've reached the daily run limit — runs reset at the daily anchor",
			})
		}
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "🚀 Send your SWUDB JSON export to register, or 'skip' for private stats.",
	})
}

type registerDeckRequest struct {
	Deck string `json:"deck"`
}

// RegisterDeck consumes the pending flow and creates the run.
func (h *LeagueHandler) RegisterDeck(c *fiber.Ctx) error {
	var req registerDeckRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	run, err := h.Lifecycle.CompleteRegistration(middleware.UserID(c), middleware.UserName(c), req.Deck)
	if err != nil {
		if errors.Is(err, services.ErrInvalidDeck) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "⚠️ that doesn't look like a valid SWUDB JSON export — paste the full JSON text, or send 'skip'",
			})
		}
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "✅ Run registered! Enter the queue whenever you're ready to play.",
		"run":     run,
	})
}

// Status reports the player's active run and progress.
func (h *LeagueHandler) Status(c *fiber.Ctx) error {
	run, err := h.Lifecycle.Status(middleware.UserID(c))
	if err != nil {
		if errors.Is(err, services.ErrNoActiveRun) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "you do not have an active run — start one first",
			})
		}
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"run":      run,
		"progress": fmt.Sprintf("%d / %d matches", len(run.Matches), models.MatchLimit),
	})
}

// EnterQueue joins the matchmaking pool.
func (h *LeagueHandler) EnterQueue(c *fiber.Ctx) error {
	if err := h.Lifecycle.EnterQueue(middleware.UserID(c)); err != nil {
		if errors.Is(err, services.ErrNoActiveRun) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "you don't have an active run yet — start one first",
			})
		}
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "📥 Entered queue"})
}

// LeaveQueue drops out of the matchmaking pool.
func (h *LeagueHandler) LeaveQueue(c *fiber.Ctx) error {
	if err := h.Lifecycle.LeaveQueue(middleware.UserID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "🛑 Left queue"})
}

// QueueStatus reports how many players are waiting.
func (h *LeagueHandler) QueueStatus(c *fiber.Ctx) error {
	entries := h.Lifecycle.QueueSnapshot()
	return c.JSON(fiber.Map{"waiting": len(entries)})
}

// FinishRun archives the player's run early.
func (h *LeagueHandler) FinishRun(c *fiber.Ctx) error {
	run, err := h.Lifecycle.FinishEarly(middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "🏁 Run archived",
		"score":   fmt.Sprintf("%dW - %dL", run.Wins(), run.Losses()),
		"run_id":  run.RunID,
	})
}

type reportMatchRequest struct {
	Opponent string `json:"opponent"`
}

// ReportMatch handles local (off-queue) match reporting: opens the flow on
// an empty body, completes it when an opponent id is supplied.
func (h *LeagueHandler) ReportMatch(c *fiber.Ctx) error {
	player := middleware.UserID(c)
	var req reportMatchRequest
	if err := c.BodyParser(&req); err != nil || req.Opponent == "" {
		if err := h.Lifecycle.StartManualReport(player); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "📍 Local match reporting — send your opponent's user id."})
	}

	if err := h.Lifecycle.CompleteManualReport(player, req.Opponent); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sent match confirmation to your opponent."})
}

// Export bundles the player's full league data and DMs the artifact link.
func (h *LeagueHandler) Export(c *fiber.Ctx) error {
	url, err := h.Exporter.Export(middleware.UserID(c), middleware.UserName(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"artifact_url": url})
}

type reactivationRequest struct {
	RunID string `json:"run_id"`
}

// RequestReactivation opens the flow on an empty body and forwards the
// request to admins once a run id arrives.
func (h *LeagueHandler) RequestReactivation(c *fiber.Ctx) error {
	player := middleware.UserID(c)
	var req reactivationRequest
	if err := c.BodyParser(&req); err != nil || req.RunID == "" {
		if err := h.Lifecycle.RequestReactivation(player); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "Send the run id you wish to reactivate."})
	}

	if err := h.Lifecycle.CompleteReactivationRequest(player, req.RunID); err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "❌ invalid run id — check your history with the export command",
			})
		}
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "✅ Request sent to admins for approval."})
}

// Help lists the command surface; the admin section only shows for admins.
func (h *LeagueHandler) Help(c *fiber.Ctx) error {
	resp := fiber.Map{
		"player_commands": []string{
			"start-run — begin a new league run",
			"status — view your current run progress",
			"enter-queue — join the matchmaking queue",
			"stop-queue — leave the matchmaking queue",
			"finish — archive your run early",
			"report-match <opponent> — report a locally played match",
			"export-data — download your full run history",
			"request-reactivation — ask to reopen a finished run",
		},
	}
	if middleware.IsAdmin(c) {
		resp["admin_commands"] = []string{
			"force-result <winner> <loser>",
			"cancel-run <player>",
			"reactivate-run <run_id>",
			"get-run-data <run_id>",
			"delete-run <run_id>",
			"user-run-history <player>",
		}
	}
	return c.JSON(resp)
}

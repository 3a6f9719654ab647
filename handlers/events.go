package handlers

import (
	"league-run-system/middleware"
	"league-run-system/services"

	"github.com/gofiber/fiber/v2"
)

// EventsHandler receives the inbound event stream from the chat gateway:
// button clicks on the messages this service sent out.
type EventsHandler struct {
	Lifecycle *services.RunLifecycle
	Sessions  *services.SessionManager
}

// SetupEventRoutes registers the inbound event surface.
func SetupEventRoutes(app *fiber.App, h *EventsHandler) {
	events := app.Group("/events", middleware.UserContextMiddleware())
	events.Post("/button", h.ButtonClicked)
}

type buttonEvent struct {
	SessionRef string `json:"session_ref"`
	Choice     string `json:"choice"`
}

// ButtonClicked dispatches a click by choice. Confirm/dispute act on
// outcome sessions; claim-win and no-show act on pairings.
func (h *EventsHandler) ButtonClicked(c *fiber.Ctx) error {
	var ev buttonEvent
	if err := c.BodyParser(&ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if ev.SessionRef == "" || ev.Choice == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session_ref and choice are required"})
	}

	actor := middleware.UserID(c)
	var err error
	switch ev.Choice {
	case services.ChoiceConfirm:
		err = h.Sessions.Confirm(ev.SessionRef, actor)
	case services.ChoiceDispute:
		err = h.Sessions.Dispute(ev.SessionRef, actor)
	case services.ChoiceClaimWin:
		err = h.Lifecycle.ClaimWin(ev.SessionRef, actor)
	case services.ChoiceNoShow:
		err = h.Lifecycle.ReportNoShow(ev.SessionRef, actor)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown choice"})
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "ok"})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/markhet/agri-crm/internal/service"
)

// AdminHandler exposes admin-only triage views.
type AdminHandler struct {
	tickets *service.TicketService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(ticketService *service.TicketService) *AdminHandler {
	return &AdminHandler{tickets: ticketService}
}

// AgentQueue GET /admin/agent-tickets/:id — the ranked open queue of one
// agent, as an admin would review it.
func (h *AdminHandler) AgentQueue(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), service.DefaultQueueLimit)

	result, err := h.tickets.AgentQueue(c.Context(), c.Params("id"), page, limit)
	if err != nil {
		return err
	}
	return listResponse(c, result)
}

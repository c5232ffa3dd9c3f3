package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/markhet/agri-crm/internal/api/dto"
	"github.com/markhet/agri-crm/internal/auth"
	"github.com/markhet/agri-crm/internal/service"
	"github.com/markhet/agri-crm/pkg/util"
)

// TicketsHandler manages the ticket triage endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Create POST /ticket.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return util.NewValidationError("invalid dueDate", nil)
	}

	ticket, err := h.service.Create(c.Context(), caller, service.TicketCreateInput{
		UserID:     req.UserID,
		Task:       req.Task,
		Name:       req.Name,
		Number:     req.Number,
		CropName:   req.CropName,
		DueDate:    dueDate,
		Priority:   req.Priority,
		Status:     req.Status,
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Ticket created successfully.",
		"data":    dto.NewTicketResponse(ticket),
	})
}

// OpenQueue GET /ticket/get-opened-tickets.
func (h *TicketsHandler) OpenQueue(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), service.DefaultQueueLimit)

	result, err := h.service.OpenQueue(c.Context(), caller, page, limit)
	if err != nil {
		return err
	}
	return listResponse(c, result)
}

// Get GET /ticket/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.Get(c.Context(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.NewTicketResponse(ticket)})
}

// CustomerHistory GET /ticket/user/:userId. Historical view, closed
// tickets included and ranked last.
func (h *TicketsHandler) CustomerHistory(c *fiber.Ctx) error {
	if _, ok := auth.CallerFromContext(c); !ok {
		return util.NewUnauthorized("authentication required")
	}
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), service.DefaultQueueLimit)

	result, err := h.service.CustomerHistory(c.Context(), c.Params("userId"), page, limit)
	if err != nil {
		return err
	}
	return listResponse(c, result)
}

// Update PUT /ticket.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.Update(c.Context(), caller, service.TicketUpdateInput{
		ID:         req.ID,
		Status:     req.Status,
		Priority:   req.Priority,
		Task:       req.Task,
		AssignedTo: req.AssignedTo,
		RemarkText: req.Remarks,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Ticket updated successfully.",
		"data":    dto.NewTicketResponse(ticket),
	})
}

// BulkUpdate PUT /ticket/multiple.
func (h *TicketsHandler) BulkUpdate(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	var req dto.MultiTicketUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	result, err := h.service.BulkUpdate(c.Context(), caller, service.BulkUpdateInput{
		TicketIDs:  req.TicketIDs,
		Status:     req.Status,
		Priority:   req.Priority,
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Tickets updated successfully.",
		"data":    result,
	})
}

// Delete DELETE /ticket. Deletion is scoped to the caller's assignments;
// unassigned ids are skipped, not erred.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	var req dto.DeleteTicketsRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	deleted, err := h.service.Delete(c.Context(), caller, req.DeleteIDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"message":      "Tickets deleted.",
		"deletedCount": deleted,
	})
}

// Webhook POST /ticket/webhook. Public: inbound telephony events open
// tickets on behalf of the system agent.
func (h *TicketsHandler) Webhook(c *fiber.Ctx) error {
	var req dto.WebhookTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return util.NewValidationError("invalid dueDate", nil)
	}

	ticket, duplicate, err := h.service.CreateFromWebhook(c.Context(), service.WebhookTicketInput{
		EventID:  req.EventID,
		Number:   req.Number,
		Name:     req.Name,
		Task:     req.Task,
		CropName: req.CropName,
		DueDate:  dueDate,
	})
	if err != nil {
		return err
	}
	if duplicate {
		return c.JSON(fiber.Map{"success": true, "message": "Duplicate event ignored."})
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Ticket created successfully.",
		"data":    dto.NewTicketResponse(ticket),
	})
}

func listResponse(c *fiber.Ctx, page *service.TicketPage) error {
	items, pagination := dto.NewTicketListResponse(page)
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       items,
		"pagination": pagination,
	})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseDate(val *string) (*time.Time, error) {
	if val == nil || *val == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *val); err == nil {
			return &t, nil
		}
	}
	return nil, util.NewValidationError("invalid date format", nil)
}

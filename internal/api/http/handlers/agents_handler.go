package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/markhet/agri-crm/internal/api/dto"
	"github.com/markhet/agri-crm/internal/domain"
	"github.com/markhet/agri-crm/internal/service"
	"github.com/markhet/agri-crm/pkg/util"
)

// AgentsHandler manages agent account endpoints.
type AgentsHandler struct {
	service *service.AgentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agentService *service.AgentService) *AgentsHandler {
	return &AgentsHandler{service: agentService}
}

// Create POST /agent. Admin only.
func (h *AgentsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	agent, err := h.service.CreateAgent(c.Context(), req.Name, req.Password, req.PhoneNumber, domain.AgentRole(req.Role))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Agent created successfully",
		"agent":   dto.NewAgentResponse(agent),
	})
}

// Login POST /agent/login.
func (h *AgentsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	agent, token, expiresAt, err := h.service.Login(c.Context(), req.PhoneNumber, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful.",
		"data": dto.LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
			Agent:     dto.NewAgentResponse(agent),
		},
	})
}

// ResetPassword POST /agent/reset-password.
func (h *AgentsHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if err := h.service.ResetPassword(c.Context(), req.UserID, req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Password reset successfully."})
}

// Get GET /agent/:id.
func (h *AgentsHandler) Get(c *fiber.Ctx) error {
	agent, err := h.service.GetAgent(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "agent": dto.NewAgentResponse(agent)})
}

// VerifyToken GET /agent/verify/:token. Returns the identity a token
// resolves to; consumed by sibling services that trust this backend.
func (h *AgentsHandler) VerifyToken(c *fiber.Ctx) error {
	caller, err := h.service.VerifyToken(c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": caller.ID, "role": caller.Role})
}

// List GET /admin/agents. Admin only.
func (h *AgentsHandler) List(c *fiber.Ctx) error {
	agents, err := h.service.ListAgents(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, dto.NewAgentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

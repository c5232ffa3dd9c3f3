package dto

import (
	"time"

	"github.com/markhet/agri-crm/internal/domain"
)

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Name        string `json:"name"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
	Role        string `json:"role"`
}

// LoginRequest payload.
type LoginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

// ResetPasswordRequest payload.
type ResetPasswordRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

// AgentResponse is the wire form of an agent, without the password hash.
type AgentResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Role        domain.AgentRole `json:"role"`
	PhoneNumber string           `json:"phoneNumber"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// LoginResponse carries the issued token alongside the agent.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Agent     AgentResponse `json:"agent"`
}

// NewAgentResponse converts a domain agent to wire form.
func NewAgentResponse(agent *domain.Agent) AgentResponse {
	return AgentResponse{
		ID:          agent.ID,
		Name:        agent.Name,
		Role:        agent.Role,
		PhoneNumber: agent.PhoneNumber,
		CreatedAt:   agent.CreatedAt,
	}
}

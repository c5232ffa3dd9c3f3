package domain

import "time"

// AgentRole gates ticket visibility: admins see every open ticket, agents
// only see tickets they are assigned to.
type AgentRole string

const (
	AgentRoleAgent AgentRole = "agent"
	AgentRoleAdmin AgentRole = "admin"
)

// Agent models a support operator. Phone number is the login identifier and
// is unique across agents.
type Agent struct {
	ID           string
	Name         string
	PasswordHash string
	Role         AgentRole
	PhoneNumber  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Caller is the resolved identity attached to every engine call. It is
// passed explicitly; services never read ambient request state.
type Caller struct {
	ID   string
	Role AgentRole
}

// IsAdmin reports whether the caller has unscoped visibility.
func (c Caller) IsAdmin() bool {
	return c.Role == AgentRoleAdmin
}

package events

import (
	"time"

	"github.com/markhet/agri-crm/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketRemarkAdded   EventType = "ticket_remark_added"
	EventTicketsDeleted      EventType = "tickets_deleted"
)

// Event represents a domain event emitted by services. ActorID is empty for
// webhook-originated events where no agent context exists.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Task       string                `json:"task"`
	Priority   domain.TicketPriority `json:"priority"`
	AssignedTo []string              `json:"assigned_to,omitempty"`
	Number     string                `json:"number,omitempty"`
	Webhook    bool                  `json:"webhook,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedTo []string `json:"assigned_to"`
}

// TicketRemarkAddedPayload payload.
type TicketRemarkAddedPayload struct {
	Preview string `json:"preview"`
}

// TicketsDeletedPayload payload.
type TicketsDeletedPayload struct {
	Requested int   `json:"requested"`
	Deleted   int64 `json:"deleted"`
}

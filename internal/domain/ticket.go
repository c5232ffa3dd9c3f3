package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates workflow states for tickets.
type TicketStatus string

const (
	TicketStatusOpened     TicketStatus = "Opened"
	TicketStatusWaitingFor TicketStatus = "Waiting For"
	TicketStatusClosed     TicketStatus = "Closed"
)

// TicketPriority enumerates triage urgency labels.
type TicketPriority string

const (
	TicketPriorityASAP   TicketPriority = "asap"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityLow    TicketPriority = "low"
)

// CropNameUnspecified is the default crop category ("not a product").
const CropNameUnspecified = "NAP"

// Remark is an append-only note on a ticket. Entries are never edited or
// removed once written.
type Remark struct {
	Text      string    `json:"text"`
	AuthorBy  string    `json:"authorBy"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusLogEntry records a status value and when the ticket entered it.
type StatusLogEntry struct {
	Status    TicketStatus `json:"status"`
	ChangedAt time.Time    `json:"changedAt"`
}

// Ticket is the aggregate for farmer support and follow-up work.
type Ticket struct {
	ID         string
	UserID     *string
	CreatedBy  string
	Name       string
	Number     string
	Task       string
	CropName   string
	Remarks    []Remark
	StatusLogs []StatusLogEntry
	DueDate    *time.Time
	Priority   TicketPriority
	Status     TicketStatus
	AssignedTo []string
	CreatedAt  time.Time
}

// IsAssignedTo reports whether the agent id appears in AssignedTo.
func (t *Ticket) IsAssignedTo(agentID string) bool {
	for _, id := range t.AssignedTo {
		if id == agentID {
			return true
		}
	}
	return false
}

// NormalizePriority folds historical casings ("ASAP", "Asap") onto the
// canonical lowercase values. Unknown input is returned lowercased so
// ranking treats it as unranked rather than failing.
func NormalizePriority(raw string) TicketPriority {
	return TicketPriority(strings.ToLower(strings.TrimSpace(raw)))
}

// NormalizeStatus maps status strings, including values from older schema
// versions, onto the canonical set. "Pending" predates "Opened" in stored
// data and means the same thing.
func NormalizeStatus(raw string) TicketStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "opened", "open", "pending":
		return TicketStatusOpened
	case "waiting for", "waiting-for", "waitingfor":
		return TicketStatusWaitingFor
	case "closed":
		return TicketStatusClosed
	default:
		return TicketStatus(strings.TrimSpace(raw))
	}
}

package dto

import (
	"time"

	"github.com/markhet/agri-crm/internal/domain"
	"github.com/markhet/agri-crm/internal/service"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	UserID     *string  `json:"userId"`
	Task       string   `json:"task"`
	Name       string   `json:"name"`
	Number     string   `json:"number"`
	CropName   string   `json:"cropName"`
	DueDate    *string  `json:"dueDate"`
	Priority   string   `json:"priority"`
	Status     string   `json:"status"`
	AssignedTo []string `json:"assignedTo"`
}

// UpdateTicketRequest payload. Absent fields leave the ticket untouched;
// remarks appends a remark entry.
type UpdateTicketRequest struct {
	ID         string   `json:"id"`
	Status     *string  `json:"status"`
	Priority   *string  `json:"priority"`
	Task       *string  `json:"task"`
	AssignedTo []string `json:"assignedTo"`
	Remarks    *string  `json:"remarks"`
}

// MultiTicketUpdateRequest payload.
type MultiTicketUpdateRequest struct {
	TicketIDs  []string `json:"ticketIds"`
	Status     *string  `json:"status"`
	Priority   *string  `json:"priority"`
	AssignedTo []string `json:"assignedTo"`
}

// DeleteTicketsRequest payload.
type DeleteTicketsRequest struct {
	DeleteIDs []string `json:"deleteIds"`
}

// WebhookTicketRequest is the unauthenticated inbound-event payload.
type WebhookTicketRequest struct {
	EventID  string  `json:"eventId"`
	Number   string  `json:"number"`
	Name     string  `json:"name"`
	Task     string  `json:"task"`
	CropName string  `json:"cropName"`
	DueDate  *string `json:"dueDate"`
}

// RemarkResponse is one entry of a ticket's remark log.
type RemarkResponse struct {
	Text      string    `json:"text"`
	AuthorBy  string    `json:"authorBy"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusLogResponse is one entry of a ticket's status log.
type StatusLogResponse struct {
	Status    domain.TicketStatus `json:"status"`
	ChangedAt time.Time           `json:"changedAt"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID         string                `json:"id"`
	UserID     *string               `json:"userId,omitempty"`
	CreatedBy  string                `json:"createdBy"`
	Name       string                `json:"name,omitempty"`
	Number     string                `json:"number,omitempty"`
	Task       string                `json:"task"`
	CropName   string                `json:"cropName"`
	Remarks    []RemarkResponse      `json:"remarks"`
	StatusLogs []StatusLogResponse   `json:"statusLogs"`
	DueDate    *time.Time            `json:"dueDate,omitempty"`
	Priority   domain.TicketPriority `json:"priority"`
	Status     domain.TicketStatus   `json:"status"`
	AssignedTo []string              `json:"assignedTo"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// PaginationResponse is the listing envelope metadata.
type PaginationResponse struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
	Limit       int `json:"limit"`
}

// NewTicketResponse converts a domain ticket to wire form.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	remarks := make([]RemarkResponse, 0, len(ticket.Remarks))
	for _, r := range ticket.Remarks {
		remarks = append(remarks, RemarkResponse(r))
	}
	statusLogs := make([]StatusLogResponse, 0, len(ticket.StatusLogs))
	for _, e := range ticket.StatusLogs {
		statusLogs = append(statusLogs, StatusLogResponse(e))
	}
	return TicketResponse{
		ID:         ticket.ID,
		UserID:     ticket.UserID,
		CreatedBy:  ticket.CreatedBy,
		Name:       ticket.Name,
		Number:     ticket.Number,
		Task:       ticket.Task,
		CropName:   ticket.CropName,
		Remarks:    remarks,
		StatusLogs: statusLogs,
		DueDate:    ticket.DueDate,
		Priority:   ticket.Priority,
		Status:     ticket.Status,
		AssignedTo: ticket.AssignedTo,
		CreatedAt:  ticket.CreatedAt,
	}
}

// NewTicketListResponse converts a ranked page to wire form.
func NewTicketListResponse(page *service.TicketPage) ([]TicketResponse, PaginationResponse) {
	items := make([]TicketResponse, 0, len(page.Data))
	for i := range page.Data {
		items = append(items, NewTicketResponse(&page.Data[i]))
	}
	return items, PaginationResponse(page.Pagination)
}

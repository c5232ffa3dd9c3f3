package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markhet/agri-crm/internal/domain"
	"github.com/markhet/agri-crm/internal/events"
	"github.com/markhet/agri-crm/internal/repository"
	"github.com/markhet/agri-crm/internal/triage"
	"github.com/markhet/agri-crm/pkg/util"
)

// Deduper suppresses repeated webhook deliveries. The Redis client
// satisfies this; a nil deduper disables suppression.
type Deduper interface {
	ClaimOnce(ctx context.Context, key string, ttl time.Duration) bool
}

// TicketService is the triage engine: it computes ranked ticket views per
// caller scope and applies assignment-gated mutations. Callers are passed
// explicitly into every method; there is no ambient identity.
type TicketService struct {
	tickets       repository.TicketRepository
	customers     repository.CustomerRepository
	dispatcher    events.Dispatcher
	dedupe        Deduper
	dedupeTTL     time.Duration
	systemAgentID string
	now           func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	CustomerRepo  repository.CustomerRepository
	Dispatcher    events.Dispatcher
	Dedupe        Deduper
	DedupeTTL     time.Duration
	SystemAgentID string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:       deps.TicketRepo,
		customers:     deps.CustomerRepo,
		dispatcher:    deps.Dispatcher,
		dedupe:        deps.Dedupe,
		dedupeTTL:     deps.DedupeTTL,
		systemAgentID: deps.SystemAgentID,
		now:           time.Now,
	}
}

// Pagination describes the page window of a ticket listing.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
	Limit       int `json:"limit"`
}

// TicketPage is one ranked page of tickets plus its pagination envelope.
type TicketPage struct {
	Data       []domain.Ticket
	Pagination Pagination
}

// DefaultQueueLimit is the page size for the agent/admin work queue. Other
// endpoints define their own defaults.
const DefaultQueueLimit = 10

var openStatuses = []domain.TicketStatus{domain.TicketStatusOpened, domain.TicketStatusWaitingFor}

// OpenQueue returns the ranked work queue for the caller: admins see every
// open ticket, agents only tickets they are assigned to. Closed tickets are
// excluded entirely.
func (s *TicketService) OpenQueue(ctx context.Context, caller domain.Caller, page, limit int) (*TicketPage, error) {
	filter := repository.TicketFilter{Statuses: openStatuses}
	if !caller.IsAdmin() {
		callerID := caller.ID
		filter.AssignedTo = &callerID
	}
	return s.rankedPage(ctx, filter, page, limit)
}

// AgentQueue returns the ranked open-ticket queue of a specific agent.
// Admin only; the handler enforces the role, this validates the target id
// before touching the store.
func (s *TicketService) AgentQueue(ctx context.Context, agentID string, page, limit int) (*TicketPage, error) {
	if _, err := uuid.Parse(agentID); err != nil {
		return nil, util.NewValidationError("Invalid agent ID", nil)
	}
	filter := repository.TicketFilter{
		AssignedTo: &agentID,
		Statuses:   openStatuses,
	}
	return s.rankedPage(ctx, filter, page, limit)
}

// CustomerHistory returns the ranked ticket history of one customer. This
// is a historical view, so closed tickets are included and demoted to the
// bottom of the ordering.
func (s *TicketService) CustomerHistory(ctx context.Context, userID string, page, limit int) (*TicketPage, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, util.NewValidationError("Invalid user ID", nil)
	}
	filter := repository.TicketFilter{
		UserID:   &userID,
		Statuses: []domain.TicketStatus{domain.TicketStatusOpened, domain.TicketStatusWaitingFor, domain.TicketStatusClosed},
	}
	return s.rankedPage(ctx, filter, page, limit)
}

func (s *TicketService) rankedPage(ctx context.Context, filter repository.TicketFilter, page, limit int) (*TicketPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultQueueLimit
	}

	total, err := s.tickets.Count(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	tickets, err := s.tickets.Find(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}

	triage.Sort(tickets, s.now())

	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	end := start + limit
	if start > len(tickets) {
		start = len(tickets)
	}
	if end > len(tickets) {
		end = len(tickets)
	}

	return &TicketPage{
		Data: tickets[start:end],
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalItems:  total,
			Limit:       limit,
		},
	}, nil
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	UserID     *string
	Task       string
	Name       string
	Number     string
	CropName   string
	DueDate    *time.Time
	Priority   string
	Status     string
	AssignedTo []string
}

// Create opens a ticket on behalf of the calling agent.
func (s *TicketService) Create(ctx context.Context, caller domain.Caller, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Task) == "" || input.DueDate == nil {
		return nil, util.NewValidationError("task and dueDate are required to create a ticket.", nil)
	}

	ticket := s.buildTicket(caller.ID, input)
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  caller.ID,
		Payload: events.TicketCreatedPayload{
			Task:       ticket.Task,
			Priority:   ticket.Priority,
			AssignedTo: ticket.AssignedTo,
			Number:     ticket.Number,
		},
	})
	return ticket, nil
}

func (s *TicketService) buildTicket(createdBy string, input TicketCreateInput) *domain.Ticket {
	status := domain.NormalizeStatus(input.Status)
	priority := domain.TicketPriorityMedium
	if strings.TrimSpace(input.Priority) != "" {
		priority = domain.NormalizePriority(input.Priority)
	}
	cropName := strings.TrimSpace(input.CropName)
	if cropName == "" {
		cropName = domain.CropNameUnspecified
	}
	assigned := input.AssignedTo
	if assigned == nil {
		assigned = []string{}
	}
	return &domain.Ticket{
		UserID:     input.UserID,
		CreatedBy:  createdBy,
		Name:       strings.TrimSpace(input.Name),
		Number:     strings.TrimSpace(input.Number),
		Task:       strings.TrimSpace(input.Task),
		CropName:   cropName,
		Remarks:    []domain.Remark{},
		StatusLogs: []domain.StatusLogEntry{{Status: status, ChangedAt: s.now()}},
		DueDate:    input.DueDate,
		Priority:   priority,
		Status:     status,
		AssignedTo: assigned,
	}
}

// Get returns one ticket, enforcing assignment visibility for non-admins.
func (s *TicketService) Get(ctx context.Context, caller domain.Caller, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if err := authorize(caller, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// TicketUpdateInput is a partial update: nil fields are left untouched.
// RemarkText appends a remark entry, it never replaces the remark log.
type TicketUpdateInput struct {
	ID         string
	Status     *string
	Priority   *string
	Task       *string
	AssignedTo []string
	RemarkText *string
}

// Update applies a partial update to one ticket. The caller must be
// assigned to the ticket unless they are an admin; a failed check applies
// nothing.
func (s *TicketService) Update(ctx context.Context, caller domain.Caller, input TicketUpdateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.ID) == "" {
		return nil, util.NewValidationError("ticket id is required.", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, input.ID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if err := authorize(caller, ticket); err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	s.applyFields(ticket, input.Status, input.Priority, input.Task, input.AssignedTo)

	if err := s.tickets.Save(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}
	if ticket.Status != oldStatus {
		entry := domain.StatusLogEntry{Status: ticket.Status, ChangedAt: s.now()}
		if err := s.tickets.AppendStatusLog(ctx, ticket.ID, entry); err != nil {
			return nil, util.MapError(err)
		}
		ticket.StatusLogs = append(ticket.StatusLogs, entry)
		s.publish(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			ActorID:  caller.ID,
			Payload:  events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: ticket.Status},
		})
	}
	if input.AssignedTo != nil {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			ActorID:  caller.ID,
			Payload:  events.TicketAssignedPayload{AssignedTo: ticket.AssignedTo},
		})
	}
	if input.RemarkText != nil && strings.TrimSpace(*input.RemarkText) != "" {
		remark := domain.Remark{
			Text:      strings.TrimSpace(*input.RemarkText),
			AuthorBy:  caller.ID,
			Timestamp: s.now(),
		}
		if err := s.tickets.AppendRemark(ctx, ticket.ID, remark); err != nil {
			return nil, util.MapError(err)
		}
		ticket.Remarks = append(ticket.Remarks, remark)
		s.publish(ctx, events.Event{
			Type:     events.EventTicketRemarkAdded,
			TicketID: ticket.ID,
			ActorID:  caller.ID,
			Payload:  events.TicketRemarkAddedPayload{Preview: preview(remark.Text, 120)},
		})
	}
	return ticket, nil
}

// BulkUpdateInput applies the same field subset to a batch of tickets.
type BulkUpdateInput struct {
	TicketIDs  []string
	Status     *string
	Priority   *string
	AssignedTo []string
}

// BulkUpdateResult summarizes a batch update.
type BulkUpdateResult struct {
	Matched int `json:"matched"`
	Updated int `json:"updated"`
}

// BulkUpdate applies the same partial update to every referenced ticket.
// Authorization is all-or-nothing: if the caller is an agent and any one
// ticket in the batch is not assigned to them, the whole batch is rejected
// and nothing is written. Per-ticket writes after that point are
// independent; a crash mid-batch can leave a partially-updated batch.
func (s *TicketService) BulkUpdate(ctx context.Context, caller domain.Caller, input BulkUpdateInput) (*BulkUpdateResult, error) {
	if len(input.TicketIDs) == 0 {
		return nil, util.NewValidationError("ticketIds are required.", nil)
	}

	loaded := make([]*domain.Ticket, 0, len(input.TicketIDs))
	for _, id := range input.TicketIDs {
		ticket, err := s.tickets.GetByID(ctx, id)
		if err != nil {
			return nil, util.MapError(err)
		}
		loaded = append(loaded, ticket)
	}
	for _, ticket := range loaded {
		if err := authorize(caller, ticket); err != nil {
			return nil, err
		}
	}

	updated := 0
	for _, ticket := range loaded {
		oldStatus := ticket.Status
		s.applyFields(ticket, input.Status, input.Priority, nil, input.AssignedTo)
		if err := s.tickets.Save(ctx, ticket); err != nil {
			return nil, util.MapError(err)
		}
		if ticket.Status != oldStatus {
			entry := domain.StatusLogEntry{Status: ticket.Status, ChangedAt: s.now()}
			if err := s.tickets.AppendStatusLog(ctx, ticket.ID, entry); err != nil {
				return nil, util.MapError(err)
			}
		}
		updated++
	}
	return &BulkUpdateResult{Matched: len(loaded), Updated: updated}, nil
}

// Delete removes the requested tickets that are assigned to the caller.
// Tickets outside the caller's assignment are skipped silently; the result
// reports how many were actually deleted.
func (s *TicketService) Delete(ctx context.Context, caller domain.Caller, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, util.NewValidationError("deleteIds are required.", nil)
	}
	deleted, err := s.tickets.DeleteAssigned(ctx, ids, caller.ID)
	if err != nil {
		return 0, util.MapError(err)
	}
	s.publish(ctx, events.Event{
		Type:    events.EventTicketsDeleted,
		ActorID: caller.ID,
		Payload: events.TicketsDeletedPayload{Requested: len(ids), Deleted: deleted},
	})
	return deleted, nil
}

// WebhookTicketInput carries an inbound contact event from the telephony
// provider.
type WebhookTicketInput struct {
	EventID  string
	Number   string
	Name     string
	Task     string
	CropName string
	DueDate  *time.Time
}

// CreateFromWebhook opens a ticket for an external event with no agent
// context. The customer is looked up by normalized phone number to link the
// ticket; a missing customer record is degraded-but-non-fatal, the ticket
// is simply created without the linkage. Redelivered events (same event id)
// are suppressed.
func (s *TicketService) CreateFromWebhook(ctx context.Context, input WebhookTicketInput) (*domain.Ticket, bool, error) {
	if strings.TrimSpace(input.Number) == "" {
		return nil, false, util.NewValidationError("number is required.", nil)
	}
	if input.EventID != "" && s.dedupe != nil {
		if !s.dedupe.ClaimOnce(ctx, "webhook:ticket:"+input.EventID, s.dedupeTTL) {
			return nil, true, nil
		}
	}

	number := domain.NormalizeNumber(input.Number)
	task := strings.TrimSpace(input.Task)
	if task == "" {
		task = "Follow up inbound call from " + number
	}

	var userID *string
	name := strings.TrimSpace(input.Name)
	if customer, err := s.customers.GetByNumber(ctx, number); err == nil {
		userID = &customer.ID
		if name == "" {
			name = customer.Name
		}
	}

	dueDate := input.DueDate
	if dueDate == nil {
		due := s.now().Add(24 * time.Hour)
		dueDate = &due
	}

	ticket := s.buildTicket(s.systemAgentID, TicketCreateInput{
		UserID:   userID,
		Task:     task,
		Name:     name,
		Number:   number,
		CropName: input.CropName,
		DueDate:  dueDate,
	})
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, false, util.MapError(err)
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Task:     ticket.Task,
			Priority: ticket.Priority,
			Number:   ticket.Number,
			Webhook:  true,
		},
	})
	return ticket, false, nil
}

// authorize enforces the assignment invariant: only an assigned agent or
// an admin may act on a ticket. The error is distinct from not-found so a
// caller can tell "doesn't exist" from "not yours".
func authorize(caller domain.Caller, ticket *domain.Ticket) error {
	if caller.IsAdmin() {
		return nil
	}
	if !ticket.IsAssignedTo(caller.ID) {
		return util.NewAccessDenied("Access denied: ticket is not assigned to you.")
	}
	return nil
}

func (s *TicketService) applyFields(ticket *domain.Ticket, status, priority, task *string, assignedTo []string) {
	if status != nil {
		ticket.Status = domain.NormalizeStatus(*status)
	}
	if priority != nil {
		ticket.Priority = domain.NormalizePriority(*priority)
	}
	if task != nil {
		ticket.Task = strings.TrimSpace(*task)
	}
	if assignedTo != nil {
		ticket.AssignedTo = assignedTo
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	return body[:max-3] + "..."
}

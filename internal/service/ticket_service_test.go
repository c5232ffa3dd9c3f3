package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markhet/agri-crm/internal/domain"
	"github.com/markhet/agri-crm/internal/repository"
	"github.com/markhet/agri-crm/pkg/util"
)

// fakeTicketRepo is an in-memory TicketRepository with the same filter
// semantics as the Postgres implementation.
type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) Save(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	clone := *ticket
	clone.Remarks = stored.Remarks
	clone.StatusLogs = stored.StatusLogs
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *fakeTicketRepo) Find(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if matches(ticket, filter) {
			result = append(result, *ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *fakeTicketRepo) Count(ctx context.Context, filter repository.TicketFilter) (int, error) {
	found, err := r.Find(ctx, filter)
	return len(found), err
}

func (r *fakeTicketRepo) AppendRemark(_ context.Context, ticketID string, remark domain.Remark) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Remarks = append(stored.Remarks, remark)
	return nil
}

func (r *fakeTicketRepo) AppendStatusLog(_ context.Context, ticketID string, entry domain.StatusLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.StatusLogs = append(stored.StatusLogs, entry)
	return nil
}

func (r *fakeTicketRepo) DeleteAssigned(_ context.Context, ids []string, agentID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		if stored, ok := r.tickets[id]; ok && stored.IsAssignedTo(agentID) {
			delete(r.tickets, id)
			deleted++
		}
	}
	return deleted, nil
}

func matches(ticket *domain.Ticket, filter repository.TicketFilter) bool {
	if filter.AssignedTo != nil && !ticket.IsAssignedTo(*filter.AssignedTo) {
		return false
	}
	if filter.UserID != nil && (ticket.UserID == nil || *ticket.UserID != *filter.UserID) {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if ticket.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type fakeCustomerRepo struct {
	byNumber map[string]*domain.Customer
}

func (r *fakeCustomerRepo) Create(_ context.Context, customer *domain.Customer) error {
	customer.ID = uuid.NewString()
	r.byNumber[customer.Number] = customer
	return nil
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	for _, customer := range r.byNumber {
		if customer.ID == id {
			return customer, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCustomerRepo) GetByNumber(_ context.Context, number string) (*domain.Customer, error) {
	customer, ok := r.byNumber[number]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return customer, nil
}

func (r *fakeCustomerRepo) AppendNote(_ context.Context, customerID string, note domain.Note) error {
	customer, err := r.GetByID(context.Background(), customerID)
	if err != nil {
		return err
	}
	customer.Notes = append(customer.Notes, note)
	return nil
}

type fakeDeduper struct {
	seen map[string]bool
}

func (d *fakeDeduper) ClaimOnce(_ context.Context, key string, _ time.Duration) bool {
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

type fixture struct {
	service   *TicketService
	tickets   *fakeTicketRepo
	customers *fakeCustomerRepo
}

func newFixture() *fixture {
	tickets := newFakeTicketRepo()
	customers := &fakeCustomerRepo{byNumber: make(map[string]*domain.Customer)}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:    tickets,
		CustomerRepo:  customers,
		Dedupe:        &fakeDeduper{seen: make(map[string]bool)},
		DedupeTTL:     time.Hour,
		SystemAgentID: uuid.NewString(),
	})
	return &fixture{service: svc, tickets: tickets, customers: customers}
}

func (f *fixture) seedTicket(t *testing.T, mutate func(*domain.Ticket)) *domain.Ticket {
	t.Helper()
	due := time.Now().Add(48 * time.Hour)
	ticket := &domain.Ticket{
		CreatedBy:  uuid.NewString(),
		Task:       "call back farmer",
		CropName:   domain.CropNameUnspecified,
		Priority:   domain.TicketPriorityMedium,
		Status:     domain.TicketStatusOpened,
		DueDate:    &due,
		AssignedTo: []string{},
		Remarks:    []domain.Remark{},
	}
	if mutate != nil {
		mutate(ticket)
	}
	require.NoError(t, f.tickets.Create(context.Background(), ticket))
	return ticket
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *util.DomainError
	require.ErrorAs(t, err, &de)
	return de.Code
}

var (
	agentCaller = func(id string) domain.Caller { return domain.Caller{ID: id, Role: domain.AgentRoleAgent} }
	adminCaller = domain.Caller{ID: uuid.NewString(), Role: domain.AgentRoleAdmin}
)

func TestCreate_RequiresTaskAndDueDate(t *testing.T) {
	f := newFixture()
	caller := agentCaller(uuid.NewString())

	_, err := f.service.Create(context.Background(), caller, TicketCreateInput{Task: "no due date"})
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))

	due := time.Now().Add(time.Hour)
	_, err = f.service.Create(context.Background(), caller, TicketCreateInput{DueDate: &due})
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestCreate_AppliesDefaults(t *testing.T) {
	f := newFixture()
	caller := agentCaller(uuid.NewString())
	due := time.Now().Add(time.Hour)

	ticket, err := f.service.Create(context.Background(), caller, TicketCreateInput{
		Task:    "verify harvest readiness",
		DueDate: &due,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpened, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.CropNameUnspecified, ticket.CropName)
	assert.Equal(t, caller.ID, ticket.CreatedBy)
	assert.Empty(t, ticket.AssignedTo)
	require.Len(t, ticket.StatusLogs, 1)
	assert.Equal(t, domain.TicketStatusOpened, ticket.StatusLogs[0].Status)
}

func TestCreate_NormalizesPriorityCasing(t *testing.T) {
	f := newFixture()
	due := time.Now().Add(time.Hour)

	ticket, err := f.service.Create(context.Background(), adminCaller, TicketCreateInput{
		Task:     "urgent pickup",
		DueDate:  &due,
		Priority: "ASAP",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityASAP, ticket.Priority)
}

// Updating only the status leaves priority, task and assignment untouched.
func TestUpdate_PartialUpdateIsIdempotent(t *testing.T) {
	f := newFixture()
	agentID := uuid.NewString()
	ticket := f.seedTicket(t, func(tk *domain.Ticket) {
		tk.Priority = domain.TicketPriorityHigh
		tk.AssignedTo = []string{agentID}
	})

	closed := "Closed"
	updated, err := f.service.Update(context.Background(), agentCaller(agentID), TicketUpdateInput{
		ID:     ticket.ID,
		Status: &closed,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)
	assert.Equal(t, ticket.Task, updated.Task)
	assert.Equal(t, []string{agentID}, updated.AssignedTo)
}

func TestUpdate_StatusChangeAppendsStatusLog(t *testing.T) {
	f := newFixture()
	agentID := uuid.NewString()
	ticket := f.seedTicket(t, func(tk *domain.Ticket) {
		tk.AssignedTo = []string{agentID}
		tk.StatusLogs = []domain.StatusLogEntry{{Status: domain.TicketStatusOpened, ChangedAt: time.Now()}}
	})

	waiting := "Waiting For"
	_, err := f.service.Update(context.Background(), agentCaller(agentID), TicketUpdateInput{
		ID:     ticket.ID,
		Status: &waiting,
	})
	require.NoError(t, err)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, stored.StatusLogs, 2)
	assert.Equal(t, domain.TicketStatusWaitingFor, stored.StatusLogs[1].Status)
}

func TestUpdate_RemarkAppendsNotReplaces(t *testing.T) {
	f := newFixture()
	agentID := uuid.NewString()
	ticket := f.seedTicket(t, func(tk *domain.Ticket) {
		tk.AssignedTo = []string{agentID}
		tk.Remarks = []domain.Remark{{Text: "first visit done", AuthorBy: agentID, Timestamp: time.Now()}}
	})

	remark := "farmer asked to call after 5pm"
	_, err := f.service.Update(context.Background(), agentCaller(agentID), TicketUpdateInput{
		ID:         ticket.ID,
		RemarkText: &remark,
	})
	require.NoError(t, err)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, stored.Remarks, 2)
	assert.Equal(t, "first visit done", stored.Remarks[0].Text)
	assert.Equal(t, remark, stored.Remarks[1].Text)
	assert.Equal(t, agentID, stored.Remarks[1].AuthorBy)
}

func TestUpdate_UnassignedAgentDenied(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(t, func(tk *domain.Ticket) {
		tk.AssignedTo = []string{uuid.NewString()}
	})

	closed := "Closed"
	_, err := f.service.Update(context.Background(), agentCaller(uuid.NewString()), TicketUpdateInput{
		ID:     ticket.ID,
		Status: &closed,
	})
	assert.Equal(t, "ACCESS_DENIED", domainCode(t, err))

	// nothing applied
	stored, getErr := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TicketStatusOpened, stored.Status)
}

// "doesn't exist" and "not yours" are distinguishable.
func TestUpdate_NotFoundDistinctFromDenied(t *testing.T) {
	f := newFixture()
	closed := "Closed"
	_, err := f.service.Update(context.Background(), adminCaller, TicketUpdateInput{
		ID:     uuid.NewString(),
		Status: &closed,
	})
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestUpdate_AdminBypassesAssignmentCheck(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(t, func(tk *domain.Ticket) {
		tk.AssignedTo = []string{uuid.NewString()}
	})

	closed := "Closed"
	updated, err := f.service.Update(context.Background(), adminCaller, TicketUpdateInput{
		ID:     ticket.ID,
		Status: &closed,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
}

// Bulk authorization is all-or-nothing: one foreign ticket rejects the
// whole batch and nothing is written.
func TestBulkUpdate_AllOrNothing(t *testing.T) {
	f := newFixture()
	agentID := uuid.NewString()
	mine := f.seedTicket(t, func(tk *domain.Ticket) { tk.AssignedTo = []string{agentID} })
	foreign := f.seedTicket(t, func(tk *domain.Ticket) { tk.AssignedTo = []string{uuid.NewString()} })

	closed := "Closed"
	_, err := f.service.BulkUpdate(context.Background(), agentCaller(agentID), BulkUpdateInput{
		TicketIDs: []string{mine.ID, foreign.ID},
		Status:    &closed,
	})
	assert.Equal(t, "ACCESS_DENIED", domainCode(t, err))

	for _, id := range []string{mine.ID, foreign.ID} {
		stored, getErr := f.tickets.GetByID(context.Background(), id)
		require.NoError(t, getErr)
		assert.Equal(t, domain.TicketStatusOpened, stored.Status)
	}
}

func TestBulkUpdate_AppliesToEveryTicket(t *testing.T) {
	f := newFixture()
	agentID := uuid.NewString()
	t1 := f.seedTicket(t, func(tk *domain.Ticket) { tk.AssignedTo = []string{agentID} })
	t2 := f.seedTicket(t, func(tk *domain.Ticket) { tk.AssignedTo = []string{agentID} })

	priority := "HIGH"
	result, err := f.service.BulkUpdate(context.Background(), agentCaller(agentID), BulkUpdateInput{
		TicketIDs: []string{t1.ID, t2.ID},
		Priority:  &priority,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Matched)
	assert.Equal(t, 2, result.Updated)

	for _, id := range []string{t1.ID, t2.ID} {
		stored, getErr := f.tickets.GetByID(context.Background(), id)
		require.NoError(t, getErr)
		assert.Equal(t, domain.TicketPriorityHigh, stored.Priority)
	}
}

// Tickets not assigned to the caller are excluded from deletion, not erred.
func TestDelete_ScopedToCallerAssignments(t *testing.T) {
	f := newFixture()
	agentID := uuid.NewString()
	mine := f.seedTicket(t, func(tk *domain.Ticket) { tk.AssignedTo = []string{agentID} })
	foreign := f.seedTicket(t, func(tk *domain.Ticket) { tk.AssignedTo = []string{uuid.NewString()} })

	deleted, err := f.service.Delete(context.Background(), agentCaller(agentID), []string{mine.ID, foreign.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = f.tickets.GetByID(context.Background(), mine.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = f.tickets.GetByID(context.Background(), foreign.ID)
	assert.NoError(t, err)
}

// Admin and agent views differ only in the assignment filter: the admin
// sees an unassigned ticket the agent does not.
func TestOpenQueue_AdminSeesUnassignedTicket(t *testing.T) {
	f := newFixture()
	agentID := uuid.NewString()
	f.seedTicket(t, func(tk *domain.Ticket) { tk.AssignedTo = []string{agentID} })
	f.seedTicket(t, nil) // unassigned

	adminPage, err := f.service.OpenQueue(context.Background(), adminCaller, 1, 10)
	require.NoError(t, err)
	assert.Len(t, adminPage.Data, 2)

	agentPage, err := f.service.OpenQueue(context.Background(), agentCaller(agentID), 1, 10)
	require.NoError(t, err)
	assert.Len(t, agentPage.Data, 1)
}

func TestOpenQueue_ExcludesClosed(t *testing.T) {
	f := newFixture()
	f.seedTicket(t, func(tk *domain.Ticket) { tk.Status = domain.TicketStatusClosed })
	f.seedTicket(t, func(tk *domain.Ticket) { tk.Status = domain.TicketStatusWaitingFor })
	f.seedTicket(t, nil)

	page, err := f.service.OpenQueue(context.Background(), adminCaller, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	for _, ticket := range page.Data {
		assert.NotEqual(t, domain.TicketStatusClosed, ticket.Status)
	}
}

func TestOpenQueue_Pagination(t *testing.T) {
	f := newFixture()
	for i := 0; i < 7; i++ {
		f.seedTicket(t, nil)
	}

	first, err := f.service.OpenQueue(context.Background(), adminCaller, 1, 3)
	require.NoError(t, err)
	assert.Len(t, first.Data, 3)
	assert.Equal(t, 7, first.Pagination.TotalItems)
	assert.Equal(t, 3, first.Pagination.TotalPages)

	last, err := f.service.OpenQueue(context.Background(), adminCaller, 3, 3)
	require.NoError(t, err)
	assert.Len(t, last.Data, 1)

	// totalItems is independent of the requested page; a page past the end
	// is empty but still reports correct totals.
	beyond, err := f.service.OpenQueue(context.Background(), adminCaller, 5, 3)
	require.NoError(t, err)
	assert.Empty(t, beyond.Data)
	assert.Equal(t, 7, beyond.Pagination.TotalItems)
	assert.Equal(t, 3, beyond.Pagination.TotalPages)
}

func TestOpenQueue_RanksByTriageOrder(t *testing.T) {
	f := newFixture()
	agentID := uuid.NewString()
	now := time.Now()
	tomorrow := now.Add(24 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)

	f.seedTicket(t, func(tk *domain.Ticket) {
		tk.Task = "T3"
		tk.Priority = domain.TicketPriorityMedium
		tk.DueDate = &now
		tk.AssignedTo = []string{agentID}
	})
	f.seedTicket(t, func(tk *domain.Ticket) {
		tk.Task = "T1"
		tk.Priority = domain.TicketPriorityASAP
		tk.DueDate = &tomorrow
		tk.AssignedTo = []string{agentID}
	})
	f.seedTicket(t, func(tk *domain.Ticket) {
		tk.Task = "T2"
		tk.Priority = domain.TicketPriorityLow
		tk.DueDate = &yesterday
		tk.AssignedTo = []string{agentID}
	})

	page, err := f.service.OpenQueue(context.Background(), agentCaller(agentID), 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Data, 3)
	assert.Equal(t, "T1", page.Data[0].Task)
	assert.Equal(t, "T2", page.Data[1].Task)
	assert.Equal(t, "T3", page.Data[2].Task)
}

func TestAgentQueue_RejectsMalformedID(t *testing.T) {
	f := newFixture()
	_, err := f.service.AgentQueue(context.Background(), "not-a-uuid", 1, 10)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestCustomerHistory_IncludesClosedLast(t *testing.T) {
	f := newFixture()
	userID := uuid.NewString()
	f.seedTicket(t, func(tk *domain.Ticket) {
		tk.Task = "closed one"
		tk.UserID = &userID
		tk.Status = domain.TicketStatusClosed
		tk.Priority = domain.TicketPriorityASAP
	})
	f.seedTicket(t, func(tk *domain.Ticket) {
		tk.Task = "open one"
		tk.UserID = &userID
		tk.Priority = domain.TicketPriorityLow
	})

	page, err := f.service.CustomerHistory(context.Background(), userID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "open one", page.Data[0].Task)
	assert.Equal(t, "closed one", page.Data[1].Task)
}

func TestWebhook_LinksCustomerByNormalizedNumber(t *testing.T) {
	f := newFixture()
	customer := &domain.Customer{Name: "Ravi", Number: "9876543210", Identity: domain.IdentityFarmer}
	require.NoError(t, f.customers.Create(context.Background(), customer))

	ticket, duplicate, err := f.service.CreateFromWebhook(context.Background(), WebhookTicketInput{
		EventID: uuid.NewString(),
		Number:  "+919876543210",
		Task:    "missed call follow up",
	})
	require.NoError(t, err)
	assert.False(t, duplicate)
	require.NotNil(t, ticket.UserID)
	assert.Equal(t, customer.ID, *ticket.UserID)
	assert.Equal(t, "9876543210", ticket.Number)
	assert.Equal(t, "Ravi", ticket.Name)
	assert.Equal(t, f.service.systemAgentID, ticket.CreatedBy)
}

// An unknown number still creates the ticket, just without linkage.
func TestWebhook_UnknownNumberStillCreates(t *testing.T) {
	f := newFixture()
	ticket, duplicate, err := f.service.CreateFromWebhook(context.Background(), WebhookTicketInput{
		Number: "9000000000",
	})
	require.NoError(t, err)
	assert.False(t, duplicate)
	assert.Nil(t, ticket.UserID)
	assert.NotEmpty(t, ticket.Task)
	assert.NotNil(t, ticket.DueDate)
}

func TestWebhook_DuplicateEventSuppressed(t *testing.T) {
	f := newFixture()
	eventID := uuid.NewString()

	first, duplicate, err := f.service.CreateFromWebhook(context.Background(), WebhookTicketInput{
		EventID: eventID,
		Number:  "9000000001",
	})
	require.NoError(t, err)
	require.False(t, duplicate)
	require.NotNil(t, first)

	second, duplicate, err := f.service.CreateFromWebhook(context.Background(), WebhookTicketInput{
		EventID: eventID,
		Number:  "9000000001",
	})
	require.NoError(t, err)
	assert.True(t, duplicate)
	assert.Nil(t, second)
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/markhet/agri-crm/internal/domain"
)

// TicketFilter captures the predicates the triage engine composes: scope by
// assignee (array membership), by owning customer, and by status set.
type TicketFilter struct {
	AssignedTo *string
	UserID     *string
	Statuses   []domain.TicketStatus
}

// TicketRepository encapsulates ticket persistence. Remarks and status logs
// are append-only at the store level: they grow through AppendRemark and
// AppendStatusLog and are never rewritten by Save.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Save(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Find(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Count(ctx context.Context, filter TicketFilter) (int, error)
	AppendRemark(ctx context.Context, ticketID string, remark domain.Remark) error
	AppendStatusLog(ctx context.Context, ticketID string, entry domain.StatusLogEntry) error
	DeleteAssigned(ctx context.Context, ids []string, agentID string) (int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, user_id, created_by, name, number, task, crop_name,
       remarks, status_logs, due_date, priority, status, assigned_to, created_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (user_id, created_by, name, number, task, crop_name, remarks, status_logs, due_date, priority, status, assigned_to)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at`
	remarks, err := json.Marshal(ticket.Remarks)
	if err != nil {
		return err
	}
	statusLogs, err := json.Marshal(ticket.StatusLogs)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, query,
		ticket.UserID,
		ticket.CreatedBy,
		ticket.Name,
		ticket.Number,
		ticket.Task,
		ticket.CropName,
		remarks,
		statusLogs,
		ticket.DueDate,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedTo,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

// Save persists the mutable scalar fields. Remarks and status logs are
// intentionally excluded; they only change through the append methods.
func (r *ticketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET user_id=$1, name=$2, number=$3, task=$4, crop_name=$5,
            due_date=$6, priority=$7, status=$8, assigned_to=$9
        WHERE id=$10`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.UserID,
		ticket.Name,
		ticket.Number,
		ticket.Task,
		ticket.CropName,
		ticket.DueDate,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedTo,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanTicket(row)
}

func (r *ticketRepository) Find(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses, args := buildTicketClauses(filter)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int, error) {
	clauses, args := buildTicketClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, strings.Join(clauses, " AND "))

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) AppendRemark(ctx context.Context, ticketID string, remark domain.Remark) error {
	payload, err := json.Marshal([]domain.Remark{remark})
	if err != nil {
		return err
	}
	const query = `UPDATE tickets SET remarks = remarks || $1::jsonb WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, payload, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) AppendStatusLog(ctx context.Context, ticketID string, entry domain.StatusLogEntry) error {
	payload, err := json.Marshal([]domain.StatusLogEntry{entry})
	if err != nil {
		return err
	}
	const query = `UPDATE tickets SET status_logs = status_logs || $1::jsonb WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, payload, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteAssigned removes the subset of ids assigned to agentID. Ids the
// agent is not assigned to are silently skipped, not erred.
func (r *ticketRepository) DeleteAssigned(ctx context.Context, ids []string, agentID string) (int64, error) {
	const query = `DELETE FROM tickets WHERE id = ANY($1) AND $2 = ANY(assigned_to)`
	cmd, err := r.pool.Exec(ctx, query, ids, agentID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func buildTicketClauses(filter TicketFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(assigned_to)", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	return clauses, args
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.CreatedBy,
		&ticket.Name,
		&ticket.Number,
		&ticket.Task,
		&ticket.CropName,
		&ticket.Remarks,
		&ticket.StatusLogs,
		&ticket.DueDate,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

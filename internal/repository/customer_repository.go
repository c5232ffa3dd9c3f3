package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/markhet/agri-crm/internal/domain"
)

// CustomerRepository defines persistence access for farmer/harvester records.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByNumber(ctx context.Context, number string) (*domain.Customer, error)
	AppendNote(ctx context.Context, customerID string, note domain.Note) error
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a Postgres-backed implementation.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

const customerColumns = `id, name, number, identity, village, taluk, district, notes, created_at, updated_at`

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	const query = `
        INSERT INTO customers (name, number, identity, village, taluk, district)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		customer.Name,
		customer.Number,
		customer.Identity,
		customer.Village,
		customer.Taluk,
		customer.District,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	return r.fetchSingle(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id)
}

func (r *customerRepository) GetByNumber(ctx context.Context, number string) (*domain.Customer, error) {
	return r.fetchSingle(ctx, `SELECT `+customerColumns+` FROM customers WHERE number=$1`, number)
}

func (r *customerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	var customer domain.Customer
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Number,
		&customer.Identity,
		&customer.Village,
		&customer.Taluk,
		&customer.District,
		&customer.Notes,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) AppendNote(ctx context.Context, customerID string, note domain.Note) error {
	payload, err := json.Marshal([]domain.Note{note})
	if err != nil {
		return err
	}
	const query = `UPDATE customers SET notes = notes || $1::jsonb, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, payload, customerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

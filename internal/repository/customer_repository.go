package repository

import (
	"context"

	"github.com/spec-kit/support-agent/internal/domain"
)

// CustomerRepository encapsulates customer persistence.
type CustomerRepository interface {
	Upsert(ctx context.Context, customer *domain.Customer) error
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
}

type customerRepository struct {
	db Querier
}

// NewCustomerRepository instantiates repository.
func NewCustomerRepository(db Querier) CustomerRepository {
	return &customerRepository{db: db}
}

// Upsert inserts the customer or, when the address is already known,
// converges on the existing row. The stored name and phone win over the
// freshly derived ones.
func (r *customerRepository) Upsert(ctx context.Context, customer *domain.Customer) error {
	const query = `
        INSERT INTO customers (email, name, phone)
        VALUES ($1,$2,$3)
        ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
        RETURNING id, name, phone, created_at`

	return r.db.QueryRow(ctx, query,
		customer.Email,
		customer.Name,
		customer.Phone,
	).Scan(&customer.ID, &customer.Name, &customer.Phone, &customer.CreatedAt)
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const query = `
        SELECT id, email, name, phone, created_at
        FROM customers WHERE email=$1`

	var customer domain.Customer
	if err := r.db.QueryRow(ctx, query, email).Scan(
		&customer.ID,
		&customer.Email,
		&customer.Name,
		&customer.Phone,
		&customer.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &customer, nil
}

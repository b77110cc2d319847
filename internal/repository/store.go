package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx operations repositories need. It is
// satisfied by both *pgxpool.Pool and pgx.Tx so the same repository code
// runs inside and outside a transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store bundles the repositories over one database handle and provides
// transactional scoping for multi-entity writes.
type Store interface {
	Tenants() TenantRepository
	Customers() CustomerRepository
	Tickets() TicketRepository
	Messages() MessageRepository
	Classifications() ClassificationRepository

	// WithinTx runs fn against a Store whose repositories share one
	// transaction. The transaction commits when fn returns nil and rolls
	// back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
	db   Querier
}

// NewStore creates a Store over a pgx pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) Tenants() TenantRepository                 { return NewTenantRepository(s.db) }
func (s *pgStore) Customers() CustomerRepository             { return NewCustomerRepository(s.db) }
func (s *pgStore) Tickets() TicketRepository                 { return NewTicketRepository(s.db) }
func (s *pgStore) Messages() MessageRepository               { return NewMessageRepository(s.db) }
func (s *pgStore) Classifications() ClassificationRepository { return NewClassificationRepository(s.db) }

func (s *pgStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.pool == nil {
		return errors.New("store is already transaction-scoped")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&pgStore{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// IsUniqueViolation reports whether err is a postgres unique-constraint
// violation (SQLSTATE 23505). The constraint is the authoritative signal
// for duplicate provider message ids and concurrent identity upserts.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

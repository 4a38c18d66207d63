package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/certforge/certforge/internal/apperr"
	"github.com/certforge/certforge/internal/db"
)

// Store is raw-SQL CRUD against public.customers. It never observes a
// tenant binding — the customers table lives in the global namespace.
type Store struct {
	db db.DBTX
}

// NewStore wraps db with the customer store's queries.
func NewStore(conn db.DBTX) *Store {
	return &Store{db: conn}
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Domain, &c.TenantSchema, &c.Status,
		&c.MaxUsers, &c.MaxCertificatesPerMonth, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, fmt.Errorf("customer: %w", apperr.ErrNotFound)
		}
		return Customer{}, fmt.Errorf("scanning customer: %w", err)
	}
	return c, nil
}

const customerColumns = `id, name, domain, tenant_schema, status, max_users, max_certificates_per_month, created_at`

// Create inserts a new customer row in TRIAL status.
func (s *Store) Create(ctx context.Context, p NewCustomerParams) (Customer, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO customers (name, domain, tenant_schema, status, max_users, max_certificates_per_month)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+customerColumns,
		p.Name, p.Domain, p.TenantSchema, StatusTrial, p.MaxUsers, p.MaxCertificatesPerMonth,
	)
	return scanCustomer(row)
}

// GetByID looks up a customer by its stable integer id.
func (s *Store) GetByID(ctx context.Context, id int64) (Customer, error) {
	row := s.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

// GetByDomain looks up a customer by its unique domain.
func (s *Store) GetByDomain(ctx context.Context, domain string) (Customer, error) {
	row := s.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE domain = $1`, domain)
	return scanCustomer(row)
}

// GetBySchema looks up a customer by its tenant schema.
func (s *Store) GetBySchema(ctx context.Context, schema string) (Customer, error) {
	row := s.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE tenant_schema = $1`, schema)
	return scanCustomer(row)
}

// ExistsDomain reports whether domain is already taken.
func (s *Store) ExistsDomain(ctx context.Context, domain string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE domain = $1)`, domain).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking domain existence: %w", err)
	}
	return exists, nil
}

// ExistsSchema reports whether tenantSchema is already taken.
func (s *Store) ExistsSchema(ctx context.Context, schema string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE tenant_schema = $1)`, schema).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking schema existence: %w", err)
	}
	return exists, nil
}

// ListActive returns all ACTIVE customers, ordered by id, for C12's
// tenant-less fan-out.
func (s *Store) ListActive(ctx context.Context) ([]Customer, error) {
	rows, err := s.db.Query(ctx, `SELECT `+customerColumns+` FROM customers WHERE status = $1 ORDER BY id`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("listing active customers: %w", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a customer row. Used for onboarding rollback only.
func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting customer %d: %w", id, err)
	}
	return nil
}

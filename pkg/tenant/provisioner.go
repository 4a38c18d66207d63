package tenant

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certforge/certforge/internal/apperr"
	"github.com/certforge/certforge/internal/platform"
)

// WithSearchPath returns databaseURL with its search_path query parameter
// pinned to schema, public. golang-migrate drives its own connection from a
// DSN rather than a pool, so applying tenant migrations needs a
// schema-scoped connection string distinct from the pool's own routing.
func WithSearchPath(databaseURL, schema string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing database URL: %w", err)
	}
	q := u.Query()
	q.Set("search_path", schema+",public")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Provisioner creates and drops tenant schemas. It knows nothing about the
// Customer row — pkg/customer's Registry.Onboard drives this as the second
// step of onboarding and is responsible for rolling back the row if this
// fails (SPEC_FULL.md §4.2, §7).
type Provisioner struct {
	Pool          *pgxpool.Pool
	DatabaseURL   string
	MigrationsDir string
}

// CreateSchema creates schema and applies tenant migrations into it.
func (p *Provisioner) CreateSchema(ctx context.Context, schema string) error {
	if !ValidSchema(schema) {
		return fmt.Errorf("schema %q: %w", schema, apperr.ErrInvalidTenant)
	}

	if _, err := p.Pool.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, schema)); err != nil {
		return fmt.Errorf("creating schema %q: %w", schema, err)
	}

	scopedURL, err := WithSearchPath(p.DatabaseURL, schema)
	if err != nil {
		return err
	}

	if err := platform.RunTenantMigrations(scopedURL, p.MigrationsDir); err != nil {
		return fmt.Errorf("running tenant migrations for %q: %w", schema, err)
	}

	return nil
}

// DropSchema removes schema and everything in it. Nothing in this tree
// calls it: Registry.Onboard's rollback after a failed CreateSchema
// deletes only the customer row.
func (p *Provisioner) DropSchema(ctx context.Context, schema string) error {
	if !ValidSchema(schema) {
		return fmt.Errorf("schema %q: %w", schema, apperr.ErrInvalidTenant)
	}
	_, err := p.Pool.Exec(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS "%s" CASCADE`, schema))
	if err != nil {
		return fmt.Errorf("dropping schema %q: %w", schema, err)
	}
	return nil
}

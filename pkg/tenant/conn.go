package tenant

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Acquire checks out a pooled connection and sets its search_path to the
// schema bound in ctx, followed by public. Every checkout re-issues the
// directive explicitly so a physical connection reused across tenants
// never leaks the previous tenant's search path (SPEC_FULL.md §4.1, §9).
func Acquire(ctx context.Context, pool *pgxpool.Pool) (*pgxpool.Conn, error) {
	schema, err := Require(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT set_config('search_path', $1, false)", schema+", public"); err != nil {
		conn.Release()
		return nil, fmt.Errorf("setting search_path to %q: %w", schema, err)
	}

	return conn, nil
}

// RunInTx binds schema, acquires a schema-scoped connection, and runs fn
// inside a transaction opened on that connection. The schema is set before
// the transaction begins so the session backing it observes the correct
// search path for the transaction's whole lifetime (Design Notes §9).
func RunInTx(ctx context.Context, pool *pgxpool.Pool, schema string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	ctx, err := Bind(ctx, schema)
	if err != nil {
		return err
	}

	conn, err := Acquire(ctx, pool)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type connKey struct{}

// NewConnContext stores a schema-scoped connection in ctx so request
// handlers further down the chain can reuse the checkout C1 already paid
// for instead of acquiring a second one.
func NewConnContext(ctx context.Context, conn *pgxpool.Conn) context.Context {
	return context.WithValue(ctx, connKey{}, conn)
}

// ConnFromContext returns the connection stashed by NewConnContext, or nil.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(connKey{}).(*pgxpool.Conn)
	return conn
}

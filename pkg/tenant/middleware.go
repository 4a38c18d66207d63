package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certforge/certforge/internal/apperr"
	"github.com/certforge/certforge/internal/httpserver"
)

// HeaderResolver reads the raw tenant token off the inbound request: either
// X-Tenant-Id (a numeric customer id) or X-Tenant-Schema (a literal schema
// name). Either is accepted; resolving the token to an actual schema is the
// job of a SchemaLookup, not this type.
type HeaderResolver struct{}

// Resolve implements the resolver contract Middleware expects.
func (HeaderResolver) Resolve(r *http.Request) (string, error) {
	if v := r.Header.Get("X-Tenant-Id"); v != "" {
		return v, nil
	}
	if v := r.Header.Get("X-Tenant-Schema"); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("no tenant header: %w", apperr.ErrMissingTenant)
}

// Resolver extracts the raw tenant token from an inbound request.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// SchemaLookup maps a raw header token (numeric customer id or literal
// schema) to the customer's tenant schema. pkg/customer's Registry
// implements this for C2's resolveByHeader operation.
type SchemaLookup interface {
	SchemaForToken(ctx context.Context, token string) (string, error)
}

// Middleware resolves the inbound tenant header, binds the resolved schema
// into the request context, and checks out a schema-scoped connection that
// downstream handlers can retrieve with ConnFromContext. Public routes
// (verification) must not be wrapped by this middleware.
func Middleware(pool *pgxpool.Pool, resolver Resolver, lookup SchemaLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := resolver.Resolve(r)
			if err != nil {
				httpserver.RespondDomainError(w, err)
				return
			}

			schema, err := lookup.SchemaForToken(r.Context(), token)
			if err != nil {
				httpserver.RespondDomainError(w, err)
				return
			}

			ctx, err := Bind(r.Context(), schema)
			if err != nil {
				httpserver.RespondDomainError(w, err)
				return
			}

			conn, err := Acquire(ctx, pool)
			if err != nil {
				logger.Error("acquiring tenant connection", "schema", schema, "error", err)
				httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "could not bind tenant connection")
				return
			}
			defer conn.Release()

			ctx = NewConnContext(ctx, conn)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

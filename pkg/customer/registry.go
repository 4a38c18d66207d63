package customer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certforge/certforge/internal/apperr"
	"github.com/certforge/certforge/pkg/tenant"
)

var domainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)

var schemaSanitizePattern = regexp.MustCompile(`[^a-z0-9_]+`)

// Registry is C2 Tenant Registry: it maps customer identifiers and request
// headers to tenant schemas, enumerates the active set, and drives
// onboarding's two-step row+schema creation.
type Registry struct {
	pool        *pgxpool.Pool
	store       *Store
	provisioner *tenant.Provisioner
	logger      *slog.Logger
}

// NewRegistry builds a Registry over pool, using migrationsDir for tenant
// schema provisioning.
func NewRegistry(pool *pgxpool.Pool, databaseURL, migrationsDir string, logger *slog.Logger) *Registry {
	return &Registry{
		pool:  pool,
		store: NewStore(pool),
		provisioner: &tenant.Provisioner{
			Pool:          pool,
			DatabaseURL:   databaseURL,
			MigrationsDir: migrationsDir,
		},
		logger: logger,
	}
}

// ResolveByHeader implements C2's resolveByHeader: token may be a numeric
// customer id or a literal schema name; both are accepted.
func (r *Registry) ResolveByHeader(ctx context.Context, token string) (Customer, error) {
	if id, err := strconv.ParseInt(token, 10, 64); err == nil {
		c, err := r.store.GetByID(ctx, id)
		if err != nil {
			return Customer{}, fmt.Errorf("customer id %d: %w", id, apperr.ErrTenantNotFound)
		}
		return c, nil
	}

	c, err := r.store.GetBySchema(ctx, token)
	if err != nil {
		return Customer{}, fmt.Errorf("schema %q: %w", token, apperr.ErrTenantNotFound)
	}
	return c, nil
}

// SchemaForToken implements tenant.SchemaLookup for the HTTP middleware.
func (r *Registry) SchemaForToken(ctx context.Context, token string) (string, error) {
	c, err := r.ResolveByHeader(ctx, token)
	if err != nil {
		return "", err
	}
	return c.TenantSchema, nil
}

// SchemaOf returns the tenant schema for a customer id.
func (r *Registry) SchemaOf(ctx context.Context, customerID int64) (string, error) {
	c, err := r.store.GetByID(ctx, customerID)
	if err != nil {
		return "", err
	}
	return c.TenantSchema, nil
}

// CustomerOf returns the customer owning schema.
func (r *Registry) CustomerOf(ctx context.Context, schema string) (Customer, error) {
	return r.store.GetBySchema(ctx, schema)
}

// ListActive returns every ACTIVE customer, ordered by id. C12 fans out
// verification probes across exactly this set.
func (r *Registry) ListActive(ctx context.Context) ([]Customer, error) {
	return r.store.ListActive(ctx)
}

// Onboard validates uniqueness of domain and tenantSchema (generating and
// disambiguating a schema from the domain when one isn't supplied),
// persists the customer row, then provisions the schema. On schema
// creation failure the customer row is rolled back; a rollback failure is
// logged but never masks the original error.
func (r *Registry) Onboard(ctx context.Context, p NewCustomerParams) (Customer, error) {
	domain := strings.ToLower(strings.TrimSpace(p.Domain))
	if !domainPattern.MatchString(domain) {
		return Customer{}, fmt.Errorf("domain %q is not DNS-valid: %w", p.Domain, apperr.ErrValidation)
	}
	p.Domain = domain

	if exists, err := r.store.ExistsDomain(ctx, domain); err != nil {
		return Customer{}, err
	} else if exists {
		return Customer{}, fmt.Errorf("domain %q already in use: %w", domain, apperr.ErrValidation)
	}

	schema, err := r.resolveSchema(ctx, p.TenantSchema, domain)
	if err != nil {
		return Customer{}, err
	}
	p.TenantSchema = schema

	if p.MaxUsers <= 0 {
		p.MaxUsers = 5
	}
	if p.MaxCertificatesPerMonth <= 0 {
		p.MaxCertificatesPerMonth = 100
	}

	c, err := r.store.Create(ctx, p)
	if err != nil {
		return Customer{}, fmt.Errorf("persisting customer row: %w", err)
	}

	if err := r.provisioner.CreateSchema(ctx, schema); err != nil {
		if rbErr := r.store.Delete(ctx, c.ID); rbErr != nil {
			r.logger.Error("rolling back customer row after schema creation failure",
				"customer_id", c.ID, "schema", schema, "rollback_error", rbErr)
		}
		return Customer{}, fmt.Errorf("provisioning schema %q: %w", schema, apperr.ErrTenantSchemaCreateFailed)
	}

	r.logger.Info("customer onboarded", "customer_id", c.ID, "domain", domain, "schema", schema)
	return c, nil
}

// resolveSchema returns requested if set and available, otherwise derives a
// schema from domain and disambiguates with a numeric suffix.
func (r *Registry) resolveSchema(ctx context.Context, requested, domain string) (string, error) {
	if requested != "" {
		if !tenant.ValidSchema(requested) {
			return "", fmt.Errorf("tenant schema %q: %w", requested, apperr.ErrInvalidTenant)
		}
		exists, err := r.store.ExistsSchema(ctx, requested)
		if err != nil {
			return "", err
		}
		if exists {
			return "", fmt.Errorf("tenant schema %q already in use: %w", requested, apperr.ErrValidation)
		}
		return requested, nil
	}

	base := sanitizeSchema(domain)
	candidate := base
	for n := 0; ; n++ {
		if n > 0 {
			candidate = fmt.Sprintf("%s_%d", base, n)
		}
		if len(candidate) > 75 {
			candidate = candidate[:75]
		}
		exists, err := r.store.ExistsSchema(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

func sanitizeSchema(domain string) string {
	lowered := strings.ToLower(domain)
	sanitized := schemaSanitizePattern.ReplaceAllString(lowered, "_")
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		sanitized = "tenant"
	}
	if len(sanitized) > 75 {
		sanitized = sanitized[:75]
	}
	return sanitized
}

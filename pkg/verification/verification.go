// Package verification implements C12 Verification Service: a tenant-less
// public lookup that fans a signed hash out across every active tenant
// and returns the matching certificate, if any, without ever requiring
// the caller to supply tenant headers.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certforge/certforge/internal/apperr"
	"github.com/certforge/certforge/internal/telemetry"
	"github.com/certforge/certforge/pkg/certificate"
	"github.com/certforge/certforge/pkg/customer"
	"github.com/certforge/certforge/pkg/hashindex"
	"github.com/certforge/certforge/pkg/tenant"
)

// maxHashLength bounds the input before it's used in a query, per
// SPEC_FULL.md §4.12's rejection of null/empty/over-long hashes.
const maxHashLength = 512

// Service fans a signed hash out across every ACTIVE tenant.
type Service struct {
	Pool      *pgxpool.Pool
	Customers *customer.Registry
	Logger    *slog.Logger
}

// Verify returns the certificate matching hash, or apperr.ErrNotFound if
// no ACTIVE tenant holds a matching, ISSUED certificate. It is a linear
// per-tenant scan, one indexed lookup per active tenant (Design Notes §9);
// the interface stays stable if a future implementation backs it with a
// global lookup table.
func (s *Service) Verify(ctx context.Context, hash string) (certificate.Certificate, error) {
	if hash == "" || len(hash) > maxHashLength {
		return certificate.Certificate{}, fmt.Errorf("hash length %d: %w", len(hash), apperr.ErrValidation)
	}

	customers, err := s.Customers.ListActive(ctx)
	if err != nil {
		return certificate.Certificate{}, fmt.Errorf("listing active tenants: %w", err)
	}

	for _, c := range customers {
		cert, err := s.lookup(ctx, c.TenantSchema, hash)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			s.Logger.Error("verification lookup failed", "tenant", c.TenantSchema, "error", err)
			continue
		}
		telemetry.VerificationHitsTotal.Inc()
		return cert, nil
	}

	telemetry.VerificationMissesTotal.Inc()
	return certificate.Certificate{}, apperr.ErrNotFound
}

// lookup probes a single tenant schema for hash, returning the
// certificate only if it exists and is ISSUED.
func (s *Service) lookup(ctx context.Context, schema, hash string) (certificate.Certificate, error) {
	h, err := hashindex.FindByHashInSchema(ctx, s.Pool, schema, hash)
	if err != nil {
		return certificate.Certificate{}, err
	}

	ctx, err = tenant.Bind(ctx, schema)
	if err != nil {
		return certificate.Certificate{}, err
	}
	conn, err := tenant.Acquire(ctx, s.Pool)
	if err != nil {
		return certificate.Certificate{}, err
	}
	defer conn.Release()

	cert, err := certificate.NewStore(conn).FindByID(ctx, h.CertificateID)
	if err != nil {
		return certificate.Certificate{}, err
	}
	if cert.Status != certificate.StatusIssued {
		return certificate.Certificate{}, apperr.ErrNotFound
	}
	return cert, nil
}

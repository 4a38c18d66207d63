// Package sweeper implements C11 Preview Sweeper: the periodic job that
// revokes PENDING previews nobody promoted within the cleanup window and
// deletes their stored PDF.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certforge/certforge/internal/telemetry"
	"github.com/certforge/certforge/pkg/certificate"
	"github.com/certforge/certforge/pkg/customer"
	"github.com/certforge/certforge/pkg/objectstore"
	"github.com/certforge/certforge/pkg/tenant"
)

// Sweeper revokes stale preview certificates across every active tenant.
type Sweeper struct {
	Pool      *pgxpool.Pool
	Customers *customer.Registry
	Objects   objectstore.Store
	Bucket    string
	Logger    *slog.Logger

	// MaxPreviewAge is the cleanup threshold: a preview older than this
	// is eligible for revocation.
	MaxPreviewAge time.Duration
}

// SweepOnce runs one pass over every ACTIVE tenant. Per-certificate and
// per-tenant errors are logged and do not halt the sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	customers, err := s.Customers.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing active tenants: %w", err)
	}

	cutoff := time.Now().UTC().Add(-s.MaxPreviewAge)
	for _, c := range customers {
		if err := s.sweepTenant(ctx, c.TenantSchema, cutoff); err != nil {
			s.Logger.Error("preview sweep failed for tenant", "tenant", c.TenantSchema, "error", err)
		}
	}
	return nil
}

func (s *Sweeper) sweepTenant(ctx context.Context, schema string, cutoff time.Time) error {
	ctx, err := tenant.Bind(ctx, schema)
	if err != nil {
		return fmt.Errorf("binding tenant: %w", err)
	}

	conn, err := tenant.Acquire(ctx, s.Pool)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	store := certificate.NewStore(conn)
	previews, err := store.ListPendingPreviewsOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("listing expired previews: %w", err)
	}

	for _, cert := range previews {
		if err := s.sweepOne(ctx, schema, cert); err != nil {
			s.Logger.Error("preview sweep failed for certificate",
				"tenant", schema, "certificate_id", cert.ID, "error", err)
			continue
		}
		telemetry.PreviewsSweptTotal.Inc()
		s.Logger.Info("preview swept", "tenant", schema, "certificate_id", cert.ID)
	}
	return nil
}

func (s *Sweeper) sweepOne(ctx context.Context, schema string, cert certificate.Certificate) error {
	if cert.StoragePath != nil {
		if err := s.Objects.Delete(ctx, s.Bucket, *cert.StoragePath); err != nil {
			return fmt.Errorf("deleting object %s: %w", *cert.StoragePath, err)
		}
	}
	err := tenant.RunInTx(ctx, s.Pool, schema, func(ctx context.Context, tx pgx.Tx) error {
		_, err := certificate.NewStore(tx).SweepRevoke(ctx, cert.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("revoking certificate: %w", err)
	}
	return nil
}

// RunLoop runs SweepOnce periodically until ctx is cancelled.
func (s *Sweeper) RunLoop(ctx context.Context, interval time.Duration) {
	s.Logger.Info("preview sweeper started", "interval", interval, "max_preview_age", s.MaxPreviewAge)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.SweepOnce(ctx); err != nil {
		s.Logger.Error("initial preview sweep", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("preview sweeper stopped")
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.Logger.Error("preview sweep", "error", err)
			}
		}
	}
}

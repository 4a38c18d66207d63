package certificate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/certforge/certforge/internal/apperr"
	"github.com/certforge/certforge/internal/db"
)

// Store is raw-SQL CRUD against the tenant schema's certificates table.
// Every call expects the caller to have already bound and acquired a
// schema-scoped connection or transaction (C1).
type Store struct {
	db db.DBTX
}

// NewStore wraps conn with the certificate store's queries.
func NewStore(conn db.DBTX) *Store {
	return &Store{db: conn}
}

const certColumns = `id, customer_id, template_version_id, certificate_number, recipient_data, metadata,
	storage_path, signed_hash, status, issued_at, expires_at, issued_by, preview_generated_at, created_at, updated_at`

func scanCertificate(row pgx.Row) (Certificate, error) {
	var c Certificate
	err := row.Scan(
		&c.ID, &c.CustomerID, &c.TemplateVersionID, &c.CertificateNumber, &c.RecipientData, &c.Metadata,
		&c.StoragePath, &c.SignedHash, &c.Status, &c.IssuedAt, &c.ExpiresAt, &c.IssuedBy, &c.PreviewGeneratedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Certificate{}, fmt.Errorf("certificate: %w", apperr.ErrNotFound)
		}
		return Certificate{}, fmt.Errorf("scanning certificate: %w", err)
	}
	return c, nil
}

// createParams are the Store.Create inputs, already resolved by the engine
// (customer id assigned, certificate number assigned, issuedAt fixed).
type createParams struct {
	CustomerID        int64
	TemplateVersionID uuid.UUID
	CertificateNumber string
	RecipientData     []byte
	Metadata          []byte
	ExpiresAt         *time.Time
	IssuedBy          *string
	IssuedAt          time.Time
}

// Create inserts a new PENDING certificate row.
func (s *Store) Create(ctx context.Context, p createParams) (Certificate, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO certificates (
			id, customer_id, template_version_id, certificate_number, recipient_data, metadata,
			status, issued_at, expires_at, issued_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+certColumns,
		uuid.New(), p.CustomerID, p.TemplateVersionID, p.CertificateNumber, p.RecipientData, p.Metadata,
		StatusPending, p.IssuedAt, p.ExpiresAt, p.IssuedBy,
	)
	return scanCertificate(row)
}

// CountInMonth counts every certificate (any status) whose issuedAt falls
// within [monthStart, monthEnd), the quota basis per SPEC_FULL.md §4.8.
func (s *Store) CountInMonth(ctx context.Context, monthStart, monthEnd time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM certificates WHERE issued_at >= $1 AND issued_at < $2`,
		monthStart, monthEnd,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting certificates in month: %w", err)
	}
	return count, nil
}

// FindByID fetches a certificate by id.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (Certificate, error) {
	row := s.db.QueryRow(ctx, `SELECT `+certColumns+` FROM certificates WHERE id = $1`, id)
	return scanCertificate(row)
}

// FindForUpdate fetches a certificate by id, locking the row against
// concurrent status transitions. Must be called within a transaction.
func (s *Store) FindForUpdate(ctx context.Context, id uuid.UUID) (Certificate, error) {
	row := s.db.QueryRow(ctx, `SELECT `+certColumns+` FROM certificates WHERE id = $1 FOR UPDATE`, id)
	return scanCertificate(row)
}

// ListPendingPreviewsOlderThan returns every PENDING certificate whose
// previewGeneratedAt predates cutoff — the sweeper's (C11) candidate set.
func (s *Store) ListPendingPreviewsOlderThan(ctx context.Context, cutoff time.Time) ([]Certificate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+certColumns+` FROM certificates
		WHERE status = $1 AND preview_generated_at IS NOT NULL AND preview_generated_at < $2
		ORDER BY id`,
		StatusPending, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("listing expired previews: %w", err)
	}
	defer rows.Close()

	var out []Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// transitionTo applies a bare status update, returning the updated row. It
// does not itself check preconditions; callers gate the allowed source
// states before calling it.
func (s *Store) transitionTo(ctx context.Context, id uuid.UUID, status string) (Certificate, error) {
	row := s.db.QueryRow(ctx, `UPDATE certificates SET status = $1 WHERE id = $2 RETURNING `+certColumns, status, id)
	return scanCertificate(row)
}

// MarkProcessing transitions PENDING or FAILED to PROCESSING. Re-entering
// from PROCESSING is idempotent: a certificate left mid-flight by a
// transient failure is redelivered without ever having reached FAILED, and
// the worker must be able to resume it.
func (s *Store) MarkProcessing(ctx context.Context, id uuid.UUID) (Certificate, error) {
	c, err := s.FindForUpdate(ctx, id)
	if err != nil {
		return Certificate{}, err
	}
	if c.Status == StatusProcessing {
		return c, nil
	}
	if c.Status != StatusPending && c.Status != StatusFailed {
		return Certificate{}, fmt.Errorf("cannot start processing from status %s: %w", c.Status, apperr.ErrIllegalTransition)
	}
	return s.transitionTo(ctx, id, StatusProcessing)
}

// SetSignedHash writes signedHash once. A second write is rejected:
// signedHash is write-once (SPEC_FULL.md §8 invariant 2).
func (s *Store) SetSignedHash(ctx context.Context, id uuid.UUID, hash string) (Certificate, error) {
	c, err := s.FindForUpdate(ctx, id)
	if err != nil {
		return Certificate{}, err
	}
	if c.SignedHash != nil {
		return Certificate{}, fmt.Errorf("signed hash already set for certificate %s: %w", id, apperr.ErrIllegalTransition)
	}
	row := s.db.QueryRow(ctx, `UPDATE certificates SET signed_hash = $1 WHERE id = $2 RETURNING `+certColumns, hash, id)
	return scanCertificate(row)
}

// MarkIssued transitions PROCESSING to ISSUED, recording the final
// storage path. signedHash must already be set by a prior SetSignedHash.
func (s *Store) MarkIssued(ctx context.Context, id uuid.UUID, storagePath string) (Certificate, error) {
	c, err := s.FindForUpdate(ctx, id)
	if err != nil {
		return Certificate{}, err
	}
	if c.Status != StatusProcessing {
		return Certificate{}, fmt.Errorf("cannot issue from status %s: %w", c.Status, apperr.ErrIllegalTransition)
	}
	if c.SignedHash == nil {
		return Certificate{}, fmt.Errorf("cannot issue certificate %s without a signed hash: %w", id, apperr.ErrIllegalTransition)
	}
	row := s.db.QueryRow(ctx,
		`UPDATE certificates SET status = $1, storage_path = $2 WHERE id = $3 RETURNING `+certColumns,
		StatusIssued, storagePath, id,
	)
	return scanCertificate(row)
}

// MarkPreviewReady transitions PROCESSING back to PENDING with
// previewGeneratedAt and storagePath set, per the worker's preview path
// (SPEC_FULL.md §4.10).
func (s *Store) MarkPreviewReady(ctx context.Context, id uuid.UUID, storagePath string, at time.Time) (Certificate, error) {
	c, err := s.FindForUpdate(ctx, id)
	if err != nil {
		return Certificate{}, err
	}
	if c.Status != StatusProcessing {
		return Certificate{}, fmt.Errorf("cannot mark preview ready from status %s: %w", c.Status, apperr.ErrIllegalTransition)
	}
	if c.SignedHash == nil {
		return Certificate{}, fmt.Errorf("cannot mark preview ready for certificate %s without a signed hash: %w", id, apperr.ErrIllegalTransition)
	}
	row := s.db.QueryRow(ctx,
		`UPDATE certificates SET status = $1, storage_path = $2, preview_generated_at = $3 WHERE id = $4 RETURNING `+certColumns,
		StatusPending, storagePath, at, id,
	)
	return scanCertificate(row)
}

// IssuePreview transitions a PENDING certificate with a previewGeneratedAt
// already set directly to ISSUED, reusing its existing storagePath and
// signedHash without re-rendering.
func (s *Store) IssuePreview(ctx context.Context, id uuid.UUID) (Certificate, error) {
	c, err := s.FindForUpdate(ctx, id)
	if err != nil {
		return Certificate{}, err
	}
	if c.Status != StatusPending || c.PreviewGeneratedAt == nil {
		return Certificate{}, fmt.Errorf("certificate %s is not a pending preview: %w", id, apperr.ErrIllegalTransition)
	}
	if c.StoragePath == nil || c.SignedHash == nil {
		return Certificate{}, fmt.Errorf("preview certificate %s is missing its rendered artifact: %w", id, apperr.ErrIllegalTransition)
	}
	return s.transitionTo(ctx, id, StatusIssued)
}

// MarkFailed transitions PROCESSING to FAILED, merging an {error,
// errorTimestamp} entry into metadata.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, msg string, at time.Time) (Certificate, error) {
	c, err := s.FindForUpdate(ctx, id)
	if err != nil {
		return Certificate{}, err
	}
	if c.Status != StatusProcessing {
		return Certificate{}, fmt.Errorf("cannot mark failed from status %s: %w", c.Status, apperr.ErrIllegalTransition)
	}

	metadata := mergeFailureMetadata(c.Metadata, msg, at)
	row := s.db.QueryRow(ctx,
		`UPDATE certificates SET status = $1, metadata = $2 WHERE id = $3 RETURNING `+certColumns,
		StatusFailed, metadata, id,
	)
	return scanCertificate(row)
}

// Revoke transitions any non-terminal status (or an issued certificate) to
// REVOKED. Re-revoking an already-REVOKED certificate is rejected:
// attempts to re-enter ISSUED from REVOKED, or to revoke twice, both fail
// with IllegalTransition.
func (s *Store) Revoke(ctx context.Context, id uuid.UUID) (Certificate, error) {
	c, err := s.FindForUpdate(ctx, id)
	if err != nil {
		return Certificate{}, err
	}
	if c.Status == StatusRevoked {
		return Certificate{}, fmt.Errorf("certificate %s is already REVOKED: %w", id, apperr.ErrIllegalTransition)
	}
	return s.transitionTo(ctx, id, StatusRevoked)
}

// SweepRevoke transitions a PENDING preview certificate to REVOKED,
// clearing storagePath and previewGeneratedAt (C11's terminal step).
func (s *Store) SweepRevoke(ctx context.Context, id uuid.UUID) (Certificate, error) {
	c, err := s.FindForUpdate(ctx, id)
	if err != nil {
		return Certificate{}, err
	}
	if c.Status != StatusPending || c.PreviewGeneratedAt == nil {
		return Certificate{}, fmt.Errorf("certificate %s is not a sweepable preview: %w", id, apperr.ErrIllegalTransition)
	}
	row := s.db.QueryRow(ctx,
		`UPDATE certificates SET status = $1, storage_path = NULL, preview_generated_at = NULL WHERE id = $2 RETURNING `+certColumns,
		StatusRevoked, id,
	)
	return scanCertificate(row)
}

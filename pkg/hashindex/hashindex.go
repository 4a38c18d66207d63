// Package hashindex implements C7 Hash Index: the per-tenant table mapping
// a certificate's signed hash back to its id, plus the cross-tenant
// read-only lookup C12 needs for public verification.
package hashindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certforge/certforge/internal/apperr"
	"github.com/certforge/certforge/internal/db"
	"github.com/certforge/certforge/pkg/tenant"
)

// Hash is one CertificateHash row.
type Hash struct {
	ID            int64
	CertificateID uuid.UUID
	Algorithm     string
	Value         string
	CreatedAt     time.Time
}

// Store is append-only from the engine's perspective; the only overwrite
// path is the REVOKED-sweep deletion of the owning certificate, which
// cascades.
type Store struct {
	db db.DBTX
}

// NewStore wraps conn with the hash index's queries.
func NewStore(conn db.DBTX) *Store {
	return &Store{db: conn}
}

const hashColumns = `id, certificate_id, hash_algorithm, hash_value, created_at`

func scanHash(row pgx.Row) (Hash, error) {
	var h Hash
	err := row.Scan(&h.ID, &h.CertificateID, &h.Algorithm, &h.Value, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Hash{}, fmt.Errorf("hash index entry: %w", apperr.ErrNotFound)
		}
		return Hash{}, fmt.Errorf("scanning hash index entry: %w", err)
	}
	return h, nil
}

// Insert records a certificate's signed hash.
func (s *Store) Insert(ctx context.Context, certificateID uuid.UUID, algorithm, value string) (Hash, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO certificate_hashes (certificate_id, hash_algorithm, hash_value)
		VALUES ($1, $2, $3)
		RETURNING `+hashColumns,
		certificateID, algorithm, value,
	)
	return scanHash(row)
}

// FindByCertificateID returns the hash entry for a certificate.
func (s *Store) FindByCertificateID(ctx context.Context, certificateID uuid.UUID) (Hash, error) {
	row := s.db.QueryRow(ctx, `SELECT `+hashColumns+` FROM certificate_hashes WHERE certificate_id = $1`, certificateID)
	return scanHash(row)
}

// FindByValue is a point lookup by hashValue within the caller's currently
// bound tenant schema.
func (s *Store) FindByValue(ctx context.Context, hashValue string) (Hash, error) {
	row := s.db.QueryRow(ctx, `SELECT `+hashColumns+` FROM certificate_hashes WHERE hash_value = $1`, hashValue)
	return scanHash(row)
}

// FindByHashInSchema is C7's second operation: a read-only lookup bound
// through C1 to an arbitrary schema, used by C12 to fan out across
// tenants without the caller having its own binding active.
func FindByHashInSchema(ctx context.Context, pool *pgxpool.Pool, schema, hashValue string) (Hash, error) {
	ctx, err := tenant.Bind(ctx, schema)
	if err != nil {
		return Hash{}, err
	}

	conn, err := tenant.Acquire(ctx, pool)
	if err != nil {
		return Hash{}, err
	}
	defer conn.Release()

	return NewStore(conn).FindByValue(ctx, hashValue)
}

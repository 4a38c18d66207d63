// Package objectstore implements C5 Object Store Adapter: put/get/exists/
// delete/presigned-URL over an S3-compatible blob store.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

const maxPresignTTL = 7 * 24 * time.Hour

// Store is the contract C6/C8/C11 depend on. The S3 adapter and the
// in-memory test double both satisfy it.
type Store interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Delete(ctx context.Context, bucket, key string) error
	Presign(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	EnsureBucket(ctx context.Context, bucket string) error
}

// ObjectKey builds the storage key layout SPEC_FULL.md §6 mandates:
// {tenantSchema}/certificates/{YYYY}/{MM}/{certificateId}.pdf.
func ObjectKey(tenantSchema string, certificateID uuid.UUID, issuedAt time.Time) string {
	return fmt.Sprintf("%s/certificates/%04d/%02d/%s.pdf",
		tenantSchema, issuedAt.Year(), issuedAt.Month(), certificateID)
}

// clampTTL caps ttl to 7 days and substitutes def when ttl is zero or
// negative, per C5's presign contract.
func clampTTL(ttl, def time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = def
	}
	if ttl > maxPresignTTL {
		ttl = maxPresignTTL
	}
	return ttl
}

package objectstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/certforge/certforge/internal/apperr"
)

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	issuedAt := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)

	got := ObjectKey("acme_corp", id, issuedAt)
	want := "acme_corp/certificates/2026/03/11111111-1111-1111-1111-111111111111.pdf"
	if got != want {
		t.Errorf("ObjectKey() = %q, want %q", got, want)
	}
}

func TestClampTTL(t *testing.T) {
	def := 15 * time.Minute
	tests := []struct {
		name string
		ttl  time.Duration
		want time.Duration
	}{
		{"zero uses default", 0, def},
		{"negative uses default", -time.Hour, def},
		{"within range passes through", time.Hour, time.Hour},
		{"over 7 days is capped", 30 * 24 * time.Hour, maxPresignTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampTTL(tt.ttl, def); got != tt.want {
				t.Errorf("clampTTL(%v) = %v, want %v", tt.ttl, got, tt.want)
			}
		})
	}
}

func TestMemoryStore_PutGetExistsDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Put(ctx, "bkt", "k1", []byte("hello"), "application/pdf"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	exists, err := store.Exists(ctx, "bkt", "k1")
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v; want true, nil", exists, err)
	}

	rc, err := store.Get(ctx, "bkt", "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()

	if err := store.Delete(ctx, "bkt", "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := store.Get(ctx, "bkt", "k1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStore_Presign(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	url, err := store.Presign(ctx, "bkt", "k1", 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Presign: %v", err)
	}
	if !strings.Contains(url, "168h0m0s") {
		t.Errorf("expected presign to clamp to 7 days, got %q", url)
	}
}

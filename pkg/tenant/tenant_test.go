package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/certforge/certforge/internal/apperr"
)

func TestValidSchema(t *testing.T) {
	tests := []struct {
		schema string
		want   bool
	}{
		{"acme_corp", true},
		{"a1", true},
		{"ACME", true},
		{"", false},
		{"has space", false},
		{"has-dash", false},
		{"semi;colon", false},
	}
	for _, tt := range tests {
		t.Run(tt.schema, func(t *testing.T) {
			if got := ValidSchema(tt.schema); got != tt.want {
				t.Errorf("ValidSchema(%q) = %v, want %v", tt.schema, got, tt.want)
			}
		})
	}
}

func TestValidSchema_MaxLength(t *testing.T) {
	ok := make([]byte, 75)
	for i := range ok {
		ok[i] = 'a'
	}
	if !ValidSchema(string(ok)) {
		t.Error("expected 75-char schema to be valid")
	}

	tooLong := make([]byte, 76)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	if ValidSchema(string(tooLong)) {
		t.Error("expected 76-char schema to be invalid")
	}
}

func TestBindCurrentClear(t *testing.T) {
	ctx := context.Background()

	if _, ok := Current(ctx); ok {
		t.Fatal("expected no schema bound on fresh context")
	}

	ctx, err := Bind(ctx, "acme_corp")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	schema, ok := Current(ctx)
	if !ok || schema != "acme_corp" {
		t.Fatalf("Current() = (%q, %v), want (%q, true)", schema, ok, "acme_corp")
	}

	cleared := Clear(ctx)
	if _, ok := Current(cleared); ok {
		t.Fatal("expected schema to be unbound after Clear")
	}
}

func TestBind_InvalidSchema(t *testing.T) {
	_, err := Bind(context.Background(), "not a schema!")
	if !errors.Is(err, apperr.ErrInvalidTenant) {
		t.Fatalf("expected ErrInvalidTenant, got %v", err)
	}
}

func TestRequire_MissingTenant(t *testing.T) {
	_, err := Require(context.Background())
	if !errors.Is(err, apperr.ErrMissingTenant) {
		t.Fatalf("expected ErrMissingTenant, got %v", err)
	}
}

func TestBind_NotInheritedAcrossFreshContext(t *testing.T) {
	ctx, err := Bind(context.Background(), "tenant_a")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	_ = ctx

	// A fresh context, as a dequeue-side worker would construct, must not
	// see the enqueue side's binding.
	fresh := context.Background()
	if _, ok := Current(fresh); ok {
		t.Fatal("binding leaked into an unrelated context")
	}
}

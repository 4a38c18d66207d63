// Package tenant implements C1 Tenant Context: the per-operation schema
// binding that every data-access call in certforge must observe.
package tenant

import (
	"context"
	"fmt"
	"regexp"

	"github.com/certforge/certforge/internal/apperr"
)

var schemaPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,75}$`)

// ValidSchema reports whether schema satisfies the persisted tenant schema
// naming rule (SPEC_FULL.md §6): 1-75 chars, letters/digits/underscore.
func ValidSchema(schema string) bool {
	return schemaPattern.MatchString(schema)
}

type bindingKey struct{}

type binding struct {
	schema string
}

// Bind attaches schema as the active tenant for ctx, returning a derived
// context. Binding is never inherited implicitly across a queue hop or
// goroutine boundary — the enqueue side and the dequeue side must each
// call Bind explicitly with the schema carried in the message.
func Bind(ctx context.Context, schema string) (context.Context, error) {
	if !ValidSchema(schema) {
		return ctx, fmt.Errorf("schema %q: %w", schema, apperr.ErrInvalidTenant)
	}
	return context.WithValue(ctx, bindingKey{}, &binding{schema: schema}), nil
}

// Current returns the schema bound to ctx, or ok=false if none is bound.
func Current(ctx context.Context) (string, bool) {
	b, ok := ctx.Value(bindingKey{}).(*binding)
	if !ok || b == nil {
		return "", false
	}
	return b.schema, true
}

// Require is Current, but fails with MissingTenant — the form every
// tenant-scoped operation in C2-C12 should call.
func Require(ctx context.Context) (string, error) {
	schema, ok := Current(ctx)
	if !ok {
		return "", apperr.ErrMissingTenant
	}
	return schema, nil
}

// Clear removes the tenant binding from ctx. Workers must call this in a
// guaranteed post-processing step after every delivery, success or not.
func Clear(ctx context.Context) context.Context {
	return context.WithValue(ctx, bindingKey{}, (*binding)(nil))
}

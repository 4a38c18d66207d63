// Package authedge implements C13 Security/Auth Edge: supplying the
// engine with the caller's identity for issuedBy. It deliberately does not
// parse or verify credentials itself — that belongs to an upstream
// authenticating proxy or gateway — it only carries the principal an
// upstream layer has already established through to the engine.
package authedge

import "context"

// Anonymous is returned when no authenticated principal is present. The
// engine never blocks on identification; a request with no identity is
// recorded with issuedBy set to Anonymous rather than failing the
// operation.
const Anonymous = "anonymous"

// Identity is the caller's opaque identifier plus the trust method that
// established it.
type Identity struct {
	Subject string
	Method  string
}

type ctxKey struct{}

// NewContext stores id in ctx.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stashed by NewContext, and whether one
// was present.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// CallerID returns the bound identity's subject, or Anonymous if none is
// bound or the subject is empty.
func CallerID(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok || id.Subject == "" {
		return Anonymous
	}
	return id.Subject
}

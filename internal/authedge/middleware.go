package authedge

import "net/http"

// Resolver extracts an Identity from an inbound request. HeaderResolver is
// the only implementation today, trusting headers set by an upstream
// authenticating proxy; a future resolver could parse a bearer token
// directly without changing Middleware's contract.
type Resolver interface {
	Resolve(r *http.Request) (Identity, bool)
}

// HeaderResolver trusts X-Authenticated-Subject and X-Authenticated-Method,
// set by an upstream gateway that has already verified the caller. This
// package never parses or verifies credentials itself.
type HeaderResolver struct{}

// Resolve reads the trusted headers. Absence of a subject is not an error —
// it means the request is anonymous.
func (HeaderResolver) Resolve(r *http.Request) (Identity, bool) {
	subject := r.Header.Get("X-Authenticated-Subject")
	if subject == "" {
		return Identity{}, false
	}
	method := r.Header.Get("X-Authenticated-Method")
	if method == "" {
		method = "upstream"
	}
	return Identity{Subject: subject, Method: method}, true
}

// Middleware binds whatever identity resolver finds into the request
// context, defaulting to an absent identity (CallerID then resolves to
// Anonymous) rather than failing the request. Identification failures
// never block the operation (SPEC_FULL.md §4.13).
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := resolver.Resolve(r); ok {
				r = r.WithContext(NewContext(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

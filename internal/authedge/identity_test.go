package authedge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCallerID_Anonymous(t *testing.T) {
	if got := CallerID(context.Background()); got != Anonymous {
		t.Errorf("CallerID() = %q, want %q", got, Anonymous)
	}
}

func TestCallerID_Bound(t *testing.T) {
	ctx := NewContext(context.Background(), Identity{Subject: "user-42", Method: "upstream"})
	if got := CallerID(ctx); got != "user-42" {
		t.Errorf("CallerID() = %q, want %q", got, "user-42")
	}
}

func TestHeaderResolver_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		subject    string
		method     string
		wantOK     bool
		wantMethod string
	}{
		{"no headers", "", "", false, ""},
		{"subject only defaults method", "user-1", "", true, "upstream"},
		{"subject and method", "user-1", "apikey", true, "apikey"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.subject != "" {
				r.Header.Set("X-Authenticated-Subject", tt.subject)
			}
			if tt.method != "" {
				r.Header.Set("X-Authenticated-Method", tt.method)
			}

			id, ok := HeaderResolver{}.Resolve(r)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && id.Method != tt.wantMethod {
				t.Errorf("Resolve() method = %q, want %q", id.Method, tt.wantMethod)
			}
		})
	}
}

func TestMiddleware_BindsIdentityWhenResolved(t *testing.T) {
	var seen string
	handler := Middleware(HeaderResolver{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CallerID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Authenticated-Subject", "user-7")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if seen != "user-7" {
		t.Errorf("CallerID() inside handler = %q, want %q", seen, "user-7")
	}
}

func TestMiddleware_LeavesAnonymousWhenUnresolved(t *testing.T) {
	var seen string
	handler := Middleware(HeaderResolver{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CallerID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if seen != Anonymous {
		t.Errorf("CallerID() inside handler = %q, want %q", seen, Anonymous)
	}
}

package tenant

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeaderResolver_Resolve(t *testing.T) {
	resolver := HeaderResolver{}

	t.Run("returns value from X-Tenant-Id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Tenant-Id", "42")

		token, err := resolver.Resolve(r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "42" {
			t.Errorf("token = %q, want %q", token, "42")
		}
	})

	t.Run("returns value from X-Tenant-Schema", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Tenant-Schema", "acme_corp")

		token, err := resolver.Resolve(r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "acme_corp" {
			t.Errorf("token = %q, want %q", token, "acme_corp")
		}
	})

	t.Run("X-Tenant-Id takes precedence when both are set", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Tenant-Id", "42")
		r.Header.Set("X-Tenant-Schema", "acme_corp")

		token, err := resolver.Resolve(r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "42" {
			t.Errorf("token = %q, want %q", token, "42")
		}
	})

	t.Run("returns error when neither header is present", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		_, err := resolver.Resolve(r)
		if err == nil {
			t.Fatal("expected error for missing tenant headers")
		}
	})
}

package customer

import "testing"

func TestSanitizeSchema(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"acme-corp.com", "acme_corp_com"},
		{"Example.ORG", "example_org"},
		{"a.b.c", "a_b_c"},
		{"---", "tenant"},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			if got := sanitizeSchema(tt.domain); got != tt.want {
				t.Errorf("sanitizeSchema(%q) = %q, want %q", tt.domain, got, tt.want)
			}
		})
	}
}

func TestDomainPattern(t *testing.T) {
	tests := []struct {
		domain string
		valid  bool
	}{
		{"acme.com", true},
		{"sub.acme.co.uk", true},
		{"ACME.com", false}, // uppercase rejected; caller lowercases first
		{"not a domain", false},
		{"nodot", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			if got := domainPattern.MatchString(tt.domain); got != tt.valid {
				t.Errorf("domainPattern.MatchString(%q) = %v, want %v", tt.domain, got, tt.valid)
			}
		})
	}
}

package certificate

import (
	"regexp"
	"testing"
	"time"
)

func TestGenerateNumber_WithTemplateCode(t *testing.T) {
	issuedAt := time.Date(2026, time.July, 29, 0, 0, 0, 0, time.UTC)
	got, err := generateNumber("cert101", issuedAt)
	if err != nil {
		t.Fatalf("generateNumber: %v", err)
	}
	want := regexp.MustCompile(`^CERT101-20260729-[0-9A-F]{6}$`)
	if !want.MatchString(got) {
		t.Errorf("generateNumber() = %q, want match of %s", got, want)
	}
}

func TestGenerateNumber_FallbackWithoutTemplateCode(t *testing.T) {
	issuedAt := time.Date(2026, time.July, 29, 0, 0, 0, 0, time.UTC)
	got, err := generateNumber("", issuedAt)
	if err != nil {
		t.Fatalf("generateNumber: %v", err)
	}
	want := regexp.MustCompile(`^CERT-20260729-[0-9A-F]{6}$`)
	if !want.MatchString(got) {
		t.Errorf("generateNumber() = %q, want match of %s", got, want)
	}
}

func TestGenerateNumber_Uniqueness(t *testing.T) {
	issuedAt := time.Now().UTC()
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		n, err := generateNumber("ABC", issuedAt)
		if err != nil {
			t.Fatalf("generateNumber: %v", err)
		}
		if seen[n] {
			t.Fatalf("duplicate certificate number generated: %s", n)
		}
		seen[n] = true
	}
}

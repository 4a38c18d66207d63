package certificate

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMergeFailureMetadata_PreservesExistingKeys(t *testing.T) {
	at := time.Date(2026, time.July, 29, 12, 0, 0, 0, time.UTC)
	existing := json.RawMessage(`{"batch":"2026-Q3"}`)

	out := mergeFailureMetadata(existing, "storage timeout", at)

	var fields map[string]any
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("unmarshaling merged metadata: %v", err)
	}
	if fields["batch"] != "2026-Q3" {
		t.Errorf("expected existing key preserved, got %v", fields["batch"])
	}
	if fields["error"] != "storage timeout" {
		t.Errorf("expected error field set, got %v", fields["error"])
	}
	if fields["errorTimestamp"] != at.Format(time.RFC3339) {
		t.Errorf("expected errorTimestamp set, got %v", fields["errorTimestamp"])
	}
}

func TestMergeFailureMetadata_MalformedExistingReplaced(t *testing.T) {
	at := time.Date(2026, time.July, 29, 12, 0, 0, 0, time.UTC)
	existing := json.RawMessage(`{not valid json`)

	out := mergeFailureMetadata(existing, "render failed", at)

	var fields map[string]any
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("unmarshaling merged metadata: %v", err)
	}
	if len(fields) != 2 {
		t.Errorf("expected fallback to contain only error and errorTimestamp, got %v", fields)
	}
	if fields["error"] != "render failed" {
		t.Errorf("expected error field set, got %v", fields["error"])
	}
}

func TestMergeFailureMetadata_EmptyExisting(t *testing.T) {
	at := time.Date(2026, time.July, 29, 12, 0, 0, 0, time.UTC)
	out := mergeFailureMetadata(nil, "queue timeout", at)

	var fields map[string]any
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("unmarshaling merged metadata: %v", err)
	}
	if fields["error"] != "queue timeout" {
		t.Errorf("expected error field set, got %v", fields["error"])
	}
}

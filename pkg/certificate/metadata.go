package certificate

import (
	"encoding/json"
	"time"
)

// mergeFailureMetadata merges {error, errorTimestamp} into existing, keeping
// its other keys. Malformed existing JSON is replaced with a minimal
// fallback rather than allowed to mask the failure (SPEC_FULL.md §7).
func mergeFailureMetadata(existing json.RawMessage, msg string, at time.Time) json.RawMessage {
	fields := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &fields); err != nil {
			fields = map[string]any{}
		}
	}

	fields["error"] = msg
	fields["errorTimestamp"] = at.Format(time.RFC3339)

	out, err := json.Marshal(fields)
	if err != nil {
		// Marshaling a map[string]any of strings cannot fail; this is an
		// unreachable defensive fallback.
		return json.RawMessage(`{"error":"` + msg + `"}`)
	}
	return out
}

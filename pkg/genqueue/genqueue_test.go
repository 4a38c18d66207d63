package genqueue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestMessage_RoundTrips(t *testing.T) {
	id := uuid.New()
	msg := Message{CertificateID: id, TenantSchema: "acme_corp", IsPreview: true}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got Message
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got != msg {
		t.Errorf("round trip = %+v, want %+v", got, msg)
	}
}

func TestMessage_WireFieldNames(t *testing.T) {
	msg := Message{CertificateID: uuid.New(), TenantSchema: "acme_corp", IsPreview: false}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, field := range []string{"certificateId", "tenantSchema", "isPreview"} {
		if _, ok := asMap[field]; !ok {
			t.Errorf("wire payload missing field %q: %v", field, asMap)
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	q := New(nil, "worker-1")
	if q.streamKey != defaultStreamKey {
		t.Errorf("streamKey = %q, want %q", q.streamKey, defaultStreamKey)
	}
	if q.groupName != defaultGroupName {
		t.Errorf("groupName = %q, want %q", q.groupName, defaultGroupName)
	}
	if q.dlqKey != defaultDLQKey {
		t.Errorf("dlqKey = %q, want %q", q.dlqKey, defaultDLQKey)
	}
	if q.maxTries != DefaultMaxDeliveries {
		t.Errorf("maxTries = %d, want %d", q.maxTries, DefaultMaxDeliveries)
	}
}

func TestNew_Options(t *testing.T) {
	q := New(nil, "worker-1", WithStreamKey("s"), WithDLQKey("d"), WithMaxDeliveries(5))
	if q.streamKey != "s" || q.dlqKey != "d" || q.maxTries != 5 {
		t.Errorf("options not applied: %+v", q)
	}
}

func TestIsBusyGroupErr(t *testing.T) {
	if isBusyGroupErr(nil) {
		t.Error("isBusyGroupErr(nil) = true, want false")
	}
	if !isBusyGroupErr(errBusyGroup{}) {
		t.Error("isBusyGroupErr(BUSYGROUP) = false, want true")
	}
}

type errBusyGroup struct{}

func (errBusyGroup) Error() string { return "BUSYGROUP Consumer Group name already exists" }

package genworker

import (
	"log/slog"
	"testing"
	"time"

	"github.com/certforge/certforge/pkg/genqueue"
)

func TestNew_Defaults(t *testing.T) {
	w := New(genqueue.New(nil, "worker-1"), nil, slog.Default())

	if w.pollInterval != 2*time.Second {
		t.Errorf("pollInterval = %v, want 2s", w.pollInterval)
	}
	if w.batchSize != 10 {
		t.Errorf("batchSize = %d, want 10", w.batchSize)
	}
	if w.claimIdle != 5*time.Minute {
		t.Errorf("claimIdle = %v, want 5m", w.claimIdle)
	}
}

package rpc

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()

	m.RecordConnection()
	m.RecordConnection()
	m.RecordRejectedConnection()
	m.RecordRequest("ping", 2*time.Millisecond, false)
	m.RecordRequest("ping", 4*time.Millisecond, false)
	m.RecordRequest("tools/call", 10*time.Millisecond, true)

	snap := m.Snapshot()
	if snap.TotalConns != 2 || snap.RejectedConns != 1 {
		t.Errorf("conns = %d/%d, want 2/1", snap.TotalConns, snap.RejectedConns)
	}
	if len(snap.Methods) != 2 {
		t.Fatalf("want 2 methods, got %d", len(snap.Methods))
	}

	// Sorted by method name.
	if snap.Methods[0].Method != "ping" || snap.Methods[1].Method != "tools/call" {
		t.Errorf("methods out of order: %+v", snap.Methods)
	}

	ping := snap.Methods[0]
	if ping.Count != 2 || ping.Errors != 0 {
		t.Errorf("ping counters = %+v", ping)
	}
	if ping.MinMS != 2 || ping.MaxMS != 4 || ping.AvgMS != 3 {
		t.Errorf("ping latencies = min %.1f avg %.1f max %.1f", ping.MinMS, ping.AvgMS, ping.MaxMS)
	}

	call := snap.Methods[1]
	if call.Count != 1 || call.Errors != 1 {
		t.Errorf("tools/call counters = %+v", call)
	}
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_CountersStartAtZero(t *testing.T) {
	c := New("client-1")

	if got := testutil.ToFloat64(c.PacketsSent); got != 0 {
		t.Fatalf("PacketsSent = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.ActiveSessions); got != 0 {
		t.Fatalf("ActiveSessions = %v, want 0", got)
	}
}

func TestCollector_IncrementsAreObservable(t *testing.T) {
	c := New("client-2")

	c.PacketsSent.Add(3)
	c.BytesSent.Add(128)
	c.ActiveSessions.Set(1)

	if got := testutil.ToFloat64(c.PacketsSent); got != 3 {
		t.Fatalf("PacketsSent = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.BytesSent); got != 128 {
		t.Fatalf("BytesSent = %v, want 128", got)
	}
	if got := testutil.ToFloat64(c.ActiveSessions); got != 1 {
		t.Fatalf("ActiveSessions = %v, want 1", got)
	}
}

func TestCollectors_ReturnsAllSix(t *testing.T) {
	c := New("client-3")
	if got := len(c.Collectors()); got != 6 {
		t.Fatalf("Collectors() len = %d, want 6", got)
	}
}

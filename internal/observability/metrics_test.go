package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics("test")
	m.RecordRequest("/pets", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/pets", "GET", 200, 5*time.Millisecond)
	m.RecordAdoptionTransition("approved")
	m.RecordNotification("sent")

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/pets", "200")); got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.adoptions.WithLabelValues("approved")); got != 1 {
		t.Fatalf("expected 1 approval, got %v", got)
	}
	if got := testutil.ToFloat64(m.notifications.WithLabelValues("sent")); got != 1 {
		t.Fatalf("expected 1 sent notification, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "INTERNAL")
	m.RecordAdoptionTransition("rejected")
	m.RecordNotification("failed")
	if m.Registry() != nil {
		t.Fatal("nil metrics must not expose a registry")
	}
}

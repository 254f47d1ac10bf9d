package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/api/health", "200", time.Millisecond)
	m.ObserveRun("manual", "success", time.Second)
	m.IncChecked()
	m.IncItemError("save")
	m.IncNotification("sent")
	m.ObserveExtraction("static", "valid", time.Second)
	m.ObserveThrottleWait(time.Second)
}

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncChecked()
	m.ObserveRun("periodic", "success", 2*time.Second)
	m.IncNotification("failed")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"pricewatch_subscriptions_checked_total",
		"pricewatch_runs_total",
		"pricewatch_run_duration_seconds",
		"pricewatch_notifications_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not gathered", want)
		}
	}
}

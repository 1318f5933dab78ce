package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSyncMetricsExports(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.ObserveFlush("ok", 120*time.Millisecond)
	m.IncOutcome("success")
	m.IncOutcome("success")
	m.IncDeduped()
	m.IncDeadLetter("shop-a")
	m.SetQueueDepth(7)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "sync_outcomes_total", "kind", "success"); err != nil {
		t.Fatalf("fetch outcomes: %v", err)
	} else if got != 2 {
		t.Fatalf("expected outcomes=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "sync_dead_letters_total", "shop", "shop-a"); err != nil {
		t.Fatalf("fetch dead letters: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dead_letters=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "sync_flush_duration_seconds", "result", "ok"); err != nil {
		t.Fatalf("fetch flush duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if got := fetchGaugeValue(t, mfs, "sync_queue_depth"); got != 7 {
		t.Fatalf("expected queue depth 7, got %f", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *SyncMetrics
	m.ObserveFlush("ok", time.Second)
	m.IncOutcome("failure")
	m.IncDeduped()
	m.IncDeadLetter("shop")
	m.SetQueueDepth(1)
}

func fetchGaugeValue(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		t.Fatalf("metric %q not found", name)
	}
	if len(mf.GetMetric()) == 0 {
		t.Fatalf("metric %q has no samples", name)
	}
	return mf.GetMetric()[0].GetGauge().GetValue()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

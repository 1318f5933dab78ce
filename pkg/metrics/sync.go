package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records inventory propagation activity.
type SyncMetrics struct {
	flushDuration *prometheus.HistogramVec
	outcomes      *prometheus.CounterVec
	queueDepth    prometheus.Gauge
	eventsDeduped prometheus.Counter
	deadLetters   *prometheus.CounterVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	flushDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_flush_duration_seconds",
		Help:    "Duration of propagation queue flush ticks in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_outcomes_total",
		Help: "Sync attempts by outcome kind.",
	}, []string{"kind"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_queue_depth",
		Help: "Pending inventory updates awaiting flush.",
	})
	eventsDeduped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_events_deduped_total",
		Help: "Inbound events dropped as duplicate deliveries.",
	})
	deadLetters := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_dead_letters_total",
		Help: "Sub-batches routed to the dead-letter path per shop.",
	}, []string{"shop"})
	reg.MustRegister(flushDuration, outcomes, queueDepth, eventsDeduped, deadLetters)
	return &SyncMetrics{
		flushDuration: flushDuration,
		outcomes:      outcomes,
		queueDepth:    queueDepth,
		eventsDeduped: eventsDeduped,
		deadLetters:   deadLetters,
	}
}

// ObserveFlush records one flush tick.
func (m *SyncMetrics) ObserveFlush(result string, duration time.Duration) {
	if m == nil || m.flushDuration == nil {
		return
	}
	m.flushDuration.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

// IncOutcome counts one sync attempt by outcome kind.
func (m *SyncMetrics) IncOutcome(kind string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(kind)).Inc()
}

// SetQueueDepth publishes the current pending-update backlog.
func (m *SyncMetrics) SetQueueDepth(depth int) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// IncDeduped counts one duplicate delivery dropped by the gate.
func (m *SyncMetrics) IncDeduped() {
	if m == nil || m.eventsDeduped == nil {
		return
	}
	m.eventsDeduped.Inc()
}

// IncDeadLetter counts one dead-lettered sub-batch for the shop.
func (m *SyncMetrics) IncDeadLetter(shop string) {
	if m == nil || m.deadLetters == nil {
		return
	}
	m.deadLetters.WithLabelValues(normalizeLabel(shop)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

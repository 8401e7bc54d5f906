package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	ActiveSessions   prometheus.Gauge
	SessionEvents    *prometheus.CounterVec
	MessagesByIntent *prometheus.CounterVec
	LowConfidence    prometheus.Counter
	WSMessages       *prometheus.CounterVec
	DispatchOutcomes *prometheus.CounterVec
	DispatchLatency  *prometheus.HistogramVec

	latency *latencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active chat sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		MessagesByIntent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Processed chat messages by classified intent.",
		}, []string{"intent"}),
		LowConfidence: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_confidence_total",
			Help:      "Messages answered with a clarification because confidence was below threshold.",
		}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		DispatchOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Provider dispatches by intent and outcome.",
		}, []string{"intent", "outcome"}),
		DispatchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_latency_ms",
			Help:      "Provider dispatch latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000},
		}, []string{"intent"}),
		latency: newLatencyWindow(512, nil),
	}
}

func (m *Metrics) ObserveMessage(intentName string) {
	if m == nil {
		return
	}
	m.MessagesByIntent.WithLabelValues(intentName).Inc()
}

func (m *Metrics) ObserveLowConfidence() {
	if m == nil {
		return
	}
	m.LowConfidence.Inc()
	m.latency.recordLowConfidence()
}

func (m *Metrics) ObserveSessionEvent(event string, active int) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
	m.ActiveSessions.Set(float64(active))
}

func (m *Metrics) ObserveWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

func (m *Metrics) ObserveDispatch(intentName, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.DispatchOutcomes.WithLabelValues(intentName, outcome).Inc()
	m.DispatchLatency.WithLabelValues(intentName).Observe(float64(d.Milliseconds()))
	m.latency.recordOutcome(intentName, outcome == "success")
}

// ObserveTurnStage records one latency sample for the perf endpoint.
func (m *Metrics) ObserveTurnStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.record(stage, float64(d.Microseconds())/1000)
}

func (m *Metrics) LatencySnapshot() LatencySnapshot {
	if m == nil {
		return newLatencyWindow(0, nil).snapshot(time.Now())
	}
	return m.latency.snapshot(time.Now())
}

func (m *Metrics) ResetLatency() {
	if m == nil {
		return
	}
	m.latency.reset()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

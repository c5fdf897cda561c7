package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions  prometheus.Gauge
	TurnsTotal      *prometheus.CounterVec
	TurnLatency     prometheus.Histogram
	CapabilityCalls *prometheus.CounterVec
	StoreErrors     *prometheus.CounterVec
	RiskAssessments *prometheus.CounterVec
	WSMessages      *prometheus.CounterVec

	turnStages *turnStageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live authenticated sessions.",
		}),
		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by outcome.",
		}, []string{"outcome"}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_seconds",
			Help:      "End-to-end conversation turn latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		CapabilityCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_calls_total",
			Help:      "Assistant capability invocations by capability and outcome.",
		}, []string{"capability", "outcome"}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Persistence failures by store.",
		}, []string{"store"}),
		RiskAssessments: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_assessments_total",
			Help:      "Messages flagged by the risk screen, by level.",
		}, []string{"level"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		turnStages: newTurnStageWindow(256),
	}
}

// ObserveTurnStage records a stage duration in the rolling latency window.
func (m *Metrics) ObserveTurnStage(stage string, d time.Duration) {
	if m == nil || m.turnStages == nil {
		return
	}
	m.turnStages.Observe(stage, float64(d.Microseconds())/1000)
}

// SnapshotTurnStages returns percentile stats for recent turn stages.
func (m *Metrics) SnapshotTurnStages() TurnStageSnapshot {
	if m == nil || m.turnStages == nil {
		return TurnStageSnapshot{GeneratedAt: time.Now().UTC()}
	}
	return m.turnStages.Snapshot()
}

// ResetTurnStages clears the rolling window.
func (m *Metrics) ResetTurnStages() {
	if m != nil {
		m.turnStages.Reset()
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

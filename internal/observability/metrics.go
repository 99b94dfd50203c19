// Package observability groups the service's Prometheus instruments and an
// in-process latency window for the perf endpoint.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Turn pipeline stage names used for latency labelling.
const (
	StageTranscribe    = "transcribe"
	StageGenerate      = "generate"
	StageFirstAudio    = "first_audio"
	StageSynthesizeAll = "synthesize_all"
	StageTurnTotal     = "turn_total"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions   prometheus.Gauge
	SessionEvents    *prometheus.CounterVec
	WSMessages       *prometheus.CounterVec
	TurnOutcomes     *prometheus.CounterVec
	ProviderErrors   *prometheus.CounterVec
	TurnStageLatency *prometheus.HistogramVec

	stageWindow *turnStageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active realtime voice sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		TurnOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_outcomes_total",
			Help:      "Completed turns by outcome.",
		}, []string{"outcome"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		TurnStageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_stage_latency_ms",
			Help:      "Per-stage turn pipeline latency in milliseconds.",
			Buckets:   []float64{50, 100, 200, 300, 500, 700, 900, 1200, 2000, 5000},
		}, []string{"stage"}),
		stageWindow: newTurnStageWindow(256),
	}
}

func (m *Metrics) ObserveWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

func (m *Metrics) ObserveTurnOutcome(outcome string) {
	m.TurnOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveProviderError(provider, code string) {
	m.ProviderErrors.WithLabelValues(provider, code).Inc()
}

// RecordTurnStage feeds both the Prometheus histogram and the rolling window
// behind the perf snapshot endpoint.
func (m *Metrics) RecordTurnStage(stage string, d time.Duration) {
	ms := float64(d.Milliseconds())
	m.TurnStageLatency.WithLabelValues(stage).Observe(ms)
	m.stageWindow.Observe(stage, ms)
}

// TurnStagePercentiles returns the current rolling-window latency snapshot.
func (m *Metrics) TurnStagePercentiles() TurnStageSnapshot {
	return m.stageWindow.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

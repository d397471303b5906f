package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics carries the bot's counters on a private registry so tests can
// create instances freely.
type Metrics struct {
	registry *prometheus.Registry

	updatesTotal        *prometheus.CounterVec
	llmDuration         *prometheus.HistogramVec
	transcribeDuration  *prometheus.HistogramVec
	voiceRejectedTotal  *prometheus.CounterVec
	dreamsSavedTotal    *prometheus.CounterVec
	broadcastDeliveries *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		updatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dreambot_updates_total",
				Help: "Telegram updates handled, by kind.",
			},
			[]string{"kind"},
		),
		llmDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dreambot_llm_request_duration_seconds",
				Help:    "Chat completion duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op", "status"},
		),
		transcribeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dreambot_transcription_duration_seconds",
				Help:    "Whisper transcription duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		voiceRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dreambot_voice_rejected_total",
				Help: "Voice messages rejected by the acceptance filter, by reason.",
			},
			[]string{"reason"},
		),
		dreamsSavedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dreambot_dreams_saved_total",
				Help: "Dreams written to the diary, by source kind.",
			},
			[]string{"source"},
		),
		broadcastDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dreambot_broadcast_deliveries_total",
				Help: "Broadcast delivery outcomes.",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.updatesTotal,
		m.llmDuration,
		m.transcribeDuration,
		m.voiceRejectedTotal,
		m.dreamsSavedTotal,
		m.broadcastDeliveries,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) UpdateHandled(kind string) {
	m.updatesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveLLM(op string, d time.Duration, err error) {
	m.llmDuration.WithLabelValues(op, status(err)).Observe(d.Seconds())
}

func (m *Metrics) ObserveTranscription(d time.Duration, err error) {
	m.transcribeDuration.WithLabelValues(status(err)).Observe(d.Seconds())
}

func (m *Metrics) VoiceRejected(reason string) {
	m.voiceRejectedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) DreamSaved(source string) {
	m.dreamsSavedTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) BroadcastDelivery(outcome string, n int) {
	m.broadcastDeliveries.WithLabelValues(outcome).Add(float64(n))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/docsorter/internal/core/domain"
)

const namespace = "docsorter"

type PipelineMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        prometheus.Histogram
	queueDepth      prometheus.Gauge
}

func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Documents processed by final status.",
		},
		[]string{"status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "document_duration_seconds",
			Help:      "Time from dequeue to the end of the pipeline by final status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "documents_in_flight",
			Help:      "Documents currently in the pipeline.",
		},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "queue_lag_seconds",
			Help:      "Delay between discovery and dequeue.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
	)
	queueDepth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "queue_depth",
			Help:      "Documents waiting in the intake queue.",
		},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, queueDepth)

	return &PipelineMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		queueDepth:      queueDepth,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterDroppedNotifications exposes the notification channel's drop
// counter.
func (m *PipelineMetrics) RegisterDroppedNotifications(dropped func() uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "events_dropped_total",
			Help:      "Progress events discarded because observers fell behind.",
		},
		func() float64 { return float64(dropped()) },
	))
}

func (m *PipelineMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *PipelineMetrics) FinishDocument(status domain.DocumentStatus, duration time.Duration) {
	m.processInFlight.Dec()
	m.processTotal.WithLabelValues(string(status)).Inc()
	m.processDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}

func (m *PipelineMetrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

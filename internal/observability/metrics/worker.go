package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics observes the ingestion pipeline. It implements the
// pipeline observer contract consumed by the process use case.
type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	batchTotal     *prometheus.CounterVec
	batchDuration  *prometheus.HistogramVec
	batchInFlight  prometheus.Gauge
	recordOutcomes *prometheus.CounterVec
	scoreHistogram prometheus.Histogram
	chunkRetries   *prometheus.CounterVec
	queueLag       prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	batchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litscreen",
			Subsystem: "worker",
			Name:      "batch_process_total",
			Help:      "Total processed ingestion batches by terminal status.",
		},
		[]string{"service", "status"},
	)
	batchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "litscreen",
			Subsystem: "worker",
			Name:      "batch_process_duration_seconds",
			Help:      "Ingestion batch processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	batchInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "litscreen",
			Subsystem: "worker",
			Name:      "batch_process_in_flight",
			Help:      "Number of in-flight ingestion batches.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	recordOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litscreen",
			Subsystem: "pipeline",
			Name:      "record_outcomes_total",
			Help:      "Screened records by outcome (accepted, duplicate, skipped).",
		},
		[]string{"service", "outcome"},
	)
	scoreHistogram := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "litscreen",
			Subsystem: "pipeline",
			Name:      "relevance_score",
			Help:      "Distribution of normalized relevance scores.",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chunkRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litscreen",
			Subsystem: "pipeline",
			Name:      "chunk_retries_total",
			Help:      "Retried extraction-chunk submissions by queue.",
		},
		[]string{"service", "queue"},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "litscreen",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between batch submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(batchTotal, batchDuration, batchInFlight, recordOutcomes, scoreHistogram, chunkRetries, queueLag)

	return &WorkerMetrics{
		service:        service,
		registry:       registry,
		batchTotal:     batchTotal,
		batchDuration:  batchDuration,
		batchInFlight:  batchInFlight,
		recordOutcomes: recordOutcomes,
		scoreHistogram: scoreHistogram,
		chunkRetries:   chunkRetries,
		queueLag:       queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartBatch() {
	m.batchInFlight.Inc()
}

func (m *WorkerMetrics) FinishBatch(duration time.Duration, err error) {
	m.batchInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.batchTotal.WithLabelValues(m.service, status).Inc()
	m.batchDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordOutcome(outcome string) {
	m.recordOutcomes.WithLabelValues(m.service, outcome).Inc()
}

func (m *WorkerMetrics) ScoreComputed(score int) {
	m.scoreHistogram.Observe(float64(score))
}

func (m *WorkerMetrics) ChunkRetried(queue string) {
	m.chunkRetries.WithLabelValues(m.service, queue).Inc()
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}

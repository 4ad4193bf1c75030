package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes forecasting pipeline metrics via Prometheus.
type Recorder struct {
	forecastsTotal    *prometheus.CounterVec
	predictedQuantity *prometheus.HistogramVec
	confidenceScore   prometheus.Histogram
	errorsTotal       *prometheus.CounterVec
	opLatency         *prometheus.HistogramVec
}

// NewRecorder registers all collectors on the default registry.
func NewRecorder() *Recorder {
	return &Recorder{
		forecastsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "demandcast",
				Name:      "forecasts_total",
				Help:      "Total forecasts produced",
			},
			[]string{"store_id", "product_id"},
		),
		predictedQuantity: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "demandcast",
				Name:      "predicted_quantity",
				Help:      "Distribution of predicted quantities",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"store_id", "product_id"},
		),
		confidenceScore: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "demandcast",
				Name:      "confidence_score",
				Help:      "Distribution of forecast confidence scores",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "demandcast",
				Name:      "pipeline_errors_total",
				Help:      "Pipeline errors by kind",
			},
			[]string{"kind"},
		),
		opLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "demandcast",
				Name:      "operation_seconds",
				Help:      "Latency of pipeline operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
}

func (r *Recorder) RecordForecast(storeID, productID string) {
	r.forecastsTotal.WithLabelValues(storeID, productID).Inc()
}

func (r *Recorder) RecordPredictedQuantity(storeID, productID string, qty float64) {
	r.predictedQuantity.WithLabelValues(storeID, productID).Observe(qty)
}

func (r *Recorder) RecordConfidence(score float64) {
	r.confidenceScore.Observe(score)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.opLatency.WithLabelValues(op).Observe(seconds)
}

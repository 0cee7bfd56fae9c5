// Package metrics holds the Prometheus instruments for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	IDsGenerated         prometheus.Counter
	Translations         *prometheus.CounterVec
	ProvenanceRejections prometheus.Counter
	BatchItems           *prometheus.CounterVec
	MappingStoreWrites   prometheus.Counter
	TranslateDurationMs  prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a specific registerer. Tests pass a fresh
// registry so repeated construction never panics on duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IDsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "idbridge_ids_generated_total",
			Help: "Total number of hybrid identifier pairs generated",
		}),
		Translations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idbridge_translations_total",
			Help: "Total number of translation lookups by direction and source",
		}, []string{"direction", "source"}),
		ProvenanceRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "idbridge_provenance_rejections_total",
			Help: "Total number of generation calls rejected by the provenance gate",
		}),
		BatchItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idbridge_batch_items_total",
			Help: "Total number of batch translation items by outcome",
		}, []string{"outcome"}),
		MappingStoreWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "idbridge_mapping_store_writes_total",
			Help: "Total number of mapping records persisted",
		}),
		TranslateDurationMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "idbridge_translate_duration_ms",
			Help:    "Latency of single translation requests in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		}),
	}
}

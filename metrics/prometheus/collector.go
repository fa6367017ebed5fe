// Package prometheus exports index metrics to Prometheus.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/mrpt"
)

const namespace = "mrpt"

// Collector implements mrpt.MetricsCollector with Prometheus metrics.
type Collector struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	candidates   prometheus.Histogram
	populationSz prometheus.Gauge
	savedBytes   prometheus.Counter
}

// NewCollector registers the index metrics with reg. A nil reg uses the
// default registerer. constLabels distinguish several indexes in one process.
func NewCollector(reg prometheus.Registerer, constLabels prometheus.Labels) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "operations_total",
				Help:        "The total number of index operations",
				ConstLabels: constLabels,
			},
			[]string{"operation", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "operation_duration_seconds",
				Help:        "Duration of index operations",
				Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 10),
				ConstLabels: constLabels,
			},
			[]string{"operation"},
		),
		candidates: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "query_candidates",
				Help:        "Size of the candidate union ranked per query",
				Buckets:     prometheus.ExponentialBuckets(1, 2, 16),
				ConstLabels: constLabels,
			},
		),
		populationSz: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "population_size",
				Help:        "Number of descriptors in the last successful build",
				ConstLabels: constLabels,
			},
		),
		savedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "saved_bytes_total",
				Help:        "Total bytes of artifacts written",
				ConstLabels: constLabels,
			},
		),
	}
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.operations.WithLabelValues(op, status).Inc()
	c.duration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordBuild implements mrpt.MetricsCollector.
func (c *Collector) RecordBuild(size int, d time.Duration, err error) {
	c.observe("build", d, err)
	if err == nil {
		c.populationSz.Set(float64(size))
	}
}

// RecordQuery implements mrpt.MetricsCollector.
func (c *Collector) RecordQuery(_ int, candidates int, d time.Duration, err error) {
	c.observe("query", d, err)
	if err == nil {
		c.candidates.Observe(float64(candidates))
	}
}

// RecordSave implements mrpt.MetricsCollector.
func (c *Collector) RecordSave(bytes int, d time.Duration, err error) {
	c.observe("save", d, err)
	if err == nil {
		c.savedBytes.Add(float64(bytes))
	}
}

// RecordLoad implements mrpt.MetricsCollector.
func (c *Collector) RecordLoad(d time.Duration, err error) {
	c.observe("load", d, err)
}

var _ mrpt.MetricsCollector = (*Collector)(nil)

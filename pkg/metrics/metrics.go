// Package metrics exports HX711 readings as Prometheus metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yunginnanet/ftdi-hx711/pkg/hx711"
)

// Failure reasons
const (
	ReasonTimeout = "timeout"
	ReasonState   = "state"
	ReasonIO      = "io"
)

// Collector implements [hx711.Observer] and [prometheus.Collector].
type Collector struct {
	samples    prometheus.Counter
	failures   *prometheus.CounterVec
	lastRaw    prometheus.Gauge
	lastWeight prometheus.Gauge
}

var _ hx711.Observer = (*Collector)(nil)

// New returns a Collector whose metrics carry a constant "cell" label.
func New(namespace, cell string) *Collector {
	labels := prometheus.Labels{"cell": cell}
	return &Collector{
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "samples_total",
			Help:        "Conversion results read from the converter.",
			ConstLabels: labels,
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "sample_failures_total",
			Help:        "Reads that produced no conversion result, by reason.",
			ConstLabels: labels,
		}, []string{"reason"}),
		lastRaw: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "raw",
			Help:        "Last sign-extended conversion result.",
			ConstLabels: labels,
		}),
		lastWeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "weight_grams",
			Help:        "Last computed weight in grams.",
			ConstLabels: labels,
		}),
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, hx711.ErrNotReady):
		return ReasonTimeout
	case errors.Is(err, hx711.ErrNotInitialized), errors.Is(err, hx711.ErrPoweredDown):
		return ReasonState
	default:
		return ReasonIO
	}
}

// ObserveSample counts a read and records its result.
func (c *Collector) ObserveSample(raw int32, err error) {
	if err != nil {
		c.failures.WithLabelValues(reason(err)).Inc()
		return
	}
	c.samples.Inc()
	c.lastRaw.Set(float64(raw))
}

// ObserveWeight records a computed weight.
func (c *Collector) ObserveWeight(grams float32) {
	c.lastWeight.Set(float64(grams))
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.samples.Describe(ch)
	c.failures.Describe(ch)
	c.lastRaw.Describe(ch)
	c.lastWeight.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.samples.Collect(ch)
	c.failures.Collect(ch)
	c.lastRaw.Collect(ch)
	c.lastWeight.Collect(ch)
}

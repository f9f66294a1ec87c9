// Package observability bundles the Prometheus metrics flowscope exports
// and helpers to serve them over HTTP.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcome label values.
const (
	FetchOK          = "ok"
	FetchUnavailable = "unavailable"
	FetchMalformed   = "malformed"
)

// Collector bundles Prometheus metrics for the load pipeline and the
// sampling surface.
type Collector struct {
	gatherer prometheus.Gatherer

	LoadsStarted   prometheus.Counter
	LoadsCompleted prometheus.Counter
	LoadsFailed    prometheus.Counter
	LoadsStale     prometheus.Counter

	Fetches       *prometheus.CounterVec
	Discrepancies *prometheus.CounterVec
	SampleCalls   prometheus.Counter

	GridLength   prometheus.Gauge
	GridDuration prometheus.Gauge
}

// NewCollector registers flowscope metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		LoadsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowscope_loads_started_total",
			Help: "Total number of selection loads started.",
		}),
		LoadsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowscope_loads_completed_total",
			Help: "Total number of selection loads committed.",
		}),
		LoadsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowscope_loads_failed_total",
			Help: "Total number of selection loads that failed fatally.",
		}),
		LoadsStale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowscope_loads_stale_total",
			Help: "Total number of loads discarded because a newer selection superseded them.",
		}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowscope_fetches_total",
			Help: "Total resource fetches, labeled by outcome.",
		}, []string{"outcome"}),
		Discrepancies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowscope_alignment_events_total",
			Help: "Total alignment diagnostics, labeled by event kind.",
		}, []string{"kind"}),
		SampleCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowscope_sample_calls_total",
			Help: "Total snapshot sampling calls served.",
		}),
		GridLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowscope_grid_length",
			Help: "Grid length of the currently committed selection.",
		}),
		GridDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowscope_grid_duration_seconds",
			Help: "Grid duration of the currently committed selection.",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.LoadsStarted, c.LoadsCompleted, c.LoadsFailed, c.LoadsStale,
		c.Fetches, c.Discrepancies, c.SampleCalls,
		c.GridLength, c.GridDuration,
	} {
		if err := reg.Register(col); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}

	return c, nil
}

// Handler returns an HTTP handler exposing the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Nop returns a collector registered against a throwaway registry, for
// tests and for callers that do not export metrics.
func Nop() *Collector {
	c, err := NewCollector(prometheus.NewRegistry())
	if err != nil {
		panic(err)
	}
	return c
}

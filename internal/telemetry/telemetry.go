package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures client provisioning and prefetch events.
//
// Hooks run inline on the request path and must be cheap.
type Collector interface {
	IncClientCreated(env string)
	IncClientReused(key string)
	ObservePrefetch(passes, fetches int)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncClientCreated(string)  {}
func (noopCollector) IncClientReused(string)   {}
func (noopCollector) ObservePrefetch(int, int) {}

// PrometheusCollector exposes the events as Prometheus metrics.
type PrometheusCollector struct {
	clientsCreated  *prometheus.CounterVec
	clientsReused   *prometheus.CounterVec
	prefetchPasses  prometheus.Histogram
	prefetchFetches prometheus.Counter
}

// NewPrometheusCollector registers the metrics with reg. Registering twice
// against the same registerer reuses the existing metrics.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	created, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bifrost_graphql_clients_created_total",
		Help: "GraphQL client instances constructed, by execution environment.",
	}, []string{"environment"}))
	if err != nil {
		return nil, err
	}

	reused, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bifrost_graphql_clients_reused_total",
		Help: "Browser-side registry hits, by cache key.",
	}, []string{"cache_key"}))
	if err != nil {
		return nil, err
	}

	passes, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bifrost_graphql_prefetch_passes",
		Help:    "Render passes needed for a prefetch to settle.",
		Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
	}))
	if err != nil {
		return nil, err
	}

	fetches, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bifrost_graphql_prefetch_fetches_total",
		Help: "Operations fetched by prefetch passes.",
	}))
	if err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		clientsCreated:  created,
		clientsReused:   reused,
		prefetchPasses:  passes,
		prefetchFetches: fetches,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

func (p *PrometheusCollector) IncClientCreated(env string) {
	if p == nil {
		return
	}
	p.clientsCreated.WithLabelValues(env).Inc()
}

func (p *PrometheusCollector) IncClientReused(key string) {
	if p == nil {
		return
	}
	p.clientsReused.WithLabelValues(key).Inc()
}

func (p *PrometheusCollector) ObservePrefetch(passes, fetches int) {
	if p == nil {
		return
	}
	p.prefetchPasses.Observe(float64(passes))
	if fetches > 0 {
		p.prefetchFetches.Add(float64(fetches))
	}
}

package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestNoopCollector(t *testing.T) {
	collector := Noop()
	require.NotNil(t, collector)
	collector.IncClientCreated("server")
	collector.IncClientReused("CLIENT_default")
	collector.ObservePrefetch(1, 0)
}

func TestPrometheusCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	collector.IncClientCreated("server")
	collector.IncClientCreated("server")
	collector.IncClientReused("CLIENT_default")
	collector.ObservePrefetch(3, 2)

	families := gather(t, reg)

	created := families["bifrost_graphql_clients_created_total"]
	require.NotNil(t, created)
	require.Len(t, created.Metric, 1)
	require.Equal(t, "server", created.Metric[0].Label[0].GetValue())
	require.Equal(t, 2.0, created.Metric[0].Counter.GetValue())

	reused := families["bifrost_graphql_clients_reused_total"]
	require.NotNil(t, reused)
	require.Equal(t, "CLIENT_default", reused.Metric[0].Label[0].GetValue())

	passes := families["bifrost_graphql_prefetch_passes"]
	require.NotNil(t, passes)
	require.Equal(t, uint64(1), passes.Metric[0].Histogram.GetSampleCount())
	require.Equal(t, 3.0, passes.Metric[0].Histogram.GetSampleSum())

	requireCounterValue(t, families["bifrost_graphql_prefetch_fetches_total"], 2)
}

func TestPrometheusCollectorReusesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	again, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.Same(t, collector.clientsCreated, again.clientsCreated)

	collector.ObservePrefetch(1, 1)
	again.ObservePrefetch(1, 1)
	requireCounterValue(t, gather(t, reg)["bifrost_graphql_prefetch_fetches_total"], 2)
}

func TestNilPrometheusCollectorIsSafe(t *testing.T) {
	var collector *PrometheusCollector
	collector.IncClientCreated("browser")
	collector.IncClientReused("CLIENT_A")
	collector.ObservePrefetch(2, 1)
}

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	metrics, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.MetricFamily, len(metrics))
	for _, mf := range metrics {
		out[mf.GetName()] = mf
	}
	return out
}

func requireCounterValue(t *testing.T, mf *dto.MetricFamily, value float64) {
	t.Helper()
	require.NotNil(t, mf)
	require.Len(t, mf.Metric, 1)
	require.NotNil(t, mf.Metric[0].Counter)
	require.Equal(t, value, mf.Metric[0].Counter.GetValue())
}

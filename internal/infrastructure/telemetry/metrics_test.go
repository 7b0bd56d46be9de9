package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumTotal(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestInstruments(t *testing.T) {
	reader, provider := newTestMeter(t)
	meter := provider.Meter("test")
	ctx := context.Background()

	counter, err := NewCounter(meter, "things_total", "things", "{thing}")
	require.NoError(t, err)
	counter.Inc(ctx)
	counter.Add(ctx, 4)

	updown, err := NewUpDownCounter(meter, "in_flight", "in flight", "{job}")
	require.NoError(t, err)
	updown.Add(ctx, 3)
	updown.Add(ctx, -1)

	hist, err := NewHistogram(meter, HistogramOpts{
		Name:       "wait_seconds",
		Unit:       "s",
		Boundaries: []float64{1, 5},
	})
	require.NoError(t, err)
	hist.RecordDuration(ctx, 2*time.Second)

	gauge, err := NewGauge(meter, "ready", "ready", "{device}")
	require.NoError(t, err)
	gauge.Record(ctx, 7)

	metrics := collect(t, reader)
	assert.Equal(t, int64(5), sumTotal(t, metrics["things_total"]))
	assert.Equal(t, int64(2), sumTotal(t, metrics["in_flight"]))

	h, ok := metrics["wait_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, uint64(1), h.DataPoints[0].Count)
	assert.InDelta(t, 2.0, h.DataPoints[0].Sum, 0.001)
	assert.Equal(t, []float64{1, 5}, h.DataPoints[0].Bounds)

	g, ok := metrics["ready"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, g.DataPoints, 1)
	assert.Equal(t, int64(7), g.DataPoints[0].Value)
}

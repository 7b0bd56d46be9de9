package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(t.Context()) })
	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func newMeteredRouter(t *testing.T, mp *sdkmetric.MeterProvider) *gin.Engine {
	t.Helper()
	mw, err := HTTPMetrics(mp.Meter("test"))
	require.NoError(t, err)
	r := gin.New()
	r.Use(mw)
	r.GET("/jobs/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})
	r.POST("/jobs", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func TestHTTPMetrics_RequestCounter(t *testing.T) {
	mp, reader := setupTestMeter(t)
	r := newMeteredRouter(t, mp)

	for _, path := range []string{"/jobs/1", "/jobs/2", "/jobs/missing"} {
		serve(r, httptest.NewRequest(http.MethodGet, path, nil))
	}
	serve(r, httptest.NewRequest(http.MethodPost, "/jobs", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	m := findMetric(collectMetrics(t, reader), "http_server_request_total")
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		method, _ := dp.Attributes.Value("http.method")
		route, _ := dp.Attributes.Value("http.route")
		status, _ := dp.Attributes.Value("http.status_code")
		counts[method.AsString()+" "+route.AsString()+" "+status.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{
		"GET /jobs/:id 200": 2,
		"GET /jobs/:id 404": 1,
		"POST /jobs 201":    1,
		"GET unmatched 404": 1,
	}, counts)
}

func TestHTTPMetrics_Duration(t *testing.T) {
	mp, reader := setupTestMeter(t)
	r := newMeteredRouter(t, mp)

	serve(r, httptest.NewRequest(http.MethodGet, "/jobs/1", nil))

	m := findMetric(collectMetrics(t, reader), "http_server_request_duration_seconds")
	require.NotNil(t, m)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, "s", m.Unit)
}

func TestHTTPMetrics_ActiveRequests(t *testing.T) {
	mp, reader := setupTestMeter(t)
	mw, err := HTTPMetrics(mp.Meter("test"))
	require.NoError(t, err)

	var during int64
	r := gin.New()
	r.Use(mw)
	r.GET("/slow", func(c *gin.Context) {
		m := findMetric(collectMetrics(t, reader), "http_server_active_requests")
		require.NotNil(t, m)
		during = m.Data.(metricdata.Sum[int64]).DataPoints[0].Value
		c.Status(http.StatusOK)
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.Equal(t, int64(1), during)
	m := findMetric(collectMetrics(t, reader), "http_server_active_requests")
	require.NotNil(t, m)
	sum := m.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Zero(t, sum.DataPoints[0].Value)
	route, _ := sum.DataPoints[0].Attributes.Value(attribute.Key("http.route"))
	assert.Equal(t, "/slow", route.AsString())
}

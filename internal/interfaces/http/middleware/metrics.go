package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/printdesk/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// httpMetrics holds the HTTP server instruments
type httpMetrics struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	inFlight *telemetry.UpDownCounter
}

// HTTPMetrics records request counts, latency and in-flight requests.
// Attributes are the method, the route pattern and the status code.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	requests, err := telemetry.NewCounter(meter,
		"http_server_request_total", "Total number of HTTP requests", "{request}")
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	inFlight, err := telemetry.NewUpDownCounter(meter,
		"http_server_active_requests", "HTTP requests being served", "{request}")
	if err != nil {
		return nil, err
	}
	m := &httpMetrics{requests: requests, duration: duration, inFlight: inFlight}
	return m.handle, nil
}

func (m *httpMetrics) handle(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	base := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", route),
	}
	m.inFlight.Add(ctx, 1, base...)
	defer m.inFlight.Add(ctx, -1, base...)

	c.Next()

	attrs := append(base, attribute.String("http.status_code", strconv.Itoa(c.Writer.Status())))
	m.requests.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, time.Since(start), attrs...)
}

package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics captures low-cardinality HTTP server metrics. Endpoint
// labels use the registered route pattern, never the raw URL, so
// customer ids stay out of label values.
type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	inFlight        metric.Int64UpDownCounter
}

// NewHTTPMetrics creates the HTTP instruments on the shared meter.
func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "churnguard"
	}
	meter := provider.Meter(name + "/http")

	requestDuration, err := meter.Float64Histogram("http.server.duration_ms")
	if err != nil {
		return nil, err
	}
	requestsTotal, err := meter.Int64Counter("http.server.requests")
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("http.server.in_flight")
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		requestDuration: requestDuration,
		requestsTotal:   requestsTotal,
		inFlight:        inFlight,
	}, nil
}

// GinMiddleware records per-request duration, count and in-flight gauge.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		route := routeLabel(c.FullPath())
		ctx := c.Request.Context()
		routeAttrs := metric.WithAttributes(FilterAttributes(attribute.String("route", route))...)

		m.inFlight.Add(ctx, 1, routeAttrs)
		start := time.Now()
		c.Next()
		m.inFlight.Add(ctx, -1, routeAttrs)

		attrs := metric.WithAttributes(FilterAttributes(
			attribute.String("route", route),
			attribute.String("method", c.Request.Method),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)...)
		m.requestsTotal.Add(ctx, 1, attrs)
		m.requestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	}
}

func routeLabel(route string) string {
	route = strings.TrimSpace(route)
	if route == "" {
		// Unmatched requests (404s) share one label to bound cardinality.
		return "unmatched"
	}
	return route
}

package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/conduit-http/conduit/engine"
)

// TelemetryConfig configures the Telemetry observer.
type TelemetryConfig struct {
	// ServiceName names the meter when none is supplied.
	// Defaults to "conduit".
	ServiceName string

	// Meter overrides the meter used to build the instruments. Defaults
	// to the global meter provider under ServiceName; tests inject an
	// sdk meter backed by a manual reader here.
	Meter metric.Meter
}

// Telemetry returns a dispatch observer that records an OpenTelemetry
// request counter and duration histogram for every dispatched request,
// tagged with the HTTP method, the path, and the response status:
//
//	obs, err := handlers.Telemetry(handlers.TelemetryConfig{ServiceName: "my-api"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	e.Observe(obs)
//
// Exporter and provider setup stay with the embedding application; the
// observer only records against whatever meter provider is configured.
func Telemetry(cfg TelemetryConfig) (engine.DispatchObserver, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "conduit"
	}

	meter := cfg.Meter
	if meter == nil {
		meter = otel.Meter(serviceName)
	}

	requests, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Total number of HTTP requests"))
	if err != nil {
		return nil, fmt.Errorf("handlers: build request counter: %w", err)
	}

	duration, err := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("handlers: build duration histogram: %w", err)
	}

	return func(req *engine.Request, resp *engine.Response, elapsed time.Duration) {
		attrs := metric.WithAttributes(
			attribute.String("http.method", req.Method()),
			attribute.String("http.route", pathOnly(req.Path())),
			attribute.Int("http.status_code", resp.Status()),
		)

		ctx := context.Background()
		requests.Add(ctx, 1, attrs)
		duration.Record(ctx, elapsed.Seconds(), attrs)
	}, nil
}

// pathOnly strips the query component so metric cardinality stays bounded
// by the path space.
func pathOnly(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

// Package metrics records operation timings for the storage and queue clients
// through OpenTelemetry. Instruments are always resolved against the global
// MeterProvider, so an application that installs its own provider receives
// them. EnsureInit installs a Prometheus-backed provider when none is set up
// by the application.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const scope = "github.com/markberger/awswrappers"

// Config controls the Prometheus exporter.
type Config struct {
	Enabled bool `env:"AWSW_METRICS_ENABLED" envDefault:"false"`
}

var (
	mu       sync.Mutex
	provider *sdkmetric.MeterProvider
	handler  http.Handler = http.NotFoundHandler()
)

// Meter returns the meter for this module from the global provider.
func Meter() metric.Meter {
	return otel.Meter(scope)
}

// Init installs a MeterProvider exporting to a private Prometheus registry and
// returns its shutdown function. It is a no-op when cfg.Enabled is false.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	mu.Lock()
	defer mu.Unlock()

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	log.Debug("Prometheus metrics exporter installed")
	return provider.Shutdown, nil
}

var initOnce sync.Once

// EnsureInit calls Init at most once per process. Errors are logged; metrics
// are best effort and never fail a client constructor.
func EnsureInit(ctx context.Context, cfg Config) {
	initOnce.Do(func() {
		if _, err := Init(ctx, cfg); err != nil {
			log.WithError(err).Warn("Failed to initialize metrics")
		}
	})
}

// Handler serves the Prometheus registry populated by Init. Before Init it
// responds 404.
func Handler() http.Handler {
	mu.Lock()
	defer mu.Unlock()
	return handler
}

// RecordOperation records the duration of one client call.
func RecordOperation(ctx context.Context, service, operation string, start time.Time, err error) {
	duration, _ := Meter().Float64Histogram("awswrappers_operation_duration", metric.WithUnit("s"))

	status := "success"
	if err != nil {
		status = "error"
	}
	duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

// AddMessages counts messages moved through a queue in the given direction
// ("sent" or "received").
func AddMessages(ctx context.Context, direction string, n int) {
	if n <= 0 {
		return
	}
	counter, _ := Meter().Int64Counter("awswrappers_messages_" + direction)
	counter.Add(ctx, int64(n))
}

// Package metrics records service metrics with OpenTelemetry and exposes
// them in Prometheus format.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Collector reports row counts of the storage tables
type Collector interface {
	Stats(ctx context.Context) (map[string]any, error)
}

// Recorder implements provider.MetricsRecorder
type Recorder struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *promclient.Registry
	collector     Collector

	meter           metric.Meter
	responses       metric.Int64Counter
	categories      metric.Int64Counter
	webhooks        metric.Int64Counter
	gatewayCalls    metric.Int64Counter
	gatewayDuration metric.Float64Histogram
	httpDuration    metric.Float64Histogram
	storedRowsGauge metric.Int64ObservableGauge
}

// NewRecorder creates the instruments on a private Prometheus registry.
// collector may be nil.
func NewRecorder(collector Collector) (*Recorder, error) {
	registry := promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	r := &Recorder{
		meterProvider: meterProvider,
		registry:      registry,
		collector:     collector,
		meter:         meterProvider.Meter("vrpay", metric.WithInstrumentationVersion("1.0.0")),
	}

	if err := r.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}
	return r, nil
}

func (r *Recorder) registerInstruments() error {
	var err error

	r.responses, err = r.meter.Int64Counter(
		"vrpay.responses",
		metric.WithDescription("Stored gateway responses by kind and outcome"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return fmt.Errorf("creating responses counter: %w", err)
	}

	r.categories, err = r.meter.Int64Counter(
		"vrpay.result.categories",
		metric.WithDescription("Result code categories seen in stored responses"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return fmt.Errorf("creating categories counter: %w", err)
	}

	r.webhooks, err = r.meter.Int64Counter(
		"vrpay.webhooks",
		metric.WithDescription("Webhook deliveries by result"),
		metric.WithUnit("{webhook}"),
	)
	if err != nil {
		return fmt.Errorf("creating webhooks counter: %w", err)
	}

	r.gatewayCalls, err = r.meter.Int64Counter(
		"vrpay.gateway.calls",
		metric.WithDescription("HTTP calls to the payment gateway"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return fmt.Errorf("creating gateway calls counter: %w", err)
	}

	r.gatewayDuration, err = r.meter.Float64Histogram(
		"vrpay.gateway.duration",
		metric.WithDescription("Latency of payment gateway calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating gateway duration histogram: %w", err)
	}

	r.httpDuration, err = r.meter.Float64Histogram(
		"vrpay.http.server.duration",
		metric.WithDescription("Latency of API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating http duration histogram: %w", err)
	}

	if r.collector != nil {
		r.storedRowsGauge, err = r.meter.Int64ObservableGauge(
			"vrpay.storage.rows",
			metric.WithDescription("Rows per storage table"),
			metric.WithUnit("{row}"),
			metric.WithInt64Callback(r.observeStoredRows),
		)
		if err != nil {
			return fmt.Errorf("creating storage rows gauge: %w", err)
		}
	}

	return nil
}

func (r *Recorder) observeStoredRows(ctx context.Context, observer metric.Int64Observer) error {
	stats, err := r.collector.Stats(ctx)
	if err != nil {
		return err
	}

	for table, v := range stats {
		count, ok := v.(int64)
		if !ok || table == "db_size_bytes" {
			continue
		}
		observer.Observe(count, metric.WithAttributes(
			attribute.String("table", table),
		))
	}
	return nil
}

func (r *Recorder) ObserveResponse(ctx context.Context, kind string, outcome string, categories []string) {
	r.responses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
	for _, c := range categories {
		r.categories.Add(ctx, 1, metric.WithAttributes(attribute.String("category", c)))
	}
}

func (r *Recorder) ObserveWebhook(ctx context.Context, result string) {
	r.webhooks.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (r *Recorder) ObserveGatewayCall(ctx context.Context, operation string, statusCode int, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status_code", strconv.Itoa(statusCode)),
	)
	r.gatewayCalls.Add(ctx, 1, attrs)
	r.gatewayDuration.Record(ctx, d.Seconds(), attrs)
}

// Middleware records the latency of each request under its route pattern
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.httpDuration.Record(req.Context(), time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("method", req.Method),
			attribute.String("route", route),
			attribute.String("status_code", strconv.Itoa(status)),
		))
	})
}

// Handler serves the Prometheus exposition of the recorder's registry
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r.meterProvider != nil {
		return r.meterProvider.Shutdown(ctx)
	}
	return nil
}

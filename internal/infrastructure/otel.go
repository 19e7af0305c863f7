package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"gctidash/internal/config"
)

// InstrumentationName names the tracer and meter of the dashboard
const InstrumentationName = "gctidash"

// Telemetry holds the OpenTelemetry providers and the dashboard metrics
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	// MetricsHandler serves the Prometheus exposition; nil when metrics are off
	MetricsHandler http.Handler
	Metrics        *DashboardMetrics
	logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics from cfg. Tracing uses the
// stdout exporter or stays a no-op; metrics are exported through a private
// Prometheus registry so several instances can coexist in one process.
func InitializeOTel(cfg config.TelemetryConfig, version string, logger *slog.Logger) (*Telemetry, error) {
	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", version),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled))

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	tel := &Telemetry{logger: logger}

	if err := tel.initializeTracing(ctx, cfg, version, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := tel.initializeMetrics(ctx, cfg, version, res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metrics, err := NewDashboardMetrics(tel.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard metrics: %w", err)
	}
	tel.Metrics = metrics

	return tel, nil
}

func (t *Telemetry) initializeTracing(ctx context.Context, cfg config.TelemetryConfig, version string, res *resource.Resource) error {
	switch cfg.TraceExporter {
	case "", "none":
		t.Tracer = otel.Tracer(InstrumentationName)
		return nil
	case "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	t.TracerProvider = tp
	t.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(version))
	otel.SetTracerProvider(tp)

	t.logger.InfoContext(ctx, "Tracing initialized", slog.String("exporter", cfg.TraceExporter))
	return nil
}

func (t *Telemetry) initializeMetrics(ctx context.Context, cfg config.TelemetryConfig, version string, res *resource.Resource) error {
	if !cfg.MetricsEnabled {
		t.Meter = noop.NewMeterProvider().Meter(InstrumentationName)
		return nil
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.MeterProvider = mp
	t.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(version))
	t.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	t.logger.InfoContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))
	return nil
}

// Shutdown flushes and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	t.logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// DashboardMetrics holds the application-specific instruments
type DashboardMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	DatasetGenerations        metric.Int64Counter
	DatasetGenerationDuration metric.Float64Histogram
	DatasetCacheLookups       metric.Int64Counter

	UploadsTotal          metric.Int64Counter
	InsufficientDataTotal metric.Int64Counter

	WebSocketConnections metric.Int64UpDownCounter
}

// NewDashboardMetrics creates the dashboard instruments on meter
func NewDashboardMetrics(meter metric.Meter) (*DashboardMetrics, error) {
	var (
		m    DashboardMetrics
		errs []error
		err  error
	)

	m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"))
	errs = append(errs, err)

	m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"))
	errs = append(errs, err)

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"))
	errs = append(errs, err)

	m.DatasetGenerations, err = meter.Int64Counter("dataset_generations_total",
		metric.WithDescription("Number of synthetic datasets generated"))
	errs = append(errs, err)

	m.DatasetGenerationDuration, err = meter.Float64Histogram("dataset_generation_duration_seconds",
		metric.WithDescription("Synthetic dataset generation time in seconds"),
		metric.WithUnit("s"))
	errs = append(errs, err)

	m.DatasetCacheLookups, err = meter.Int64Counter("dataset_cache_lookups_total",
		metric.WithDescription("Dataset cache lookups by result"))
	errs = append(errs, err)

	m.UploadsTotal, err = meter.Int64Counter("uploads_total",
		metric.WithDescription("Uploaded files by format and outcome"))
	errs = append(errs, err)

	m.InsufficientDataTotal, err = meter.Int64Counter("insufficient_data_total",
		metric.WithDescription("Views answered with an insufficient data notice"))
	errs = append(errs, err)

	m.WebSocketConnections, err = meter.Int64UpDownCounter("websocket_connections",
		metric.WithDescription("Number of open WebSocket connections"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordCacheLookup counts a dataset cache hit or miss
func (m *DashboardMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.DatasetCacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordGeneration counts one dataset generation and its duration
func (m *DashboardMetrics) RecordGeneration(ctx context.Context, rows int, took time.Duration) {
	if m == nil {
		return
	}
	m.DatasetGenerations.Add(ctx, 1)
	m.DatasetGenerationDuration.Record(ctx, took.Seconds(),
		metric.WithAttributes(attribute.Int("rows", rows)))
}

// RecordUpload counts an upload attempt by format and outcome
func (m *DashboardMetrics) RecordUpload(ctx context.Context, format, outcome string) {
	if m == nil {
		return
	}
	m.UploadsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("outcome", outcome),
	))
}

// RecordInsufficientData counts a view that had no data to summarize
func (m *DashboardMetrics) RecordInsufficientData(ctx context.Context, view string) {
	if m == nil {
		return
	}
	m.InsufficientDataTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("view", view)))
}

// RecordHTTPRequest records one completed HTTP request
func (m *DashboardMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status_code", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, took.Seconds(), attrs)
}

// WebSocketDelta adjusts the open WebSocket connection gauge
func (m *DashboardMetrics) WebSocketDelta(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketConnections.Add(ctx, delta)
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts the OpenTelemetry trace ID from context
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

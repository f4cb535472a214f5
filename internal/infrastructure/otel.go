package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"crimestats/internal/config"
)

const (
	ServiceVersion = config.AppVersion
	MeterName      = "crimestats"
)

// Telemetry holds the tracer and meter of one run. Providers are not
// installed globally. A nil *Telemetry is valid and records nothing.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Registry       *prometheus.Registry
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *PipelineMetrics
	logger         *slog.Logger
}

// PipelineMetrics holds all ETL metrics
type PipelineMetrics struct {
	StageExecutions metric.Int64Counter
	StageDuration   metric.Float64Histogram
	StageErrors     metric.Int64Counter
	RowsIn          metric.Int64Counter
	RowsOut         metric.Int64Counter
	LoadOutcomes    metric.Int64Counter
	RepairOutcomes  metric.Int64Counter
}

// NewTelemetry sets up tracing and metrics for a run. Metrics are exported
// through the OpenTelemetry Prometheus bridge into a private registry that
// also carries the Go runtime and process collectors.
func NewTelemetry(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	logger = OrDefault(logger)

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = config.AppName
	}

	res := createResource(serviceName)

	t := &Telemetry{logger: logger}

	if err := t.initializeTracing(cfg, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := t.initializeMetrics(res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.DebugContext(ctx, "Telemetry initialized",
		slog.String("service", serviceName),
		slog.String("trace_exporter", cfg.TraceExporter))

	return t, nil
}

// createResource creates the OpenTelemetry resource
func createResource(serviceName string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(ServiceVersion),
		attribute.String("service.instance.id", generateInstanceID()),
	)
}

func (t *Telemetry) initializeTracing(cfg config.TelemetryConfig, res *resource.Resource) error {
	switch cfg.TraceExporter {
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		ratio := cfg.SampleRatio
		if ratio <= 0 {
			ratio = 1.0
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(ratio)),
		)
		t.TracerProvider = tp
		t.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(ServiceVersion))
	case "none", "":
		t.Tracer = noop.NewTracerProvider().Tracer(MeterName)
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	return nil
}

func (t *Telemetry) initializeMetrics(res *resource.Resource) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return fmt.Errorf("failed to register go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return fmt.Errorf("failed to register process collector: %w", err)
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	t.Registry = registry
	t.MeterProvider = mp
	t.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))

	metrics, err := CreatePipelineMetrics(t.Meter)
	if err != nil {
		return err
	}
	t.Metrics = metrics
	return nil
}

// CreatePipelineMetrics creates the ETL instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	stageExecutions, err := meter.Int64Counter(
		"crimestats_stage_executions_total",
		metric.WithDescription("Total number of pipeline stage executions"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"crimestats_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stageErrors, err := meter.Int64Counter(
		"crimestats_stage_errors_total",
		metric.WithDescription("Total number of failed pipeline stages"),
	)
	if err != nil {
		return nil, err
	}

	rowsIn, err := meter.Int64Counter(
		"crimestats_stage_rows_in_total",
		metric.WithDescription("Rows received by pipeline stages"),
	)
	if err != nil {
		return nil, err
	}

	rowsOut, err := meter.Int64Counter(
		"crimestats_stage_rows_out_total",
		metric.WithDescription("Rows produced by pipeline stages"),
	)
	if err != nil {
		return nil, err
	}

	loadOutcomes, err := meter.Int64Counter(
		"crimestats_load_outcomes_total",
		metric.WithDescription("Writer outcomes by format and status"),
	)
	if err != nil {
		return nil, err
	}

	repairOutcomes, err := meter.Int64Counter(
		"crimestats_json_repair_outcomes_total",
		metric.WithDescription("JSON repair outcomes by status"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		StageExecutions: stageExecutions,
		StageDuration:   stageDuration,
		StageErrors:     stageErrors,
		RowsIn:          rowsIn,
		RowsOut:         rowsOut,
		LoadOutcomes:    loadOutcomes,
		RepairOutcomes:  repairOutcomes,
	}, nil
}

// StartSpan starts a span on the run tracer
func (t *Telemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := trace.Tracer(noop.NewTracerProvider().Tracer(MeterName))
	if t != nil && t.Tracer != nil {
		tracer = t.Tracer
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordStage records one pipeline stage execution
func (t *Telemetry) RecordStage(ctx context.Context, stage string, rowsIn, rowsOut int, duration time.Duration, err error) {
	if t == nil || t.Metrics == nil {
		return
	}
	m := t.Metrics

	attrs := metric.WithAttributes(attribute.String("stage", stage))
	m.StageExecutions.Add(ctx, 1, attrs)
	m.RowsIn.Add(ctx, int64(rowsIn), attrs)
	m.RowsOut.Add(ctx, int64(rowsOut), attrs)

	status := "success"
	if err != nil {
		status = "failure"
		m.StageErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("error.type", fmt.Sprintf("%T", err)),
		))
	}
	m.StageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

// RecordLoad records the outcome of one writer
func (t *Telemetry) RecordLoad(ctx context.Context, format string, err error) {
	if t == nil || t.Metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	t.Metrics.LoadOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("status", status),
	))
}

// RecordRepair records the outcome of one JSON file repair
func (t *Telemetry) RecordRepair(ctx context.Context, status string) {
	if t == nil || t.Metrics == nil {
		return
	}
	t.Metrics.RepairOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// WriteMetricsTextfile dumps the registry in the node exporter textfile format
func (t *Telemetry) WriteMetricsTextfile(path string) error {
	if t == nil || t.Registry == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, t.Registry)
}

// Shutdown flushes and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

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

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	OrDefault(t.logger).DebugContext(ctx, "Telemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
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

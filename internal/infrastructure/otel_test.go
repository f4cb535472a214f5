package infrastructure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crimestats/internal/config"
)

func TestNewTelemetry(t *testing.T) {
	tel, err := NewTelemetry(context.Background(), config.TelemetryConfig{TraceExporter: "none"}, nil)
	require.NoError(t, err)
	require.NotNil(t, tel)

	assert.Nil(t, tel.TracerProvider)
	assert.NotNil(t, tel.Tracer)
	assert.NotNil(t, tel.MeterProvider)
	assert.NotNil(t, tel.Registry)
	assert.NotNil(t, tel.Metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, tel.Shutdown(ctx))
}

func TestNewTelemetry_UnsupportedExporter(t *testing.T) {
	_, err := NewTelemetry(context.Background(), config.TelemetryConfig{TraceExporter: "otlp"}, nil)
	assert.Error(t, err)
}

func TestTelemetry_MetricsTextfile(t *testing.T) {
	ctx := context.Background()
	tel, err := NewTelemetry(ctx, config.TelemetryConfig{TraceExporter: "none"}, nil)
	require.NoError(t, err)
	defer tel.Shutdown(ctx)

	tel.RecordStage(ctx, "remove_duplicates", 10, 8, 15*time.Millisecond, nil)
	tel.RecordStage(ctx, "aggregate_by_region", 8, 0, time.Millisecond, errors.New("boom"))
	tel.RecordLoad(ctx, "csv", nil)
	tel.RecordRepair(ctx, "repaired")

	path := filepath.Join(t.TempDir(), "crimestats.prom")
	require.NoError(t, tel.WriteMetricsTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "crimestats_stage_executions_total")
	assert.Contains(t, text, "crimestats_stage_errors_total")
	assert.Contains(t, text, `stage="remove_duplicates"`)
	assert.Contains(t, text, "crimestats_load_outcomes_total")
	assert.Contains(t, text, "go_goroutines")
}

func TestTelemetry_NilIsNoop(t *testing.T) {
	var tel *Telemetry
	ctx := context.Background()

	spanCtx, span := tel.StartSpan(ctx, "noop")
	assert.NotNil(t, spanCtx)
	span.End()

	tel.RecordStage(ctx, "x", 1, 1, time.Second, nil)
	tel.RecordLoad(ctx, "csv", errors.New("x"))
	tel.RecordRepair(ctx, "failed")
	assert.NoError(t, tel.WriteMetricsTextfile(filepath.Join(t.TempDir(), "none.prom")))
	assert.NoError(t, tel.Shutdown(ctx))

	RecordError(ctx, errors.New("not recording"))
	AddSpanEvent(ctx, "ignored")
}

func TestTelemetry_StdoutTracing(t *testing.T) {
	ctx := context.Background()
	tel, err := NewTelemetry(ctx, config.TelemetryConfig{TraceExporter: "stdout", SampleRatio: 1}, nil)
	require.NoError(t, err)

	spanCtx, span := tel.StartSpan(ctx, "pipeline")
	assert.True(t, span.SpanContext().IsValid())
	AddSpanEvent(spanCtx, "stage.completed")
	RecordError(spanCtx, errors.New("stage failed"))
	span.End()

	require.NoError(t, tel.Shutdown(ctx))
}

package transform

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"crimestats/internal/dataset"
	"crimestats/internal/infrastructure"
)

// Stage is a single step of the pipeline
type Stage interface {
	// Name returns the identifier used in logs, spans and metrics
	Name() string

	// Apply returns the transformed table. It must not modify its input.
	Apply(ctx context.Context, table *dataset.Table) (*dataset.Table, error)
}

// StageFunc adapts a function to the Stage interface
type StageFunc struct {
	name string
	fn   func(ctx context.Context, table *dataset.Table) (*dataset.Table, error)
}

// NewStage creates a named stage from fn
func NewStage(name string, fn func(ctx context.Context, table *dataset.Table) (*dataset.Table, error)) StageFunc {
	return StageFunc{name: name, fn: fn}
}

// Name returns the stage name
func (s StageFunc) Name() string { return s.name }

// Apply runs the stage function
func (s StageFunc) Apply(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
	return s.fn(ctx, table)
}

// StageStatus represents the outcome of a stage
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// StageResult records one stage execution
type StageResult struct {
	Name      string        `json:"name"`
	Status    StageStatus   `json:"status"`
	RowsIn    int           `json:"rows_in"`
	RowsOut   int           `json:"rows_out"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration_ns"`
	Error     string        `json:"error,omitempty"`
}

// RunReport lists the stage results of one pipeline run in execution order
type RunReport struct {
	Stages []StageResult `json:"stages"`
}

// Pipeline runs stages in order, handing each the output of the previous one
type Pipeline struct {
	stages    []Stage
	logger    *slog.Logger
	telemetry *infrastructure.Telemetry
}

// NewPipeline creates a pipeline. telemetry may be nil.
func NewPipeline(logger *slog.Logger, telemetry *infrastructure.Telemetry, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages:    stages,
		logger:    infrastructure.WithComponent(logger, "pipeline"),
		telemetry: telemetry,
	}
}

// Stages returns the stage names in execution order
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run executes every stage. The first failing stage aborts the run; its
// error is returned wrapped with the stage name and later stages are
// reported as skipped.
func (p *Pipeline) Run(ctx context.Context, table *dataset.Table) (*dataset.Table, *RunReport, error) {
	ctx, span := p.telemetry.StartSpan(ctx, "pipeline.run",
		attribute.Int("pipeline.stages", len(p.stages)),
		attribute.Int("pipeline.rows_in", table.NumRows()))
	defer span.End()

	report := &RunReport{Stages: make([]StageResult, len(p.stages))}
	for i, s := range p.stages {
		report.Stages[i] = StageResult{Name: s.Name(), Status: StageStatusPending}
	}

	p.logger.InfoContext(ctx, "Pipeline started",
		slog.Int("stages", len(p.stages)),
		slog.Int("rows", table.NumRows()))

	current := table
	for i, stage := range p.stages {
		next, err := p.runStage(ctx, stage, current, &report.Stages[i])
		if err != nil {
			for j := i + 1; j < len(report.Stages); j++ {
				report.Stages[j].Status = StageStatusSkipped
			}
			infrastructure.RecordError(ctx, err)
			return nil, report, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		current = next
	}

	p.logger.InfoContext(ctx, "Pipeline completed",
		slog.Int("rows_in", table.NumRows()),
		slog.Int("rows_out", current.NumRows()),
		slog.Int("columns", current.NumCols()))
	return current, report, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, in *dataset.Table, result *StageResult) (*dataset.Table, error) {
	ctx, span := p.telemetry.StartSpan(ctx, "pipeline.stage", attribute.String("stage", stage.Name()))
	defer span.End()

	result.StartTime = time.Now()
	result.RowsIn = in.NumRows()

	out, err := stage.Apply(ctx, in)
	result.Duration = time.Since(result.StartTime)

	if err == nil && out == nil {
		err = fmt.Errorf("stage returned no table")
	}
	if err != nil {
		result.Status = StageStatusFailed
		result.Error = err.Error()
		p.telemetry.RecordStage(ctx, stage.Name(), result.RowsIn, 0, result.Duration, err)
		infrastructure.RecordError(ctx, err)
		p.logger.ErrorContext(ctx, "Stage failed",
			slog.String("stage", stage.Name()),
			slog.Duration("duration", result.Duration),
			slog.String("error", err.Error()))
		return nil, err
	}

	result.Status = StageStatusCompleted
	result.RowsOut = out.NumRows()
	p.telemetry.RecordStage(ctx, stage.Name(), result.RowsIn, result.RowsOut, result.Duration, nil)
	infrastructure.AddSpanEvent(ctx, "stage.completed",
		attribute.Int("rows_in", result.RowsIn),
		attribute.Int("rows_out", result.RowsOut))

	p.logger.InfoContext(ctx, "Stage completed",
		slog.String("stage", stage.Name()),
		slog.Int("rows_in", result.RowsIn),
		slog.Int("rows_out", result.RowsOut),
		slog.Duration("duration", result.Duration))

	if p.logger.Enabled(ctx, slog.LevelDebug) {
		summary := Summarize(out)
		p.logger.DebugContext(ctx, "Stage snapshot",
			slog.String("stage", stage.Name()),
			slog.Any("null_counts", summary.NullCounts),
			slog.Int("duplicates", summary.Duplicates))
	}

	return out, nil
}

// Stage names used by DefaultStages
const (
	StageCleanColumns    = "clean_column_names"
	StageRemoveDupes     = "remove_duplicates"
	StageMissingValues   = "handle_missing_values"
	StageNormalizeDates  = "normalize_dates"
	StageCategorize      = "categorize_crimes"
	StageAggregateRegion = "aggregate_by_region"
	StageCrimeRate       = "calculate_crime_rate"
)

// DefaultStages returns the cleaning chain: column names, duplicates,
// missing values, dates and crime categories.
func (t *Transformer) DefaultStages() []Stage {
	return []Stage{
		NewStage(StageCleanColumns, t.CleanColumnNames),
		NewStage(StageRemoveDupes, func(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
			return t.RemoveDuplicates(ctx, table, t.opts.DedupeSubset)
		}),
		NewStage(StageMissingValues, func(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
			return t.HandleMissingValues(ctx, table, t.opts.MissingStrategy)
		}),
		NewStage(StageNormalizeDates, func(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
			return t.NormalizeDates(ctx, table, t.opts.DateColumns)
		}),
		NewStage(StageCategorize, func(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
			return t.CategorizeCrimes(ctx, table, t.opts.CrimeColumn)
		}),
	}
}

// RegionalStages returns aggregation by region followed, when population is
// not nil, by the crime rate.
func (t *Transformer) RegionalStages(population *dataset.Table) []Stage {
	stages := []Stage{
		NewStage(StageAggregateRegion, func(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
			return t.AggregateByRegion(ctx, table, t.opts.RegionColumn)
		}),
	}
	if population != nil {
		stages = append(stages, NewStage(StageCrimeRate, func(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
			return t.CalculateCrimeRate(ctx, table, population, t.opts.RegionColumn)
		}))
	}
	return stages
}

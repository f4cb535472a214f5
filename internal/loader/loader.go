package loader

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"crimestats/internal/config"
	"crimestats/internal/infrastructure"
	"crimestats/internal/validation"
)

// Options configures the writers
type Options struct {
	CSVBOM       bool
	CSVDelimiter rune
	ExcelSheet   string
}

// DefaultOptions returns BOM-prefixed, comma-separated CSV and the "Dados" sheet
func DefaultOptions() Options {
	return Options{
		CSVBOM:       true,
		CSVDelimiter: ',',
		ExcelSheet:   config.DefaultExcelSheet,
	}
}

// OptionsFromConfig builds Options from the load configuration
func OptionsFromConfig(cfg config.LoadConfig) Options {
	opts := DefaultOptions()
	opts.CSVBOM = cfg.CSVBOM
	if cfg.ExcelSheet != "" {
		opts.ExcelSheet = cfg.ExcelSheet
	}
	return opts
}

// Loader writes datasets and metadata to disk or a database
type Loader struct {
	logger    *slog.Logger
	validator *validation.FileValidator
	telemetry *infrastructure.Telemetry
	opts      Options
}

// NewLoader creates a loader. telemetry may be nil.
func NewLoader(logger *slog.Logger, telemetry *infrastructure.Telemetry, opts Options) *Loader {
	logger = infrastructure.WithComponent(logger, "loader")
	if opts.CSVDelimiter == 0 {
		opts.CSVDelimiter = ','
	}
	if opts.ExcelSheet == "" {
		opts.ExcelSheet = config.DefaultExcelSheet
	}
	return &Loader{
		logger:    logger,
		validator: validation.NewFileValidator(logger),
		telemetry: telemetry,
		opts:      opts,
	}
}

// write runs fn inside a span, records the outcome metric and logs it
func (l *Loader) write(ctx context.Context, format, destination string, rows int, fn func(ctx context.Context) error) error {
	ctx, span := l.telemetry.StartSpan(ctx, "loader.write",
		attribute.String("format", format),
		attribute.String("destination", destination))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	l.telemetry.RecordLoad(ctx, format, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		infrastructure.WithError(l.logger, err).ErrorContext(ctx, "Failed to save data",
			slog.String("format", format),
			slog.String("destination", destination))
		return err
	}

	l.logger.InfoContext(ctx, "Data saved",
		slog.String("format", format),
		slog.String("destination", destination),
		slog.Int("rows", rows),
		slog.Duration("duration", time.Since(start)))
	return nil
}

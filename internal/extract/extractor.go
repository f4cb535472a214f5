package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"crimestats/internal/dataset"
	"crimestats/internal/infrastructure"
	"crimestats/internal/validation"
)

// Extractor reads source files into tables
type Extractor struct {
	logger    *slog.Logger
	validator *validation.FileValidator
	telemetry *infrastructure.Telemetry
}

// NewExtractor creates an extractor. telemetry may be nil.
func NewExtractor(logger *slog.Logger, telemetry *infrastructure.Telemetry) *Extractor {
	logger = infrastructure.WithComponent(logger, "extract")
	return &Extractor{
		logger:    logger,
		validator: validation.NewFileValidator(logger),
		telemetry: telemetry,
	}
}

// ExtractLocalFile reads a .csv, .xlsx or .xls file. Failures are logged and
// returned with a nil table: UNSUPPORTED_FORMAT for other extensions,
// NOT_FOUND for a missing file and PARSING for unreadable content.
func (e *Extractor) ExtractLocalFile(ctx context.Context, path string, opts Options) (*dataset.Table, error) {
	ctx, span := e.telemetry.StartSpan(ctx, "extract.file", attribute.String("file", path))
	defer span.End()

	start := time.Now()
	format, err := e.validator.ValidateSourceFile(path)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	var table *dataset.Table
	switch format {
	case validation.FormatCSV:
		table, err = readCSV(path, opts)
	case validation.FormatExcel:
		table, err = readExcel(path, opts)
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
		e.logger.ErrorContext(ctx, "Failed to read file",
			slog.String("file", path),
			slog.String("format", string(format)),
			slog.String("error", err.Error()))
		return nil, err
	}

	if format == validation.FormatCSV {
		e.warnSingleColumn(ctx, path, table, opts)
	}

	e.logger.InfoContext(ctx, "File extracted",
		slog.String("file", path),
		slog.String("format", string(format)),
		slog.Int("rows", table.NumRows()),
		slog.Int("columns", table.NumCols()),
		slog.Duration("duration", time.Since(start)))
	return table, nil
}

// warnSingleColumn flags a CSV whose only header contains a comma, which
// usually means the file is comma separated and the delimiter is not.
func (e *Extractor) warnSingleColumn(ctx context.Context, path string, table *dataset.Table, opts Options) {
	if opts.Delimiter == ',' || table.NumCols() != 1 {
		return
	}
	header := table.ColumnAt(0).Name
	if !strings.Contains(header, ",") {
		return
	}
	e.logger.WarnContext(ctx, "CSV header parsed as a single column, check the delimiter",
		slog.String("file", path),
		slog.String("delimiter", string(opts.Delimiter)),
		slog.String("header", header))
}

package transform

import (
	"context"
	"log/slog"

	"crimestats/internal/dataset"
)

// ValidationSummary describes a dataset snapshot. It is computed on demand
// and never modified.
type ValidationSummary struct {
	TotalRecords int            `json:"total_registros"`
	NullCounts   map[string]int `json:"valores_nulos"`
	Duplicates   int            `json:"duplicatas"`
	Columns      []string       `json:"colunas"`
}

// Summarize computes the validation summary of table without logging.
// Duplicates counts rows that repeat an earlier row on every column.
func Summarize(table *dataset.Table) ValidationSummary {
	nulls := make(map[string]int, table.NumCols())
	for c := 0; c < table.NumCols(); c++ {
		col := table.ColumnAt(c)
		nulls[col.Name] = col.NullCount()
	}

	cols, _ := resolveColumns(table, nil)
	_, duplicates := duplicateRows(table, cols)

	return ValidationSummary{
		TotalRecords: table.NumRows(),
		NullCounts:   nulls,
		Duplicates:   duplicates,
		Columns:      table.ColumnNames(),
	}
}

// Validate computes and logs the validation summary. The table is not modified.
func (t *Transformer) Validate(ctx context.Context, table *dataset.Table) ValidationSummary {
	summary := Summarize(table)

	t.logger.InfoContext(ctx, "Validation",
		slog.Int("total_records", summary.TotalRecords),
		slog.Any("null_counts", summary.NullCounts),
		slog.Int("duplicates", summary.Duplicates),
		slog.Any("columns", summary.Columns))
	return summary
}

package transform

import (
	"context"
	"log/slog"
	"math"

	"crimestats/internal/dataset"
	"crimestats/internal/stats"
)

// MissingStrategy selects how HandleMissingValues resolves nulls
type MissingStrategy string

const (
	StrategyDrop       MissingStrategy = "drop"
	StrategyFillZero   MissingStrategy = "fill_zero"
	StrategyFillMean   MissingStrategy = "fill_mean"
	StrategyFillMedian MissingStrategy = "fill_median"
)

// Valid reports whether s is one of the known strategies
func (s MissingStrategy) Valid() bool {
	switch s {
	case StrategyDrop, StrategyFillZero, StrategyFillMean, StrategyFillMedian:
		return true
	}
	return false
}

// HandleMissingValues resolves nulls according to strategy:
//
//	drop        remove every row that has a null in any column
//	fill_zero   numeric nulls become 0, text nulls become "0"; dates stay null
//	fill_mean   numeric nulls become the column mean of non-null values
//	fill_median numeric nulls become the column median of non-null values
//
// An unknown strategy returns an unchanged copy and logs a warning.
func (t *Transformer) HandleMissingValues(ctx context.Context, table *dataset.Table, strategy MissingStrategy) (*dataset.Table, error) {
	before := countNulls(table)

	var out *dataset.Table
	switch strategy {
	case StrategyDrop:
		out = dropNullRows(table)
	case StrategyFillZero:
		out = fillZero(table)
	case StrategyFillMean:
		out = fillNumeric(table, stats.Mean)
	case StrategyFillMedian:
		out = fillNumeric(table, stats.Median)
	default:
		t.logger.WarnContext(ctx, "Unknown missing-value strategy, dataset returned unchanged",
			slog.String("strategy", string(strategy)),
			slog.Int("null_cells", before))
		return table.Clone(), nil
	}

	t.logger.InfoContext(ctx, "Missing values handled",
		slog.String("strategy", string(strategy)),
		slog.Int("null_cells_before", before),
		slog.Int("null_cells_after", countNulls(out)),
		slog.Int("rows_before", table.NumRows()),
		slog.Int("rows_after", out.NumRows()))
	return out, nil
}

func countNulls(table *dataset.Table) int {
	n := 0
	for i := 0; i < table.NumCols(); i++ {
		n += table.ColumnAt(i).NullCount()
	}
	return n
}

func dropNullRows(table *dataset.Table) *dataset.Table {
	keep := make([]int, 0, table.NumRows())
rows:
	for r := 0; r < table.NumRows(); r++ {
		for c := 0; c < table.NumCols(); c++ {
			if table.ColumnAt(c).Values[r].IsNull() {
				continue rows
			}
		}
		keep = append(keep, r)
	}
	return table.SelectRows(keep)
}

func fillZero(table *dataset.Table) *dataset.Table {
	out := table.Clone()
	for c := 0; c < out.NumCols(); c++ {
		col := out.ColumnAt(c)
		var zero dataset.Value
		switch col.Type {
		case dataset.TypeNumeric:
			zero = dataset.Number(0)
		case dataset.TypeString:
			zero = dataset.String("0")
		default:
			continue
		}
		for i, v := range col.Values {
			if v.IsNull() {
				col.Values[i] = zero
			}
		}
	}
	return out
}

// fillNumeric replaces nulls in numeric columns with measure(non-null values).
// Columns with no values at all stay null.
func fillNumeric(table *dataset.Table, measure func([]float64) float64) *dataset.Table {
	out := table.Clone()
	for c := 0; c < out.NumCols(); c++ {
		col := out.ColumnAt(c)
		if col.Type != dataset.TypeNumeric || col.NullCount() == 0 {
			continue
		}
		fill := measure(stats.NonNull(col))
		if math.IsNaN(fill) {
			continue
		}
		for i, v := range col.Values {
			if v.IsNull() {
				col.Values[i] = dataset.Number(fill)
			}
		}
	}
	return out
}

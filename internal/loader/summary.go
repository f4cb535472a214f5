package loader

import (
	"context"
	"math"
	"path/filepath"

	"crimestats/internal/config"
	"crimestats/internal/dataset"
	"crimestats/internal/stats"
)

// NotAvailable fills the period when the dataset has no usable date column
const NotAvailable = "N/A"

// SummaryReport is the content of summary_report.json
type SummaryReport struct {
	TotalRecords int                         `json:"total_registros"`
	Period       Period                      `json:"periodo"`
	Statistics   map[string]ColumnStatistics `json:"estatisticas"`
	Columns      []string                    `json:"colunas"`
}

// Period is the date range covered by the dataset
type Period struct {
	Start string `json:"inicio"`
	End   string `json:"fim"`
}

// ColumnStatistics are the describe() measures of one numeric column.
// Undefined measures are written as null.
type ColumnStatistics struct {
	Count float64  `json:"count"`
	Mean  *float64 `json:"mean"`
	Std   *float64 `json:"std"`
	Min   *float64 `json:"min"`
	Q25   *float64 `json:"25%"`
	Q50   *float64 `json:"50%"`
	Q75   *float64 `json:"75%"`
	Max   *float64 `json:"max"`
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// BuildSummaryReport computes the summary of table
func BuildSummaryReport(table *dataset.Table) SummaryReport {
	report := SummaryReport{
		TotalRecords: table.NumRows(),
		Period:       datePeriod(table, config.ColumnDate),
		Statistics:   make(map[string]ColumnStatistics),
		Columns:      table.ColumnNames(),
	}

	for i := 0; i < table.NumCols(); i++ {
		col := table.ColumnAt(i)
		if col.Type != dataset.TypeNumeric {
			continue
		}
		d := stats.Describe(stats.NonNull(col))
		report.Statistics[col.Name] = ColumnStatistics{
			Count: float64(d.Count),
			Mean:  finite(d.Mean),
			Std:   finite(d.Std),
			Min:   finite(d.Min),
			Q25:   finite(d.Q25),
			Q50:   finite(d.Q50),
			Q75:   finite(d.Q75),
			Max:   finite(d.Max),
		}
	}
	return report
}

// datePeriod returns the smallest and largest non-null value of column, or
// NotAvailable for both when the column is absent or empty.
func datePeriod(table *dataset.Table, column string) Period {
	period := Period{Start: NotAvailable, End: NotAvailable}
	col, err := table.Column(column)
	if err != nil {
		return period
	}

	var lo, hi dataset.Value
	for _, v := range col.Values {
		if v.IsNull() {
			continue
		}
		if lo.IsNull() || dataset.Compare(v, lo) < 0 {
			lo = v
		}
		if hi.IsNull() || dataset.Compare(v, hi) > 0 {
			hi = v
		}
	}
	if lo.IsNull() {
		return period
	}
	return Period{Start: lo.String(), End: hi.String()}
}

// CreateSummaryReport writes <outputDir>/summary_report.json
func (l *Loader) CreateSummaryReport(ctx context.Context, table *dataset.Table, outputDir string) error {
	path := filepath.Join(outputDir, config.SummaryReportFile)
	report := BuildSummaryReport(table)
	return l.write(ctx, "summary", path, report.TotalRecords, func(context.Context) error {
		if err := l.validator.ValidateOutputDirectory(outputDir); err != nil {
			return err
		}
		return writeJSON(l, report, path)
	})
}

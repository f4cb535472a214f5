package transform

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"crimestats/internal/dataset"
)

// DefaultDateLayouts are tried in order. Slash and dash dates are read day
// first, as published by Brazilian sources.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02/01/2006 15:04:05",
	"02-01-2006",
	"2006/01/02",
}

// parseDate converts a cell to a date. Text is tried against layouts,
// numbers are read as Excel serial dates. Anything else is null.
func parseDate(v dataset.Value, layouts []string) dataset.Value {
	switch v.Kind() {
	case dataset.KindDate:
		return v
	case dataset.KindNumber:
		f, _ := v.Num()
		d, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return dataset.Null()
		}
		return dataset.Date(d)
	case dataset.KindString:
		s := strings.TrimSpace(v.Str())
		if s == "" {
			return dataset.Null()
		}
		for _, layout := range layouts {
			if d, err := time.Parse(layout, s); err == nil {
				return dataset.Date(d)
			}
		}
	}
	return dataset.Null()
}

// NormalizeDates parses the listed columns into date columns. Values that do
// not parse become null; listed columns absent from the table are skipped.
func (t *Transformer) NormalizeDates(ctx context.Context, table *dataset.Table, columns []string) (*dataset.Table, error) {
	out := table.Clone()

	for _, name := range columns {
		col, err := out.Column(name)
		if err != nil {
			t.logger.DebugContext(ctx, "Date column not present, skipped",
				slog.String("column", name))
			continue
		}

		values := make([]dataset.Value, col.Len())
		failed := 0
		for i, v := range col.Values {
			values[i] = parseDate(v, t.opts.DateLayouts)
			if values[i].IsNull() && !v.IsNull() {
				failed++
			}
		}

		if err := out.SetColumn(dataset.NewColumn(name, dataset.TypeDate, values...)); err != nil {
			return nil, err
		}

		t.logger.InfoContext(ctx, "Date column normalized",
			slog.String("column", name),
			slog.Int("rows", len(values)),
			slog.Int("unparsed", failed))
	}

	return out, nil
}

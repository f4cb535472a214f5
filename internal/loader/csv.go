package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"crimestats/internal/config"
	"crimestats/internal/dataset"
	apperrors "crimestats/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SaveCSV writes table to path with a header row. Nulls are written as
// empty fields and dates as YYYY-MM-DD.
func (l *Loader) SaveCSV(ctx context.Context, table *dataset.Table, path string) error {
	return l.write(ctx, config.FormatCSV, path, table.NumRows(), func(context.Context) error {
		if err := l.validator.EnsureParentDir(path); err != nil {
			return err
		}

		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
		}
		defer file.Close()

		// BOM helps Excel recognize UTF-8
		if l.opts.CSVBOM {
			if _, err := file.Write(utf8BOM); err != nil {
				return apperrors.NewStorageError("failed to write BOM", err)
			}
		}

		writer := csv.NewWriter(file)
		writer.Comma = l.opts.CSVDelimiter

		if err := writer.Write(table.ColumnNames()); err != nil {
			return apperrors.NewStorageError("failed to write headers", err)
		}

		record := make([]string, table.NumCols())
		for r := 0; r < table.NumRows(); r++ {
			for c := range record {
				record[c] = table.ColumnAt(c).Values[r].String()
			}
			if err := writer.Write(record); err != nil {
				return apperrors.NewStorageError(fmt.Sprintf("failed to write record %d", r), err)
			}
		}

		writer.Flush()
		if err := writer.Error(); err != nil {
			return apperrors.NewStorageError("failed to flush csv", err)
		}
		if err := file.Close(); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to close %s", path), err)
		}
		return nil
	})
}

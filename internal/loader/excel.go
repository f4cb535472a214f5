package loader

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"crimestats/internal/config"
	"crimestats/internal/dataset"
	apperrors "crimestats/internal/errors"
)

// builtin number format 14 renders a serial as a short date
const excelDateFormat = 14

// SaveExcel writes table to a single-sheet workbook. The header occupies
// the first row; null cells are left empty.
func (l *Loader) SaveExcel(ctx context.Context, table *dataset.Table, path string) error {
	return l.write(ctx, config.FormatExcel, path, table.NumRows(), func(context.Context) error {
		if err := l.validator.EnsureParentDir(path); err != nil {
			return err
		}

		f := excelize.NewFile()
		defer f.Close()

		sheet := l.opts.ExcelSheet
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("invalid sheet name %q", sheet), err)
		}

		dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: excelDateFormat})
		if err != nil {
			return apperrors.NewStorageError("failed to create date style", err)
		}

		sw, err := f.NewStreamWriter(sheet)
		if err != nil {
			return apperrors.NewStorageError("failed to create stream writer", err)
		}

		header := make([]interface{}, table.NumCols())
		for i, name := range table.ColumnNames() {
			header[i] = name
		}
		if err := sw.SetRow("A1", header); err != nil {
			return apperrors.NewStorageError("failed to write header row", err)
		}

		row := make([]interface{}, table.NumCols())
		for r := 0; r < table.NumRows(); r++ {
			for c := range row {
				row[c] = excelCell(table.ColumnAt(c).Values[r], dateStyle)
			}
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return apperrors.NewStorageError("failed to address row", err)
			}
			if err := sw.SetRow(cell, row); err != nil {
				return apperrors.NewStorageError(fmt.Sprintf("failed to write row %d", r), err)
			}
		}

		if err := sw.Flush(); err != nil {
			return apperrors.NewStorageError("failed to flush sheet", err)
		}
		if err := f.SaveAs(path); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to save %s", path), err)
		}
		return nil
	})
}

func excelCell(v dataset.Value, dateStyle int) interface{} {
	switch v.Kind() {
	case dataset.KindNumber:
		f, _ := v.Num()
		return f
	case dataset.KindDate:
		t, _ := v.Time()
		return excelize.Cell{StyleID: dateStyle, Value: t}
	case dataset.KindString:
		return v.Str()
	default:
		return nil
	}
}

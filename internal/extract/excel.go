package extract

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"crimestats/internal/dataset"
	apperrors "crimestats/internal/errors"
)

func readExcel(path string, opts Options) (*dataset.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to open workbook %s", path), err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewParsingError(fmt.Sprintf("workbook %s has no sheets", path), nil)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err).
			WithContext("path", path)
	}

	// raw cell values always use a dot as decimal separator
	return buildTable(rows, opts.HeaderRow, opts.nullSet(), numberFormat{decimal: "."})
}

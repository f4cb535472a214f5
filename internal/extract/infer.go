package extract

import (
	"fmt"
	"strconv"
	"strings"

	"crimestats/internal/dataset"
	apperrors "crimestats/internal/errors"
)

// numberFormat describes the separators of numeric cells
type numberFormat struct {
	decimal   string
	thousands string
}

func (f numberFormat) parse(s string) (float64, bool) {
	if f.thousands != "" {
		s = strings.ReplaceAll(s, f.thousands, "")
	}
	if f.decimal != "" && f.decimal != "." {
		s = strings.Replace(s, f.decimal, ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// buildTable turns raw rows into a typed table. rows[headerRow] holds the
// column names; shorter rows are padded with nulls and longer rows widen
// the table with unnamed columns.
func buildTable(rows [][]string, headerRow int, nulls map[string]bool, numbers numberFormat) (*dataset.Table, error) {
	if headerRow >= len(rows) {
		return nil, apperrors.NewParsingError(fmt.Sprintf("header row %d not found, file has %d rows", headerRow, len(rows)), nil)
	}
	header := rows[headerRow]
	body := rows[headerRow+1:]

	width := len(header)
	for _, r := range body {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return nil, apperrors.NewParsingError("no columns found", nil)
	}

	names := headerNames(header, width)
	cols := make([]*dataset.Column, width)
	for c := 0; c < width; c++ {
		raw := make([]string, len(body))
		present := make([]bool, len(body))
		for r, row := range body {
			if c < len(row) && !nulls[strings.TrimSpace(row[c])] {
				raw[r] = row[c]
				present[r] = true
			}
		}
		cols[c] = inferColumn(names[c], raw, present, numbers)
	}

	return dataset.New(cols...)
}

// headerNames fills blank names with "Unnamed: i" and suffixes repeats
// with ".1", ".2" so every column name is unique.
func headerNames(header []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for seen[name] > 0 {
			name = fmt.Sprintf("%s.%d", base, seen[base])
			seen[base]++
		}
		seen[name]++
		names[i] = name
	}
	return names
}

// inferColumn returns a numeric column when every present cell is a number
// and a text column otherwise.
func inferColumn(name string, raw []string, present []bool, numbers numberFormat) *dataset.Column {
	values := make([]dataset.Value, len(raw))
	numeric := true
	for i, s := range raw {
		if !present[i] {
			continue
		}
		v, ok := numbers.parse(strings.TrimSpace(s))
		if !ok {
			numeric = false
			break
		}
		values[i] = dataset.Number(v)
	}
	if numeric {
		return dataset.NewColumn(name, dataset.TypeNumeric, values...)
	}

	for i, s := range raw {
		if present[i] {
			values[i] = dataset.String(s)
		} else {
			values[i] = dataset.Null()
		}
	}
	return dataset.NewColumn(name, dataset.TypeString, values...)
}

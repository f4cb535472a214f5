package transform

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"crimestats/internal/dataset"
)

// rowKey builds an identity key for row i over cols. Keys are length
// prefixed so that values containing separators cannot collide.
func rowKey(cols []*dataset.Column, i int) string {
	var b strings.Builder
	for _, c := range cols {
		k := c.Values[i].Key()
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
	}
	return b.String()
}

// resolveColumns looks up names, or returns every column when names is empty
func resolveColumns(table *dataset.Table, names []string) ([]*dataset.Column, error) {
	if len(names) == 0 {
		cols := make([]*dataset.Column, table.NumCols())
		for i := range cols {
			cols[i] = table.ColumnAt(i)
		}
		return cols, nil
	}
	cols := make([]*dataset.Column, len(names))
	for i, name := range names {
		col, err := table.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return cols, nil
}

// duplicateRows returns the indexes of the first occurrence of each key, in
// order, and the number of later repeats.
func duplicateRows(table *dataset.Table, cols []*dataset.Column) (keep []int, removed int) {
	seen := make(map[string]struct{}, table.NumRows())
	keep = make([]int, 0, table.NumRows())
	for i := 0; i < table.NumRows(); i++ {
		k := rowKey(cols, i)
		if _, dup := seen[k]; dup {
			removed++
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}
	return keep, removed
}

// RemoveDuplicates drops rows that repeat an earlier row on subset (all
// columns when subset is empty). The first occurrence wins and order is
// kept. Nulls compare equal to each other.
func (t *Transformer) RemoveDuplicates(ctx context.Context, table *dataset.Table, subset []string) (*dataset.Table, error) {
	cols, err := resolveColumns(table, subset)
	if err != nil {
		return nil, err
	}

	keep, removed := duplicateRows(table, cols)
	if removed > 0 {
		t.logger.InfoContext(ctx, "Duplicate rows removed",
			slog.Int("removed", removed),
			slog.Int("remaining", len(keep)),
			slog.Any("subset", subset))
	} else {
		t.logger.DebugContext(ctx, "No duplicate rows found",
			slog.Int("rows", table.NumRows()))
	}

	return table.SelectRows(keep), nil
}

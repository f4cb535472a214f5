package transform

import (
	"context"
	"fmt"
	"log/slog"

	"crimestats/internal/config"
	"crimestats/internal/dataset"
)

// Suffixes given to non-key columns present on both sides of a join
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// LeftJoin joins right onto left by the key column. Every left row is kept;
// a left row matching several right rows is repeated once per match, and
// unmatched rows get nulls for the right columns. Null keys never match.
// Non-key columns present on both sides are suffixed with _x and _y.
func LeftJoin(left, right *dataset.Table, key string) (*dataset.Table, error) {
	leftKey, err := left.Column(key)
	if err != nil {
		return nil, err
	}
	rightKey, err := right.Column(key)
	if err != nil {
		return nil, err
	}

	index := make(map[string][]int, right.NumRows())
	for i, v := range rightKey.Values {
		if v.IsNull() {
			continue
		}
		index[v.Key()] = append(index[v.Key()], i)
	}

	// row pairs; -1 on the right means no match
	var leftRows, rightRows []int
	for i, v := range leftKey.Values {
		matches := index[v.Key()]
		if v.IsNull() || len(matches) == 0 {
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, -1)
			continue
		}
		for _, j := range matches {
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, j)
		}
	}

	clash := make(map[string]bool)
	for _, name := range right.ColumnNames() {
		if name != key && left.HasColumn(name) {
			clash[name] = true
		}
	}

	cols := make([]*dataset.Column, 0, left.NumCols()+right.NumCols()-1)
	for c := 0; c < left.NumCols(); c++ {
		src := left.ColumnAt(c)
		name := src.Name
		if clash[name] {
			name += LeftSuffix
		}
		values := make([]dataset.Value, len(leftRows))
		for i, r := range leftRows {
			values[i] = src.Values[r]
		}
		cols = append(cols, dataset.NewColumn(name, src.Type, values...))
	}
	for c := 0; c < right.NumCols(); c++ {
		src := right.ColumnAt(c)
		if src.Name == key {
			continue
		}
		name := src.Name
		if clash[name] {
			name += RightSuffix
		}
		values := make([]dataset.Value, len(rightRows))
		for i, r := range rightRows {
			if r >= 0 {
				values[i] = src.Values[r]
			}
		}
		cols = append(cols, dataset.NewColumn(name, src.Type, values...))
	}

	return dataset.New(cols...)
}

// CalculateCrimeRate left-joins population onto the aggregated table by
// regionColumn, which must exist in both tables, and adds occurrences per
// 100,000 inhabitants. A missing, null or zero population gives a null rate.
func (t *Transformer) CalculateCrimeRate(ctx context.Context, aggregated, population *dataset.Table, regionColumn string) (*dataset.Table, error) {
	if population == nil {
		return nil, fmt.Errorf("population reference dataset is nil")
	}
	if _, err := population.NumericColumn(t.opts.PopulationColumn); err != nil {
		return nil, err
	}

	joined, err := LeftJoin(aggregated, population, regionColumn)
	if err != nil {
		return nil, err
	}

	occurrences, err := joined.NumericColumn(t.opts.OccurrencesColumn)
	if err != nil {
		return nil, err
	}
	inhabitants, err := joined.NumericColumn(t.opts.PopulationColumn)
	if err != nil {
		return nil, err
	}

	rates := make([]dataset.Value, joined.NumRows())
	unmatched := 0
	for i := range rates {
		occ, okOcc := occurrences.Values[i].Num()
		pop, okPop := inhabitants.Values[i].Num()
		if !okPop || pop == 0 {
			unmatched++
			continue
		}
		if okOcc {
			rates[i] = dataset.Number(occ / pop * config.RatePerInhabitants)
		}
	}

	if err := joined.SetColumn(dataset.NewColumn(t.opts.RateColumn, dataset.TypeNumeric, rates...)); err != nil {
		return nil, err
	}

	if unmatched > 0 {
		t.logger.WarnContext(ctx, "Regions without usable population, rate left null",
			slog.Int("regions", unmatched))
	}
	t.logger.InfoContext(ctx, "Crime rate calculated",
		slog.Int("rows", joined.NumRows()),
		slog.Int("population_rows", population.NumRows()))
	return joined, nil
}

package transform

import (
	"context"
	"log/slog"
	"sort"

	"crimestats/internal/dataset"
)

// AggregateByRegion returns one row per distinct value of regionColumn with
// the occurrence and victim counts summed. Null regions form their own
// group, which sorts last. Null counts are skipped in the sums.
func (t *Transformer) AggregateByRegion(ctx context.Context, table *dataset.Table, regionColumn string) (*dataset.Table, error) {
	region, err := table.Column(regionColumn)
	if err != nil {
		return nil, err
	}
	occurrences, err := table.NumericColumn(t.opts.OccurrencesColumn)
	if err != nil {
		return nil, err
	}
	victims, err := table.NumericColumn(t.opts.VictimsColumn)
	if err != nil {
		return nil, err
	}

	type group struct {
		key         dataset.Value
		occurrences float64
		victims     float64
	}
	groups := make(map[string]*group)
	for i, v := range region.Values {
		k := v.Key()
		g, ok := groups[k]
		if !ok {
			g = &group{key: v}
			groups[k] = g
		}
		if n, ok := occurrences.Values[i].Num(); ok {
			g.occurrences += n
		}
		if n, ok := victims.Values[i].Num(); ok {
			g.victims += n
		}
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return dataset.Compare(ordered[i].key, ordered[j].key) < 0
	})

	keys := make([]dataset.Value, len(ordered))
	occ := make([]dataset.Value, len(ordered))
	vic := make([]dataset.Value, len(ordered))
	for i, g := range ordered {
		keys[i] = g.key
		occ[i] = dataset.Number(g.occurrences)
		vic[i] = dataset.Number(g.victims)
	}

	out, err := dataset.New(
		dataset.NewColumn(regionColumn, region.Type, keys...),
		dataset.NewColumn(t.opts.OccurrencesColumn, dataset.TypeNumeric, occ...),
		dataset.NewColumn(t.opts.VictimsColumn, dataset.TypeNumeric, vic...),
	)
	if err != nil {
		return nil, err
	}

	t.logger.InfoContext(ctx, "Aggregated by region",
		slog.String("region_column", regionColumn),
		slog.Int("input_rows", table.NumRows()),
		slog.Int("groups", out.NumRows()))
	return out, nil
}

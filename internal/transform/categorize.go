package transform

import (
	"context"
	"log/slog"
	"strings"

	"crimestats/internal/dataset"
)

// OtherCategory is assigned when no keyword matches or the value is missing
const OtherCategory = "Other"

// Category is one taxonomy entry: a label and the keyword substrings that select it
type Category struct {
	Label    string
	Keywords []string
}

// DefaultTaxonomy classifies SSP-SP crime natures. Order matters: the first
// category with a matching keyword wins.
var DefaultTaxonomy = []Category{
	{
		Label: "Crimes Violentos",
		Keywords: []string{
			"homicidio", "latrocinio", "lesao_corporal", "estupro",
			"tentativa_de_homicidio", "homicidio_doloso", "homicidio_culposo",
			"lesao_corporal_dolosa", "lesao_corporal_seguida_de_morte",
		},
	},
	{
		Label: "Crimes Patrimoniais",
		Keywords: []string{
			"roubo", "furto", "extorsao", "roubo_de_veiculo", "furto_de_veiculo",
			"roubo_de_carga", "roubo_a_banco", "total_de_roubo",
		},
	},
	{
		Label: "Crimes de Trânsito",
		Keywords: []string{
			"acidente", "transito", "culposo_por_acidente",
			"homicidio_culposo_por_acidente_de_transito",
			"lesao_corporal_culposa_por_acidente_de_transito",
		},
	},
}

// foldCrimeText lowercases, strips accents and joins words with underscores
// so that "Homicídio Doloso" and "homicidio_doloso" compare equal.
func foldCrimeText(s string) string {
	s = toASCII(strings.ToLower(strings.TrimSpace(s)))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_'
	}), "_")
}

// Categorize returns the label of the first category in taxonomy with a
// keyword contained in the folded value, or OtherCategory.
func Categorize(v dataset.Value, taxonomy []Category) string {
	if v.IsNull() {
		return OtherCategory
	}
	text := foldCrimeText(v.String())
	for _, cat := range taxonomy {
		for _, kw := range cat.Keywords {
			if strings.Contains(text, kw) {
				return cat.Label
			}
		}
	}
	return OtherCategory
}

// CategorizeCrimes adds (or replaces) the category column derived from column.
func (t *Transformer) CategorizeCrimes(ctx context.Context, table *dataset.Table, column string) (*dataset.Table, error) {
	src, err := table.Column(column)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	labels := make([]dataset.Value, src.Len())
	for i, v := range src.Values {
		label := Categorize(v, t.opts.Taxonomy)
		counts[label]++
		labels[i] = dataset.String(label)
	}

	out := table.Clone()
	if err := out.SetColumn(dataset.NewColumn(t.opts.CategoryColumn, dataset.TypeString, labels...)); err != nil {
		return nil, err
	}

	t.logger.InfoContext(ctx, "Crimes categorized",
		slog.String("source_column", column),
		slog.Int("rows", len(labels)),
		slog.Any("categories", counts))
	return out, nil
}

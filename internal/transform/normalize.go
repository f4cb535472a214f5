package transform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"crimestats/internal/dataset"
)

// ColumnNameMapping rewrites source abbreviations to canonical column names.
// It is applied after the generic normalization rule, which turns the
// ordinal indicator of "Nº" into a plain "o".
var ColumnNameMapping = map[string]string{
	"natureza":      "tipo_crime",
	"jan":           "janeiro",
	"fev":           "fevereiro",
	"mar":           "marco",
	"abr":           "abril",
	"mai":           "maio",
	"jun":           "junho",
	"jul":           "julho",
	"ago":           "agosto",
	"set":           "setembro",
	"out":           "outubro",
	"nov":           "novembro",
	"dez":           "dezembro",
	"n_de_vitimas":  "vitimas",
	"n_vitimas":     "vitimas",
	"no_de_vitimas": "vitimas",
}

// toASCII decomposes accented letters and drops everything outside ASCII
func toASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeColumnName applies the generic rule (trim, lowercase, strip
// accents, spaces and hyphens to underscores, drop other symbols) and then
// the abbreviation mapping. Blank names normalize to "".
func NormalizeColumnName(name string) string {
	// fold before lowercasing, compatibility forms such as ℌ decompose to capitals
	s := strings.ToLower(toASCII(strings.TrimSpace(name)))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s = b.String()

	if canonical, ok := ColumnNameMapping[s]; ok {
		return canonical
	}
	return s
}

// CleanColumnNames renames every column to its canonical form. Rows and
// values are untouched. Two source columns that normalize to the same name
// are kept apart with a numeric suffix (vitimas, vitimas_2).
func (t *Transformer) CleanColumnNames(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
	original := table.ColumnNames()
	bases := make([]string, len(original))
	reserved := make(map[string]bool, len(original))
	for i, name := range original {
		bases[i] = NormalizeColumnName(name)
		reserved[bases[i]] = true
	}

	names := make([]string, len(original))
	assigned := make(map[string]bool, len(original))
	renamed := 0
	for i, base := range bases {
		name := base
		if assigned[name] {
			for n := 2; ; n++ {
				candidate := fmt.Sprintf("%s_%d", base, n)
				if !assigned[candidate] && !reserved[candidate] {
					name = candidate
					break
				}
			}
			t.logger.WarnContext(ctx, "Column name collision after normalization",
				slog.String("source", original[i]),
				slog.String("normalized", base),
				slog.String("renamed_to", name))
		}
		assigned[name] = true
		names[i] = name
		if name != original[i] {
			renamed++
		}
	}

	out, err := table.RenameColumns(names)
	if err != nil {
		return nil, err
	}

	t.logger.InfoContext(ctx, "Column names normalized",
		slog.Int("columns", len(names)),
		slog.Int("renamed", renamed))
	return out, nil
}

package transform

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crimestats/internal/dataset"
)

func TestNormalizeColumnName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Município", "municipio"},
		{"  Natureza  ", "tipo_crime"},
		{"Jan", "janeiro"},
		{"MAR", "marco"},
		{"Dez", "dezembro"},
		{"Nº de Vítimas", "vitimas"},
		{"N de Vítimas", "vitimas"},
		{"N-Vítimas", "vitimas"},
		{"Ocorrências (total)", "ocorrencias_total"},
		{"Ano/Mês", "anomes"},
		{"taxa_criminalidade", "taxa_criminalidade"},
		{"", ""},
		{"   ", ""},
		{"ção", "cao"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeColumnName(tt.input))
		})
	}
}

func TestNormalizeColumnName_Idempotent(t *testing.T) {
	inputs := []string{"Município", "Natureza", "Jan", "N de Vítimas", "Ocorrências (total)", "Dez", "", "Região-Administrativa", "ℌora", "ᴬno", "ＭＵＮＩＣÍＰＩＯ"}
	for _, in := range inputs {
		once := NormalizeColumnName(in)
		assert.Equal(t, once, NormalizeColumnName(once), in)
		assert.Equal(t, strings.ToLower(once), once, in)
	}
	assert.Equal(t, "hora", NormalizeColumnName("ℌora"))
	assert.Equal(t, "ano", NormalizeColumnName("ᴬno"))
	assert.Equal(t, "municipio", NormalizeColumnName("ＭＵＮＩＣÍＰＩＯ"))
}

func TestCleanColumnNames(t *testing.T) {
	tr, handler := newTestTransformer(t)
	ctx := context.Background()

	in := dataset.MustNew(
		dataset.NewColumn("Município", dataset.TypeString, dataset.String("Santos")),
		dataset.NewColumn("Natureza", dataset.TypeString, dataset.String("Furto")),
		dataset.NewColumn("Jan", dataset.TypeNumeric, dataset.Number(3)),
		dataset.NewColumn("N de Vítimas", dataset.TypeNumeric, dataset.Number(1)),
		dataset.NewColumn("N-Vitimas", dataset.TypeNumeric, dataset.Number(2)),
	)

	out, err := tr.CleanColumnNames(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"municipio", "tipo_crime", "janeiro", "vitimas", "vitimas_2"}, out.ColumnNames())
	assert.Equal(t, in.Row(0), out.Row(0))
	assert.True(t, handler.ContainsMessage("collision"))

	twice, err := tr.CleanColumnNames(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, out.ColumnNames(), twice.ColumnNames())
}

func TestCleanColumnNames_SuffixAvoidsExistingNames(t *testing.T) {
	tr, _ := newTestTransformer(t)

	in := dataset.MustNew(
		dataset.NewColumn("A", dataset.TypeString),
		dataset.NewColumn("a ", dataset.TypeString),
		dataset.NewColumn("a_2", dataset.TypeString),
	)

	out, err := tr.CleanColumnNames(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a_3", "a_2"}, out.ColumnNames())
}

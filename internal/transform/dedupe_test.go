package transform

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crimestats/internal/dataset"
	apperrors "crimestats/internal/errors"
)

func TestRemoveDuplicates(t *testing.T) {
	s, n, null := dataset.String, dataset.Number, dataset.Null()
	in := dataset.MustNew(
		dataset.NewColumn("municipio", dataset.TypeString, s("Santos"), s("Campinas"), s("Santos"), null, null, s("Santos")),
		dataset.NewColumn("ocorrencias", dataset.TypeNumeric, n(1), n(2), n(1), n(5), n(5), n(9)),
	)

	tests := []struct {
		name     string
		subset   []string
		wantRows [][]dataset.Value
	}{
		{
			name:   "all columns",
			subset: nil,
			wantRows: [][]dataset.Value{
				{s("Santos"), n(1)},
				{s("Campinas"), n(2)},
				{null, n(5)},
				{s("Santos"), n(9)},
			},
		},
		{
			name:   "subset keeps first occurrence",
			subset: []string{"municipio"},
			wantRows: [][]dataset.Value{
				{s("Santos"), n(1)},
				{s("Campinas"), n(2)},
				{null, n(5)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, handler := newTestTransformer(t)

			out, err := tr.RemoveDuplicates(context.Background(), in, tt.subset)
			require.NoError(t, err)
			require.Equal(t, len(tt.wantRows), out.NumRows())
			for i, want := range tt.wantRows {
				assert.Equal(t, want, out.Row(i))
			}
			assert.True(t, handler.ContainsMessage("Duplicate rows removed"))
		})
	}
}

func TestRemoveDuplicates_UniqueAndOrdered(t *testing.T) {
	tr, _ := newTestTransformer(t)
	in := crimeTable(t)
	key := []string{"municipio"}

	out, err := tr.RemoveDuplicates(context.Background(), in, key)
	require.NoError(t, err)

	col, err := out.Column("municipio")
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, v := range col.Values {
		assert.False(t, seen[v.Key()], "duplicate key %q", v.String())
		seen[v.Key()] = true
	}

	// retained rows appear in input order
	src, err := in.Column("municipio")
	require.NoError(t, err)
	pos := 0
	for _, v := range col.Values {
		for pos < len(src.Values) && !src.Values[pos].Equal(v) {
			pos++
		}
		require.Less(t, pos, len(src.Values))
		pos++
	}
}

func TestRemoveDuplicates_NegativeZero(t *testing.T) {
	tr, _ := newTestTransformer(t)

	in := dataset.MustNew(
		dataset.NewColumn("municipio", dataset.TypeString, dataset.String("Santos"), dataset.String("Santos")),
		dataset.NewColumn("vitimas", dataset.TypeNumeric, dataset.Number(0), dataset.Number(math.Copysign(0, -1))),
	)

	out, err := tr.RemoveDuplicates(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out.NumRows())
}

func TestRemoveDuplicates_MissingSubsetColumn(t *testing.T) {
	tr, _ := newTestTransformer(t)

	_, err := tr.RemoveDuplicates(context.Background(), crimeTable(t), []string{"municipio", "bairro"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeColumnNotFound))
}

package extract

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"crimestats/internal/config"
	"crimestats/internal/dataset"
	apperrors "crimestats/internal/errors"
	"crimestats/internal/shared/testutil"
)

func newTestExtractor(t *testing.T) (*Extractor, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	return NewExtractor(logger, nil), handler
}

func column(t *testing.T, tbl *dataset.Table, name string) *dataset.Column {
	t.Helper()
	col, err := tbl.Column(name)
	require.NoError(t, err)
	return col
}

func TestExtractLocalFile_CSV(t *testing.T) {
	e, handler := newTestExtractor(t)
	path := testutil.WriteFile(t, t.TempDir(), "dados.csv", []byte(
		"\xEF\xBB\xBFmunicipio;natureza;ocorrencias;data\n"+
			"São Paulo;Roubo;10;2024-01-31\n"+
			"Santos;Furto;NA;2024-02-01\n"+
			"Campinas;Homicídio Doloso;3;\n"))

	tbl, err := e.ExtractLocalFile(context.Background(), path, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"municipio", "natureza", "ocorrencias", "data"}, tbl.ColumnNames())
	assert.Equal(t, 3, tbl.NumRows())

	occ := column(t, tbl, "ocorrencias")
	assert.Equal(t, dataset.TypeNumeric, occ.Type)
	assert.True(t, occ.Values[1].IsNull())
	v, ok := occ.Values[2].Num()
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	assert.Equal(t, dataset.TypeString, column(t, tbl, "municipio").Type)
	assert.Equal(t, "São Paulo", column(t, tbl, "municipio").Values[0].Str())
	assert.Equal(t, 1, column(t, tbl, "data").NullCount())

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "File extracted")
	testutil.AssertNoErrors(t, handler)
}

func TestExtractLocalFile_WarnsOnSingleCommaColumn(t *testing.T) {
	content := []byte("municipio,ocorrencias\nSantos,4\nCampinas,2\n")

	t.Run("default delimiter", func(t *testing.T) {
		e, handler := newTestExtractor(t)
		path := testutil.WriteFile(t, t.TempDir(), "virgula.csv", content)

		tbl, err := e.ExtractLocalFile(context.Background(), path, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, 1, tbl.NumCols())

		testutil.AssertLogContains(t, handler, slog.LevelWarn, "check the delimiter")
		assert.True(t, handler.ContainsAttr("header", "municipio,ocorrencias"))
	})

	t.Run("comma delimiter", func(t *testing.T) {
		e, handler := newTestExtractor(t)
		path := testutil.WriteFile(t, t.TempDir(), "virgula.csv", content)

		opts := DefaultOptions()
		opts.Delimiter = ','
		tbl, err := e.ExtractLocalFile(context.Background(), path, opts)
		require.NoError(t, err)
		assert.Equal(t, []string{"municipio", "ocorrencias"}, tbl.ColumnNames())
		assert.Empty(t, handler.GetRecordsByLevel(slog.LevelWarn))
	})

	t.Run("single column without comma", func(t *testing.T) {
		e, handler := newTestExtractor(t)
		path := testutil.WriteFile(t, t.TempDir(), "unica.csv", []byte("municipio\nSantos\n"))

		_, err := e.ExtractLocalFile(context.Background(), path, DefaultOptions())
		require.NoError(t, err)
		assert.Empty(t, handler.GetRecordsByLevel(slog.LevelWarn))
	})
}

func TestExtractLocalFile_CSVOptions(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		opts    func(*Options)
		check   func(*testing.T, *dataset.Table)
	}{
		{
			name:    "latin1 encoding",
			content: []byte("munic\xedpio;ocorr\xeancias\nS\xe3o Paulo;3\n"),
			opts:    func(o *Options) { o.Encoding = "latin1" },
			check: func(t *testing.T, tbl *dataset.Table) {
				assert.Equal(t, []string{"município", "ocorrências"}, tbl.ColumnNames())
				assert.Equal(t, "São Paulo", column(t, tbl, "município").Values[0].Str())
			},
		},
		{
			name:    "brazilian number format",
			content: []byte("municipio;taxa\nSantos;1.234,5\nCampinas;7,25\n"),
			opts: func(o *Options) {
				o.Decimal = ","
				o.Thousands = "."
			},
			check: func(t *testing.T, tbl *dataset.Table) {
				taxa := column(t, tbl, "taxa")
				require.Equal(t, dataset.TypeNumeric, taxa.Type)
				a, _ := taxa.Values[0].Num()
				b, _ := taxa.Values[1].Num()
				assert.Equal(t, 1234.5, a)
				assert.Equal(t, 7.25, b)
			},
		},
		{
			name:    "comma delimiter",
			content: []byte("municipio,ocorrencias\n\"Santos, SP\",1\n"),
			opts:    func(o *Options) { o.Delimiter = ',' },
			check: func(t *testing.T, tbl *dataset.Table) {
				assert.Equal(t, "Santos, SP", column(t, tbl, "municipio").Values[0].Str())
			},
		},
		{
			name:    "header row below a title line",
			content: []byte("Secretaria da Segurança Pública\nmunicipio;ocorrencias\nSantos;1\n"),
			opts:    func(o *Options) { o.HeaderRow = 1 },
			check: func(t *testing.T, tbl *dataset.Table) {
				assert.Equal(t, []string{"municipio", "ocorrencias"}, tbl.ColumnNames())
				assert.Equal(t, 1, tbl.NumRows())
			},
		},
		{
			name:    "null tokens and mixed columns",
			content: []byte("x;y\nNA;1\n-;2\nabc;\n7;null\n"),
			opts:    func(*Options) {},
			check: func(t *testing.T, tbl *dataset.Table) {
				x := column(t, tbl, "x")
				assert.Equal(t, dataset.TypeString, x.Type)
				assert.Equal(t, 2, x.NullCount())
				assert.Equal(t, "7", x.Values[3].Str())

				y := column(t, tbl, "y")
				assert.Equal(t, dataset.TypeNumeric, y.Type)
				assert.Equal(t, 2, y.NullCount())
			},
		},
		{
			name:    "ragged rows",
			content: []byte("a;b;c\n1;2\n3;4;5;6\n"),
			opts:    func(*Options) {},
			check: func(t *testing.T, tbl *dataset.Table) {
				assert.Equal(t, []string{"a", "b", "c", "Unnamed: 3"}, tbl.ColumnNames())
				assert.True(t, column(t, tbl, "c").Values[0].IsNull())
				assert.True(t, column(t, tbl, "Unnamed: 3").Values[0].IsNull())
				v, _ := column(t, tbl, "Unnamed: 3").Values[1].Num()
				assert.Equal(t, 6.0, v)
			},
		},
		{
			name:    "repeated and blank headers",
			content: []byte("mes;mes;\n1;2;3\n"),
			opts:    func(*Options) {},
			check: func(t *testing.T, tbl *dataset.Table) {
				assert.Equal(t, []string{"mes", "mes.1", "Unnamed: 2"}, tbl.ColumnNames())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestExtractor(t)
			path := testutil.WriteFile(t, t.TempDir(), "dados.csv", tt.content)

			opts := DefaultOptions()
			tt.opts(&opts)

			tbl, err := e.ExtractLocalFile(context.Background(), path, opts)
			require.NoError(t, err)
			tt.check(t, tbl)
		})
	}
}

func TestExtractLocalFile_Excel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dados.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Dados"))
	require.NoError(t, f.SetSheetRow("Dados", "A1", &[]interface{}{"Município", "Ocorrências", "Data"}))
	require.NoError(t, f.SetSheetRow("Dados", "A2", &[]interface{}{"Santos", 3, 45356}))
	require.NoError(t, f.SetSheetRow("Dados", "A3", &[]interface{}{"Campinas", 4.5}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	e, _ := newTestExtractor(t)

	tbl, err := e.ExtractLocalFile(context.Background(), path, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"Município", "Ocorrências", "Data"}, tbl.ColumnNames())
	require.Equal(t, 2, tbl.NumRows())

	occ := column(t, tbl, "Ocorrências")
	assert.Equal(t, dataset.TypeNumeric, occ.Type)
	v, _ := occ.Values[1].Num()
	assert.Equal(t, 4.5, v)

	data := column(t, tbl, "Data")
	serial, ok := data.Values[0].Num()
	require.True(t, ok)
	assert.Equal(t, 45356.0, serial)
	assert.True(t, data.Values[1].IsNull())

	opts := DefaultOptions()
	opts.Sheet = "Outra"
	_, err = e.ExtractLocalFile(context.Background(), path, opts)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestExtractLocalFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		path     string
		opts     func(*Options)
		wantType apperrors.ErrorType
	}{
		{
			name:     "unsupported extension",
			path:     testutil.WriteFile(t, dir, "dados.json", []byte(`{}`)),
			wantType: apperrors.ErrTypeUnsupportedFormat,
		},
		{
			name:     "missing file",
			path:     filepath.Join(dir, "ausente.csv"),
			wantType: apperrors.ErrTypeNotFound,
		},
		{
			name:     "corrupt workbook",
			path:     testutil.WriteFile(t, dir, "corrompido.xlsx", []byte("not a zip archive")),
			wantType: apperrors.ErrTypeParsing,
		},
		{
			name:     "header row past the end",
			path:     testutil.WriteFile(t, dir, "curto.csv", []byte("a;b\n1;2\n")),
			opts:     func(o *Options) { o.HeaderRow = 5 },
			wantType: apperrors.ErrTypeParsing,
		},
		{
			name:     "empty file",
			path:     testutil.WriteFile(t, dir, "vazio.csv", nil),
			wantType: apperrors.ErrTypeParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, handler := newTestExtractor(t)
			opts := DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			tbl, err := e.ExtractLocalFile(context.Background(), tt.path, opts)
			require.Error(t, err)
			assert.Nil(t, tbl)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)
			assert.NotEmpty(t, handler.GetRecordsByLevel(slog.LevelError))
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default().Extract
	cfg.Delimiter = ","
	cfg.Encoding = "latin1"
	cfg.Thousands = "."

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, ',', opts.Delimiter)
	assert.True(t, opts.isLatin1())
	assert.Equal(t, ".", opts.Thousands)
	assert.Equal(t, cfg.NullValues, opts.NullValues)
}

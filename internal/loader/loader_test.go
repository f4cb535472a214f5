package loader

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"crimestats/internal/config"
	"crimestats/internal/dataset"
	apperrors "crimestats/internal/errors"
	"crimestats/internal/infrastructure"
	"crimestats/internal/shared/testutil"
)

func newTestLoader(t *testing.T) (*Loader, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	return NewLoader(logger, nil, DefaultOptions()), handler
}

func day(d int) dataset.Value {
	return dataset.Date(time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC))
}

// sampleTable is a cleaned dataset with one column of each type
func sampleTable() *dataset.Table {
	s, n, null := dataset.String, dataset.Number, dataset.Null()
	return dataset.MustNew(
		dataset.NewColumn("municipio", dataset.TypeString, s("São Paulo"), s("Santos"), null),
		dataset.NewColumn("ocorrencias", dataset.TypeNumeric, n(10), n(2.5), null),
		dataset.NewColumn("data", dataset.TypeDate, day(31), null, day(5)),
	)
}

func TestSaveCSV(t *testing.T) {
	l, handler := newTestLoader(t)
	path := filepath.Join(t.TempDir(), "nested", "dados_criminais.csv")

	require.NoError(t, l.SaveCSV(context.Background(), sampleTable(), path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBF"+
		"municipio,ocorrencias,data\n"+
		"São Paulo,10,2024-01-31\n"+
		"Santos,2.5,\n"+
		",,2024-01-05\n", string(content))

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "Data saved")
	assert.True(t, handler.ContainsAttr("format", "csv"))
}

func TestSaveCSV_NoBOMAndDelimiter(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	l := NewLoader(logger, nil, Options{CSVDelimiter: ';'})
	path := filepath.Join(t.TempDir(), "dados.csv")

	require.NoError(t, l.SaveCSV(context.Background(), sampleTable(), path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, len(content) > 0 && content[0] == 'm')
	assert.Contains(t, string(content), "municipio;ocorrencias;data\n")
}

func TestSaveCSV_Failure(t *testing.T) {
	l, handler := newTestLoader(t)
	dir := t.TempDir()
	blocker := testutil.WriteFile(t, dir, "arquivo", []byte("x"))

	err := l.SaveCSV(context.Background(), sampleTable(), filepath.Join(blocker, "dados.csv"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
	testutil.AssertLogContains(t, handler, slog.LevelError, "Failed to save data")
	assert.True(t, handler.ContainsAttr("error", err.Error()))
	assert.True(t, handler.ContainsAttr("component", "loader"))
}

func TestSaveParquet(t *testing.T) {
	l, _ := newTestLoader(t)
	path := filepath.Join(t.TempDir(), "dados_criminais.parquet")

	require.NoError(t, l.SaveParquet(context.Background(), sampleTable(), path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	tbl, err := pqarrow.ReadTable(context.Background(), file, parquet.NewReaderProperties(memory.DefaultAllocator), pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(3), tbl.NumRows())
	schema := tbl.Schema()
	require.Equal(t, 3, schema.NumFields())
	assert.Equal(t, "municipio", schema.Field(0).Name)
	assert.Equal(t, arrow.STRING, schema.Field(0).Type.ID())
	assert.Equal(t, arrow.FLOAT64, schema.Field(1).Type.ID())
	assert.Equal(t, arrow.DATE32, schema.Field(2).Type.ID())
	assert.Equal(t, 1, tbl.Column(1).Data().NullN())
}

func TestSaveExcel(t *testing.T) {
	l, _ := newTestLoader(t)
	path := filepath.Join(t.TempDir(), "dados_criminais.xlsx")

	require.NoError(t, l.SaveExcel(context.Background(), sampleTable(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Dados"}, f.GetSheetList())
	rows, err := f.GetRows("Dados", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"municipio", "ocorrencias", "data"}, rows[0])
	assert.Equal(t, []string{"São Paulo", "10", "45322"}, rows[1])
	assert.Equal(t, []string{"Santos", "2.5"}, rows[2])
	assert.Equal(t, "", rows[3][0])
}

func TestSaveDatabase_SQLitePolicies(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLoader(t)
	dbPath := filepath.Join(t.TempDir(), "crimes.db")

	count := func() int {
		db, err := sql.Open("sqlite", dbPath)
		require.NoError(t, err)
		defer db.Close()
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "crimes"`).Scan(&n))
		return n
	}

	require.NoError(t, l.SaveDatabase(ctx, sampleTable(), "crimes", dbPath, IfExistsFail))
	assert.Equal(t, 3, count())

	err := l.SaveDatabase(ctx, sampleTable(), "crimes", dbPath, IfExistsFail)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
	assert.Equal(t, 3, count())

	require.NoError(t, l.SaveDatabase(ctx, sampleTable(), "crimes", "sqlite:///"+dbPath, IfExistsAppend))
	assert.Equal(t, 6, count())

	require.NoError(t, l.SaveDatabase(ctx, sampleTable(), "crimes", dbPath, IfExistsReplace))
	assert.Equal(t, 3, count())

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var municipio string
	var ocorrencias float64
	var data string
	require.NoError(t, db.QueryRow(`SELECT municipio, ocorrencias, data FROM crimes LIMIT 1`).Scan(&municipio, &ocorrencias, &data))
	assert.Equal(t, "São Paulo", municipio)
	assert.Equal(t, 10.0, ocorrencias)
	assert.Contains(t, data, "2024-01-31")

	var nulls int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM crimes WHERE municipio IS NULL`).Scan(&nulls))
	assert.Equal(t, 1, nulls)
}

func TestSaveDatabase_InvalidPolicy(t *testing.T) {
	l, _ := newTestLoader(t)
	err := l.SaveDatabase(context.Background(), sampleTable(), "crimes", filepath.Join(t.TempDir(), "x.db"), IfExists("merge"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestResolveDSN(t *testing.T) {
	tests := []struct {
		dsn        string
		wantDriver string
		wantSource string
	}{
		{"postgres://user:pw@localhost/ssp", "postgres", "postgres://user:pw@localhost/ssp"},
		{"host=localhost dbname=ssp sslmode=disable", "postgres", "host=localhost dbname=ssp sslmode=disable"},
		{"sqlite:///data/crimes.db", "sqlite", "data/crimes.db"},
		{"sqlite://crimes.db", "sqlite", "crimes.db"},
		{"file:crimes.db?_pragma=busy_timeout(5000)", "sqlite", "file:crimes.db?_pragma=busy_timeout(5000)"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			d, source := resolveDSN(tt.dsn)
			assert.Equal(t, tt.wantDriver, d.driver)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestSaveMetadata(t *testing.T) {
	l, _ := newTestLoader(t)
	path := filepath.Join(t.TempDir(), "meta", "metadata.json")

	meta := map[string]interface{}{
		"fonte":  "Secretaria da Segurança Pública <SSP>",
		"linhas": 3,
	}
	require.NoError(t, l.SaveMetadata(context.Background(), meta, path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Segurança Pública <SSP>")
	assert.Contains(t, string(content), "\n  \"linhas\": 3")
}

func TestCreateSummaryReport(t *testing.T) {
	l, _ := newTestLoader(t)
	dir := t.TempDir()

	require.NoError(t, l.CreateSummaryReport(context.Background(), sampleTable(), dir))

	content, err := os.ReadFile(filepath.Join(dir, "summary_report.json"))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &got))

	assert.Equal(t, 3.0, got["total_registros"])
	assert.Equal(t, map[string]interface{}{"inicio": "2024-01-05", "fim": "2024-01-31"}, got["periodo"])
	assert.Equal(t, []interface{}{"municipio", "ocorrencias", "data"}, got["colunas"])

	stats := got["estatisticas"].(map[string]interface{})
	require.Contains(t, stats, "ocorrencias")
	assert.NotContains(t, stats, "municipio")

	occ := stats["ocorrencias"].(map[string]interface{})
	assert.Equal(t, 2.0, occ["count"])
	assert.InDelta(t, 6.25, occ["mean"], 1e-9)
	assert.InDelta(t, 2.5, occ["min"], 1e-9)
	assert.InDelta(t, 6.25, occ["50%"], 1e-9)
	assert.InDelta(t, 10.0, occ["max"], 1e-9)
	for _, key := range []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"} {
		assert.Contains(t, occ, key)
	}
}

func TestCreateSummaryReport_OutputDirIsFile(t *testing.T) {
	l, handler := newTestLoader(t)
	blocker := testutil.WriteFile(t, t.TempDir(), "processed", []byte("x"))

	err := l.CreateSummaryReport(context.Background(), sampleTable(), blocker)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
	testutil.AssertLogContains(t, handler, slog.LevelError, "Failed to create output directory")
	assert.True(t, handler.ContainsAttr("format", "summary"))
}

func TestCreateSummaryReport_CleansWriteCheck(t *testing.T) {
	l, _ := newTestLoader(t)
	dir := filepath.Join(t.TempDir(), "processed")

	require.NoError(t, l.CreateSummaryReport(context.Background(), sampleTable(), dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "summary_report.json", entries[0].Name())
}

func TestBuildSummaryReport_Placeholders(t *testing.T) {
	tbl := dataset.MustNew(
		dataset.NewColumn("municipio", dataset.TypeString, dataset.String("Santos")),
		dataset.NewColumn("vitimas", dataset.TypeNumeric, dataset.Number(4)),
	)

	report := BuildSummaryReport(tbl)
	assert.Equal(t, Period{Start: NotAvailable, End: NotAvailable}, report.Period)

	vitimas := report.Statistics["vitimas"]
	assert.Equal(t, 1.0, vitimas.Count)
	assert.Nil(t, vitimas.Std, "std of a single value is undefined")
	require.NotNil(t, vitimas.Mean)
	assert.Equal(t, 4.0, *vitimas.Mean)

	data, err := json.Marshal(vitimas)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"std":null`)
}

func TestLoader_RecordsLoadMetrics(t *testing.T) {
	ctx := context.Background()
	tel, err := infrastructure.NewTelemetry(ctx, config.TelemetryConfig{TraceExporter: "none"}, nil)
	require.NoError(t, err)
	defer tel.Shutdown(ctx)

	logger, _ := testutil.NewTestLogger(t)
	l := NewLoader(logger, tel, DefaultOptions())
	dir := t.TempDir()

	require.NoError(t, l.SaveCSV(ctx, sampleTable(), filepath.Join(dir, "ok.csv")))
	blocker := testutil.WriteFile(t, dir, "arquivo", []byte("x"))
	require.Error(t, l.SaveCSV(ctx, sampleTable(), filepath.Join(blocker, "falha.csv")))

	path := filepath.Join(dir, "metrics.prom")
	require.NoError(t, tel.WriteMetricsTextfile(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `status="failure"`)
	assert.Contains(t, string(content), `status="success"`)
}

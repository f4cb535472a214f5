// Package loader persists datasets and run metadata.
//
// Writers:
//
//	SaveCSV      UTF-8 CSV, optional BOM for Excel
//	SaveParquet  Arrow schema derived from column types, snappy compressed
//	SaveExcel    single-sheet xlsx written with the excelize stream writer
//	SaveDatabase SQLite (modernc.org/sqlite) or PostgreSQL (lib/pq) table
//	SaveMetadata indented JSON
//
// CreateSummaryReport writes summary_report.json next to the datasets.
// Every writer creates missing parent directories, logs its outcome and
// returns an error on failure.
package loader

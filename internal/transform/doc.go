// Package transform implements the cleaning and enrichment stages of the
// crime statistics ETL.
//
// Every stage takes a *dataset.Table and returns a new one; the input table
// is never modified. Stages are methods on Transformer, which carries the
// run-scoped logger and the column vocabulary (crime type, region,
// occurrences, victims, population). Pipeline chains stages in order and
// records a span, metrics and a log line per stage.
//
// Structural problems, such as a missing aggregation column or a text column
// where numbers are required, are returned as COLUMN_NOT_FOUND and
// NON_NUMERIC_COLUMN AppErrors. Lenient stages (date parsing, unknown
// missing-value strategies) log instead of failing.
package transform

// Package dataset provides the in-memory table that flows through the ETL.
//
// A Table is an ordered list of named, typed columns (string, numeric or
// date) with a uniform row count. Cells are Values, which are either of the
// column's kind or Null. Lookups by name return a COLUMN_NOT_FOUND AppError
// and arithmetic helpers return NON_NUMERIC_COLUMN instead of coercing.
//
// Tables are not safe for concurrent mutation. Pipeline stages Clone or
// SelectRows before changing anything so that a caller's table is never
// modified in place.
package dataset

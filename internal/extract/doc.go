// Package extract reads local CSV and Excel files into a dataset.Table.
//
// CSV files are decoded with encoding/csv after optional Latin-1 decoding
// and BOM removal; workbooks are read with excelize using raw cell values,
// so dates stored in cells arrive as Excel serial numbers and are resolved
// later by the date normalization stage. Column types are inferred: a column
// whose every non-null cell parses as a number is numeric, anything else is
// text.
package extract

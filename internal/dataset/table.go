package dataset

import (
	"fmt"

	apperrors "crimestats/internal/errors"
)

// ColumnType is the declared semantic type of a column.
type ColumnType uint8

const (
	TypeString ColumnType = iota
	TypeNumeric
	TypeDate
)

// String returns the type name used in logs and errors
func (t ColumnType) String() string {
	switch t {
	case TypeNumeric:
		return "numeric"
	case TypeDate:
		return "date"
	default:
		return "string"
	}
}

// Accepts reports whether a value of kind k may be stored in a column of type t.
// Null is accepted everywhere.
func (t ColumnType) Accepts(k Kind) bool {
	switch k {
	case KindNull:
		return true
	case KindString:
		return t == TypeString
	case KindNumber:
		return t == TypeNumeric
	case KindDate:
		return t == TypeDate
	}
	return false
}

// Column is a named, typed sequence of values.
type Column struct {
	Name   string
	Type   ColumnType
	Values []Value
}

// NewColumn builds a column from values.
func NewColumn(name string, typ ColumnType, values ...Value) *Column {
	if values == nil {
		values = []Value{}
	}
	return &Column{Name: name, Type: typ, Values: values}
}

// Len returns the number of values
func (c *Column) Len() int {
	return len(c.Values)
}

// NullCount returns the number of missing values
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsNull() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the column
func (c *Column) Clone() *Column {
	values := make([]Value, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Type: c.Type, Values: values}
}

// Table is an in-memory dataset: ordered columns with unique names and a
// uniform row count. Operations that take a column name fail with a
// COLUMN_NOT_FOUND error rather than returning an empty column.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a table from columns, checking names, lengths and value kinds.
func New(columns ...*Column) (*Table, error) {
	t := &Table{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if col == nil {
			return nil, apperrors.NewSchemaError(fmt.Sprintf("column %d is nil", i))
		}
		if err := t.appendColumn(col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustNew is like New but panics on error. Intended for fixtures.
func MustNew(columns ...*Column) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) appendColumn(col *Column) error {
	if _, exists := t.index[col.Name]; exists {
		return apperrors.NewSchemaError(fmt.Sprintf("duplicate column name %q", col.Name)).
			WithContext("column", col.Name)
	}
	if len(t.columns) > 0 && col.Len() != t.rows {
		return apperrors.NewSchemaError(fmt.Sprintf("column %q has %d rows, table has %d", col.Name, col.Len(), t.rows)).
			WithContext("column", col.Name)
	}
	for row, v := range col.Values {
		if !col.Type.Accepts(v.Kind()) {
			return apperrors.NewSchemaError(fmt.Sprintf("column %q (%s) holds a %s value at row %d",
				col.Name, col.Type, v.Kind(), row)).
				WithContext("column", col.Name)
		}
	}
	if len(t.columns) == 0 {
		t.rows = col.Len()
	}
	t.index[col.Name] = len(t.columns)
	t.columns = append(t.columns, col)
	return nil
}

// NumRows returns the row count
func (t *Table) NumRows() int {
	return t.rows
}

// NumCols returns the column count
func (t *Table) NumCols() int {
	return len(t.columns)
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether a column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column. The column is shared with the table and
// must not be modified; Clone the table first.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, apperrors.NewColumnNotFoundError(name)
	}
	return t.columns[i], nil
}

// ColumnAt returns the i-th column
func (t *Table) ColumnAt(i int) *Column {
	return t.columns[i]
}

// NumericColumn returns the named column if it exists and is numeric.
func (t *Table) NumericColumn(name string) (*Column, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Type != TypeNumeric {
		return nil, apperrors.NewNonNumericColumnError(name, col.Type.String())
	}
	return col, nil
}

// Row returns the values of row i in column order
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	out := &Table{
		columns: make([]*Column, len(t.columns)),
		index:   make(map[string]int, len(t.columns)),
		rows:    t.rows,
	}
	for i, c := range t.columns {
		out.columns[i] = c.Clone()
		out.index[c.Name] = i
	}
	return out
}

// SelectRows returns a new table holding the given rows, in the given order.
func (t *Table) SelectRows(rows []int) *Table {
	out := &Table{
		columns: make([]*Column, len(t.columns)),
		index:   make(map[string]int, len(t.columns)),
		rows:    len(rows),
	}
	for i, c := range t.columns {
		values := make([]Value, len(rows))
		for j, r := range rows {
			values[j] = c.Values[r]
		}
		out.columns[i] = &Column{Name: c.Name, Type: c.Type, Values: values}
		out.index[c.Name] = i
	}
	return out
}

// RenameColumns returns a copy of the table with the column names replaced
// positionally. The new names must be unique.
func (t *Table) RenameColumns(names []string) (*Table, error) {
	if len(names) != len(t.columns) {
		return nil, apperrors.NewSchemaError(fmt.Sprintf("got %d names for %d columns", len(names), len(t.columns)))
	}
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		clone := c.Clone()
		clone.Name = names[i]
		cols[i] = clone
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = t.rows
	return out, nil
}

// SetColumn replaces the column with the same name, or appends it.
func (t *Table) SetColumn(col *Column) error {
	if len(t.columns) > 0 && col.Len() != t.rows {
		return apperrors.NewSchemaError(fmt.Sprintf("column %q has %d rows, table has %d", col.Name, col.Len(), t.rows)).
			WithContext("column", col.Name)
	}
	for row, v := range col.Values {
		if !col.Type.Accepts(v.Kind()) {
			return apperrors.NewSchemaError(fmt.Sprintf("column %q (%s) holds a %s value at row %d",
				col.Name, col.Type, v.Kind(), row))
		}
	}
	if i, ok := t.index[col.Name]; ok {
		t.columns[i] = col
		return nil
	}
	return t.appendColumn(col)
}

package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies what a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindDate
)

// String returns the lowercase kind name
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// DateLayout and DateTimeLayout are used when a date cell is rendered as text.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Value is a single cell. The zero Value is Null.
type Value struct {
	kind Kind
	str  string
	num  float64
	date time.Time
}

// Null returns the missing value
func Null() Value {
	return Value{}
}

// String wraps a text cell
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number wraps a numeric cell. NaN is stored as Null so that arithmetic never
// has to carry NaN sentinels around. Negative zero is stored as zero.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Null()
	}
	if f == 0 {
		f = 0
	}
	return Value{kind: KindNumber, num: f}
}

// Date wraps a date cell
func Date(t time.Time) Value {
	return Value{kind: KindDate, date: t}
}

// Kind returns the kind of the value
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is missing
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the text of a string value, or "" for other kinds.
func (v Value) Str() string { return v.str }

// Num returns the number held by v and whether v is a number.
func (v Value) Num() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Time returns the date held by v and whether v is a date.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindDate {
		return time.Time{}, false
	}
	return v.date, true
}

// String renders the value the way it is written to text outputs. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		if v.date.Hour() == 0 && v.date.Minute() == 0 && v.date.Second() == 0 && v.date.Nanosecond() == 0 {
			return v.date.Format(DateLayout)
		}
		return v.date.Format(DateTimeLayout)
	default:
		return ""
	}
}

// Interface returns the Go value behind v (string, float64, time.Time or nil).
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindDate:
		return v.date
	default:
		return nil
	}
}

// Key returns a string that is equal for two values exactly when Equal reports true.
// Nulls share one key, which makes them equal for grouping and duplicate detection.
func (v Value) Key() string {
	var b strings.Builder
	b.WriteByte(byte('0' + v.kind))
	switch v.kind {
	case KindString:
		b.WriteString(v.str)
	case KindNumber:
		b.WriteString(strconv.FormatFloat(v.num, 'g', -1, 64))
	case KindDate:
		b.WriteString(v.date.UTC().Format(time.RFC3339Nano))
	}
	return b.String()
}

// Equal reports whether two values are the same. Two nulls are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindDate:
		return v.date.Equal(o.date)
	default:
		return true
	}
}

// Compare orders values: nulls sort last, values of different kinds sort by kind,
// otherwise by natural order.
func Compare(a, b Value) int {
	switch {
	case a.kind == b.kind:
	case a.kind == KindNull:
		return 1
	case b.kind == KindNull:
		return -1
	case a.kind < b.kind:
		return -1
	default:
		return 1
	}

	switch a.kind {
	case KindString:
		return strings.Compare(a.str, b.str)
	case KindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case KindDate:
		return a.date.Compare(b.date)
	default:
		return 0
	}
}

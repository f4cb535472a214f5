package extract

import (
	"strings"

	"crimestats/internal/config"
)

// Options controls how a source file is parsed
type Options struct {
	// Delimiter separates CSV fields
	Delimiter rune
	// Encoding of CSV files: utf-8 or latin1
	Encoding string
	// Sheet is the workbook sheet to read; empty selects the first sheet
	Sheet string
	// HeaderRow is the zero-based row holding the column names; rows above it are ignored
	HeaderRow int
	// Decimal and Thousands are the CSV number separators
	Decimal   string
	Thousands string
	// NullValues are cell texts read as missing
	NullValues []string
}

// DefaultOptions matches the layout of SSP-SP exports
func DefaultOptions() Options {
	return Options{
		Delimiter:  ';',
		Encoding:   "utf-8",
		Decimal:    ".",
		NullValues: []string{"", "NA", "N/A", "NaN", "null", "-"},
	}
}

// OptionsFromConfig builds Options from the extract configuration
func OptionsFromConfig(cfg config.ExtractConfig) Options {
	opts := DefaultOptions()
	if cfg.Delimiter != "" {
		opts.Delimiter = []rune(cfg.Delimiter)[0]
	}
	if cfg.Encoding != "" {
		opts.Encoding = cfg.Encoding
	}
	opts.Sheet = cfg.Sheet
	opts.HeaderRow = cfg.HeaderRow
	if cfg.Decimal != "" {
		opts.Decimal = cfg.Decimal
	}
	opts.Thousands = cfg.Thousands
	if cfg.NullValues != nil {
		opts.NullValues = cfg.NullValues
	}
	return opts
}

func (o Options) isLatin1() bool {
	switch strings.ToLower(o.Encoding) {
	case "latin1", "latin-1", "iso-8859-1":
		return true
	}
	return false
}

func (o Options) nullSet() map[string]bool {
	set := make(map[string]bool, len(o.NullValues))
	for _, v := range o.NullValues {
		set[v] = true
	}
	return set
}

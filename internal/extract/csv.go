package extract

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/charmap"

	"crimestats/internal/dataset"
	apperrors "crimestats/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readCSV(path string, opts Options) (*dataset.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer file.Close()

	var src io.Reader = file
	if opts.isLatin1() {
		src = charmap.ISO8859_1.NewDecoder().Reader(file)
	}
	src, err = skipBOM(src)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read %s", path), err)
	}

	reader := csv.NewReader(src)
	reader.Comma = opts.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to parse %s", path), err).
			WithContext("path", path)
	}

	return buildTable(rows, opts.HeaderRow, opts.nullSet(), numberFormat{
		decimal:   opts.Decimal,
		thousands: opts.Thousands,
	})
}

// skipBOM drops a leading UTF-8 byte order mark
func skipBOM(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(utf8BOM))
	if err != nil && err != io.EOF {
		return nil, err
	}
	if bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}
	return br, nil
}

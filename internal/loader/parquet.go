package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"crimestats/internal/config"
	"crimestats/internal/dataset"
	apperrors "crimestats/internal/errors"
)

// arrowSchema maps column types to nullable Arrow fields:
// text to utf8, numbers to float64 and dates to date32.
func arrowSchema(table *dataset.Table) *arrow.Schema {
	fields := make([]arrow.Field, table.NumCols())
	for i := 0; i < table.NumCols(); i++ {
		col := table.ColumnAt(i)
		var typ arrow.DataType
		switch col.Type {
		case dataset.TypeNumeric:
			typ = arrow.PrimitiveTypes.Float64
		case dataset.TypeDate:
			typ = arrow.FixedWidthTypes.Date32
		default:
			typ = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: col.Name, Type: typ, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// buildRecord copies table into a single Arrow record
func buildRecord(mem memory.Allocator, schema *arrow.Schema, table *dataset.Table) arrow.Record {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i := 0; i < table.NumCols(); i++ {
		col := table.ColumnAt(i)
		switch fb := b.Field(i).(type) {
		case *array.Float64Builder:
			for _, v := range col.Values {
				if f, ok := v.Num(); ok {
					fb.Append(f)
				} else {
					fb.AppendNull()
				}
			}
		case *array.Date32Builder:
			for _, v := range col.Values {
				if t, ok := v.Time(); ok {
					fb.Append(arrow.Date32FromTime(t))
				} else {
					fb.AppendNull()
				}
			}
		case *array.StringBuilder:
			for _, v := range col.Values {
				if v.IsNull() {
					fb.AppendNull()
				} else {
					fb.Append(v.String())
				}
			}
		}
	}
	return b.NewRecord()
}

// SaveParquet writes table as a snappy-compressed Parquet file
func (l *Loader) SaveParquet(ctx context.Context, table *dataset.Table, path string) error {
	return l.write(ctx, config.FormatParquet, path, table.NumRows(), func(context.Context) error {
		if err := l.validator.EnsureParentDir(path); err != nil {
			return err
		}

		schema := arrowSchema(table)
		mem := memory.NewGoAllocator()
		rec := buildRecord(mem, schema, table)
		defer rec.Release()

		file, err := os.Create(path)
		if err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to create %s", path), err)
		}
		defer file.Close()

		props := parquet.NewWriterProperties(
			parquet.WithCompression(compress.Codecs.Snappy),
			parquet.WithAllocator(mem),
		)
		writer, err := pqarrow.NewFileWriter(schema, file, props, pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem)))
		if err != nil {
			return apperrors.NewStorageError("failed to create parquet writer", err)
		}
		if err := writer.Write(rec); err != nil {
			writer.Close()
			return apperrors.NewStorageError("failed to write parquet record", err)
		}
		// closing the writer also closes the file
		if err := writer.Close(); err != nil {
			return apperrors.NewStorageError("failed to finalize parquet file", err)
		}
		return nil
	})
}

// Package export writes standardized rows in columnar formats.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ErrNoColumns is returned when there is nothing to describe a schema with.
var ErrNoColumns = errors.New("parquet export needs at least one column")

// StringSchema builds an Arrow schema of non-nullable UTF-8 columns.
func StringSchema(headers []string) *arrow.Schema {
	fields := make([]arrow.Field, len(headers))
	for i, h := range headers {
		fields[i] = arrow.Field{Name: h, Type: arrow.BinaryTypes.String, Nullable: false}
	}
	return arrow.NewSchema(fields, nil)
}

// WriteParquet writes rows as a Snappy-compressed Parquet file. Every column
// is a string. Short rows are padded with empty strings.
func WriteParquet(w io.Writer, headers []string, rows [][]string) error {
	if len(headers) == 0 {
		return ErrNoColumns
	}

	schema := StringSchema(headers)
	mem := memory.DefaultAllocator

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for col := range headers {
		sb := builder.Field(col).(*array.StringBuilder)
		sb.Reserve(len(rows))
		for _, row := range rows {
			if col < len(row) {
				sb.Append(row[col])
			} else {
				sb.Append("")
			}
		}
	}

	rec := builder.NewRecord()
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(schema, w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// ReadParquet reads a file written by WriteParquet back into headers and rows.
func ReadParquet(ctx context.Context, r parquet.ReaderAtSeeker) ([]string, [][]string, error) {
	pf, err := file.NewParquetReader(r, file.WithReadProps(&parquet.ReaderProperties{}))
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet: %w", err)
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, nil, fmt.Errorf("create arrow reader: %w", err)
	}

	table, err := reader.ReadTable(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read parquet: %w", err)
	}
	defer table.Release()

	schema := table.Schema()
	headers := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		headers[i] = f.Name
	}

	rows := make([][]string, table.NumRows())
	for i := range rows {
		rows[i] = make([]string, len(headers))
	}
	for c := 0; c < int(table.NumCols()); c++ {
		offset := 0
		for _, chunk := range table.Column(c).Data().Chunks() {
			strs, ok := chunk.(*array.String)
			if !ok {
				return nil, nil, fmt.Errorf("column %q: unexpected type %s", headers[c], chunk.DataType())
			}
			for i := 0; i < strs.Len(); i++ {
				rows[offset+i][c] = strs.Value(i)
			}
			offset += strs.Len()
		}
	}
	return headers, rows, nil
}

package readers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/TFMV/vantage/pkg/record"
	"github.com/apache/arrow-go/v18/arrow"
)

const defaultBatchSize = 10000

// batchSource yields arrow record batches. Batches are only valid until the
// next call to Next.
type batchSource interface {
	Next() bool
	Record() arrow.Record
	Err() error
}

// collectRows drains src and converts every row into a record object whose
// keys follow the column order. Nested arrow types (structs, lists, maps)
// become nested values.
func collectRows(ctx context.Context, src batchSource) (record.Value, error) {
	rows := []record.Value{}
	for src.Next() {
		if err := ctx.Err(); err != nil {
			return record.Missing, err
		}
		batch, err := batchRows(src.Record())
		if err != nil {
			return record.Missing, err
		}
		rows = append(rows, batch...)
	}
	// pqarrow record readers report io.EOF once drained.
	if err := src.Err(); err != nil && !errors.Is(err, io.EOF) {
		return record.Missing, err
	}
	return record.ArrayValue(rows...), nil
}

func batchRows(rec arrow.Record) ([]record.Value, error) {
	fields := rec.Schema().Fields()
	names := make([][]byte, len(fields))
	for j, f := range fields {
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		names[j] = name
	}

	out := make([]record.Value, 0, rec.NumRows())
	var buf bytes.Buffer
	for i := 0; i < int(rec.NumRows()); i++ {
		buf.Reset()
		buf.WriteByte('{')
		for j, col := range rec.Columns() {
			if j > 0 {
				buf.WriteByte(',')
			}
			cell, err := json.Marshal(col.GetOneForMarshal(i))
			if err != nil {
				return nil, fmt.Errorf("failed to convert column %s: %w", fields[j].Name, err)
			}
			buf.Write(names[j])
			buf.WriteByte(':')
			buf.Write(cell)
		}
		buf.WriteByte('}')
		row, err := record.Parse(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("failed to decode row %d: %w", i, err)
		}
		out = append(out, row)
	}
	return out, nil
}

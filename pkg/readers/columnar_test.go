package readers

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceBatches replays fixed batches and then reports err, like a pqarrow
// record reader that has been drained.
type sliceBatches struct {
	batches []arrow.Record
	pos     int
	err     error
}

func (s *sliceBatches) Next() bool {
	if s.pos >= len(s.batches) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceBatches) Record() arrow.Record { return s.batches[s.pos-1] }
func (s *sliceBatches) Err() error           { return s.err }

func hostBatch(t *testing.T) arrow.Record {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "uid", Type: arrow.BinaryTypes.String},
		{Name: "score", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	}, nil)
	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).AppendValues([]string{"1", "2"}, nil)
	b.Field(1).(*array.Int64Builder).AppendValues([]int64{10, 0}, []bool{true, false})
	return b.NewRecord()
}

func TestCollectRowsTreatsEOFAsEnd(t *testing.T) {
	rec := hostBatch(t)
	defer rec.Release()

	doc, err := collectRows(context.Background(), &sliceBatches{batches: []arrow.Record{rec}, err: io.EOF})
	require.NoError(t, err)
	require.Equal(t, 2, doc.Len())
	first := doc.Items()[0]
	assert.Equal(t, []string{"uid", "score"}, first.Keys())
	assert.Equal(t, `{"score":10,"uid":"1"}`, first.String())
}

func TestCollectRowsSurfacesReadErrors(t *testing.T) {
	boom := errors.New("corrupt page")
	_, err := collectRows(context.Background(), &sliceBatches{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestParquetReaderLoad(t *testing.T) {
	rec := hostBatch(t)
	defer rec.Release()

	path := filepath.Join(t.TempDir(), "hosts.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := pqarrow.NewFileWriter(rec.Schema(), f, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	doc, err := DefaultFactory.Load(context.Background(), core.ReaderConfig{Type: "parquet", Path: path})
	require.NoError(t, err)
	require.Equal(t, 2, doc.Len())
	second := doc.Items()[1]
	assert.Equal(t, []string{"uid", "score"}, second.Keys())
	assert.Equal(t, `{"score":null,"uid":"2"}`, second.String())
}

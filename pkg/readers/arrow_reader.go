package readers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ArrowReader reads an Arrow IPC file as a record array.
type ArrowReader struct {
	file   *os.File
	reader *ipc.FileReader
}

// NewArrowReader creates a new Arrow IPC reader.
func NewArrowReader(config core.ReaderConfig) (core.DatasetReader, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Arrow reader")
	}

	f, err := os.Open(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Arrow file: %w", err)
	}

	reader, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create Arrow file reader: %w", err)
	}

	return &ArrowReader{file: f, reader: reader}, nil
}

// Read converts every row of every batch into a record object.
func (r *ArrowReader) Read(ctx context.Context) (record.Value, error) {
	doc, err := collectRows(ctx, &ipcBatches{reader: r.reader, next: -1})
	if err != nil {
		return record.Missing, fmt.Errorf("failed to read Arrow: %w", err)
	}
	return doc, nil
}

// ipcBatches walks the batches of an IPC file by index.
type ipcBatches struct {
	reader *ipc.FileReader
	next   int
	cur    arrow.Record
	err    error
}

func (b *ipcBatches) Next() bool {
	b.next++
	if b.next >= b.reader.NumRecords() {
		return false
	}
	b.cur, b.err = b.reader.Record(b.next)
	return b.err == nil
}

func (b *ipcBatches) Record() arrow.Record { return b.cur }

func (b *ipcBatches) Err() error { return b.err }

// Close closes the reader and releases resources.
func (r *ArrowReader) Close() error {
	var err error
	if r.reader != nil {
		err = r.reader.Close()
		r.reader = nil
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
		r.file = nil
	}
	return err
}

package writers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ParquetWriter writes diff results as DiffSchema row groups to a Parquet
// file.
type ParquetWriter struct {
	writer *pqarrow.FileWriter
	file   *os.File
	mem    memory.Allocator
}

// NewParquetWriter creates a new Parquet writer with Snappy compression.
func NewParquetWriter(config core.WriterConfig) (core.DiffWriter, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Parquet writer")
	}

	file, err := os.Create(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet file: %w", err)
	}

	mem := memory.NewGoAllocator()
	writeProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithDictionaryDefault(false),
		parquet.WithAllocator(mem),
	)
	writer, err := pqarrow.NewFileWriter(
		DiffSchema,
		file,
		writeProps,
		pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem)),
	)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	return &ParquetWriter{writer: writer, file: file, mem: mem}, nil
}

// Write appends every changed field of result.
func (w *ParquetWriter) Write(ctx context.Context, result *core.DiffResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec := BuildRecord(w.mem, result)
	defer rec.Release()

	if err := w.writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Close closes the writer and flushes any pending data.
func (w *ParquetWriter) Close() error {
	var err error

	if w.writer != nil {
		if closeErr := w.writer.Close(); closeErr != nil {
			err = closeErr
		}
		w.writer = nil
	}

	// The parquet writer closes its sink; a second close is expected to fail.
	if w.file != nil {
		if closeErr := w.file.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && err == nil {
			err = closeErr
		}
		w.file = nil
	}

	return err
}

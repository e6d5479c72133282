package writers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ArrowWriter writes diff results as DiffSchema batches to an Arrow IPC file.
type ArrowWriter struct {
	writer *ipc.FileWriter
	file   *os.File
	mem    memory.Allocator
}

// NewArrowWriter creates a new Arrow IPC writer.
func NewArrowWriter(config core.WriterConfig) (core.DiffWriter, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Arrow writer")
	}

	file, err := os.Create(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow file: %w", err)
	}

	mem := memory.NewGoAllocator()
	writer, err := ipc.NewFileWriter(file, ipc.WithSchema(DiffSchema), ipc.WithAllocator(mem))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create Arrow writer: %w", err)
	}

	return &ArrowWriter{writer: writer, file: file, mem: mem}, nil
}

// Write appends one batch holding every changed field of result.
func (w *ArrowWriter) Write(ctx context.Context, result *core.DiffResult) error {
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
func (w *ArrowWriter) Close() error {
	var err error

	if w.writer != nil {
		if closeErr := w.writer.Close(); closeErr != nil {
			err = closeErr
		}
		w.writer = nil
	}

	if w.file != nil {
		if closeErr := w.file.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && err == nil {
			err = closeErr
		}
		w.file = nil
	}

	return err
}

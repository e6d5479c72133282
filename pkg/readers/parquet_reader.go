package readers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ParquetReader reads a Parquet file as a record array. Struct and list
// columns become nested objects and arrays.
type ParquetReader struct {
	file        *os.File
	fileReader  *file.Reader
	arrowReader *pqarrow.FileReader
}

// NewParquetReader creates a new Parquet reader.
func NewParquetReader(config core.ReaderConfig) (core.DatasetReader, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Parquet reader")
	}

	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	f, err := os.Open(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Parquet file: %w", err)
	}

	parquetReader, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create Parquet file reader: %w", err)
	}

	arrowProps := pqarrow.ArrowReadProperties{
		Parallel:  true,
		BatchSize: batchSize,
	}
	arrowReader, err := pqarrow.NewFileReader(parquetReader, arrowProps, memory.NewGoAllocator())
	if err != nil {
		parquetReader.Close()
		f.Close()
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}

	return &ParquetReader{
		file:        f,
		fileReader:  parquetReader,
		arrowReader: arrowReader,
	}, nil
}

// Read converts every row of every row group into a record object.
func (r *ParquetReader) Read(ctx context.Context) (record.Value, error) {
	rr, err := r.arrowReader.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return record.Missing, fmt.Errorf("failed to create record reader: %w", err)
	}
	defer rr.Release()

	doc, err := collectRows(ctx, rr)
	if err != nil {
		return record.Missing, fmt.Errorf("failed to read Parquet: %w", err)
	}
	return doc, nil
}

// Close closes the reader and releases resources.
func (r *ParquetReader) Close() error {
	var err error
	if r.fileReader != nil {
		err = r.fileReader.Close()
		r.fileReader = nil
	}
	if r.file != nil {
		// file.Reader closes its source, so the file may already be closed.
		if cerr := r.file.Close(); err == nil && !errors.Is(cerr, os.ErrClosed) {
			err = cerr
		}
		r.file = nil
	}
	return err
}

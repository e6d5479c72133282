package readers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/record"
)

// JSONReader reads a JSON document: a record array, a single record or a
// dataset envelope.
type JSONReader struct {
	file *os.File
}

// NewJSONReader creates a new JSON reader.
func NewJSONReader(config core.ReaderConfig) (core.DatasetReader, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for JSON reader")
	}
	file, err := os.Open(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSON file: %w", err)
	}
	return &JSONReader{file: file}, nil
}

// Read parses the whole file.
func (r *JSONReader) Read(ctx context.Context) (record.Value, error) {
	if err := ctx.Err(); err != nil {
		return record.Missing, err
	}
	data, err := io.ReadAll(r.file)
	if err != nil {
		return record.Missing, fmt.Errorf("failed to read JSON file: %w", err)
	}
	doc, err := record.Parse(data)
	if err != nil {
		return record.Missing, core.MalformedInput("invalid JSON in %s: %v", r.file.Name(), err)
	}
	return doc, nil
}

// Close closes the file.
func (r *JSONReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

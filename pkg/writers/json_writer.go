package writers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/TFMV/vantage/pkg/core"
)

// JSONWriter writes diff results as a JSON array, one element per result.
type JSONWriter struct {
	file     *os.File
	encoder  *json.Encoder
	firstRow bool
}

// NewJSONWriter creates a new JSON writer.
func NewJSONWriter(config core.WriterConfig) (core.DiffWriter, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for JSON writer")
	}

	file, err := os.Create(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create JSON file: %w", err)
	}

	if _, err := file.WriteString("[\n"); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write opening bracket: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("  ", "  ")

	return &JSONWriter{
		file:     file,
		encoder:  encoder,
		firstRow: true,
	}, nil
}

// Write appends one result to the array.
func (w *JSONWriter) Write(ctx context.Context, result *core.DiffResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !w.firstRow {
		if _, err := w.file.WriteString(",\n"); err != nil {
			return fmt.Errorf("failed to write comma: %w", err)
		}
	} else {
		w.firstRow = false
	}

	if _, err := w.file.WriteString("  "); err != nil {
		return fmt.Errorf("failed to write indent: %w", err)
	}
	if err := w.encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode diff result: %w", err)
	}
	return nil
}

// Close writes the closing bracket and closes the file.
func (w *JSONWriter) Close() error {
	if w.file == nil {
		return nil
	}
	var err error
	if _, closeErr := w.file.WriteString("]\n"); closeErr != nil {
		err = closeErr
	}
	if closeErr := w.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	w.file = nil
	return err
}

// Package readers loads dataset documents from files and normalizes them
// into dataset inputs.
package readers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/record"
)

// Factory creates a reader based on the given configuration.
type Factory struct {
	// registered readers by type
	readers map[string]Creator
}

// Creator is a function that creates a reader from a configuration.
type Creator func(config core.ReaderConfig) (core.DatasetReader, error)

// NewFactory creates a new reader factory.
func NewFactory() *Factory {
	return &Factory{
		readers: make(map[string]Creator),
	}
}

// Register registers a creator for a reader type.
func (f *Factory) Register(typ string, creator Creator) {
	f.readers[typ] = creator
}

// Create creates a reader based on the given configuration. An empty type is
// inferred from the path extension.
func (f *Factory) Create(config core.ReaderConfig) (core.DatasetReader, error) {
	if config.Type == "" {
		config.Type = TypeFromPath(config.Path)
	}
	creator, ok := f.readers[config.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported reader type: %s", config.Type)
	}
	return creator(config)
}

// Load creates a reader, reads its whole document and closes it.
func (f *Factory) Load(ctx context.Context, config core.ReaderConfig) (record.Value, error) {
	r, err := f.Create(config)
	if err != nil {
		return record.Missing, err
	}
	doc, err := r.Read(ctx)
	if cerr := r.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close reader: %w", cerr)
	}
	if err != nil {
		return record.Missing, err
	}
	return doc, nil
}

// TypeFromPath maps a file extension to a reader type, defaulting to json.
func TypeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".psv":
		return "csv"
	case ".parquet", ".pq":
		return "parquet"
	case ".arrow", ".ipc", ".feather":
		return "arrow"
	default:
		return "json"
	}
}

// DefaultFactory is the default reader factory with built-in reader types.
var DefaultFactory = NewFactory()

func init() {
	DefaultFactory.Register("json", NewJSONReader)
	DefaultFactory.Register("csv", NewCSVReader)
	DefaultFactory.Register("parquet", NewParquetReader)
	DefaultFactory.Register("arrow", NewArrowReader)
}

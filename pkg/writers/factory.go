// Package writers persists diff results in row and columnar formats.
package writers

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TFMV/vantage/pkg/core"
)

// Factory maps diff output types to writer constructors.
type Factory struct {
	writers map[string]Creator
}

// Creator builds a DiffWriter for one output destination.
type Creator func(config core.WriterConfig) (core.DiffWriter, error)

// NewFactory creates an empty writer factory.
func NewFactory() *Factory {
	return &Factory{
		writers: make(map[string]Creator),
	}
}

// Register binds typ, case-insensitively, to creator.
func (f *Factory) Register(typ string, creator Creator) {
	f.writers[strings.ToLower(typ)] = creator
}

// Create builds the writer for config. An empty type is inferred from the
// output path extension.
func (f *Factory) Create(config core.WriterConfig) (core.DiffWriter, error) {
	typ := strings.ToLower(config.Type)
	if typ == "" {
		typ = TypeFromPath(config.Path)
	}
	creator, ok := f.writers[typ]
	if !ok {
		return nil, fmt.Errorf("unsupported writer type %q (supported: %s)", config.Type, strings.Join(f.Types(), ", "))
	}
	config.Type = typ
	return creator(config)
}

// Types lists the registered writer types in sorted order.
func (f *Factory) Types() []string {
	out := make([]string, 0, len(f.writers))
	for typ := range f.writers {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// TypeFromPath maps an output extension to a writer type. Unknown
// extensions yield "".
func TypeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".parquet", ".pq":
		return "parquet"
	case ".arrow", ".ipc", ".feather":
		return "arrow"
	}
	return ""
}

// DefaultFactory holds the json, arrow and parquet diff writers.
var DefaultFactory = NewFactory()

func init() {
	DefaultFactory.Register("parquet", NewParquetWriter)
	DefaultFactory.Register("arrow", NewArrowWriter)
	DefaultFactory.Register("json", NewJSONWriter)
}

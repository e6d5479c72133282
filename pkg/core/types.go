// Package core provides the core types and interfaces for the vantage dataset comparison engine.
package core

import (
	"context"
	"strings"
	"time"

	"github.com/TFMV/vantage/pkg/record"
	"github.com/google/uuid"
)

// Owner identifies a loaded dataset. One dataset exists per owner.
type Owner = uuid.UUID

// FieldDescriptor describes one comparable field of a dataset.
type FieldDescriptor struct {
	// Path is the sequence of object keys leading to the field.
	Path []string `json:"path"`

	// DisplayName is the human readable label. It does not affect identity.
	DisplayName string `json:"displayName"`

	// Groupable marks fields that may be used for grouping and keying.
	Groupable bool `json:"groupable"`
}

// ID returns the field id: the dot-joined path.
func (f FieldDescriptor) ID() string {
	return FieldID(f.Path)
}

// FieldID serializes a path into a field id.
func FieldID(path []string) string {
	return strings.Join(path, ".")
}

// Configuration is the ordered, id-unique field list of a dataset.
type Configuration struct {
	Fields []FieldDescriptor `json:"fields"`
}

// Field looks up a descriptor by field id.
func (c Configuration) Field(id string) (FieldDescriptor, bool) {
	for _, f := range c.Fields {
		if f.ID() == id {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Has reports whether the configuration declares the field id.
func (c Configuration) Has(id string) bool {
	_, ok := c.Field(id)
	return ok
}

// Values maps a field id to its sorted distinct values.
type Values map[string][]record.Value

// Dataset is one loaded collection of records together with its derived
// configuration, value index and key statistics.
type Dataset struct {
	Owner          Owner          `json:"owner"`
	Source         *string        `json:"source"`
	Name           string         `json:"name"`
	ShortName      string         `json:"shortName"`
	Records        []record.Value `json:"records"`
	Filtered       []record.Value `json:"filtered"`
	Configuration  Configuration  `json:"configuration"`
	Values         Values         `json:"values"`
	IsFetching     bool           `json:"isFetching"`
	LastUpdated    *time.Time     `json:"lastUpdated"`
	KeyCount       int            `json:"keyCount"`
	UniqueKeyCount int            `json:"uniqueKeyCount"`
}

// DuplicateCount is the number of records whose identity hash collides with
// an earlier record.
func (d *Dataset) DuplicateCount() int {
	return d.KeyCount - d.UniqueKeyCount
}

// FieldDiff is a single changed field of a matched identity.
type FieldDiff struct {
	Field      FieldDescriptor `json:"field"`
	StartValue record.Value    `json:"startValue"`
	EndValue   record.Value    `json:"endValue"`
}

// DiffEntry lists the changed fields of one identity present in both datasets.
type DiffEntry struct {
	Key    string      `json:"key"`
	Fields []FieldDiff `json:"fields"`
}

// DiffResult represents the field-level difference between two datasets.
type DiffResult struct {
	// Start is the owner of the baseline dataset.
	Start Owner `json:"start"`

	// End is the owner of the dataset compared against the baseline.
	End Owner `json:"end"`

	// Differences holds one entry per changed identity in start record order.
	Differences []DiffEntry `json:"differences"`
}

// Membership classifies identities that exist on only one side.
type Membership struct {
	// Added holds identity hashes present in end but not in start.
	Added []string `json:"added"`

	// Removed holds identity hashes present in start but not in end.
	Removed []string `json:"removed"`
}

// KeyInfo reports the duplicate identity count of one dataset under the
// active key fields. A positive DuplicateCount is the AmbiguousKey advisory.
type KeyInfo struct {
	Owner          Owner  `json:"owner"`
	Name           string `json:"name"`
	KeyCount       int    `json:"keyCount"`
	UniqueKeyCount int    `json:"uniqueKeyCount"`
	DuplicateCount int    `json:"duplicateCount"`
}

// Ambiguous reports whether comparisons keyed this way are unreliable.
func (k KeyInfo) Ambiguous() bool {
	return k.DuplicateCount > 0
}

// DatasetReader reads a raw document (a record array or a dataset envelope)
// from some source.
type DatasetReader interface {
	// Read returns the whole document.
	Read(ctx context.Context) (record.Value, error)

	// Close closes the reader and releases resources.
	Close() error
}

// DiffWriter writes diff results to a destination.
type DiffWriter interface {
	// Write writes one diff result.
	Write(ctx context.Context, result *DiffResult) error

	// Close closes the writer and flushes any pending data.
	Close() error
}

// ReaderConfig provides configuration for creating a reader.
type ReaderConfig struct {
	// Type is the type of the reader.
	Type string

	// Path is the path to the file.
	Path string

	// BatchSize is the size of batches to read for columnar formats.
	BatchSize int64
}

// WriterConfig provides configuration for creating a writer.
type WriterConfig struct {
	// Type is the type of the writer.
	Type string

	// Path is the path to the file.
	Path string
}

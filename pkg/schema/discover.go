// Package schema derives field configurations and value domains from
// schema-less records and merges them across datasets.
package schema

import (
	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/record"
)

// Discover builds a complete Configuration for records.
//
// Fields in seed are kept verbatim and first, in their given order. Every leaf
// path found in records that the seed does not already declare is appended in
// first-seen order with its field id as display name and groupable set.
// Any extra field sets (key and ignored fields supplied by a loader) are
// treated as additional seeds after the configuration itself.
func Discover(records []record.Value, seed *core.Configuration, extra ...[]core.FieldDescriptor) core.Configuration {
	seen := make(map[string]struct{})
	fields := make([]core.FieldDescriptor, 0)

	add := func(f core.FieldDescriptor) {
		if len(f.Path) == 0 {
			return
		}
		id := f.ID()
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		fields = append(fields, cloneDescriptor(f))
	}

	if seed != nil {
		for _, f := range seed.Fields {
			add(f)
		}
	}
	for _, set := range extra {
		for _, f := range set {
			add(f)
		}
	}

	for _, rec := range records {
		record.WalkLeaves(rec, func(path []string, _ record.Value) {
			id := core.FieldID(path)
			if _, ok := seen[id]; ok {
				return
			}
			add(core.FieldDescriptor{
				Path:        path,
				DisplayName: id,
				Groupable:   true,
			})
		})
	}

	return core.Configuration{Fields: fields}
}

// FieldIDs returns the field ids of cfg in order.
func FieldIDs(cfg core.Configuration) []string {
	ids := make([]string, len(cfg.Fields))
	for i, f := range cfg.Fields {
		ids[i] = f.ID()
	}
	return ids
}

func cloneDescriptor(f core.FieldDescriptor) core.FieldDescriptor {
	path := make([]string, len(f.Path))
	copy(path, f.Path)
	f.Path = path
	return f
}

package schema

import (
	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/record"
)

// MergeConfigurations unions the configurations of datasets, deduplicated by
// field id. The first dataset that declares a field decides its descriptor
// and position.
func MergeConfigurations(datasets []*core.Dataset) core.Configuration {
	seen := make(map[string]struct{})
	fields := make([]core.FieldDescriptor, 0)
	for _, ds := range datasets {
		if ds == nil {
			continue
		}
		for _, f := range ds.Configuration.Fields {
			id := f.ID()
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			fields = append(fields, cloneDescriptor(f))
		}
	}
	return core.Configuration{Fields: fields}
}

// MergeValues unions the value index of every dataset per field id. Only
// datasets declaring a field contribute to it.
func MergeValues(datasets []*core.Dataset) core.Values {
	sets := make(map[string]*record.Set)
	for _, ds := range datasets {
		if ds == nil {
			continue
		}
		for _, f := range ds.Configuration.Fields {
			id := f.ID()
			set, ok := sets[id]
			if !ok {
				set = record.NewSet()
				sets[id] = set
			}
			for _, v := range ds.Values[id] {
				set.Add(v)
			}
		}
	}

	merged := make(core.Values, len(sets))
	for id, set := range sets {
		merged[id] = set.Sorted()
	}
	return merged
}

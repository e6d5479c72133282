package schema

import (
	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/record"
)

// BuildValues computes, for every field of cfg, the sorted distinct values
// observed at that field's path. Records lacking the path contribute nothing.
// Fields with no observed value map to an empty list.
func BuildValues(cfg core.Configuration, records []record.Value) core.Values {
	sets := make(map[string]*record.Set, len(cfg.Fields))
	for _, f := range cfg.Fields {
		sets[f.ID()] = record.NewSet()
	}

	for _, rec := range records {
		for _, f := range cfg.Fields {
			v, ok := rec.Get(f.Path)
			if !ok {
				continue
			}
			sets[f.ID()].Add(v)
		}
	}

	values := make(core.Values, len(sets))
	for id, set := range sets {
		values[id] = set.Sorted()
	}
	return values
}

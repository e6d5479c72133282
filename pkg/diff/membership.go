package diff

import (
	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/keys"
	"github.com/TFMV/vantage/pkg/record"
)

// Classify computes the identities unique to each side: Added holds hashes
// found only in end, Removed those found only in start. Each list follows the
// record order of its side and holds every hash once. A nil dataset counts as
// empty.
func Classify(start, end *core.Dataset, keyFields []core.FieldDescriptor) core.Membership {
	startHashes := distinctHashes(recordsOf(start), keyFields)
	endHashes := distinctHashes(recordsOf(end), keyFields)

	return core.Membership{
		Added:   missingFrom(endHashes, startHashes),
		Removed: missingFrom(startHashes, endHashes),
	}
}

// Union concatenates start's records followed by end's records. Records are
// not deduplicated; a nil side contributes nothing.
func Union(start, end *core.Dataset) []record.Value {
	a, b := recordsOf(start), recordsOf(end)
	out := make([]record.Value, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func recordsOf(ds *core.Dataset) []record.Value {
	if ds == nil {
		return nil
	}
	return ds.Records
}

type orderedSet struct {
	order []string
	index map[string]struct{}
}

func distinctHashes(records []record.Value, keyFields []core.FieldDescriptor) orderedSet {
	s := orderedSet{index: make(map[string]struct{}, len(records))}
	for _, rec := range records {
		h := keys.Hash(rec, keyFields)
		if _, ok := s.index[h]; ok {
			continue
		}
		s.index[h] = struct{}{}
		s.order = append(s.order, h)
	}
	return s
}

func missingFrom(from, other orderedSet) []string {
	out := []string{}
	for _, h := range from.order {
		if _, ok := other.index[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}

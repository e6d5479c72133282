// Package fieldset manages the ordered key and ignored field sets that drive
// identity hashing and comparison.
package fieldset

import (
	"fmt"
	"strings"

	"github.com/TFMV/vantage/pkg/core"
)

// Target names one of the two field sets.
type Target string

const (
	Key     Target = "key"
	Ignored Target = "ignored"
)

// ParseTarget validates a target name.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case Key, Ignored:
		return Target(s), nil
	}
	return "", fmt.Errorf("unknown field set %q", s)
}

// FieldSet is an ordered list of field descriptors, unique by field id.
type FieldSet []core.FieldDescriptor

// Index returns the position of fieldID, or -1.
func (s FieldSet) Index(fieldID string) int {
	for i, f := range s {
		if f.ID() == fieldID {
			return i
		}
	}
	return -1
}

// Contains reports whether fieldID is in the set.
func (s FieldSet) Contains(fieldID string) bool {
	return s.Index(fieldID) >= 0
}

// IDs returns the field ids in order.
func (s FieldSet) IDs() []string {
	ids := make([]string, len(s))
	for i, f := range s {
		ids[i] = f.ID()
	}
	return ids
}

// Clone returns an independent copy.
func (s FieldSet) Clone() FieldSet {
	if s == nil {
		return FieldSet{}
	}
	out := make(FieldSet, len(s))
	copy(out, s)
	return out
}

// Resolve builds a field set from dot-joined field ids. Ids declared by cfg
// take its descriptor; others get a groupable descriptor named after the id.
// Blank and repeated ids are skipped.
func Resolve(cfg core.Configuration, ids []string) FieldSet {
	out := make(FieldSet, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || out.Contains(id) {
			continue
		}
		if f, ok := cfg.Field(id); ok {
			out = append(out, f)
			continue
		}
		out = append(out, core.FieldDescriptor{Path: strings.Split(id, "."), DisplayName: id, Groupable: true})
	}
	return out
}

func (s FieldSet) without(i int) FieldSet {
	out := make(FieldSet, 0, len(s))
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func (s FieldSet) insert(i int, f core.FieldDescriptor) FieldSet {
	if i < 0 {
		i = 0
	}
	if i > len(s) {
		i = len(s)
	}
	out := make(FieldSet, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, f)
	return append(out, s[i:]...)
}

// Selection holds the active key and ignored field sets. It is passed
// explicitly to every engine call.
type Selection struct {
	Key     FieldSet `json:"keyFields"`
	Ignored FieldSet `json:"ignoredFields"`
}

// Changes reports which sets a mutation touched.
type Changes struct {
	Key     bool
	Ignored bool
}

// Any reports whether either set changed.
func (c Changes) Any() bool { return c.Key || c.Ignored }

// Clone returns a deep copy of the selection.
func (s Selection) Clone() Selection {
	return Selection{Key: s.Key.Clone(), Ignored: s.Ignored.Clone()}
}

// Excludes reports whether fieldID is in either set and therefore not
// compared field by field.
func (s Selection) Excludes(fieldID string) bool {
	return s.Key.Contains(fieldID) || s.Ignored.Contains(fieldID)
}

// Move removes the field from whichever set holds it and inserts it into
// target at index, clamped to the target's bounds. The descriptor is taken
// from cfg. Moving a field to the position it already holds changes nothing.
func (s Selection) Move(cfg core.Configuration, fieldID string, target Target, index int) (Selection, Changes, error) {
	if _, err := ParseTarget(string(target)); err != nil {
		return s, Changes{}, err
	}
	f, ok := cfg.Field(fieldID)
	if !ok {
		if i := s.Key.Index(fieldID); i >= 0 {
			f, ok = s.Key[i], true
		} else if i := s.Ignored.Index(fieldID); i >= 0 {
			f, ok = s.Ignored[i], true
		}
	}
	if !ok {
		return s, Changes{}, fmt.Errorf("%w: %s", core.ErrUnknownField, fieldID)
	}

	ki, ii := s.Key.Index(fieldID), s.Ignored.Index(fieldID)
	if target == Key && ki >= 0 && ii < 0 && ki == clamp(index, len(s.Key)-1) {
		return s, Changes{}, nil
	}
	if target == Ignored && ii >= 0 && ki < 0 && ii == clamp(index, len(s.Ignored)-1) {
		return s, Changes{}, nil
	}

	next := s.Clone()
	var changes Changes
	if ki >= 0 {
		next.Key = next.Key.without(ki)
		changes.Key = true
	}
	if ii >= 0 {
		next.Ignored = next.Ignored.without(ii)
		changes.Ignored = true
	}

	switch target {
	case Key:
		next.Key = next.Key.insert(index, f)
		changes.Key = true
	case Ignored:
		next.Ignored = next.Ignored.insert(index, f)
		changes.Ignored = true
	}
	return next, changes, nil
}

// Remove drops fieldID from both sets. A field in neither set is a no-op.
func (s Selection) Remove(fieldID string) (Selection, Changes) {
	next := s.Clone()
	var changes Changes
	if i := next.Key.Index(fieldID); i >= 0 {
		next.Key = next.Key.without(i)
		changes.Key = true
	}
	if i := next.Ignored.Index(fieldID); i >= 0 {
		next.Ignored = next.Ignored.without(i)
		changes.Ignored = true
	}
	if !changes.Any() {
		return s, changes
	}
	return next, changes
}

// Available lists the groupable fields of cfg that are in neither set.
func (s Selection) Available(cfg core.Configuration) []core.FieldDescriptor {
	out := make([]core.FieldDescriptor, 0, len(cfg.Fields))
	for _, f := range cfg.Fields {
		if f.Groupable && !s.Excludes(f.ID()) {
			out = append(out, f)
		}
	}
	return out
}

func clamp(i, hi int) int {
	if i < 0 {
		return 0
	}
	if i > hi {
		return hi
	}
	return i
}

package record

// Leaf is a single scalar (or opaque array) position inside a record.
type Leaf struct {
	Path  []string
	Value Value
}

// Leaves flattens v by recursive descent through nested objects. Arrays are
// not descended into: an array, whatever it holds, is one leaf at its own
// path. Empty objects produce no leaves.
func Leaves(v Value) []Leaf {
	var out []Leaf
	walk(v, nil, func(path []string, leaf Value) {
		out = append(out, Leaf{Path: path, Value: leaf})
	})
	return out
}

// WalkLeaves calls fn for every leaf of v in key order without materializing
// the full leaf list.
func WalkLeaves(v Value, fn func(path []string, leaf Value)) {
	walk(v, nil, fn)
}

func walk(v Value, prefix []string, fn func([]string, Value)) {
	if v.kind != Object {
		if len(prefix) > 0 {
			fn(clonePath(prefix), v)
		}
		return
	}
	for _, k := range v.obj.keys {
		walk(v.obj.values[k], append(prefix, k), fn)
	}
}

func clonePath(p []string) []string {
	out := make([]string, len(p))
	copy(out, p)
	return out
}

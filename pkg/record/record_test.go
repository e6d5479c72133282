package record

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePreservesKeyOrder(t *testing.T) {
	v, err := Parse([]byte(`{"zeta": 1, "alpha": {"b": true, "a": null}, "mid": [1, "x"]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, v.Keys())
	inner, ok := v.Field("alpha")
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, inner.Keys())

	out, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":{"b":true,"a":null},"mid":[1,"x"]}`, string(out))
}

func TestParseRejectsTrailingData(t *testing.T) {
	_, err := Parse([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
}

func TestParseStream(t *testing.T) {
	values, err := ParseStream(strings.NewReader("{\"a\":1}\n{\"a\":2}\n"))
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "2", mustGet(t, values[1], "a").String())
}

func TestGet(t *testing.T) {
	v := ObjectOf("uid", "1", "role", ObjectOf("role", "admin", "confidence", 80))

	got, ok := v.Get([]string{"role", "confidence"})
	require.True(t, ok)
	assert.Equal(t, Number, got.Kind())
	assert.Equal(t, 80.0, got.Number())

	_, ok = v.Get([]string{"role", "missing"})
	assert.False(t, ok)
	_, ok = v.Get([]string{"uid", "deeper"})
	assert.False(t, ok)
	_, ok = v.Get(nil)
	assert.False(t, ok)
}

func TestLeaves(t *testing.T) {
	v := ObjectOf(
		"uid", "1",
		"role", ObjectOf("role", "a", "confidence", 80),
		"tags", []any{"x", "y"},
		"hosts", []any{map[string]any{"ip": "10.0.0.1"}},
		"empty", NewObject(),
	)

	var paths [][]string
	for _, leaf := range Leaves(v) {
		paths = append(paths, leaf.Path)
	}
	assert.Equal(t, [][]string{
		{"uid"},
		{"role", "role"},
		{"role", "confidence"},
		{"tags"},
		{"hosts"},
	}, paths)
}

func TestEqual(t *testing.T) {
	a := ObjectOf("x", 1, "y", []any{1, 2})
	b := ObjectOf("y", []any{1, 2}, "x", 1)
	assert.True(t, Equal(a, b), "key order is irrelevant")

	assert.False(t, Equal(StringValue("1"), NumberValue(1)), "different kinds differ")
	assert.False(t, Equal(ArrayValue(NumberValue(1), NumberValue(2)), ArrayValue(NumberValue(2), NumberValue(1))))
	assert.False(t, Equal(NullValue(), Missing))
	assert.True(t, Equal(Missing, Missing))
}

func TestSortedDistinct(t *testing.T) {
	in := []Value{
		StringValue("b"), NumberValue(10), NumberValue(2), StringValue("a"),
		NumberValue(2), BoolValue(true), NullValue(), StringValue("b"),
	}
	out := SortedDistinct(in)

	var rendered []string
	for _, v := range out {
		rendered = append(rendered, v.Kind().String()+":"+v.String())
	}
	assert.Equal(t, []string{
		"null:null", "boolean:true", "number:2", "number:10", "string:a", "string:b",
	}, rendered)
}

func TestSet(t *testing.T) {
	s := NewSet()
	s.Add(NumberValue(3))
	s.Add(NumberValue(1))
	s.Add(NumberValue(3))
	s.Add(StringValue("3"))
	assert.Equal(t, 3, s.Len())
	sorted := s.Sorted()
	assert.Equal(t, 1.0, sorted[0].Number())
	assert.Equal(t, String, sorted[2].Kind())
}

func TestCanonicalSortsKeys(t *testing.T) {
	v := ObjectOf("b", 1, "a", ObjectOf("d", true, "c", nil))
	assert.Equal(t, `{"a":{"c":null,"d":true},"b":1}`, v.Canonical())
}

func TestWithKeepsPosition(t *testing.T) {
	v := ObjectOf("a", 1, "b", 2)
	w := v.With("a", StringValue("z"))
	assert.Equal(t, []string{"a", "b"}, w.Keys())
	assert.Equal(t, "1", mustGet(t, v, "a").String(), "original is untouched")
	assert.Equal(t, "z", mustGet(t, w, "a").String())
}

func mustGet(t *testing.T, v Value, path ...string) Value {
	t.Helper()
	got, ok := v.Get(path)
	require.True(t, ok, "path %v", path)
	return got
}

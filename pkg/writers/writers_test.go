package writers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/readers"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *core.DiffResult {
	role := core.FieldDescriptor{Path: []string{"role"}, DisplayName: "Role", Groupable: true}
	meta := core.FieldDescriptor{Path: []string{"meta", "b"}, DisplayName: "meta.b", Groupable: true}
	return &core.DiffResult{
		Start: uuid.New(),
		End:   uuid.New(),
		Differences: []core.DiffEntry{
			{Key: "1", Fields: []core.FieldDiff{
				{Field: role, StartValue: record.StringValue("a"), EndValue: record.StringValue("b")},
				{Field: meta, StartValue: record.Missing, EndValue: record.BoolValue(true)},
			}},
			{Key: "2", Fields: []core.FieldDiff{
				{Field: role, StartValue: record.NullValue(), EndValue: record.NumberValue(3)},
			}},
		},
	}
}

func TestFactoryUnsupportedType(t *testing.T) {
	_, err := DefaultFactory.Create(core.WriterConfig{Type: "xml", Path: "out.xml"})
	assert.Error(t, err)
	assert.Equal(t, []string{"arrow", "json", "parquet"}, DefaultFactory.Types())
	_, err = DefaultFactory.Create(core.WriterConfig{Path: "out.txt"})
	assert.ErrorContains(t, err, "supported: arrow, json, parquet")
}

func TestTypeFromPath(t *testing.T) {
	assert.Equal(t, "parquet", TypeFromPath("diff.PARQUET"))
	assert.Equal(t, "arrow", TypeFromPath("diff.feather"))
	assert.Equal(t, "json", TypeFromPath("out/diff.json"))
	assert.Equal(t, "", TypeFromPath("diff.csv"))
}

func TestFactoryInfersTypeFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diff.JSON")
	w, err := DefaultFactory.Create(core.WriterConfig{Path: path})
	require.NoError(t, err)
	_, ok := w.(*JSONWriter)
	assert.True(t, ok)
	require.NoError(t, w.Close())
}

func TestBuildRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec := BuildRecord(mem, sampleResult())
	defer rec.Release()

	assert.EqualValues(t, 3, rec.NumRows())
	assert.EqualValues(t, 5, rec.NumCols())
	assert.True(t, rec.Column(3).IsNull(1), "missing start value is null")
	assert.False(t, rec.Column(3).IsNull(2), "json null is the text null")
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diff.json")
	w, err := DefaultFactory.Create(core.WriterConfig{Type: "json", Path: path})
	require.NoError(t, err)

	result := sampleResult()
	require.NoError(t, w.Write(context.Background(), result))
	require.NoError(t, w.Write(context.Background(), &core.DiffResult{Differences: []core.DiffEntry{}}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := record.Parse(data)
	require.NoError(t, err)
	require.Equal(t, 2, doc.Len())

	key, ok := doc.Items()[0].Get([]string{"differences"})
	require.True(t, ok)
	assert.Equal(t, 2, key.Len())
}

func TestJSONWriterEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diff.json")
	w, err := NewJSONWriter(core.WriterConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := record.Parse(data)
	require.NoError(t, err)
	assert.True(t, doc.IsArray())
	assert.Equal(t, 0, doc.Len())
}

func TestColumnarWritersRoundTrip(t *testing.T) {
	for _, typ := range []string{"parquet", "arrow"} {
		t.Run(typ, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "diff."+typ)
			w, err := DefaultFactory.Create(core.WriterConfig{Type: typ, Path: path})
			require.NoError(t, err)
			require.NoError(t, w.Write(context.Background(), sampleResult()))
			require.NoError(t, w.Close())

			doc, err := readers.DefaultFactory.Load(context.Background(), core.ReaderConfig{Type: typ, Path: path})
			require.NoError(t, err)
			require.Equal(t, 3, doc.Len())

			first := doc.Items()[0]
			assert.Equal(t, []string{"key", "field", "display_name", "start_value", "end_value"}, first.Keys())
			assert.Equal(t, "1", mustField(t, first, "key").Str())
			assert.Equal(t, "role", mustField(t, first, "field").Str())
			assert.Equal(t, "Role", mustField(t, first, "display_name").Str())
			assert.Equal(t, `"a"`, mustField(t, first, "start_value").Str())

			second := doc.Items()[1]
			assert.Equal(t, record.Null, mustField(t, second, "start_value").Kind())
			assert.Equal(t, "true", mustField(t, second, "end_value").Str())
		})
	}
}

func mustField(t *testing.T, v record.Value, key string) record.Value {
	t.Helper()
	f, ok := v.Field(key)
	require.True(t, ok, "missing %s", key)
	return f
}

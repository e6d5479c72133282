package diff

import (
	"context"
	"testing"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/fieldset"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/TFMV/vantage/pkg/schema"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	uidField  = core.FieldDescriptor{Path: []string{"uid"}, DisplayName: "uid", Groupable: true}
	roleField = core.FieldDescriptor{Path: []string{"role"}, DisplayName: "role", Groupable: true}
	tsField   = core.FieldDescriptor{Path: []string{"ts"}, DisplayName: "ts", Groupable: true}
)

func newDataset(records ...record.Value) *core.Dataset {
	ds := &core.Dataset{Owner: uuid.New(), Records: records}
	ds.Configuration = schema.Discover(records, nil)
	return ds
}

func merged(ds ...*core.Dataset) core.Configuration {
	return schema.MergeConfigurations(ds)
}

func TestDiffChangedField(t *testing.T) {
	start := newDataset(
		record.ObjectOf("uid", "1", "role", "a"),
		record.ObjectOf("uid", "2", "role", "b"),
	)
	end := newDataset(
		record.ObjectOf("uid", "1", "role", "a"),
		record.ObjectOf("uid", "2", "role", "c"),
	)
	sel := fieldset.Selection{Key: fieldset.FieldSet{uidField}}

	result, err := NewEngine(Options{}, nil).Diff(context.Background(), start, end, merged(start, end), sel)
	require.NoError(t, err)

	assert.Equal(t, start.Owner, result.Start)
	assert.Equal(t, end.Owner, result.End)
	require.Len(t, result.Differences, 1)
	entry := result.Differences[0]
	assert.Equal(t, "2", entry.Key)
	require.Len(t, entry.Fields, 1)
	assert.Equal(t, "role", entry.Fields[0].Field.ID())
	assert.Equal(t, "b", entry.Fields[0].StartValue.Str())
	assert.Equal(t, "c", entry.Fields[0].EndValue.Str())
}

func TestDiffNoSharedIdentity(t *testing.T) {
	start := newDataset(record.ObjectOf("uid", "1"))
	end := newDataset(record.ObjectOf("uid", "2"))
	sel := fieldset.Selection{Key: fieldset.FieldSet{uidField}}

	result, err := NewEngine(Options{}, nil).Diff(context.Background(), start, end, merged(start, end), sel)
	require.NoError(t, err)
	assert.Empty(t, result.Differences)

	membership := Classify(start, end, sel.Key)
	assert.Equal(t, []string{"2"}, membership.Added)
	assert.Equal(t, []string{"1"}, membership.Removed)
}

func TestDiffMissingCounterpart(t *testing.T) {
	start := newDataset(record.ObjectOf("uid", "1"))

	result, err := NewEngine(Options{}, nil).Diff(context.Background(), start, nil, start.Configuration, fieldset.Selection{})
	require.NoError(t, err)
	assert.Equal(t, start.Owner, result.Start)
	assert.NotNil(t, result.Differences)
	assert.Empty(t, result.Differences)
}

func TestDiffExcludesKeyAndIgnoredFields(t *testing.T) {
	start := newDataset(
		record.ObjectOf("uid", "1", "role", "a", "ts", 1),
		record.ObjectOf("uid", "2", "role", "b", "ts", 1),
	)
	end := newDataset(
		record.ObjectOf("uid", "1", "role", "z", "ts", 2),
		record.ObjectOf("uid", "2", "role", "b", "ts", 3),
	)
	sel := fieldset.Selection{
		Key:     fieldset.FieldSet{uidField},
		Ignored: fieldset.FieldSet{tsField},
	}

	result, err := NewEngine(Options{}, nil).Diff(context.Background(), start, end, merged(start, end), sel)
	require.NoError(t, err)

	require.Len(t, result.Differences, 1)
	for _, entry := range result.Differences {
		for _, fd := range entry.Fields {
			assert.False(t, sel.Excludes(fd.Field.ID()), "field %s must not be reported", fd.Field.ID())
		}
	}
	assert.Equal(t, "role", result.Differences[0].Fields[0].Field.ID())
}

func TestDiffMissingAndNestedValues(t *testing.T) {
	start := newDataset(
		record.ObjectOf("uid", "1", "meta", record.ObjectOf("a", 1), "tags", []any{"x", "y"}),
	)
	end := newDataset(
		record.ObjectOf("uid", "1", "meta", record.ObjectOf("a", 1, "b", true), "tags", []any{"y", "x"}),
	)
	sel := fieldset.Selection{Key: fieldset.FieldSet{uidField}}

	result, err := NewEngine(Options{}, nil).Diff(context.Background(), start, end, merged(start, end), sel)
	require.NoError(t, err)

	require.Len(t, result.Differences, 1)
	fields := result.Differences[0].Fields
	require.Len(t, fields, 2)
	assert.Equal(t, "tags", fields[0].Field.ID())
	assert.Equal(t, "meta.b", fields[1].Field.ID())
	assert.True(t, fields[1].StartValue.IsMissing())
	assert.True(t, fields[1].EndValue.Bool())
}

func TestDiffTypeChangeIsADifference(t *testing.T) {
	start := newDataset(record.ObjectOf("uid", "1", "n", 1))
	end := newDataset(record.ObjectOf("uid", "1", "n", "1"))
	sel := fieldset.Selection{Key: fieldset.FieldSet{uidField}}

	result, err := NewEngine(Options{}, nil).Diff(context.Background(), start, end, merged(start, end), sel)
	require.NoError(t, err)
	require.Len(t, result.Differences, 1)
}

func TestDiffOrderFollowsStartRecords(t *testing.T) {
	var startRecs, endRecs []record.Value
	for _, id := range []string{"c", "a", "d", "b"} {
		startRecs = append(startRecs, record.ObjectOf("uid", id, "role", "old"))
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		endRecs = append(endRecs, record.ObjectOf("uid", id, "role", "new"))
	}
	start, end := newDataset(startRecs...), newDataset(endRecs...)
	sel := fieldset.Selection{Key: fieldset.FieldSet{uidField}}

	for _, opts := range []Options{{}, {Parallel: true, NumWorkers: 3}} {
		result, err := NewEngine(opts, nil).Diff(context.Background(), start, end, merged(start, end), sel)
		require.NoError(t, err)

		var order []string
		for _, e := range result.Differences {
			order = append(order, e.Key)
		}
		assert.Equal(t, []string{"c", "a", "d", "b"}, order)
	}
}

func TestDiffDeterministic(t *testing.T) {
	start := newDataset(
		record.ObjectOf("uid", "1", "role", "a", "x", 1),
		record.ObjectOf("uid", "2", "role", "b", "x", 2),
		record.ObjectOf("uid", "3", "role", "c", "x", 3),
	)
	end := newDataset(
		record.ObjectOf("uid", "3", "role", "C", "x", 3),
		record.ObjectOf("uid", "1", "role", "A", "x", 0),
		record.ObjectOf("uid", "2", "role", "b", "x", 2),
	)
	sel := fieldset.Selection{Key: fieldset.FieldSet{uidField}}
	engine := NewEngine(Options{Parallel: true}, nil)

	first, err := engine.Diff(context.Background(), start, end, merged(start, end), sel)
	require.NoError(t, err)
	second, err := engine.Diff(context.Background(), start, end, merged(start, end), sel)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDiffDuplicateHashLastWriteWins(t *testing.T) {
	start := newDataset(
		record.ObjectOf("uid", "1", "role", "first"),
		record.ObjectOf("uid", "1", "role", "second"),
	)
	end := newDataset(record.ObjectOf("uid", "1", "role", "second"))
	sel := fieldset.Selection{Key: fieldset.FieldSet{uidField}}

	result, err := NewEngine(Options{}, nil).Diff(context.Background(), start, end, merged(start, end), sel)
	require.NoError(t, err)
	assert.Empty(t, result.Differences)

	end = newDataset(
		record.ObjectOf("uid", "1", "role", "second"),
		record.ObjectOf("uid", "1", "role", "third"),
	)
	result, err = NewEngine(Options{}, nil).Diff(context.Background(), start, end, merged(start, end), sel)
	require.NoError(t, err)
	require.Len(t, result.Differences, 1)
	assert.Equal(t, "second", result.Differences[0].Fields[0].StartValue.Str())
	assert.Equal(t, "third", result.Differences[0].Fields[0].EndValue.Str())
}

func TestDiffWithoutKeysMatchesIdenticalContent(t *testing.T) {
	rec := record.ObjectOf("uid", "1", "role", "a")
	start := newDataset(rec, record.ObjectOf("uid", "2"))
	end := newDataset(rec)

	result, err := NewEngine(Options{}, nil).Diff(context.Background(), start, end, merged(start, end), fieldset.Selection{})
	require.NoError(t, err)
	assert.Empty(t, result.Differences)

	membership := Classify(start, end, nil)
	assert.Len(t, membership.Removed, 1)
	assert.Empty(t, membership.Added)
}

func TestDiffCanceled(t *testing.T) {
	start := newDataset(record.ObjectOf("uid", "1", "role", "a"))
	end := newDataset(record.ObjectOf("uid", "1", "role", "b"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(Options{}, nil).Diff(ctx, start, end, merged(start, end), fieldset.Selection{Key: fieldset.FieldSet{uidField}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComparableFields(t *testing.T) {
	cfg := core.Configuration{Fields: []core.FieldDescriptor{uidField, roleField, tsField}}
	sel := fieldset.Selection{Key: fieldset.FieldSet{uidField}, Ignored: fieldset.FieldSet{tsField}}
	assert.Equal(t, []core.FieldDescriptor{roleField}, ComparableFields(cfg, sel))
}

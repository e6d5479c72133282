package document

import (
	"context"
	"testing"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/fieldset"
	"github.com/TFMV/vantage/pkg/notes"
	"github.com/TFMV/vantage/pkg/readers"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/TFMV/vantage/pkg/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) (*store.Store, *notes.Store, []core.Owner) {
	t.Helper()
	s := store.New(store.Options{}, nil)
	src := "hosts.json"
	owners := []core.Owner{uuid.New(), uuid.New()}
	require.NoError(t, s.SetDatasets(context.Background(), []store.Input{
		{Owner: owners[0], Name: "Before", ShortName: "B", Source: &src, Records: []record.Value{
			record.ObjectOf("uid", "1", "role", "a"),
		}},
		{Owner: owners[1], Name: "After", ShortName: "A", Records: []record.Value{
			record.ObjectOf("uid", "1", "role", "b"),
		}},
	}, nil))
	_, err := s.MoveField("uid", fieldset.Key, 0)
	require.NoError(t, err)
	s.SetControls(record.ObjectOf("colorBy", "role"))

	n := notes.New()
	require.NoError(t, n.Add(record.ObjectOf("id", "n1", "note", "check")))
	return s, n, owners
}

func TestExportShape(t *testing.T) {
	s, n, owners := seeded(t)

	doc, err := Export(s, n)
	require.NoError(t, err)
	assert.Equal(t, []string{"datasets", "keyFields", "ignoredFields", "controls", "notes"}, doc.Keys())

	datasets, _ := doc.Field("datasets")
	assert.Equal(t, []string{owners[0].String(), owners[1].String()}, datasets.Keys())

	env, _ := datasets.Field(owners[0].String())
	assert.Equal(t, []string{"dataset", "configuration", "name", "shortName", "source"}, env.Keys())
	source, _ := env.Field("source")
	assert.Equal(t, "hosts.json", source.Str())
	other, _ := datasets.Field(owners[1].String())
	source, _ = other.Field("source")
	assert.Equal(t, record.Null, source.Kind())

	keyFields, _ := doc.Field("keyFields")
	require.Equal(t, 1, keyFields.Len())
	path, ok := keyFields.Items()[0].Get([]string{"path"})
	require.True(t, ok)
	assert.Equal(t, "uid", path.Items()[0].Str())
}

func TestExportImportRoundTrip(t *testing.T) {
	s, n, owners := seeded(t)
	data, err := Marshal(s, n)
	require.NoError(t, err)

	doc, err := record.Parse(data)
	require.NoError(t, err)

	restored := store.New(store.Options{}, nil)
	restoredNotes := notes.New()
	include := true
	payload, err := Import(context.Background(), restored, restoredNotes, readers.Request{
		Content:         doc,
		IncludeControls: &include,
		IncludeNotes:    &include,
	}, nil)
	require.NoError(t, err)
	assert.Len(t, payload.Datasets, 2)

	assert.Equal(t, owners, restored.Owners())
	before, ok := restored.Dataset(owners[0])
	require.True(t, ok)
	assert.Equal(t, "Before", before.Name)
	assert.Equal(t, "B", before.ShortName)
	require.NotNil(t, before.Source)
	assert.Equal(t, "hosts.json", *before.Source)
	assert.Equal(t, []string{"uid"}, restored.KeyFields().IDs())

	original, _ := s.Dataset(owners[0])
	assert.Equal(t, original.Configuration, before.Configuration)
	assert.True(t, record.Equal(s.Controls(), restored.Controls()))
	assert.Equal(t, 1, restoredNotes.Len())
}

func TestImportDefaultsSkipControlsAndNotes(t *testing.T) {
	s, n, _ := seeded(t)
	doc, err := Export(s, n)
	require.NoError(t, err)

	restored := store.New(store.Options{}, nil)
	restoredNotes := notes.New()
	_, err = Import(context.Background(), restored, restoredNotes, readers.Request{Content: doc}, nil)
	require.NoError(t, err)

	assert.Len(t, restored.Datasets(), 2)
	assert.Equal(t, 0, restored.Controls().Len())
	assert.Equal(t, 0, restoredNotes.Len())
}

func TestImportMalformedLeavesStoreUntouched(t *testing.T) {
	s := store.New(store.Options{}, nil)
	_, err := Import(context.Background(), s, nil, readers.Request{Content: record.NumberValue(3)}, nil)
	assert.ErrorIs(t, err, core.ErrMalformedInput)
	assert.Empty(t, s.Datasets())

	doc, err := record.Parse([]byte(`{
		"dataset": [{"uid": "1"}],
		"keyFields": [{"path": ["uid"], "displayName": "uid", "groupable": true}],
		"notes": {"byId": [1]}
	}`))
	require.NoError(t, err)
	include := true
	n := notes.New()
	_, err = Import(context.Background(), s, n, readers.Request{Content: doc, IncludeNotes: &include}, nil)
	assert.ErrorIs(t, err, core.ErrMalformedInput)
	assert.Empty(t, s.Datasets())
	assert.Empty(t, s.KeyFields())
	assert.Equal(t, 0, n.Len())
}

package fieldset

import (
	"testing"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fd(id string, groupable bool) core.FieldDescriptor {
	return core.FieldDescriptor{Path: []string{id}, DisplayName: id, Groupable: groupable}
}

var cfg = core.Configuration{Fields: []core.FieldDescriptor{
	fd("uid", true), fd("role", true), fd("ts", true), fd("note", false),
}}

func TestMoveIntoEmptySet(t *testing.T) {
	sel, changes, err := Selection{}.Move(cfg, "uid", Key, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"uid"}, sel.Key.IDs())
	assert.Equal(t, Changes{Key: true}, changes)
}

func TestMoveReordersWithinSet(t *testing.T) {
	sel := Selection{Key: FieldSet{fd("uid", true), fd("role", true), fd("ts", true)}}

	next, changes, err := sel.Move(cfg, "ts", Key, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"ts", "uid", "role"}, next.Key.IDs())
	assert.True(t, changes.Key)
	assert.False(t, changes.Ignored)
	assert.Equal(t, []string{"uid", "role", "ts"}, sel.Key.IDs(), "receiver is not mutated")
}

func TestMoveBetweenSets(t *testing.T) {
	sel := Selection{
		Key:     FieldSet{fd("uid", true), fd("role", true)},
		Ignored: FieldSet{fd("ts", true)},
	}

	next, changes, err := sel.Move(cfg, "role", Ignored, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"uid"}, next.Key.IDs())
	assert.Equal(t, []string{"role", "ts"}, next.Ignored.IDs())
	assert.Equal(t, Changes{Key: true, Ignored: true}, changes)
	assert.False(t, next.Key.Contains("role"), "a field lives in at most one set")
}

func TestMoveToSamePositionIsNoop(t *testing.T) {
	sel := Selection{Key: FieldSet{fd("uid", true), fd("role", true)}}

	next, changes, err := sel.Move(cfg, "role", Key, 9)
	require.NoError(t, err)
	assert.False(t, changes.Any())
	assert.Equal(t, sel, next)
}

func TestMoveUnknownField(t *testing.T) {
	_, _, err := Selection{}.Move(cfg, "nope", Key, 0)
	assert.ErrorIs(t, err, core.ErrUnknownField)

	_, _, err = Selection{}.Move(cfg, "uid", Target("elsewhere"), 0)
	assert.Error(t, err)
}

func TestMoveFieldOnlyKnownToSet(t *testing.T) {
	sel := Selection{Ignored: FieldSet{fd("timestamp", true)}}
	next, _, err := sel.Move(cfg, "timestamp", Key, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"timestamp"}, next.Key.IDs())
	assert.Empty(t, next.Ignored)
}

func TestRemove(t *testing.T) {
	sel := Selection{
		Key:     FieldSet{fd("uid", true)},
		Ignored: FieldSet{fd("ts", true)},
	}

	next, changes := sel.Remove("ts")
	assert.Equal(t, Changes{Ignored: true}, changes)
	assert.Empty(t, next.Ignored)
	assert.Equal(t, []string{"uid"}, next.Key.IDs())

	same, changes := next.Remove("absent")
	assert.False(t, changes.Any())
	assert.Equal(t, next, same)
}

func TestAvailable(t *testing.T) {
	sel := Selection{Key: FieldSet{fd("uid", true)}, Ignored: FieldSet{fd("ts", true)}}
	available := sel.Available(cfg)
	require.Len(t, available, 1)
	assert.Equal(t, "role", available[0].ID())
}

func TestParseTarget(t *testing.T) {
	target, err := ParseTarget("ignored")
	require.NoError(t, err)
	assert.Equal(t, Ignored, target)

	_, err = ParseTarget("keys")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	set := Resolve(cfg, []string{"role", " meta.site ", "", "role"})
	require.Len(t, set, 2)
	assert.Equal(t, fd("role", true), set[0])
	assert.Equal(t, []string{"meta", "site"}, set[1].Path)
	assert.Equal(t, "meta.site", set[1].DisplayName)
	assert.True(t, set[1].Groupable)

	assert.Empty(t, Resolve(cfg, nil))
}

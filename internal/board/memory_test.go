package board

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/tidecall/internal/geometry"
)

func testBoard() *MemoryBoard {
	return NewMemoryBoard(geometry.Grid{CellPx: 100, UnitsPerCell: 5})
}

func TestMemoryBoard_CreateAndQuery(t *testing.T) {
	b := testBoard()
	b.AddTemplate(&Template{Name: "Deep Tentacle", Defense: 12, HP: 20})

	tpl, err := b.Template("Deep Tentacle")
	require.NoError(t, err)

	id, err := b.CreateEntity(context.Background(), tpl, geometry.Point{X: 100, Y: 200}, 1, false)
	require.NoError(t, err)

	e, err := b.Entity(id)
	require.NoError(t, err)
	assert.Equal(t, "Deep Tentacle", e.Name)
	assert.Equal(t, 100.0, e.Width, "width defaults to one cell")
	assert.True(t, e.HasActor)

	matched := b.Query(func(e *Entity) bool { return e.Disposition == 1 })
	assert.Len(t, matched, 1)
}

func TestMemoryBoard_TemplateNotFound(t *testing.T) {
	b := testBoard()
	_, err := b.Template("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBoard_DeleteEntities_IgnoresMisses(t *testing.T) {
	b := testBoard()
	id := b.PlaceEntity(&Entity{Name: "goblin"})

	removed, err := b.DeleteEntities(context.Background(), []EntityID{id, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = b.DeleteEntities(context.Background(), []EntityID{id})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestMemoryBoard_Attrs(t *testing.T) {
	b := testBoard()
	id := b.PlaceEntity(&Entity{Name: "goblin"})

	require.NoError(t, b.SetAttr(context.Background(), id, "ownerKey", "abc"))
	v, ok := b.Attr(id, "ownerKey")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	_, ok = b.Attr("missing", "ownerKey")
	assert.False(t, ok)
}

func TestMemoryBoard_Actions(t *testing.T) {
	b := testBoard()
	id := b.PlaceEntity(&Entity{Name: "goblin"})

	aid, err := b.CreateAction(context.Background(), id, Action{Name: "Bite", DamageDice: 1, DamageSides: 6})
	require.NoError(t, err)

	a, err := b.ActionByName(id, "Bite")
	require.NoError(t, err)
	assert.Equal(t, aid, a.ID)

	_, err = b.ActionByName(id, "Claw")
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err := b.DeleteActions(context.Background(), id, []string{aid, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Empty(t, b.Actions(id))
}

func TestMemoryBoard_DeleteEntityDropsActions(t *testing.T) {
	b := testBoard()
	id := b.PlaceEntity(&Entity{Name: "goblin"})
	_, err := b.CreateAction(context.Background(), id, Action{Name: "Bite"})
	require.NoError(t, err)

	_, err = b.DeleteEntities(context.Background(), []EntityID{id})
	require.NoError(t, err)
	assert.Empty(t, b.Actions(id))
}

func TestMemoryBoard_ApplyDamage(t *testing.T) {
	b := testBoard()
	id := b.PlaceEntity(&Entity{Name: "goblin", HP: 10})

	require.NoError(t, b.ApplyDamage(context.Background(), id, 4))
	e, err := b.Entity(id)
	require.NoError(t, err)
	assert.Equal(t, 6, e.HP)
}

func TestOccupiedAt(t *testing.T) {
	b := testBoard()
	b.PlaceEntity(&Entity{Name: "big", Pos: geometry.Point{X: 100, Y: 100}, Width: 200, Height: 200})

	assert.True(t, OccupiedAt(b, geometry.Point{X: 250, Y: 150}))
	assert.False(t, OccupiedAt(b, geometry.Point{X: 350, Y: 150}))
}

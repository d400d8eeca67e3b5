package world

import (
	"testing"

	"github.com/joeycumines/colony-brain/internal/sim"
	"github.com/joeycumines/colony-brain/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corridor = []string{
	"#######",
	"#.....#",
	"#.###.#",
	"#.....#",
	"#######",
}

func TestParse(t *testing.T) {
	t.Parallel()

	w, err := Parse(corridor)
	require.NoError(t, err)
	width, height := w.Size()
	assert.Equal(t, 7, width)
	assert.Equal(t, 5, height)
	assert.True(t, w.Walkable(sim.Tile{X: 1, Y: 1}))
	assert.False(t, w.Walkable(sim.Tile{X: 2, Y: 2}))
	assert.False(t, w.Walkable(sim.Tile{X: -1, Y: 1}))
	assert.False(t, w.Walkable(sim.Tile{X: 7, Y: 1}))

	_, err = Parse(nil)
	assert.Error(t, err)
	_, err = Parse([]string{"...", ".."})
	assert.ErrorContains(t, err, "width")
	_, err = Parse([]string{".x."})
	assert.ErrorContains(t, err, "unknown tile")
	assert.Panics(t, func() { MustParse("?") })
}

func TestNeighbors(t *testing.T) {
	t.Parallel()

	w := MustParse(corridor...)
	var got []sim.Tile
	for _, n := range w.Neighbors(sim.Tile{X: 1, Y: 2}) {
		got = append(got, n.Tile)
		assert.Equal(t, 1.0, n.Cost)
	}
	assert.Equal(t, []sim.Tile{{X: 1, Y: 1}, {X: 1, Y: 3}}, got, "north first, then clockwise")
}

func TestFindPath(t *testing.T) {
	t.Parallel()

	w := MustParse(corridor...)
	path, ok := w.FindPath(sim.Tile{X: 1, Y: 1}, sim.Tile{X: 5, Y: 3})
	require.True(t, ok)
	assert.Len(t, path, 6)
	assert.Equal(t, sim.Tile{X: 5, Y: 3}, path[len(path)-1])
	prev := sim.Tile{X: 1, Y: 1}
	for _, step := range path {
		assert.Equal(t, 1, prev.Manhattan(step), "steps are adjacent")
		assert.True(t, w.Walkable(step))
		prev = step
	}

	path, ok = w.FindPath(sim.Tile{X: 1, Y: 1}, sim.Tile{X: 1, Y: 1})
	require.True(t, ok)
	assert.Empty(t, path)

	_, ok = w.FindPath(sim.Tile{X: 1, Y: 1}, sim.Tile{X: 3, Y: 2})
	assert.False(t, ok, "walls are unreachable")

	island := MustParse(
		".#.",
	)
	_, ok = island.FindPath(sim.Tile{X: 0}, sim.Tile{X: 2})
	assert.False(t, ok)
}

func TestEntities(t *testing.T) {
	t.Parallel()

	w := MustParse(corridor...)
	a, err := w.Spawn(sim.Tile{X: 1, Y: 1})
	require.NoError(t, err)
	_, err = w.Spawn(sim.Tile{X: 0, Y: 0})
	assert.ErrorIs(t, err, ErrBlocked)

	require.NoError(t, w.SetPosition(a, sim.Tile{X: 2, Y: 1}))
	assert.ErrorIs(t, w.SetPosition(a, sim.Tile{X: 2, Y: 2}), ErrBlocked)
	pos, ok := w.Position(a)
	require.True(t, ok)
	assert.Equal(t, sim.Tile{X: 2, Y: 1}, pos)

	require.NoError(t, w.SetFact(a, "hunger", 0.5))
	require.NoError(t, w.Give(a, "wood", 3))
	vars := w.Vars(a)
	assert.Equal(t, 0.5, vars["hunger"])
	assert.Equal(t, 3, vars["wood"])
	assert.Equal(t, 2, vars["x"])

	w.Remove(a)
	_, ok = w.Position(a)
	assert.False(t, ok)
	assert.ErrorIs(t, w.SetPosition(a, sim.Tile{X: 1, Y: 1}), ErrUnknownEntity)
	assert.Empty(t, w.Vars(a))
	assert.Empty(t, w.Entities())
}

func TestInventoryAndRequirements(t *testing.T) {
	t.Parallel()

	w := MustParse(corridor...)
	a, err := w.Spawn(sim.Tile{X: 1, Y: 1})
	require.NoError(t, err)

	w.Require("mine", "pickaxe", 1)
	err = w.CanInitiate(a, "mine")
	var missing *sim.MissingResourceError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "pickaxe", missing.Resource)
	assert.NoError(t, w.CanInitiate(a, "haul"))

	require.NoError(t, w.Give(a, "pickaxe", 1))
	assert.NoError(t, w.CanInitiate(a, "mine"))
	assert.Error(t, w.Give(a, "pickaxe", -1))

	require.ErrorAs(t, w.Take(a, "pickaxe", 2), &missing)
	require.NoError(t, w.Take(a, "pickaxe", 1))
	assert.Zero(t, w.Count(a, "pickaxe"))
	assert.ErrorIs(t, w.CanInitiate(99, "mine"), ErrUnknownEntity)
}

func TestTaskOwners(t *testing.T) {
	t.Parallel()

	w := MustParse(corridor...)
	rock, err := w.Spawn(sim.Tile{X: 5, Y: 1})
	require.NoError(t, err)
	_, err = w.Spawn(sim.Tile{X: 1, Y: 1})
	require.NoError(t, err)

	q, err := w.Queue(rock)
	require.NoError(t, err)
	again, err := w.Queue(rock)
	require.NoError(t, err)
	assert.Same(t, q, again)
	q.Insert(tasks.New(tasks.Mine, 1, "mine"))

	owners := w.TaskOwners()
	require.Len(t, owners, 1)
	assert.Equal(t, rock, owners[0].Entity)
	assert.Equal(t, sim.Tile{X: 5, Y: 1}, owners[0].Location)
	_, err = w.Queue(42)
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

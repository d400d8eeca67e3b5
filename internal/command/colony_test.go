package command

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/joeycumines/colony-brain/internal/sim"
	"github.com/joeycumines/colony-brain/internal/tasks"
	"github.com/joeycumines/colony-brain/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quarry = []string{
	"#######",
	"#c..r.#",
	"#.....#",
	"#######",
}

func stepN(t *testing.T, c *colony, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		require.NoError(t, c.step(ctx))
	}
}

func TestParseLayout(t *testing.T) {
	t.Parallel()

	w, markers, err := parseLayout(quarry)
	require.NoError(t, err)
	assert.Equal(t, []marker{
		{kind: 'c', tile: sim.Tile{X: 1, Y: 1}},
		{kind: 'r', tile: sim.Tile{X: 4, Y: 1}},
	}, markers)
	assert.True(t, w.Walkable(sim.Tile{X: 4, Y: 1}), "markers are floor")
	assert.False(t, w.Walkable(sim.Tile{X: 0, Y: 1}))

	_, _, err = parseLayout([]string{"#x#"})
	assert.ErrorContains(t, err, "unknown tile")
}

func TestNewColony_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		layout []string
		opts   colonyOptions
		msg    string
	}{
		{"too many colonists", quarry, colonyOptions{Agents: 2}, "1 colonist spawn points, need 2"},
		{"bad layout", []string{"#?#"}, colonyOptions{Agents: 1}, "invalid layout"},
		{"bad condition", quarry, colonyOptions{Agents: 1, Conditions: map[string]string{"hungry": "hunger >="}}, `condition "hungry"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newColony(tt.layout, tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestColony_LivesItsDay(t *testing.T) {
	t.Parallel()

	c, err := newColony(quarry, colonyOptions{Agents: 1, WorkTicks: 3})
	require.NoError(t, err)
	require.Len(t, c.colonists, 1)
	stepN(t, c, 300)

	s := c.stats()
	assert.Equal(t, uint64(300), s.Frame)
	assert.Positive(t, s.Tasks[tasks.Mine.String()], "the colonist mines")
	assert.Positive(t, s.Meals, "hunger wins over work")
	assert.Positive(t, s.Rests, "fatigue wins over work")

	rock := c.world.TaskOwners()
	require.Len(t, rock, 1)
	assert.Equal(t, 1, rock[0].Queue.Len(), "completed tasks are replaced")

	n := c.needs[c.colonists[0]]
	assert.Equal(t, n.hunger, c.world.Vars(c.colonists[0])[factHunger], "needs are published as facts")
	assert.Equal(t, n.energy, c.world.Vars(c.colonists[0])[factEnergy])
}

func TestColony_ConditionsFromConfig(t *testing.T) {
	t.Parallel()

	c, err := newColony(quarry, colonyOptions{
		Agents:     1,
		WorkTicks:  3,
		Conditions: map[string]string{"hungry": "hunger >= 1000"},
	})
	require.NoError(t, err)
	stepN(t, c, 200)

	s := c.stats()
	assert.Zero(t, s.Meals, "the eat tree is gated on hungry")
	assert.Positive(t, s.Tasks[tasks.Mine.String()])
	assert.Equal(t, 100, c.needs[c.colonists[0]].hunger)
}

func TestColony_OnlyTheFirstColonistChops(t *testing.T) {
	t.Parallel()

	c, err := newColony(defaultLayout, colonyOptions{Agents: 3, WorkTicks: 2})
	require.NoError(t, err)
	agents := c.sys.Agents()
	require.Len(t, agents, 3)
	assert.Len(t, agents[0].Priorities, 2)
	assert.Equal(t, 1, c.world.Count(agents[0].ID, "axe"))
	for _, a := range agents[1:] {
		require.Len(t, a.Priorities, 1)
		assert.Equal(t, tasks.Mine, a.Priorities[0].Kind)
		assert.Zero(t, c.world.Count(a.ID, "axe"))
	}
	assert.Len(t, c.world.TaskOwners(), 5, "three rocks and two trees")
}

func TestColony_Report(t *testing.T) {
	t.Parallel()

	c, err := newColony(quarry, colonyOptions{Agents: 1, WorkTicks: 3})
	require.NoError(t, err)

	var out bytes.Buffer
	c.report(&out)
	assert.Contains(t, out.String(), "frames: 0\n")
	assert.Contains(t, out.String(), "tasks completed: none\n")

	stepN(t, c, 20)
	out.Reset()
	c.report(&out)
	for _, want := range []string{"frames: 20", "tasks completed: mine=", "AGENT", "POSITION", "work"} {
		assert.Contains(t, out.String(), want)
	}
}

func TestColony_Run(t *testing.T) {
	t.Parallel()

	t.Run("tick budget", func(t *testing.T) {
		c, err := newColony(quarry, colonyOptions{Agents: 1, WorkTicks: 3})
		require.NoError(t, err)
		require.NoError(t, c.run(context.Background(), 15, time.Millisecond, time.Millisecond))
		assert.Equal(t, uint64(15), c.stats().Frame)
	})

	t.Run("cancellation is not an error", func(t *testing.T) {
		c, err := newColony(quarry, colonyOptions{Agents: 1, WorkTicks: 3})
		require.NoError(t, err)
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		require.NoError(t, c.run(ctx, 0, time.Millisecond, 0))
		assert.Positive(t, c.stats().Frame)
	})

	t.Run("no budget runs until cancelled", func(t *testing.T) {
		c, err := newColony(quarry, colonyOptions{Agents: 1, WorkTicks: 3})
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- c.run(ctx, 0, time.Millisecond, 0) }()

		s, err := testutil.WaitForState(context.Background(), c.stats,
			func(s colonyStats) bool { return s.Frame >= 10 },
			10*time.Second,
			time.Millisecond)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.Frame, uint64(10))
		cancel()
		require.NoError(t, <-done)
	})
}

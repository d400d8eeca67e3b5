package utility

import (
	"math"
	"testing"

	"github.com/joeycumines/colony-brain/internal/behavior"
	"github.com/joeycumines/colony-brain/internal/curve"
	"github.com/joeycumines/colony-brain/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type factView map[sim.Entity]map[string]any

func (v factView) Position(sim.Entity) (sim.Tile, bool) { return sim.Tile{}, false }

func (v factView) Vars(e sim.Entity) map[string]any { return v[e] }

func consts(scores ...float64) []Consideration {
	out := make([]Consideration, len(scores))
	for i, s := range scores {
		out[i] = Const("c", s)
	}
	return out
}

func TestDecision_Score(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		base   float64
		scores []float64
		want   float64
	}{
		{"no considerations returns base", 0.4, nil, 0.4},
		{"single zero consideration scores zero", 1.0, []float64{0.0}, 0.0},
		{"single consideration has no compensation", 1.0, []float64{0.8}, 0.8},
		{"two halves compensate", 1.0, []float64{0.5, 0.5}, 0.419921875},
		{"zero is excluded but still counted for the modifier", 0.5, []float64{0.0, 1.0}, 0.625},
		{"negative scores are excluded", 1.0, []float64{-3, 0.5}, 0.625},
		{"scores above one are clamped", 1.0, []float64{7}, 1.0},
		{"all excluded scores zero", 0.9, []float64{0, -1, 0}, 0},
		{"NaN is excluded", 1.0, []float64{math.NaN(), 0.5}, 0.625},
		{"only NaN scores zero", 0.7, []float64{math.NaN()}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Decision{Name: "d", Base: tt.base, Considerations: consts(tt.scores...)}
			assert.InDelta(t, tt.want, d.Score(Context{}), 1e-9)
		})
	}
}

func TestCurvedAndExtractors(t *testing.T) {
	t.Parallel()

	view := factView{1: {"hunger": 80, "fed": true, "name": "urist"}}
	ctx := Context{View: view, Agent: 1}

	c := Curved{Label: "hunger", Curve: curve.Identity, Input: Var("hunger")}
	assert.Equal(t, 1.0, c.Score(ctx), "raw inputs are clamped by the curve")
	assert.Equal(t, "hunger", c.Name())

	in, err := ExprExtractor("hunger / 100")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, in(ctx), 1e-9)

	in, err = ExprExtractor("fed")
	require.NoError(t, err)
	assert.Equal(t, 1.0, in(ctx))

	in, err = ExprExtractor("name")
	require.NoError(t, err)
	assert.Zero(t, in(ctx), "non-numeric results extract zero")

	assert.Zero(t, Var("missing")(ctx))
	assert.Zero(t, Var("hunger")(Context{}), "no view")

	_, err = ExprExtractor("hunger /")
	assert.Error(t, err)
	assert.Panics(t, func() { Func("nil", nil) })
}

func TestBuild(t *testing.T) {
	t.Parallel()

	curves, err := curve.ParseTable(map[string]string{"steep": "exponential k=2"})
	require.NoError(t, err)

	d, err := Build(DecisionDef{
		Name: "eat",
		Base: 1,
		Considerations: []ConsiderationDef{
			{Name: "hunger", Input: "hunger / 100", Curve: "steep"},
			{Name: "has_food", Input: "food > 0", Curve: "linear"},
		},
	}, curves)
	require.NoError(t, err)
	require.Len(t, d.Considerations, 2)

	ctx := Context{View: factView{1: {"hunger": 50, "food": 3}}, Agent: 1}
	// 0.25 then 1.0, modifier 0.5
	acc := 0.25
	acc += (1 - acc) * 0.5 * acc
	acc *= 1.0
	acc += (1 - acc) * 0.5 * acc
	assert.InDelta(t, acc, d.Score(ctx), 1e-9)

	_, err = Build(DecisionDef{Name: "bad", Base: 2}, curves)
	assert.ErrorContains(t, err, "outside [0,1]")
	_, err = Build(DecisionDef{Name: "bad", Base: 1, Considerations: []ConsiderationDef{{Name: "x", Input: "1", Curve: "wobbly"}}}, curves)
	assert.Error(t, err)
	_, err = Build(DecisionDef{}, curves)
	assert.Error(t, err)
}

func TestBinding_Cooldown(t *testing.T) {
	t.Parallel()

	calls := 0
	d := &Decision{Name: "count", Base: 1, Considerations: []Consideration{
		Func("calls", func(Context) float64 { calls++; return 0.5 }),
	}}
	b := Binding{Decision: d, Cooldown: 2}

	assert.True(t, b.Stale(0), "never evaluated")
	b.Refresh(Context{}, 10)
	assert.Equal(t, 0.5, b.Score)
	assert.False(t, b.Stale(11))
	assert.False(t, b.Stale(12), "cooldown must be exceeded, not reached")
	assert.True(t, b.Stale(13))

	s := State{}
	s.Add(b)
	assert.Zero(t, s.Refresh(Context{}, 12))
	assert.Equal(t, 1, s.Refresh(Context{}, 13))
	assert.Equal(t, 2, calls)
}

func TestState_Ranked(t *testing.T) {
	t.Parallel()

	var s State
	s.Idle(&Decision{Name: "idle", Base: 0.1}, 0)
	s.Bind(&Decision{Name: "haul", Base: 0.5}, 0, behavior.Handle(1))
	s.Bind(&Decision{Name: "mine", Base: 0.5}, 0, behavior.Handle(2))
	s.Bind(&Decision{Name: "eat", Base: 0.9}, 0, behavior.Handle(3))

	assert.Equal(t, 4, s.Refresh(Context{}, 0))
	assert.Equal(t, []int{3, 1, 2, 0}, s.Ranked(), "ties keep binding order")
	assert.Equal(t, 0, s.IdleIndex)
	assert.False(t, s.Bindings[s.IdleIndex].HasBehavior)

	s.CurrentIndex = 3
	require.NotNil(t, s.Current())
	assert.Equal(t, "eat", s.Current().Decision.Name)
	s.CurrentIndex = 9
	assert.Nil(t, s.Current())
}

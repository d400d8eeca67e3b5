package plan

import (
	"errors"
	"testing"

	"github.com/joeycumines/colony-brain/internal/behavior"
	bt "github.com/joeycumines/go-behaviortree"
	pabt "github.com/joeycumines/go-pabt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tileKey struct{ x, y int }

func (k tileKey) String() string { return "tile" }

func succeed(fn func()) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		fn()
		return bt.Success, nil
	})
}

// meal registers forage (food = true) and eat (needs food, fed = true).
func meal(calls *int) func(bb *behavior.Blackboard, s *State) {
	return func(bb *behavior.Blackboard, s *State) {
		*calls++
		s.Register("forage", Build("forage").
			Sets("food", true).
			Do(succeed(func() { bb.Set("food", true) })))
		s.Register("eat", Build("eat").
			When(Equal("food", true)).
			Sets("fed", true).
			Do(succeed(func() {
				bb.Set("fed", true)
				bb.Delete("food")
			})))
	}
}

func newLeaf(calls *int) *Leaf[*behavior.Blackboard] {
	return &Leaf[*behavior.Blackboard]{
		Goal:       []pabt.IConditions{{Equal("fed", true)}},
		Blackboard: func(bb *behavior.Blackboard) *behavior.Blackboard { return bb },
		Actions:    meal(calls),
	}
}

func TestState_Variable(t *testing.T) {
	t.Parallel()

	bb := new(behavior.Blackboard)
	bb.Set("hungry", true)
	bb.Set("7", "seven")
	bb.Set("tile", 3)
	s := NewState(bb)

	tests := []struct {
		key  any
		want any
	}{
		{"hungry", true},
		{7, "seven"},
		{uint8(7), "seven"},
		{tileKey{}, 3},
		{"missing", nil},
	}
	for _, tt := range tests {
		v, err := s.Variable(tt.key)
		require.NoError(t, err)
		assert.Equal(t, tt.want, v, "%v", tt.key)
	}

	_, err := s.Variable(nil)
	assert.Error(t, err)
	_, err = s.Variable(1.5)
	assert.Error(t, err)
	assert.Panics(t, func() { NewState(nil) })
}

func TestState_Actions(t *testing.T) {
	t.Parallel()

	noop := succeed(func() {})
	s := NewState(new(behavior.Blackboard))
	s.Register("b-fill", Build("b-fill").Sets("full", true).Do(noop))
	s.Register("a-fill", Build("a-fill").Sets("full", true).Do(noop))
	s.Register("drain", Build("drain").Sets("full", false).Do(noop))

	names := func(actions []pabt.IAction) []string {
		var out []string
		for _, a := range actions {
			out = append(out, a.(*Action).Name)
		}
		return out
	}

	all, err := s.Actions(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-fill", "b-fill", "drain"}, names(all))

	got, err := s.Actions(Equal("full", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"a-fill", "b-fill"}, names(got))

	got, err = s.Actions(Equal("other", true))
	require.NoError(t, err)
	assert.Empty(t, got)

	s.SetGenerator(func(failed pabt.Condition) ([]pabt.IAction, error) {
		return []pabt.IAction{Build("generated").Sets("full", true).Do(noop)}, nil
	})
	got, err = s.Actions(Equal("full", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"generated"}, names(got))

	s.SetGenerator(func(pabt.Condition) ([]pabt.IAction, error) {
		return nil, errors.New("boom")
	})
	got, err = s.Actions(Equal("full", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"drain"}, names(got), "falls back to registered actions")
}

func TestLeaf_ReachesGoal(t *testing.T) {
	t.Parallel()

	calls := 0
	leaf := newLeaf(&calls)
	bb := new(behavior.Blackboard)

	var status behavior.Status
	for i := 0; i < 20; i++ {
		status = leaf.Evaluate(bb)
		require.NotEqual(t, behavior.ResultError, status.Result)
		if status.Result != behavior.ResultRunning {
			break
		}
		assert.True(t, status.IsCancellable())
	}
	assert.Equal(t, behavior.Success(), status)
	assert.True(t, bb.Bool("fed"))
	assert.Equal(t, 1, calls, "one plan per blackboard")

	other := new(behavior.Blackboard)
	other.Set("fed", true)
	assert.Equal(t, behavior.Success(), leaf.Evaluate(other), "goal already holds")
	assert.Equal(t, 2, calls)

	leaf.Forget(other)
	leaf.Evaluate(other)
	assert.Equal(t, 3, calls)
}

func TestLeaf_InEngine(t *testing.T) {
	t.Parallel()

	calls := 0
	reg := behavior.NewRegistry[*behavior.Blackboard]()
	reg.Register("dine", newLeaf(&calls))
	reg.RegisterFunc("nap", func(bb *behavior.Blackboard) behavior.Status {
		bb.Set("napped", true)
		return behavior.Success()
	})
	e := &behavior.Engine[*behavior.Blackboard]{Library: behavior.NewLibrary(), Actions: reg}
	b := behavior.NewBuilder("evening")
	h := e.Library.MustRegister(b.MustBuild(b.Sequence(b.Leaf("dine", ""), b.Leaf("nap", ""))))

	bb := new(behavior.Blackboard)
	var status behavior.Status
	for i := 0; i < 20 && !status.IsComplete(); i++ {
		status = e.Eval(h, bb)
	}
	assert.Equal(t, behavior.Success(), status)
	assert.True(t, bb.Bool("fed"))
	assert.True(t, bb.Bool("napped"))
}

func TestLeaf_FailingActionFails(t *testing.T) {
	t.Parallel()

	bb := new(behavior.Blackboard)
	leaf := &Leaf[*behavior.Blackboard]{
		Goal:       []pabt.IConditions{{Equal("dug", true)}},
		Blackboard: func(bb *behavior.Blackboard) *behavior.Blackboard { return bb },
		Actions: func(bb *behavior.Blackboard, s *State) {
			s.Register("dig", Build("dig").Sets("dug", true).Do(bt.New(func([]bt.Node) (bt.Status, error) {
				return bt.Failure, errors.New("shovel broke")
			})))
		},
	}
	assert.Equal(t, behavior.Running(true), leaf.Evaluate(bb), "the first tick plans")
	assert.Equal(t, behavior.Failure(), leaf.Evaluate(bb))
	assert.False(t, bb.Bool("dug"))
}

func TestLeaf_NonCancellable(t *testing.T) {
	t.Parallel()

	bb := new(behavior.Blackboard)
	leaf := &Leaf[*behavior.Blackboard]{
		Goal:       []pabt.IConditions{{Equal("dug", true)}},
		Blackboard: func(bb *behavior.Blackboard) *behavior.Blackboard { return bb },
		Actions: func(bb *behavior.Blackboard, s *State) {
			s.Register("dig", Build("dig").Sets("dug", true).Do(bt.New(func([]bt.Node) (bt.Status, error) {
				return bt.Running, nil
			})))
		},
		NonCancellable: true,
	}
	var status behavior.Status
	for i := 0; i < 5; i++ {
		status = leaf.Evaluate(bb)
	}
	assert.Equal(t, behavior.Running(false), status)
}

func TestExprCond(t *testing.T) {
	t.Parallel()

	c := NewExprCond("hunger", "value > 0.5")
	assert.Equal(t, "hunger", c.Key())
	assert.True(t, c.Match(0.9))
	assert.False(t, c.Match(0.1))
	assert.NoError(t, c.LastError())

	assert.False(t, c.Match("starving"))
	assert.Error(t, c.LastError(), "type errors are reported")

	c = NewExprCond("hunger", "value + 1")
	assert.False(t, c.Match(1))
	assert.ErrorContains(t, c.LastError(), "non-boolean")

	c = NewExprCond("hunger", "value >")
	assert.False(t, c.Match(1))
	assert.ErrorContains(t, c.LastError(), "compile")

	assert.Panics(t, func() { NewExprCond("hunger", "") })
}

func TestConds(t *testing.T) {
	t.Parallel()

	assert.True(t, Equal("k", 1).Match(1))
	assert.False(t, Equal("k", 1).Match(2))
	assert.True(t, Set("k").Match(0))
	assert.False(t, Set("k").Match(nil))
	assert.True(t, Unset("k").Match(nil))
	assert.False(t, NewCond("k", nil).Match(1))

	assert.Panics(t, func() { NewAction("broken", nil, nil, nil) })
	a := Build("x").When(Set("a"), Unset("b")).When(Set("c")).Sets("d", 1).Do(succeed(func() {}))
	assert.Len(t, a.Conditions(), 2)
	assert.Len(t, a.Conditions()[0], 2)
	require.Len(t, a.Effects(), 1)
	assert.Equal(t, "d", a.Effects()[0].Key())
	assert.Equal(t, 1, a.Effects()[0].Value())
}

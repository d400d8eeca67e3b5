package plan

import (
	"log/slog"
	"sync"

	"github.com/joeycumines/colony-brain/internal/behavior"
	pabt "github.com/joeycumines/go-pabt"
)

// Leaf is a behavior action that plans towards Goal. Each blackboard gets
// its own State and plan, created on first evaluation; Actions is called
// once at that point to populate the State.
type Leaf[C any] struct {
	// Goal groups are OR'd; the conditions of a group are AND'd.
	Goal []pabt.IConditions

	// Blackboard selects the blackboard of the evaluation context.
	Blackboard func(c C) *behavior.Blackboard

	// Actions registers the actions available to c's plan.
	Actions func(c C, s *State)

	// NonCancellable marks a running plan as not preemptible.
	NonCancellable bool

	mu    sync.Mutex
	plans map[*behavior.Blackboard]behavior.Action[C]
}

var (
	_ behavior.Action[any] = (*Leaf[any])(nil)
	_ behavior.Forgetter   = (*Leaf[any])(nil)
)

func (l *Leaf[C]) plan(c C) (behavior.Action[C], error) {
	bb := l.Blackboard(c)
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.plans[bb]; ok {
		return p, nil
	}
	s := NewState(bb)
	if l.Actions != nil {
		l.Actions(c, s)
	}
	p, err := pabt.INew(s, l.Goal)
	if err != nil {
		return nil, err
	}
	if l.plans == nil {
		l.plans = make(map[*behavior.Blackboard]behavior.Action[C])
	}
	a := behavior.FromNode[C]("plan", p.Node())
	l.plans[bb] = a
	return a, nil
}

// Forget drops the plan of bb; the next evaluation plans afresh.
func (l *Leaf[C]) Forget(bb *behavior.Blackboard) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.plans, bb)
}

// Evaluate implements behavior.Action by ticking the plan once. A plan that
// cannot be built is an Error; a failing tick fails the leaf.
func (l *Leaf[C]) Evaluate(c C) behavior.Status {
	p, err := l.plan(c)
	if err != nil {
		slog.Error("[plan] failed to create plan", "error", err)
		return behavior.Error("plan")
	}
	out := p.Evaluate(c)
	if out.Result == behavior.ResultRunning && l.NonCancellable {
		out = behavior.Running(false)
	}
	return out
}

package utility

import (
	"sort"

	"github.com/joeycumines/colony-brain/internal/behavior"
)

// Binding is an agent's instance of a Decision.
type Binding struct {
	Decision *Decision
	// Score is the cached result of the last evaluation.
	Score float64
	// LastEvaluated is the frame Score was computed on.
	LastEvaluated uint64
	Evaluated     bool
	// Cooldown is the number of frames a cached score stays fresh.
	Cooldown uint64
	// Behavior is the tree run when the decision is committed. Bindings
	// without one are idle decisions.
	Behavior    behavior.Handle
	HasBehavior bool
}

// Stale reports whether the cached score must be recomputed on frame now.
func (b *Binding) Stale(now uint64) bool {
	return !b.Evaluated || now < b.LastEvaluated || now-b.LastEvaluated > b.Cooldown
}

// Refresh recomputes the cached score.
func (b *Binding) Refresh(ctx Context, now uint64) {
	b.Score = b.Decision.Score(ctx)
	b.LastEvaluated = now
	b.Evaluated = true
}

// State is an agent's ordered set of decision bindings.
type State struct {
	Bindings []Binding
	// IdleIndex is the fallback binding, which has no behavior.
	IdleIndex int
	// CurrentIndex is the binding selected by the last scoring pass.
	CurrentIndex int
}

// Add appends a binding and returns its index.
func (s *State) Add(b Binding) int {
	s.Bindings = append(s.Bindings, b)
	return len(s.Bindings) - 1
}

// Bind is Add for a decision bound to a behavior tree.
func (s *State) Bind(d *Decision, cooldown uint64, h behavior.Handle) int {
	return s.Add(Binding{Decision: d, Cooldown: cooldown, Behavior: h, HasBehavior: true})
}

// Idle adds the idle decision and makes it the fallback.
func (s *State) Idle(d *Decision, cooldown uint64) int {
	s.IdleIndex = s.Add(Binding{Decision: d, Cooldown: cooldown})
	return s.IdleIndex
}

// Refresh recomputes every stale binding and returns how many were.
func (s *State) Refresh(ctx Context, now uint64) int {
	n := 0
	for i := range s.Bindings {
		if b := &s.Bindings[i]; b.Stale(now) {
			b.Refresh(ctx, now)
			n++
		}
	}
	return n
}

// Ranked returns binding indices ordered by cached score, highest first.
// Ties keep binding order.
func (s *State) Ranked() []int {
	idx := make([]int, len(s.Bindings))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.Bindings[idx[a]].Score > s.Bindings[idx[b]].Score
	})
	return idx
}

// Current returns the selected binding, or nil if CurrentIndex is out of
// range.
func (s *State) Current() *Binding {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Bindings) {
		return nil
	}
	return &s.Bindings[s.CurrentIndex]
}

// Package agent runs autonomous agents: each tick the scoring driver picks
// what every agent should be doing and the execution driver ticks the
// behavior it committed to.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/joeycumines/colony-brain/internal/behavior"
	"github.com/joeycumines/colony-brain/internal/sim"
	"github.com/joeycumines/colony-brain/internal/taskcache"
)

// OwnerSource lists the task queue owners the task cache is rebuilt from.
type OwnerSource interface {
	TaskOwners() []taskcache.Owner
}

// Options configures a System.
type Options struct {
	View       sim.View
	Pathfinder sim.Pathfinder
	Initiator  sim.Initiator
	Mover      sim.Mover
	Owners     OwnerSource

	// Engine evaluates behavior trees. Builtin leaves are not registered
	// automatically; see RegisterBuiltins.
	Engine *behavior.Engine[*Context]

	// WorkTicks is how many ticks the work leaf takes per task.
	WorkTicks int

	// OnTaskComplete, if set, is called by the work leaf for every
	// completed task.
	OnTaskComplete func(a *Agent, c Claim)
}

// System owns the agents and steps them. A tick runs entirely on the
// calling goroutine: scoring for every agent, then execution for every
// agent, then movement.
type System struct {
	View       sim.View
	Pathfinder sim.Pathfinder
	Initiator  sim.Initiator
	Mover      sim.Mover
	Owners     OwnerSource
	Engine     *behavior.Engine[*Context]
	WorkTicks  int

	OnTaskComplete func(a *Agent, c Claim)

	// Cache is the task cache snapshot of the current tick.
	Cache *taskcache.Cache
	// Frame counts completed ticks.
	Frame uint64

	agents []*Agent
}

// NewSystem validates opts and returns an empty System.
func NewSystem(opts Options) (*System, error) {
	if opts.Engine == nil {
		return nil, errors.New("agent: engine is required")
	}
	if opts.Engine.Library == nil || opts.Engine.Actions == nil {
		return nil, errors.New("agent: engine needs a library and an action registry")
	}
	if opts.WorkTicks < 1 {
		opts.WorkTicks = 1
	}
	return &System{
		View:       opts.View,
		Pathfinder: opts.Pathfinder,
		Initiator:  opts.Initiator,
		Mover:      opts.Mover,
		Owners:     opts.Owners,
		Engine:     opts.Engine,
		WorkTicks:  opts.WorkTicks,

		OnTaskComplete: opts.OnTaskComplete,
	}, nil
}

// Add registers an agent. The decision trees it is bound to must be in the
// engine's library.
func (s *System) Add(a *Agent) error {
	if a == nil {
		return errors.New("agent: nil agent")
	}
	if slices.ContainsFunc(s.agents, func(o *Agent) bool { return o.ID == a.ID }) {
		return fmt.Errorf("agent: %d already added", a.ID)
	}
	for i, b := range a.Utility.Bindings {
		if b.Decision == nil {
			return fmt.Errorf("agent %d: binding %d has no decision", a.ID, i)
		}
		if b.HasBehavior {
			if err := s.Engine.Validate(b.Behavior); err != nil {
				return fmt.Errorf("agent %d: decision %q: %w", a.ID, b.Decision.Name, err)
			}
		}
	}
	s.agents = append(s.agents, a)
	return nil
}

// Remove drops an agent, releasing any task it holds.
func (s *System) Remove(id sim.Entity) bool {
	i := slices.IndexFunc(s.agents, func(a *Agent) bool { return a.ID == id })
	if i < 0 {
		return false
	}
	s.clear(s.agents[i])
	s.agents = slices.Delete(s.agents, i, i+1)
	return true
}

// Agent returns the agent with the given id.
func (s *System) Agent(id sim.Entity) (*Agent, bool) {
	i := slices.IndexFunc(s.agents, func(a *Agent) bool { return a.ID == id })
	if i < 0 {
		return nil, false
	}
	return s.agents[i], true
}

// Agents returns the agents in the order they are stepped.
func (s *System) Agents() []*Agent {
	return slices.Clone(s.agents)
}

// Tick advances the simulation by one frame.
func (s *System) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.RebuildCache()
	for _, a := range s.agents {
		s.Score(a)
	}
	for _, a := range s.agents {
		s.Execute(a)
	}
	for _, a := range s.agents {
		s.Move(a)
	}
	slog.Debug("[agent] tick",
		"frame", s.Frame,
		"agents", len(s.agents),
		"taskOwners", s.Cache.Len())
	s.Frame++
	return nil
}

// RebuildCache replaces the task cache snapshot.
func (s *System) RebuildCache() {
	var owners []taskcache.Owner
	if s.Owners != nil {
		owners = s.Owners.TaskOwners()
	}
	s.Cache = taskcache.Build(owners)
}

func (s *System) context(a *Agent) *Context {
	return &Context{System: s, Agent: a}
}

// reselectable reports whether scoring may change the agent's root.
func reselectable(t *TreeState) bool {
	if t.Root.None() {
		return true
	}
	return t.LastStatus.IsCancellable() && t.Root.Kind != RootForced
}

// Score is the scoring driver for one agent: it refreshes stale decision
// scores and, when the current root may be replaced, walks the decisions
// from best to worst. The walk stops at the decision already running, at
// the first decision whose behavior trial-evaluates to Running (which is
// committed), or at an idle decision.
//
// A trial that is not committed leaves the agent as it was: claims it took
// are released and, when a root is running, its blackboard and movement are
// restored. A trial committed over a running root releases that root's
// claim.
func (s *System) Score(a *Agent) {
	c := s.context(a)
	a.Utility.Refresh(c.Utility(), s.Frame)
	if !reselectable(&a.Tree) {
		return
	}
	for _, i := range a.Utility.Ranked() {
		b := &a.Utility.Bindings[i]
		if !b.HasBehavior {
			if a.Tree.Root.None() {
				a.Utility.CurrentIndex = i
			}
			return
		}
		if !a.Tree.Root.None() && a.Tree.Root.Handle == b.Behavior {
			return
		}
		before := a.Tree.Root
		saved := s.suspend(a)
		status := s.Engine.Eval(b.Behavior, c)
		if a.Tree.Root != before && a.Tree.Root.Kind == RootForced {
			// the trial switched trees
			s.preempt(a, saved)
			return
		}
		if !status.Equal(behavior.Running(false)) {
			s.restore(a, saved, status)
			continue
		}
		s.preempt(a, saved)
		slog.Debug("[agent] committed decision",
			"agent", a.ID,
			"decision", b.Decision.Name,
			"score", b.Score,
			"status", status.String())
		a.Tree.Root = RootRef{Kind: RootDecision, Handle: b.Behavior}
		a.Tree.LastStatus = status
		a.Tree.LastFrame = s.Frame
		a.Utility.CurrentIndex = i
		return
	}
}

// suspended is the state of a running root set aside for a trial.
type suspended struct {
	running    bool
	blackboard map[string]any
	movement   *sim.MovementRequest
}

// suspend sets aside the running root's blackboard and movement, so a trial
// starts from an empty blackboard. Without a running root nothing is set
// aside.
func (s *System) suspend(a *Agent) suspended {
	if a.Tree.Root.None() {
		return suspended{movement: a.Movement.Current}
	}
	saved := suspended{
		running:    true,
		blackboard: a.Blackboard.Snapshot(),
		movement:   a.Movement.Current,
	}
	a.Blackboard.Clear()
	a.Movement.Cancel()
	return saved
}

// restore undoes a rejected trial.
func (s *System) restore(a *Agent, saved suspended, status behavior.Status) {
	s.release(a)
	if !saved.running {
		if status.Bail {
			a.Movement.Cancel()
		} else {
			a.Movement.Current = saved.movement
		}
		return
	}
	a.Blackboard.Clear()
	for k, v := range saved.blackboard {
		a.Blackboard.Set(k, v)
	}
	a.Movement.Current = saved.movement
}

// preempt drops the suspended root once a trial has replaced it.
func (s *System) preempt(a *Agent, saved suspended) {
	if !saved.running {
		return
	}
	if claim, ok := saved.blackboard[KeyClaim].(Claim); ok {
		s.cancelClaim(a, claim)
	}
	slog.Debug("[agent] preempted behavior", "agent", a.ID, "root", a.Tree.Root.String())
}

// Execute is the execution driver for one agent.
func (s *System) Execute(a *Agent) {
	t := &a.Tree
	if t.Root.None() {
		return
	}
	if t.Root != t.LastRoot {
		t.LastRoot = t.Root
		return
	}
	evaluated := t.Root
	status := s.Engine.Eval(evaluated.Handle, s.context(a))
	t.LastStatus = status
	t.LastFrame = s.Frame

	if t.Root != evaluated {
		// a leaf imposed another root; it starts fresh next tick
		s.release(a)
		a.Blackboard.Clear()
		s.Engine.Actions.Forget(&a.Blackboard)
		return
	}
	switch {
	case status.Bail:
		slog.Debug("[agent] behavior bailed", "agent", a.ID, "root", evaluated.String())
		a.Movement.Cancel()
		s.clear(a)
	case status.IsComplete():
		s.clear(a)
	case status.Result == behavior.ResultError:
		slog.Error("[agent] behavior error",
			"agent", a.ID,
			"tree", s.Engine.Library.Name(evaluated.Handle),
			"kind", string(status.Kind))
		s.clear(a)
	}
}

// clear ends the agent's behavior: its claim goes back to the queue, the
// root and blackboard are reset and leaves drop what they kept for it.
func (s *System) clear(a *Agent) {
	s.release(a)
	a.Tree.Reset()
	a.Blackboard.Clear()
	s.Engine.Actions.Forget(&a.Blackboard)
}

// release returns the blackboard's claimed, unfinished task to its queue.
func (s *System) release(a *Agent) {
	claim, ok := a.ClaimOf()
	if !ok {
		return
	}
	a.Blackboard.Delete(KeyClaim)
	s.cancelClaim(a, claim)
}

func (s *System) cancelClaim(a *Agent, claim Claim) {
	if err := claim.Owner.Queue.Cancel(claim.Handle); err != nil {
		slog.Warn("[agent] failed to release task",
			"agent", a.ID,
			"task", claim.Task.String(),
			"error", err)
	}
}

// Move advances the agent one tile along its movement request.
func (s *System) Move(a *Agent) {
	req := a.Movement.Current
	if req == nil {
		return
	}
	if req.Arrived() {
		a.Movement.Cancel()
		return
	}
	next := req.Path[0]
	if s.Mover == nil {
		a.Movement.Cancel()
		return
	}
	if err := s.Mover.SetPosition(a.ID, next); err != nil {
		slog.Warn("[agent] movement blocked", "agent", a.ID, "to", next.String(), "error", err)
		a.Movement.Cancel()
		return
	}
	req.Path = req.Path[1:]
	if req.Arrived() {
		a.Movement.Cancel()
	}
}

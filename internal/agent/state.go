package agent

import (
	"fmt"

	"github.com/joeycumines/colony-brain/internal/behavior"
	"github.com/joeycumines/colony-brain/internal/sim"
	"github.com/joeycumines/colony-brain/internal/taskcache"
	"github.com/joeycumines/colony-brain/internal/tasks"
	"github.com/joeycumines/colony-brain/internal/utility"
)

// RootKind says where a behavior root came from.
type RootKind uint8

const (
	// RootNone means no behavior is selected.
	RootNone RootKind = iota
	// RootDecision is a root committed by the scoring driver.
	RootDecision
	// RootForced is a root imposed from outside, which scoring never
	// preempts.
	RootForced
)

func (k RootKind) String() string {
	switch k {
	case RootNone:
		return "none"
	case RootDecision:
		return "decision"
	case RootForced:
		return "forced"
	default:
		return fmt.Sprintf("RootKind(%d)", uint8(k))
	}
}

// RootRef is a reference to a behavior root.
type RootRef struct {
	Kind   RootKind
	Handle behavior.Handle
}

// None reports whether r references no behavior.
func (r RootRef) None() bool {
	return r.Kind == RootNone
}

func (r RootRef) String() string {
	if r.None() {
		return "none"
	}
	return fmt.Sprintf("%s(%d)", r.Kind, r.Handle)
}

// TreeState is an agent's behavior run state.
//
// Root equal to LastRoot means the root was already running and is evaluated
// this tick. A Root that differs was assigned this tick and skips evaluation
// once.
type TreeState struct {
	Root       RootRef
	LastRoot   RootRef
	LastStatus behavior.Status
	// LastFrame is the frame LastStatus was produced on.
	LastFrame uint64
}

// Force imposes h as the agent's root.
func (s *TreeState) Force(h behavior.Handle) {
	s.Root = RootRef{Kind: RootForced, Handle: h}
}

// Reset drops the root and the record of the previous one.
func (s *TreeState) Reset() {
	s.Root = RootRef{}
	s.LastRoot = RootRef{}
}

// Agent is one autonomous colonist. Agents are used by pointer; the zero
// value of every component is ready to use.
type Agent struct {
	ID         sim.Entity
	Tree       TreeState
	Utility    utility.State
	Blackboard behavior.Blackboard
	Movement   sim.Movement
	// Priorities are the task kinds the agent will take on.
	Priorities []taskcache.KindPriority
}

// New returns an agent for the entity id.
func New(id sim.Entity, priorities ...taskcache.KindPriority) *Agent {
	return &Agent{ID: id, Priorities: priorities}
}

// Blackboard keys written by the builtin leaves.
const (
	KeyClaim      = "task.claim"
	KeyTaskError  = "task.error"
	KeyTarget     = "move.target"
	KeyProgress   = "work.progress"
	KeyWaitTicks  = "wait.ticks"
	KeyWaitPassed = "wait.elapsed"
)

// Claim is a task the agent has taken and not yet completed.
type Claim struct {
	Owner       taskcache.Owner
	Handle      tasks.Handle
	Task        tasks.Task
	Destination sim.Tile
}

// ClaimOf returns the agent's claim, if any.
func (a *Agent) ClaimOf() (Claim, bool) {
	c, ok := a.Blackboard.Get(KeyClaim).(Claim)
	return c, ok
}

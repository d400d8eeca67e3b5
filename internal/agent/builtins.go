package agent

import (
	"log/slog"

	"github.com/joeycumines/colony-brain/internal/behavior"
	"github.com/joeycumines/colony-brain/internal/sim"
	"github.com/joeycumines/colony-brain/internal/taskcache"
)

// Leaf actions every colony tree can use.
var (
	// FindTask succeeds at once while the agent holds a claim. Otherwise it
	// searches the task cache and takes the best task, succeeding with the
	// claim and a move target on the blackboard, or failing with the search
	// error under KeyTaskError.
	FindTask behavior.Action[*Context] = behavior.ActionFunc[*Context](findTask)
	// Walk moves towards the blackboard's target. It bails when the target
	// cannot be reached.
	Walk behavior.Action[*Context] = behavior.ActionFunc[*Context](walk)
	// Work performs the claimed task over WorkTicks ticks and completes it.
	// It is not cancellable while in progress.
	Work behavior.Action[*Context] = behavior.ActionFunc[*Context](work)
	// Idle runs forever and may be preempted at any time.
	Idle behavior.Action[*Context] = behavior.ActionFunc[*Context](func(*Context) behavior.Status {
		return behavior.Running(true)
	})
	// Wait runs for the number of ticks under KeyWaitTicks, at least one.
	Wait behavior.Action[*Context] = behavior.ActionFunc[*Context](wait)
)

// RegisterBuiltins registers the builtin leaves, plus a "switch:<name>" leaf
// for every tree currently in lib.
func RegisterBuiltins(reg *behavior.Registry[*Context], lib *behavior.Library) {
	reg.Register("find_task", FindTask)
	reg.Register("move", Walk)
	reg.Register("work", Work)
	reg.Register("idle", Idle)
	reg.Register("wait", Wait)
	if lib != nil {
		for _, name := range lib.Names() {
			reg.Register("switch:"+name, Switch(name))
		}
	}
}

// Switch returns a leaf that forces the named tree as the agent's root and
// succeeds. The new root starts on the next tick.
func Switch(name string) behavior.Action[*Context] {
	return behavior.ActionFunc[*Context](func(c *Context) behavior.Status {
		h, ok := c.System.Engine.Library.Lookup(name)
		if !ok {
			slog.Error("[agent] switch to unknown tree", "agent", c.Agent.ID, "tree", name)
			return behavior.Error("unknown tree")
		}
		c.Agent.Tree.Force(h)
		return behavior.Success()
	})
}

func findTask(c *Context) behavior.Status {
	s, a := c.System, c.Agent
	if claim, ok := a.ClaimOf(); ok {
		if claim.Owner.Queue.IsTaken(claim.Handle) {
			return behavior.Success()
		}
		a.Blackboard.Delete(KeyClaim)
	}
	a.Blackboard.Delete(KeyTaskError)
	a.Blackboard.Delete(KeyProgress)

	pos, ok := c.Position()
	if !ok {
		return behavior.Failure()
	}
	m, err := s.Cache.FindBest(a.ID, pos, a.Priorities, taskcache.Env{
		Initiator:  s.Initiator,
		Pathfinder: s.Pathfinder,
	})
	if err == nil {
		_, err = m.Owner.Queue.Take(m.Handle)
	}
	if err != nil {
		a.Blackboard.Set(KeyTaskError, err)
		slog.Debug("[agent] no task", "agent", a.ID, "error", err)
		return behavior.Failure()
	}
	a.Blackboard.Set(KeyClaim, Claim{
		Owner:       m.Owner,
		Handle:      m.Handle,
		Task:        m.Task,
		Destination: m.Destination,
	})
	a.Blackboard.Set(KeyTarget, m.Destination)
	slog.Debug("[agent] took task",
		"agent", a.ID,
		"task", m.Task.String(),
		"owner", m.Owner.Entity)
	return behavior.Success()
}

func walk(c *Context) behavior.Status {
	a := c.Agent
	target, ok := a.Blackboard.Get(KeyTarget).(sim.Tile)
	if !ok {
		return behavior.Failure()
	}
	pos, ok := c.Position()
	if !ok {
		return behavior.Failure()
	}
	if pos == target {
		a.Movement.Cancel()
		return behavior.Success()
	}
	if cur := a.Movement.Current; cur != nil && cur.Destination == target && !cur.Arrived() {
		return behavior.Running(true)
	}
	if c.System.Pathfinder == nil {
		return behavior.Bail()
	}
	path, ok := c.System.Pathfinder.FindPath(pos, target)
	if !ok || len(path) == 0 {
		slog.Debug("[agent] unreachable target", "agent", a.ID, "from", pos.String(), "to", target.String())
		return behavior.Bail()
	}
	a.Movement.Current = &sim.MovementRequest{Destination: target, Path: path}
	return behavior.Running(true)
}

func work(c *Context) behavior.Status {
	s, a := c.System, c.Agent
	claim, ok := a.ClaimOf()
	if !ok {
		return behavior.Failure()
	}
	if pos, ok := c.Position(); !ok || pos != claim.Destination {
		return behavior.Failure()
	}
	progress := a.Blackboard.Int(KeyProgress)
	if progress == 0 && s.Initiator != nil {
		if err := s.Initiator.CanInitiate(a.ID, claim.Task.Action); err != nil {
			a.Blackboard.Set(KeyTaskError, err)
			return behavior.Failure()
		}
	}
	progress++
	if progress < s.WorkTicks {
		a.Blackboard.Set(KeyProgress, progress)
		return behavior.Running(false)
	}

	a.Blackboard.Delete(KeyProgress)
	a.Blackboard.Delete(KeyClaim)
	if _, err := claim.Owner.Queue.Complete(claim.Handle); err != nil {
		slog.Warn("[agent] task vanished", "agent", a.ID, "task", claim.Task.String(), "error", err)
		return behavior.Failure()
	}
	slog.Debug("[agent] completed task", "agent", a.ID, "task", claim.Task.String())
	if s.OnTaskComplete != nil {
		s.OnTaskComplete(a, claim)
	}
	return behavior.Success()
}

func wait(c *Context) behavior.Status {
	bb := &c.Agent.Blackboard
	ticks := max(bb.Int(KeyWaitTicks), 1)
	elapsed := bb.Int(KeyWaitPassed) + 1
	if elapsed >= ticks {
		bb.Delete(KeyWaitPassed)
		return behavior.Success()
	}
	bb.Set(KeyWaitPassed, elapsed)
	return behavior.Running(true)
}

package taskcache

import (
	"errors"
	"fmt"
	"slices"

	"github.com/joeycumines/colony-brain/internal/sim"
	"github.com/joeycumines/colony-brain/internal/tasks"
)

// ErrEmpty is returned by FindBest when nothing was even considered.
var ErrEmpty = errors.New("no task available")

// NoPathError reports an initiable task whose location has no walkable
// neighbour.
type NoPathError struct {
	Location sim.Tile
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("no path to task at %s", e.Location)
}

// MissingReagentError reports a task the seeker lacks a reagent for.
type MissingReagentError struct {
	Err *sim.MissingResourceError
}

func (e *MissingReagentError) Error() string {
	return e.Err.Error()
}

func (e *MissingReagentError) Unwrap() error {
	return e.Err
}

// Reason returns the missing resource's reason.
func (e *MissingReagentError) Reason() string {
	if e.Err.Reason != "" {
		return e.Err.Reason
	}
	return e.Err.Resource
}

// OtherError wraps any other refusal from the action registry.
type OtherError struct {
	Err error
}

func (e *OtherError) Error() string {
	return fmt.Sprintf("cannot take task: %v", e.Err)
}

func (e *OtherError) Unwrap() error {
	return e.Err
}

// KindPriority is one entry of an agent's work preferences. Lower priority
// values are searched first. Kind may be a mask.
type KindPriority struct {
	Kind     tasks.Kind
	Priority uint8
}

// Env holds the collaborators the search consults.
type Env struct {
	// Initiator may be nil, in which case every task is initiable.
	Initiator sim.Initiator
	// Pathfinder supplies the neighbours of a task location; nil means no
	// location is reachable.
	Pathfinder sim.Pathfinder
}

// Match is the result of a successful search. The task is not taken.
type Match struct {
	Owner  Owner
	Handle tasks.Handle
	Task   tasks.Task
	// Destination is the tile to stand on to work the task.
	Destination sim.Tile
}

// FindBest returns the task seeker should claim next: kinds in ascending
// priority, then locations nearest first, then tasks most urgent first. The
// first initiable task with a walkable neighbour wins.
//
// Without a match the error is the first *MissingReagentError seen, else
// the first *NoPathError or *OtherError seen, else ErrEmpty.
func (c *Cache) FindBest(seeker sim.Entity, from sim.Tile, priorities []KindPriority, env Env) (Match, error) {
	order := slices.Clone(priorities)
	slices.SortStableFunc(order, func(a, b KindPriority) int {
		return int(a.Priority) - int(b.Priority)
	})

	var (
		recorded error
		missing  bool
		match    Match
		found    bool
	)
	// record keeps the first missing reagent over anything else, and
	// otherwise the first error seen.
	record := func(err error) {
		var mr *sim.MissingResourceError
		switch {
		case errors.As(err, &mr):
			if !missing {
				recorded, missing = &MissingReagentError{Err: mr}, true
			}
		case recorded == nil:
			recorded = err
		}
	}

	for _, kp := range order {
		for _, kind := range tasks.Kinds(kp.Kind) {
			c.Nearest(from, func(o Owner) bool {
				for _, e := range o.Queue.Available(kind) {
					if env.Initiator != nil {
						if err := env.Initiator.CanInitiate(seeker, e.Task.Action); err != nil {
							record(&OtherError{Err: err})
							continue
						}
					}
					dest, ok := destination(env.Pathfinder, o.Location)
					if !ok {
						record(&NoPathError{Location: o.Location})
						continue
					}
					match = Match{Owner: o, Handle: e.Handle, Task: e.Task, Destination: dest}
					found = true
					return false
				}
				return true
			})
			if found {
				return match, nil
			}
		}
	}
	if recorded == nil {
		return Match{}, ErrEmpty
	}
	return Match{}, recorded
}

// destination is the first walkable neighbour of tile. Reachability from
// the seeker is left to movement.
func destination(pf sim.Pathfinder, tile sim.Tile) (sim.Tile, bool) {
	if pf == nil {
		return sim.Tile{}, false
	}
	n := pf.Neighbors(tile)
	if len(n) == 0 {
		return sim.Tile{}, false
	}
	return n[0].Tile, true
}

// Package world is an in-memory grid world implementing the collaborators
// the agent core consumes. It backs the run command and the integration
// tests; it knows nothing about rendering or map generation.
package world

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/joeycumines/colony-brain/internal/sim"
	"github.com/joeycumines/colony-brain/internal/taskcache"
	"github.com/joeycumines/colony-brain/internal/tasks"
)

var (
	// ErrUnknownEntity is returned for entities that were never spawned or
	// were removed.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrBlocked is returned when placing an entity on a wall or off the map.
	ErrBlocked = errors.New("tile is not walkable")
)

type entity struct {
	pos       sim.Tile
	inventory map[string]int
	facts     map[string]any
	queue     *tasks.Queue
}

// Requirement is an item an action consumes or needs at hand.
type Requirement struct {
	Item  string
	Count int
}

// World is a rectangular grid of walls and floor with entities on it. It is
// safe for concurrent use.
type World struct {
	mu           sync.RWMutex
	width        int
	height       int
	walls        []bool
	entities     map[sim.Entity]*entity
	last         sim.Entity
	requirements map[string][]Requirement
}

var (
	_ sim.View       = (*World)(nil)
	_ sim.Pathfinder = (*World)(nil)
	_ sim.Initiator  = (*World)(nil)
	_ sim.Mover      = (*World)(nil)
)

// Parse builds a world from rows of '#' (wall) and '.' (floor). All rows
// must have the same length.
//
//	w, err := world.Parse([]string{
//	    "#####",
//	    "#...#",
//	    "#####",
//	})
func Parse(layout []string) (*World, error) {
	if len(layout) == 0 || len(layout[0]) == 0 {
		return nil, errors.New("empty layout")
	}
	w := &World{
		width:        len(layout[0]),
		height:       len(layout),
		entities:     make(map[sim.Entity]*entity),
		requirements: make(map[string][]Requirement),
	}
	w.walls = make([]bool, w.width*w.height)
	for y, row := range layout {
		if len(row) != w.width {
			return nil, fmt.Errorf("layout row %d: width %d, want %d", y, len(row), w.width)
		}
		for x, ch := range []byte(row) {
			switch ch {
			case '#':
				w.walls[y*w.width+x] = true
			case '.':
			default:
				return nil, fmt.Errorf("layout row %d column %d: unknown tile %q", y, x, ch)
			}
		}
	}
	return w, nil
}

// MustParse is Parse that panics on error.
func MustParse(layout ...string) *World {
	w, err := Parse(layout)
	if err != nil {
		panic(err)
	}
	return w
}

// Size returns the grid dimensions.
func (w *World) Size() (width, height int) {
	return w.width, w.height
}

// Walkable reports whether t is floor within the map.
func (w *World) Walkable(t sim.Tile) bool {
	if t.X < 0 || t.Y < 0 || t.X >= w.width || t.Y >= w.height {
		return false
	}
	return !w.walls[t.Y*w.width+t.X]
}

// Spawn places a new entity on t.
func (w *World) Spawn(t sim.Tile) (sim.Entity, error) {
	if !w.Walkable(t) {
		return 0, fmt.Errorf("spawn at %s: %w", t, ErrBlocked)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last++
	w.entities[w.last] = &entity{
		pos:       t,
		inventory: make(map[string]int),
		facts:     make(map[string]any),
	}
	return w.last, nil
}

// Remove deletes an entity and its queue.
func (w *World) Remove(e sim.Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entities, e)
}

// Entities returns every entity, ascending.
func (w *World) Entities() []sim.Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Sorted(maps.Keys(w.entities))
}

func (w *World) get(e sim.Entity) (*entity, error) {
	ent, ok := w.entities[e]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEntity, e)
	}
	return ent, nil
}

// Position implements sim.View.
func (w *World) Position(e sim.Entity) (sim.Tile, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ent, ok := w.entities[e]
	if !ok {
		return sim.Tile{}, false
	}
	return ent.pos, true
}

// Vars implements sim.View: the entity's facts, then its inventory counts
// under the item names, then "x" and "y".
func (w *World) Vars(e sim.Entity) map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ent, ok := w.entities[e]
	if !ok {
		return map[string]any{}
	}
	vars := make(map[string]any, len(ent.facts)+len(ent.inventory)+2)
	maps.Copy(vars, ent.facts)
	for item, n := range ent.inventory {
		vars[item] = n
	}
	vars["x"] = ent.pos.X
	vars["y"] = ent.pos.Y
	return vars
}

// SetFact records a fact visible through Vars.
func (w *World) SetFact(e sim.Entity, key string, value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	ent, err := w.get(e)
	if err != nil {
		return err
	}
	ent.facts[key] = value
	return nil
}

// SetPosition implements sim.Mover.
func (w *World) SetPosition(e sim.Entity, t sim.Tile) error {
	if !w.Walkable(t) {
		return fmt.Errorf("move %d to %s: %w", e, t, ErrBlocked)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	ent, err := w.get(e)
	if err != nil {
		return err
	}
	ent.pos = t
	return nil
}

// Queue returns the entity's task queue, creating it on first use.
func (w *World) Queue(e sim.Entity) (*tasks.Queue, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ent, err := w.get(e)
	if err != nil {
		return nil, err
	}
	if ent.queue == nil {
		ent.queue = tasks.NewQueue()
	}
	return ent.queue, nil
}

// TaskOwners lists the entities holding a queue, ascending, for the
// per-tick task cache.
func (w *World) TaskOwners() []taskcache.Owner {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []taskcache.Owner
	for _, e := range slices.Sorted(maps.Keys(w.entities)) {
		ent := w.entities[e]
		if ent.queue != nil {
			out = append(out, taskcache.Owner{Entity: e, Location: ent.pos, Queue: ent.queue})
		}
	}
	return out
}

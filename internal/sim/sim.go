// Package sim holds the value types shared by the agent core and the
// interfaces of the world collaborators it consumes.
//
// Nothing in here owns world state. Rendering, map generation and definition
// loading live elsewhere and are reached only through these interfaces.
package sim

import (
	"fmt"
)

// Entity identifies anything in the world: agents, stockpiles, ore veins.
// Zero means "no entity".
type Entity uint64

// Tile is a grid coordinate.
type Tile struct {
	X, Y int
}

func (t Tile) String() string {
	return fmt.Sprintf("(%d,%d)", t.X, t.Y)
}

// Add returns t offset by d.
func (t Tile) Add(d Tile) Tile {
	return Tile{X: t.X + d.X, Y: t.Y + d.Y}
}

// Manhattan returns the 4-way grid distance between two tiles.
func (t Tile) Manhattan(o Tile) int {
	return abs(t.X-o.X) + abs(t.Y-o.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Neighbor is a walkable tile adjacent to another, with its step cost.
type Neighbor struct {
	Tile Tile
	Cost float64
}

// View is read access to the world, as seen by agent logic.
type View interface {
	// Position returns the tile an entity stands on.
	Position(e Entity) (Tile, bool)

	// Vars returns the facts about an entity that conditions and
	// considerations are evaluated against (needs, inventory counts, ...).
	// The returned map is owned by the caller.
	Vars(e Entity) map[string]any
}

// Pathfinder is the pathfinding service.
type Pathfinder interface {
	// Neighbors returns the walkable tiles adjacent to t, in a stable order.
	Neighbors(t Tile) []Neighbor

	// FindPath returns the tiles to walk from src to dst, excluding src and
	// including dst.
	FindPath(src, dst Tile) ([]Tile, bool)
}

// Initiator is the action/reaction registry.
type Initiator interface {
	// CanInitiate returns nil if actor can begin the named action now.
	// A *MissingResourceError means a reagent is missing; any other error is
	// an unclassified refusal.
	CanInitiate(actor Entity, action string) error
}

// Mover moves entities. Movement execution is the only writer.
type Mover interface {
	SetPosition(e Entity, t Tile) error
}

// MissingResourceError reports that an action cannot start because the actor
// lacks a reagent.
type MissingResourceError struct {
	Action   string
	Resource string
	Reason   string
}

func (e *MissingResourceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s: missing %s: %s", e.Action, e.Resource, e.Reason)
	}
	return fmt.Sprintf("cannot %s: missing %s", e.Action, e.Resource)
}

// MovementRequest is an in-flight walk towards Destination.
type MovementRequest struct {
	Destination Tile
	// Path holds the remaining tiles, next step first.
	Path []Tile
}

// Arrived reports whether there is nothing left to walk.
func (r *MovementRequest) Arrived() bool {
	return r == nil || len(r.Path) == 0
}

// Movement is the per-agent movement component.
type Movement struct {
	Current *MovementRequest
}

// Cancel drops the in-flight request, if any.
func (m *Movement) Cancel() {
	m.Current = nil
}

// Moving reports whether a request is in flight.
func (m *Movement) Moving() bool {
	return m.Current != nil
}

// Package taskcache is the per-tick world index of task queues and the
// best-task search agents use to claim work.
//
// A Cache is a snapshot: Build it at the start of every tick from the owners
// whose queues are non-empty, and drop it at the end. Queues are referenced,
// not copied, so task availability is always read live.
package taskcache

import (
	"slices"

	"github.com/joeycumines/colony-brain/internal/sim"
	"github.com/joeycumines/colony-brain/internal/tasks"
	"github.com/tidwall/rtree"
)

// Owner is an entity holding a task queue at a location.
type Owner struct {
	Entity   sim.Entity
	Location sim.Tile
	Queue    *tasks.Queue
}

type site struct {
	tile   sim.Tile
	owners []Owner
	// order is the index of the first owner at this tile in Build's input;
	// it breaks distance ties.
	order int
}

// Cache is the spatial index over owners with pending tasks.
type Cache struct {
	tree   rtree.RTreeG[int]
	sites  []site
	byTile map[sim.Tile]int
	owners int
}

// Build indexes owners whose queues hold at least one task.
func Build(owners []Owner) *Cache {
	c := &Cache{byTile: make(map[sim.Tile]int)}
	for i, o := range owners {
		if o.Queue == nil || o.Queue.IsEmpty() {
			continue
		}
		idx, ok := c.byTile[o.Location]
		if !ok {
			idx = len(c.sites)
			c.byTile[o.Location] = idx
			c.sites = append(c.sites, site{tile: o.Location, order: i})
			p := point(o.Location)
			c.tree.Insert(p, p, idx)
		}
		c.sites[idx].owners = append(c.sites[idx].owners, o)
		c.owners++
	}
	return c
}

func point(t sim.Tile) [2]float64 {
	return [2]float64{float64(t.X), float64(t.Y)}
}

// Len returns the number of indexed owners.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.owners
}

// Owners returns the owners indexed at tile.
func (c *Cache) Owners(tile sim.Tile) []Owner {
	if c == nil {
		return nil
	}
	idx, ok := c.byTile[tile]
	if !ok {
		return nil
	}
	return slices.Clone(c.sites[idx].owners)
}

// Nearest calls fn for every indexed owner, nearest to from first, until fn
// returns false. Owners at the same distance are visited in Build order.
func (c *Cache) Nearest(from sim.Tile, fn func(Owner) bool) {
	if c == nil || len(c.sites) == 0 {
		return
	}
	target := point(from)
	var (
		group   []int
		groupAt float64
		stopped bool
	)
	flush := func() bool {
		slices.SortFunc(group, func(a, b int) int { return c.sites[a].order - c.sites[b].order })
		for _, idx := range group {
			for _, o := range c.sites[idx].owners {
				if !fn(o) {
					return false
				}
			}
		}
		group = group[:0]
		return true
	}
	c.tree.Nearby(
		func(min, max [2]float64, _ int, _ bool) float64 {
			return boxDist(target, min, max)
		},
		func(_, _ [2]float64, idx int, dist float64) bool {
			if len(group) > 0 && dist != groupAt {
				if !flush() {
					stopped = true
					return false
				}
			}
			groupAt = dist
			group = append(group, idx)
			return true
		},
	)
	if !stopped && len(group) > 0 {
		flush()
	}
}

// boxDist is the squared distance from p to the box [min, max].
func boxDist(p, min, max [2]float64) float64 {
	var d float64
	for i := 0; i < 2; i++ {
		switch {
		case p[i] < min[i]:
			d += (min[i] - p[i]) * (min[i] - p[i])
		case p[i] > max[i]:
			d += (p[i] - max[i]) * (p[i] - max[i])
		}
	}
	return d
}

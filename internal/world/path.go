package world

import (
	"container/heap"

	"github.com/joeycumines/colony-brain/internal/sim"
)

// steps are the 4-way moves in the order Neighbors reports them.
var steps = [...]sim.Tile{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}}

// Neighbors implements sim.Pathfinder: walkable 4-way neighbours of t, north
// first and clockwise, each costing 1.
func (w *World) Neighbors(t sim.Tile) []sim.Neighbor {
	out := make([]sim.Neighbor, 0, len(steps))
	for _, d := range steps {
		if n := t.Add(d); w.Walkable(n) {
			out = append(out, sim.Neighbor{Tile: n, Cost: 1})
		}
	}
	return out
}

type openItem struct {
	tile sim.Tile
	f    float64
	seq  int
}

type openSet []openItem

func (s openSet) Len() int { return len(s) }
func (s openSet) Less(i, j int) bool {
	if s[i].f != s[j].f {
		return s[i].f < s[j].f
	}
	return s[i].seq < s[j].seq
}
func (s openSet) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s *openSet) Push(x any) { *s = append(*s, x.(openItem)) }
func (s *openSet) Pop() any {
	old := *s
	it := old[len(old)-1]
	*s = old[:len(old)-1]
	return it
}

// FindPath implements sim.Pathfinder with A* over Neighbors, using the
// Manhattan distance as heuristic. The path excludes src and ends at dst; it
// is empty when src == dst.
func (w *World) FindPath(src, dst sim.Tile) ([]sim.Tile, bool) {
	if !w.Walkable(dst) {
		return nil, false
	}
	if src == dst {
		return []sim.Tile{}, true
	}
	g := map[sim.Tile]float64{src: 0}
	from := make(map[sim.Tile]sim.Tile)
	closed := make(map[sim.Tile]bool)
	open := &openSet{{tile: src, f: float64(src.Manhattan(dst))}}
	seq := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(openItem).tile
		if cur == dst {
			return reconstruct(from, src, dst), true
		}
		if closed[cur] {
			continue
		}
		closed[cur] = true
		for _, n := range w.Neighbors(cur) {
			tentative := g[cur] + n.Cost
			if old, ok := g[n.Tile]; ok && tentative >= old {
				continue
			}
			g[n.Tile] = tentative
			from[n.Tile] = cur
			seq++
			heap.Push(open, openItem{tile: n.Tile, f: tentative + float64(n.Tile.Manhattan(dst)), seq: seq})
		}
	}
	return nil, false
}

func reconstruct(from map[sim.Tile]sim.Tile, src, dst sim.Tile) []sim.Tile {
	var path []sim.Tile
	for t := dst; t != src; t = from[t] {
		path = append(path, t)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

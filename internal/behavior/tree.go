package behavior

import (
	"errors"
	"fmt"
)

// NodeID indexes a node within its Tree's arena.
type NodeID int32

type nodeKind uint8

const (
	kindSequence nodeKind = iota + 1
	kindSelector
	kindAll
	kindReverse
	kindForLoop
	kindLeaf
	kindSubtree
)

func (k nodeKind) String() string {
	switch k {
	case kindSequence:
		return "sequence"
	case kindSelector:
		return "selector"
	case kindAll:
		return "all"
	case kindReverse:
		return "not"
	case kindForLoop:
		return "for"
	case kindLeaf:
		return "leaf"
	case kindSubtree:
		return "subtree"
	default:
		return fmt.Sprintf("nodeKind(%d)", uint8(k))
	}
}

// node is the tagged union of every node kind. Only the fields of its kind
// are set.
type node struct {
	kind     nodeKind
	children []NodeID

	// for
	until Result
	limit int

	// leaf
	action       string
	precondition string

	// subtree
	subtree *Tree
}

// Tree is an immutable behavior tree stored as a node arena. Trees are pure
// data: leaves name their action and precondition, which are resolved when
// an Engine evaluates them.
type Tree struct {
	name  string
	nodes []node
	root  NodeID
}

// Name returns the tree's name.
func (t *Tree) Name() string {
	return t.name
}

// Len returns the number of nodes in the arena, not counting subtrees.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Actions returns the distinct action names referenced by the tree and its
// subtrees, in first-seen order.
func (t *Tree) Actions() []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(*Tree)
	walk = func(t *Tree) {
		for i := range t.nodes {
			n := &t.nodes[i]
			switch n.kind {
			case kindLeaf:
				if !seen[n.action] {
					seen[n.action] = true
					out = append(out, n.action)
				}
			case kindSubtree:
				walk(n.subtree)
			}
		}
	}
	walk(t)
	return out
}

// ErrMalformedTree is wrapped by every Build error.
var ErrMalformedTree = errors.New("malformed behavior tree")

// Builder assembles a Tree bottom-up: children are created before their
// parent, and each node may have at most one parent.
//
//	b := behavior.NewBuilder("haul")
//	find := b.Leaf("find_task", "")
//	move := b.Leaf("move", "")
//	tree, err := b.Build(b.Sequence(find, move))
type Builder struct {
	name  string
	nodes []node
	errs  []error
}

// NewBuilder starts a tree with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

func (b *Builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

func (b *Builder) add(n node) NodeID {
	id := NodeID(len(b.nodes))
	for _, c := range n.children {
		if c < 0 || int(c) >= len(b.nodes) {
			b.fail("node %d (%s): child %d does not exist", id, n.kind, c)
		}
	}
	b.nodes = append(b.nodes, n)
	return id
}

func (b *Builder) composite(kind nodeKind, children []NodeID) NodeID {
	if len(children) == 0 {
		b.fail("node %d (%s): no children", len(b.nodes), kind)
	}
	return b.add(node{kind: kind, children: append([]NodeID(nil), children...)})
}

// Sequence succeeds when every child succeeds in order.
func (b *Builder) Sequence(children ...NodeID) NodeID {
	return b.composite(kindSequence, children)
}

// Selector succeeds with the first child that succeeds.
func (b *Builder) Selector(children ...NodeID) NodeID {
	return b.composite(kindSelector, children)
}

// All ticks children until one is Running; it succeeds once none are.
func (b *Builder) All(children ...NodeID) NodeID {
	return b.composite(kindAll, children)
}

// Reverse swaps the Success and Failure of child.
func (b *Builder) Reverse(child NodeID) NodeID {
	return b.add(node{kind: kindReverse, children: []NodeID{child}})
}

// ForLoop re-evaluates child until its result equals until, at most limit
// extra times.
func (b *Builder) ForLoop(child NodeID, until Result, limit int) NodeID {
	if limit < 0 {
		b.fail("node %d (for): negative limit %d", len(b.nodes), limit)
	}
	if until > ResultFailure {
		b.fail("node %d (for): cannot loop until %s", len(b.nodes), until)
	}
	return b.add(node{kind: kindForLoop, children: []NodeID{child}, until: until, limit: limit})
}

// Leaf invokes the named action, gated on the named precondition when it is
// not empty.
func (b *Builder) Leaf(action, precondition string) NodeID {
	if action == "" {
		b.fail("node %d (leaf): empty action name", len(b.nodes))
	}
	return b.add(node{kind: kindLeaf, action: action, precondition: precondition})
}

// Subtree evaluates another tree in place. The tree is shared, not copied.
func (b *Builder) Subtree(t *Tree) NodeID {
	if t == nil {
		b.fail("node %d (subtree): nil tree", len(b.nodes))
	}
	return b.add(node{kind: kindSubtree, subtree: t})
}

// Build validates the arena and returns the tree rooted at root.
func (b *Builder) Build(root NodeID) (*Tree, error) {
	errs := append([]error(nil), b.errs...)
	if root < 0 || int(root) >= len(b.nodes) {
		errs = append(errs, fmt.Errorf("root %d does not exist", root))
	} else {
		parents := make([]int, len(b.nodes))
		for i := range b.nodes {
			for _, c := range b.nodes[i].children {
				if c < 0 || int(c) >= len(b.nodes) {
					continue
				}
				parents[c]++
				if parents[c] > 1 {
					errs = append(errs, fmt.Errorf("node %d has more than one parent", c))
				}
				if c == root {
					errs = append(errs, fmt.Errorf("root %d is a child of node %d", root, i))
				}
			}
		}
		for i := range b.nodes {
			if NodeID(i) != root && parents[i] == 0 {
				errs = append(errs, fmt.Errorf("node %d (%s) is unreachable", i, b.nodes[i].kind))
			}
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w %q: %w", ErrMalformedTree, b.name, errors.Join(errs...))
	}
	return &Tree{name: b.name, nodes: append([]node(nil), b.nodes...), root: root}, nil
}

// MustBuild is Build that panics on error. Use it for trees that are part of
// the program.
func (b *Builder) MustBuild(root NodeID) *Tree {
	t, err := b.Build(root)
	if err != nil {
		panic(err)
	}
	return t
}

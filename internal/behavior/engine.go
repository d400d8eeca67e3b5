package behavior

import (
	"fmt"
)

// Engine evaluates trees from a Library, resolving leaves against Actions and
// leaf preconditions against Conditions.
//
// Evaluation never changes tree structure. Leaves are free to mutate the
// context they are given.
type Engine[C any] struct {
	Library    *Library
	Actions    *Registry[C]
	Conditions Preconditions[C]
}

// Eval evaluates the tree registered under h once.
func (e *Engine[C]) Eval(h Handle, c C) Status {
	t := e.Library.Get(h)
	if t == nil {
		panic(fmt.Sprintf("behavior: no tree registered for handle %d", h))
	}
	return e.EvalTree(t, c)
}

// EvalTree evaluates t once.
func (e *Engine[C]) EvalTree(t *Tree, c C) Status {
	return e.eval(t, t.root, c)
}

// Validate reports the first problem that would make evaluating h panic.
func (e *Engine[C]) Validate(h Handle) error {
	t := e.Library.Get(h)
	if t == nil {
		return fmt.Errorf("no tree registered for handle %d", h)
	}
	if missing := e.Actions.Missing(t); len(missing) > 0 {
		return fmt.Errorf("tree %q: unregistered actions %v", t.name, missing)
	}
	return nil
}

func (e *Engine[C]) eval(t *Tree, id NodeID, c C) Status {
	n := &t.nodes[id]
	switch n.kind {
	case kindSequence:
		for _, child := range n.children {
			s := e.eval(t, child, c)
			if s.Bail || s.Result != ResultSuccess {
				return s
			}
		}
		return Success()

	case kindSelector:
		for _, child := range n.children {
			s := e.eval(t, child, c)
			if s.Bail || s.Result != ResultFailure {
				return s
			}
		}
		return Failure()

	case kindAll:
		// Only Running stops the walk; failed children do not make the node
		// fail.
		for _, child := range n.children {
			s := e.eval(t, child, c)
			if s.Bail || s.Result == ResultRunning || s.Result == ResultError {
				return s
			}
		}
		return Success()

	case kindReverse:
		s := e.eval(t, n.children[0], c)
		if s.Bail {
			return s
		}
		switch s.Result {
		case ResultRunning:
			return s
		case ResultSuccess:
			return Failure()
		case ResultFailure:
			return Success()
		default:
			panic(fmt.Sprintf("behavior: tree %q node %d: %s reached a not node", t.name, id, s))
		}

	case kindForLoop:
		s := e.eval(t, n.children[0], c)
		if s.Bail {
			return s
		}
		until := Status{Result: n.until}
		for i := 0; i < n.limit && !s.Equal(until); i++ {
			s = e.eval(t, n.children[0], c)
			if s.Bail {
				return s
			}
		}
		return s

	case kindLeaf:
		if n.precondition != "" {
			if e.Conditions == nil {
				panic(fmt.Sprintf("behavior: tree %q node %d: precondition %q without a conditions service", t.name, id, n.precondition))
			}
			if !e.Conditions.Check(n.precondition, c) {
				return Failure()
			}
		}
		action, ok := e.Actions.Get(n.action)
		if !ok {
			panic(fmt.Sprintf("behavior: tree %q node %d: unregistered action %q", t.name, id, n.action))
		}
		return action.Evaluate(c)

	case kindSubtree:
		return e.EvalTree(n.subtree, c)

	default:
		panic(fmt.Sprintf("behavior: tree %q node %d: unknown node kind %s", t.name, id, n.kind))
	}
}

package behavior

import (
	"errors"
	"fmt"
	"log/slog"

	bt "github.com/joeycumines/go-behaviortree"
)

// ErrBailed is returned by exported bt nodes when the tree bailed.
var ErrBailed = errors.New("behavior bailed")

// EvalError is returned by exported bt nodes when the tree produced an Error
// result.
type EvalError struct {
	Tree string
	Kind ErrorKind
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("behavior %q: error %q", e.Tree, e.Kind)
}

// FromBT maps a go-behaviortree tick result to a Status. Running maps to a
// cancellable Running, since bt nodes carry no interruption contract of
// their own. Tick errors are failures.
func FromBT(status bt.Status, err error) Status {
	if err != nil {
		return Failure()
	}
	switch status {
	case bt.Running:
		return Running(true)
	case bt.Success:
		return Success()
	default:
		return Failure()
	}
}

// ToBT maps a Status to a go-behaviortree tick result.
func ToBT(tree string, s Status) (bt.Status, error) {
	switch {
	case s.Bail:
		return bt.Failure, ErrBailed
	case s.Result == ResultRunning:
		return bt.Running, nil
	case s.Result == ResultSuccess:
		return bt.Success, nil
	case s.Result == ResultFailure:
		return bt.Failure, nil
	default:
		return bt.Failure, &EvalError{Tree: tree, Kind: s.Kind}
	}
}

// FromNode wraps a go-behaviortree node as a leaf action. The node is ticked
// once per evaluation; the context is ignored, so nodes that need agent
// state must close over it.
func FromNode[C any](name string, node bt.Node) Action[C] {
	if node == nil {
		panic(fmt.Sprintf("behavior.FromNode: nil node (name=%s)", name))
	}
	return ActionFunc[C](func(C) Status {
		status, err := node.Tick()
		if err != nil {
			slog.Warn("[behavior] bt node failed", "action", name, "error", err)
		}
		return FromBT(status, err)
	})
}

// Node exports the tree registered under h, bound to c, as a go-behaviortree
// node, so it can be composed with bt composites or driven by a bt.Ticker.
func (e *Engine[C]) Node(h Handle, c C) bt.Node {
	name := e.Library.Name(h)
	return bt.New(func([]bt.Node) (bt.Status, error) {
		return ToBT(name, e.Eval(h, c))
	})
}

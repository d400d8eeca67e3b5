// Package script provides behavior leaves written in JavaScript.
//
// A script is a function expression taking the agent blackboard:
//
//	function(bb) {
//		if (bb.get("hunger") > 0.8) return "failure";
//		bb.set("wandered", (bb.get("wandered") || 0) + 1);
//		return "running";
//	}
//
// It returns one of "running", "busy" (running, not preemptible),
// "success", "failure" or "bail". Any other result, or an exception, fails
// the leaf and is logged.
package script

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/colony-brain/internal/behavior"
)

// ErrTimeout interrupts scripts that run past Leaf.Timeout.
var ErrTimeout = errors.New("script timed out")

// Leaf is a scripted behavior action. It owns a goja runtime; evaluations
// are serialized.
type Leaf[C any] struct {
	// Name identifies the script in logs and stack traces.
	Name string

	// Timeout, if positive, bounds a single evaluation.
	Timeout time.Duration

	mu         sync.Mutex
	vm         *goja.Runtime
	fn         goja.Callable
	blackboard func(c C) *behavior.Blackboard
}

var _ behavior.Action[any] = (*Leaf[any])(nil)

// New compiles source, a JS function expression, into a Leaf. bb selects the
// blackboard the script sees.
func New[C any](name, source string, bb func(c C) *behavior.Blackboard) (*Leaf[C], error) {
	if bb == nil {
		return nil, fmt.Errorf("script %s: nil blackboard selector", name)
	}
	program, err := goja.Compile(name, "("+source+")", true)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	_ = vm.Set("log", func(call goja.FunctionCall) goja.Value {
		args := make([]any, 0, len(call.Arguments))
		for _, a := range call.Arguments {
			args = append(args, a.Export())
		}
		slog.Info("[script] "+name, "args", args)
		return goja.Undefined()
	})
	v, err := vm.RunProgram(program)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("script %s: source is not a function expression", name)
	}
	return &Leaf[C]{Name: name, vm: vm, fn: fn, blackboard: bb}, nil
}

// MustNew is New, panicking on error.
func MustNew[C any](name, source string, bb func(c C) *behavior.Blackboard) *Leaf[C] {
	l, err := New(name, source, bb)
	if err != nil {
		panic(err)
	}
	return l
}

// Evaluate implements behavior.Action.
func (l *Leaf[C]) Evaluate(c C) behavior.Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Timeout > 0 {
		timer := time.AfterFunc(l.Timeout, func() { l.vm.Interrupt(ErrTimeout) })
		defer func() {
			timer.Stop()
			l.vm.ClearInterrupt()
		}()
	}
	out, err := l.fn(goja.Undefined(), l.bind(l.blackboard(c)))
	if err != nil {
		slog.Warn("[script] evaluation failed", "script", l.Name, "error", err)
		return behavior.Failure()
	}
	status, err := parseStatus(out)
	if err != nil {
		slog.Warn("[script] bad result", "script", l.Name, "error", err)
		return behavior.Failure()
	}
	return status
}

func parseStatus(v goja.Value) (behavior.Status, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return behavior.Status{}, errors.New("no result")
	}
	s, ok := v.Export().(string)
	if !ok {
		return behavior.Status{}, fmt.Errorf("result must be a string, got %s", v.ExportType())
	}
	switch s {
	case "running":
		return behavior.Running(true), nil
	case "busy":
		return behavior.Running(false), nil
	case "success":
		return behavior.Success(), nil
	case "failure":
		return behavior.Failure(), nil
	case "bail":
		return behavior.Bail(), nil
	default:
		return behavior.Status{}, fmt.Errorf("unknown result %q", s)
	}
}

// bind exposes bb to JS as an object with get, set, has, delete and keys.
func (l *Leaf[C]) bind(bb *behavior.Blackboard) goja.Value {
	obj := l.vm.NewObject()
	_ = obj.Set("get", func(key string) any { return bb.Get(key) })
	_ = obj.Set("set", func(key string, value goja.Value) {
		if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
			bb.Delete(key)
			return
		}
		bb.Set(key, value.Export())
	})
	_ = obj.Set("has", bb.Has)
	_ = obj.Set("delete", bb.Delete)
	_ = obj.Set("keys", bb.Keys)
	return obj
}

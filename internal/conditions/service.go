// Package conditions is the named-condition service that gates behavior tree
// leaves. Conditions are expr-lang expressions or Go functions evaluated
// against an agent's facts.
package conditions

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ErrUnknown is recorded for conditions that were never defined.
var ErrUnknown = errors.New("unknown condition")

// Func is a condition implemented in Go.
type Func func(vars map[string]any) bool

type condition struct {
	expression string
	program    *vm.Program
	fn         Func
}

// Service holds named conditions. It is safe for concurrent use.
type Service struct {
	mu         sync.RWMutex
	conditions map[string]condition
	lastErr    map[string]error
}

// New returns an empty Service.
func New() *Service {
	return &Service{
		conditions: make(map[string]condition),
		lastErr:    make(map[string]error),
	}
}

// Define compiles expression and registers it as name, replacing any
// previous definition.
//
//	svc.Define("hungry", "hunger > 0.7 && food > 0")
func (s *Service) Define(name, expression string) error {
	if name == "" {
		return errors.New("condition name cannot be empty")
	}
	if expression == "" {
		return fmt.Errorf("condition %q: empty expression", name)
	}
	program, err := Compile(expression)
	if err != nil {
		return fmt.Errorf("condition %q: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conditions[name] = condition{expression: expression, program: program}
	delete(s.lastErr, name)
	return nil
}

// DefineFunc registers a Go condition as name.
func (s *Service) DefineFunc(name string, fn Func) {
	if fn == nil {
		panic(fmt.Sprintf("conditions.DefineFunc: nil func (name=%s)", name))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conditions[name] = condition{fn: fn}
	delete(s.lastErr, name)
}

// Has reports whether name is defined.
func (s *Service) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.conditions[name]
	return ok
}

// Evaluate runs the named condition. Unknown names, evaluation errors and
// non-boolean results are logged and evaluate to false; LastError tells
// them apart from a genuine false.
func (s *Service) Evaluate(name string, vars map[string]any) bool {
	s.mu.RLock()
	c, ok := s.conditions[name]
	s.mu.RUnlock()

	if !ok {
		s.setErr(name, ErrUnknown)
		slog.Warn("[conditions] unknown condition", "name", name)
		return false
	}
	if c.fn != nil {
		s.setErr(name, nil)
		return c.fn(vars)
	}

	result, err := expr.Run(c.program, vars)
	if err != nil {
		s.setErr(name, fmt.Errorf("evaluation failed: %w", err))
		slog.Error("[conditions] evaluation error",
			"name", name,
			"expression", c.expression,
			"error", err)
		return false
	}
	b, ok := result.(bool)
	if !ok {
		s.setErr(name, fmt.Errorf("non-boolean result: %T", result))
		slog.Warn("[conditions] non-boolean result",
			"name", name,
			"expression", c.expression,
			"resultType", fmt.Sprintf("%T", result))
		return false
	}
	s.setErr(name, nil)
	return b
}

func (s *Service) setErr(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.lastErr, name)
		return
	}
	s.lastErr[name] = err
}

// LastError returns the error from the most recent evaluation of name, or
// nil if it succeeded.
func (s *Service) LastError(name string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr[name]
}

// Names returns the defined condition names, sorted.
func (s *Service) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.conditions))
	for name := range s.conditions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefineAll registers a table of expressions, as handed in by definition
// loaders. Every entry is attempted; the errors are joined.
func (s *Service) DefineAll(defs map[string]string) error {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	var errs []error
	for _, name := range names {
		if err := s.Define(name, defs[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package plan provides a planning-and-acting leaf: a go-pabt plan over an
// agent's blackboard that expands itself towards a goal, ticked as a single
// behavior leaf.
package plan

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/joeycumines/colony-brain/internal/behavior"
	pabt "github.com/joeycumines/go-pabt"
)

var _ pabt.IState = (*State)(nil)

// Generator produces actions for a failed condition on demand. A non-empty
// result replaces the registered actions for that condition.
type Generator func(failed pabt.Condition) ([]pabt.IAction, error)

// State implements pabt.IState over a blackboard. Variables are blackboard
// entries; actions come from a name-ordered registry and an optional
// Generator.
type State struct {
	bb *behavior.Blackboard

	mu        sync.RWMutex
	actions   map[string]pabt.IAction
	generator Generator
}

// NewState returns a State reading and writing bb.
func NewState(bb *behavior.Blackboard) *State {
	if bb == nil {
		panic("plan.NewState: nil blackboard")
	}
	return &State{bb: bb, actions: make(map[string]pabt.IAction)}
}

// Blackboard returns the backing blackboard.
func (s *State) Blackboard() *behavior.Blackboard { return s.bb }

// Register adds action under name, replacing any action of that name.
func (s *State) Register(name string, action pabt.IAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[name] = action
}

// SetGenerator installs gen, or removes the generator when nil.
func (s *State) SetGenerator(gen Generator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generator = gen
}

// Variable implements pabt.IState. Keys are strings, integers or
// fmt.Stringers; missing entries are nil.
func (s *State) Variable(key any) (any, error) {
	k, err := keyString(key)
	if err != nil {
		return nil, err
	}
	return s.bb.Get(k), nil
}

func keyString(key any) (string, error) {
	switch k := key.(type) {
	case nil:
		return "", fmt.Errorf("plan: nil variable key")
	case string:
		return k, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", k), nil
	case fmt.Stringer:
		return k.String(), nil
	default:
		return "", fmt.Errorf("plan: unsupported variable key type %T", key)
	}
}

// all returns the registered actions ordered by name.
func (s *State) all() []pabt.IAction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.actions))
	for name := range s.actions {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]pabt.IAction, len(names))
	for i, name := range names {
		out[i] = s.actions[name]
	}
	return out
}

// Actions implements pabt.IState: the actions with an effect that satisfies
// failed. A nil condition returns every registered action.
func (s *State) Actions(failed pabt.Condition) ([]pabt.IAction, error) {
	if failed == nil {
		return s.all(), nil
	}
	s.mu.RLock()
	gen := s.generator
	s.mu.RUnlock()

	candidates := s.all()
	if gen != nil {
		generated, err := gen(failed)
		switch {
		case err != nil:
			slog.Warn("[plan] action generator failed", "key", failed.Key(), "error", err)
		case len(generated) > 0:
			candidates = generated
		}
	}
	var out []pabt.IAction
	for _, a := range candidates {
		if satisfies(a, failed) {
			out = append(out, a)
		}
	}
	slog.Debug("[plan] actions", "key", failed.Key(), "candidates", len(candidates), "relevant", len(out))
	return out, nil
}

func satisfies(a pabt.IAction, failed pabt.Condition) bool {
	key := failed.Key()
	for _, e := range a.Effects() {
		if e != nil && e.Key() == key && failed.Match(e.Value()) {
			return true
		}
	}
	return false
}

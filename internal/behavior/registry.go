package behavior

import (
	"fmt"
	"sort"
	"sync"
)

// Action is the capability a leaf invokes. C is the per-evaluation context
// the drivers pass down (agent, world access, blackboard).
type Action[C any] interface {
	Evaluate(c C) Status
}

// ActionFunc adapts a function to Action.
type ActionFunc[C any] func(c C) Status

// Evaluate calls f.
func (f ActionFunc[C]) Evaluate(c C) Status {
	return f(c)
}

// Preconditions evaluates the named conditions that gate leaves.
type Preconditions[C any] interface {
	Check(name string, c C) bool
}

// Forgetter is implemented by actions that keep state per blackboard.
type Forgetter interface {
	Forget(bb *Blackboard)
}

// Registry resolves leaf action names. Actions are registered at startup.
type Registry[C any] struct {
	mu      sync.RWMutex
	actions map[string]Action[C]
}

// NewRegistry creates an empty registry.
func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{actions: make(map[string]Action[C])}
}

// Register adds an action under name, replacing any existing one.
func (r *Registry[C]) Register(name string, action Action[C]) {
	if action == nil {
		panic(fmt.Sprintf("behavior.Registry.Register: nil action (name=%s)", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = action
}

// RegisterFunc registers fn as an action.
func (r *Registry[C]) RegisterFunc(name string, fn func(c C) Status) {
	r.Register(name, ActionFunc[C](fn))
}

// Get returns the named action.
func (r *Registry[C]) Get(name string) (Action[C], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

// Names returns the registered names, sorted.
func (r *Registry[C]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Forget has every registered Forgetter drop its state for bb.
func (r *Registry[C]) Forget(bb *Blackboard) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.actions {
		if f, ok := a.(Forgetter); ok {
			f.Forget(bb)
		}
	}
}

// Missing returns the actions referenced by t that are not registered.
func (r *Registry[C]) Missing(t *Tree) []string {
	var missing []string
	for _, name := range t.Actions() {
		if _, ok := r.Get(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

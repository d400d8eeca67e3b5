package behavior

import (
	"fmt"
	"sort"
	"sync"
)

// Handle refers to a tree registered in a Library.
type Handle int

// Library holds the named trees agents can run. Registered trees are shared
// by every agent and never modified.
type Library struct {
	mu     sync.RWMutex
	trees  []*Tree
	byName map[string]Handle
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{byName: make(map[string]Handle)}
}

// Register adds t under its name.
func (l *Library) Register(t *Tree) (Handle, error) {
	if t == nil {
		return 0, fmt.Errorf("cannot register nil tree")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byName[t.name]; ok {
		return 0, fmt.Errorf("tree %q already registered", t.name)
	}
	h := Handle(len(l.trees))
	l.trees = append(l.trees, t)
	l.byName[t.name] = h
	return h, nil
}

// MustRegister is Register that panics on error.
func (l *Library) MustRegister(t *Tree) Handle {
	h, err := l.Register(t)
	if err != nil {
		panic(err)
	}
	return h
}

// Lookup returns the handle of the named tree.
func (l *Library) Lookup(name string) (Handle, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.byName[name]
	return h, ok
}

// Get returns the tree for h, or nil if h is not registered.
func (l *Library) Get(h Handle) *Tree {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if h < 0 || int(h) >= len(l.trees) {
		return nil
	}
	return l.trees[h]
}

// Name returns the name of the tree for h, or "" if h is not registered.
func (l *Library) Name(h Handle) string {
	if t := l.Get(h); t != nil {
		return t.name
	}
	return ""
}

// Names returns all registered names, sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.byName))
	for name := range l.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

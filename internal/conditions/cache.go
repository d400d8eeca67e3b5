package conditions

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultCacheSize bounds the shared program cache.
const DefaultCacheSize = 1000

// shared is the program cache used by Compile.
var shared = NewProgramCache(DefaultCacheSize)

// SetCacheSize resizes the shared program cache, evicting immediately if it
// shrinks.
func SetCacheSize(size int) {
	shared.Resize(size)
}

// Compile returns the compiled program for expression, compiling it at most
// once while it stays in the shared cache. Programs are compiled without a
// typed environment, so any variable resolves against the map passed to
// expr.Run and missing variables are nil.
func Compile(expression string) (*vm.Program, error) {
	return shared.Compile(expression)
}

// ProgramCache is a thread-safe LRU cache of compiled expr-lang programs.
type ProgramCache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	lru     *list.List
	maxSize int
	hits    int64
	misses  int64
}

type cacheEntry struct {
	expression string
	program    *vm.Program
}

// NewProgramCache creates a cache holding at most maxSize programs.
func NewProgramCache(maxSize int) *ProgramCache {
	if maxSize < 1 {
		maxSize = DefaultCacheSize
	}
	return &ProgramCache{
		items:   make(map[string]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Get returns the cached program for expression and marks it recently used.
func (c *ProgramCache) Get(expression string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[expression]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).program, true
}

// Put stores program, evicting the least recently used entries over
// capacity.
func (c *ProgramCache) Put(expression string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[expression]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).program = program
		return
	}
	c.items[expression] = c.lru.PushFront(&cacheEntry{expression: expression, program: program})
	c.evict()
}

// Compile is Get, falling back to compiling and storing the program.
// Compilation errors are not cached.
func (c *ProgramCache) Compile(expression string) (*vm.Program, error) {
	if program, ok := c.Get(expression); ok {
		return program, nil
	}
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	c.Put(expression, program)
	return program, nil
}

// Resize changes the capacity; sizes below one are treated as one.
func (c *ProgramCache) Resize(maxSize int) {
	if maxSize < 1 {
		maxSize = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
	c.evict()
}

func (c *ProgramCache) evict() {
	for c.lru.Len() > c.maxSize {
		elem := c.lru.Back()
		delete(c.items, elem.Value.(*cacheEntry).expression)
		c.lru.Remove(elem)
	}
}

// Len returns the number of cached programs.
func (c *ProgramCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns the size and hit/miss counters.
func (c *ProgramCache) Stats() (size int, hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), c.hits, c.misses
}

func (c *ProgramCache) String() string {
	size, hits, misses := c.Stats()
	return fmt.Sprintf("ProgramCache{size=%d, hits=%d, misses=%d}", size, hits, misses)
}

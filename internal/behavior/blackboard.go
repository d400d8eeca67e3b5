package behavior

import (
	"sort"
	"sync"
)

// Blackboard is an agent's scratch memory for the behavior it is running.
// The execution driver clears it whenever a behavior completes or bails.
//
// The zero value is ready to use. It is safe for concurrent use, since
// scripted and planned leaves may read it from their own goroutines.
type Blackboard struct {
	mu   sync.RWMutex
	data map[string]any
}

// Get returns the value stored under key, or nil.
func (b *Blackboard) Get(key string) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data[key]
}

// Lookup returns the value stored under key and whether it was present.
func (b *Blackboard) Lookup(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok
}

// Set stores value under key.
func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		b.data = make(map[string]any)
	}
	b.data[key] = value
}

// Has reports whether key is present.
func (b *Blackboard) Has(key string) bool {
	_, ok := b.Lookup(key)
	return ok
}

// Delete removes key.
func (b *Blackboard) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
}

// Keys returns the stored keys, sorted.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes every entry.
func (b *Blackboard) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.data)
}

// Len returns the number of entries.
func (b *Blackboard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Snapshot returns a shallow copy of the entries.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.data))
	for k, v := range b.data {
		out[k] = v
	}
	return out
}

// Int returns the integer stored under key, or 0. Any Go integer type is
// accepted; scripts store int64 and Go leaves store int.
func (b *Blackboard) Int(key string) int {
	switch v := b.Get(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Bool returns the boolean stored under key, or false.
func (b *Blackboard) Bool(key string) bool {
	v, _ := b.Get(key).(bool)
	return v
}

// String returns the string stored under key, or "".
func (b *Blackboard) String(key string) string {
	v, _ := b.Get(key).(string)
	return v
}

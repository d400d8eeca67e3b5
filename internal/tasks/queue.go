package tasks

import (
	"cmp"
	"errors"
	"fmt"
	"sync"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/trees/redblacktree"
)

var (
	// ErrNotFound is returned for handles that were never issued or whose
	// task was completed.
	ErrNotFound = errors.New("task not found")
	// ErrNotAvailable is returned by Take for tasks that are already taken.
	ErrNotAvailable = errors.New("task not available")
	// ErrNotTaken is returned by Cancel for tasks that are not taken.
	ErrNotTaken = errors.New("task not taken")
)

// Handle identifies a task within its Queue.
type Handle uint64

// Entry is a task together with its handle.
type Entry struct {
	Handle Handle
	Task   Task
}

// orderKey sorts available tasks by priority, then insertion.
type orderKey struct {
	priority uint8
	seq      Handle
}

func compareOrder(a, b any) int {
	x, y := a.(orderKey), b.(orderKey)
	if c := cmp.Compare(x.priority, y.priority); c != 0 {
		return c
	}
	return cmp.Compare(x.seq, y.seq)
}

func compareHandle(a, b any) int {
	return cmp.Compare(a.(Handle), b.(Handle))
}

// Queue holds the tasks at one owner. Every task is either available or
// taken; Complete removes it altogether. Queues are shared by pointer and
// are safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	last  Handle
	tasks map[Handle]Task
	// available holds one ordered set per kind, keyed by orderKey.
	available map[Kind]*redblacktree.Tree
	taken     *treeset.Set
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{
		tasks:     make(map[Handle]Task),
		available: make(map[Kind]*redblacktree.Tree),
		taken:     treeset.NewWith(compareHandle),
	}
}

func (q *Queue) kindSet(k Kind) *redblacktree.Tree {
	set, ok := q.available[k]
	if !ok {
		set = redblacktree.NewWith(compareOrder)
		q.available[k] = set
	}
	return set
}

func key(h Handle, t Task) orderKey {
	return orderKey{priority: t.Priority, seq: h}
}

// Insert adds task as available and returns its handle. The task must have
// a single kind.
func (q *Queue) Insert(task Task) Handle {
	if !task.Kind.Single() {
		panic(fmt.Sprintf("tasks.Queue.Insert: task must have exactly one kind (kind=%s)", task.Kind))
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.last++
	h := q.last
	q.tasks[h] = task
	q.kindSet(task.Kind).Put(key(h, task), h)
	return h
}

// Get returns the task for h, whether available or taken.
func (q *Queue) Get(h Handle) (Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[h]
	if !ok {
		return Task{}, fmt.Errorf("%w: handle %d", ErrNotFound, h)
	}
	return t, nil
}

// Take moves an available task to taken and returns it.
func (q *Queue) Take(h Handle) (Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[h]
	if !ok {
		return Task{}, fmt.Errorf("%w: handle %d", ErrNotFound, h)
	}
	set := q.available[t.Kind]
	if set == nil {
		return Task{}, fmt.Errorf("%w: handle %d", ErrNotAvailable, h)
	}
	if _, found := set.Get(key(h, t)); !found {
		return Task{}, fmt.Errorf("%w: handle %d", ErrNotAvailable, h)
	}
	set.Remove(key(h, t))
	q.taken.Add(h)
	return t, nil
}

// Cancel returns a taken task to available, in its original position.
func (q *Queue) Cancel(h Handle) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[h]
	if !ok {
		return fmt.Errorf("%w: handle %d", ErrNotFound, h)
	}
	if !q.taken.Contains(h) {
		return fmt.Errorf("%w: handle %d", ErrNotTaken, h)
	}
	q.taken.Remove(h)
	q.kindSet(t.Kind).Put(key(h, t), h)
	return nil
}

// Complete removes the task for good, available or taken.
func (q *Queue) Complete(h Handle) (Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[h]
	if !ok {
		return Task{}, fmt.Errorf("%w: handle %d", ErrNotFound, h)
	}
	delete(q.tasks, h)
	q.taken.Remove(h)
	if set := q.available[t.Kind]; set != nil {
		set.Remove(key(h, t))
	}
	return t, nil
}

// Top returns the most urgent available task of kind.
func (q *Queue) Top(kind Kind) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.top(kind)
}

func (q *Queue) top(kind Kind) (Entry, bool) {
	set := q.available[kind]
	if set == nil || set.Empty() {
		return Entry{}, false
	}
	h := set.Left().Value.(Handle)
	return Entry{Handle: h, Task: q.tasks[h]}, true
}

// TopAny returns the most urgent available task of any kind. Ties between
// kinds go to the earlier insertion.
func (q *Queue) TopAny() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var (
		best  Entry
		found bool
	)
	for _, kind := range Kinds(AllKinds) {
		e, ok := q.top(kind)
		if !ok {
			continue
		}
		if !found || compareOrder(key(e.Handle, e.Task), key(best.Handle, best.Task)) < 0 {
			best, found = e, true
		}
	}
	return best, found
}

// Available returns the available tasks of kind, most urgent first.
func (q *Queue) Available(kind Kind) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	set := q.available[kind]
	if set == nil {
		return nil
	}
	out := make([]Entry, 0, set.Size())
	for it := set.Iterator(); it.Next(); {
		h := it.Value().(Handle)
		out = append(out, Entry{Handle: h, Task: q.tasks[h]})
	}
	return out
}

// Taken returns the handles of taken tasks, ascending.
func (q *Queue) Taken() []Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Handle, 0, q.taken.Size())
	for _, v := range q.taken.Values() {
		out = append(out, v.(Handle))
	}
	return out
}

// IsTaken reports whether h is currently taken.
func (q *Queue) IsTaken(h Handle) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.taken.Contains(h)
}

// Len returns the number of tasks, available or taken.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// AvailableLen returns the number of available tasks of every kind.
func (q *Queue) AvailableLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks) - q.taken.Size()
}

// IsEmpty reports whether the queue holds no tasks at all.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

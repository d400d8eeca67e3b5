// Package tasks holds the claimable units of world work and the per-owner
// queue agents claim them from.
package tasks

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/google/uuid"
)

// Kind is a task kind flag. Masks of several kinds describe what an agent
// can do; a Task has exactly one.
type Kind uint32

const (
	Mine Kind = 1 << iota
	Haul
	Build
	Craft
	Chop
	Farm

	// AllKinds is the mask of every kind.
	AllKinds = Mine | Haul | Build | Craft | Chop | Farm
)

var kindNames = [...]string{"mine", "haul", "build", "craft", "chop", "farm"}

func (k Kind) String() string {
	if k == 0 {
		return "none"
	}
	var parts []string
	for _, single := range Kinds(k) {
		parts = append(parts, kindNames[bits.TrailingZeros32(uint32(single))])
	}
	if rest := k &^ AllKinds; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// Single reports whether k is exactly one known kind.
func (k Kind) Single() bool {
	return k != 0 && k&^AllKinds == 0 && k&(k-1) == 0
}

// Kinds splits a mask into its known single kinds, lowest bit first.
func Kinds(mask Kind) []Kind {
	var out []Kind
	for k := Mine; k <= Farm; k <<= 1 {
		if mask&k != 0 {
			out = append(out, k)
		}
	}
	return out
}

// ParseKind parses a kind name or a "|"-separated mask of names.
func ParseKind(s string) (Kind, error) {
	var k Kind
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(strings.ToLower(part))
		found := false
		for i, name := range kindNames {
			if name == part {
				k |= 1 << i
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown task kind: %q", part)
		}
	}
	return k, nil
}

// Task is one unit of claimable work. Tasks are values and never change
// once created.
type Task struct {
	ID uuid.UUID
	// Priority orders tasks of a kind; lower values are more urgent.
	Priority uint8
	Kind     Kind
	// Action names the action an agent performs to do the task, as known to
	// the action registry.
	Action string
}

// New creates a task with a fresh ID.
func New(kind Kind, priority uint8, action string) Task {
	return Task{ID: uuid.New(), Priority: priority, Kind: kind, Action: action}
}

func (t Task) String() string {
	return fmt.Sprintf("%s(%s p=%d %s)", t.Kind, t.Action, t.Priority, t.ID)
}

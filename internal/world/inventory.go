package world

import (
	"fmt"

	"github.com/joeycumines/colony-brain/internal/sim"
)

// Give adds n of item to e's inventory.
func (w *World) Give(e sim.Entity, item string, n int) error {
	if n < 0 {
		return fmt.Errorf("give %s: negative count %d", item, n)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	ent, err := w.get(e)
	if err != nil {
		return err
	}
	ent.inventory[item] += n
	return nil
}

// Take removes n of item from e's inventory. It fails with a
// *sim.MissingResourceError if e holds fewer.
func (w *World) Take(e sim.Entity, item string, n int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	ent, err := w.get(e)
	if err != nil {
		return err
	}
	if have := ent.inventory[item]; have < n {
		return &sim.MissingResourceError{Action: "take", Resource: item, Reason: fmt.Sprintf("have %d, need %d", have, n)}
	}
	ent.inventory[item] -= n
	if ent.inventory[item] == 0 {
		delete(ent.inventory, item)
	}
	return nil
}

// Count returns how many of item e holds.
func (w *World) Count(e sim.Entity, item string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if ent, ok := w.entities[e]; ok {
		return ent.inventory[item]
	}
	return 0
}

// Require makes action need count of item at hand. Requirements accumulate.
func (w *World) Require(action, item string, count int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.requirements[action] = append(w.requirements[action], Requirement{Item: item, Count: count})
}

// CanInitiate implements sim.Initiator against the requirements registered
// with Require. Actions without requirements can always start.
func (w *World) CanInitiate(actor sim.Entity, action string) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ent, err := w.get(actor)
	if err != nil {
		return err
	}
	for _, r := range w.requirements[action] {
		if have := ent.inventory[r.Item]; have < r.Count {
			return &sim.MissingResourceError{
				Action:   action,
				Resource: r.Item,
				Reason:   fmt.Sprintf("have %d, need %d", have, r.Count),
			}
		}
	}
	return nil
}

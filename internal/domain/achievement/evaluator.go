package achievement

import (
	"time"
)

// Evaluator compares stats snapshots against the definition table and
// produces newly satisfied unlocks.
type Evaluator struct{}

// NewEvaluator creates an evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate walks the definition table in insertion order and returns an
// unlock for every predicate that is newly satisfied by the snapshot and
// not already in the unlocked set. Re-evaluating with the same snapshot
// and set produces nothing: the operation is idempotent.
func (e *Evaluator) Evaluate(userID string, snap Snapshot, unlocked map[Key]bool, now time.Time) []*Unlock {
	var fresh []*Unlock

	for _, def := range Definitions() {
		if unlocked[def.Key] {
			continue
		}
		if def.Predicate.Satisfied(snap) {
			fresh = append(fresh, NewUnlock(userID, def.Key, now))
		}
	}

	return fresh
}

// UnlockedSet converts stored unlocks into the set Evaluate consumes.
func UnlockedSet(unlocks []*Unlock) map[Key]bool {
	set := make(map[Key]bool, len(unlocks))
	for _, u := range unlocks {
		set[u.Key] = true
	}
	return set
}

package achievement

import (
	"errors"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUnlockNotFound - no unlock record for the user and key.
	ErrUnlockNotFound = errors.New("achievement unlock not found")

	// ErrUnknownKey - the key is not in the definition table.
	ErrUnknownKey = errors.New("unknown achievement key")
)

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Unlock records that a user satisfied an achievement's predicate.
// Created once per (user, key); re-evaluation never duplicates it.
type Unlock struct {
	// UserID - the user who unlocked the achievement.
	UserID string

	// Key - the achievement definition key.
	Key Key

	// UnlockedAt - when the predicate first became satisfied.
	UnlockedAt time.Time

	// Viewed - the user dismissed the unlock toast. Synced server-side
	// so badge counts stay consistent across devices.
	Viewed bool

	// Notified - a push notification was sent for this unlock.
	Notified bool
}

// NewUnlock creates an unviewed, unnotified unlock.
func NewUnlock(userID string, key Key, unlockedAt time.Time) *Unlock {
	return &Unlock{
		UserID:     userID,
		Key:        key,
		UnlockedAt: unlockedAt,
		Viewed:     false,
		Notified:   false,
	}
}

// MarkViewed flips the viewed flag.
func (u *Unlock) MarkViewed() {
	u.Viewed = true
}

// MarkNotified flips the notified flag.
func (u *Unlock) MarkNotified() {
	u.Notified = true
}

// Definition returns the static definition backing this unlock.
func (u *Unlock) Definition() (Definition, bool) {
	return GetDefinition(u.Key)
}

// String returns a representation suitable for logging.
func (u *Unlock) String() string {
	return fmt.Sprintf("Unlock{User: %s, Key: %s, Viewed: %t}", u.UserID, u.Key, u.Viewed)
}

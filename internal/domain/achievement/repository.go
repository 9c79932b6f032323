package achievement

import (
	"context"
)

// Repository defines the storage operations for achievement unlocks.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Save persists an unlock. Writing an already-existing (user, key)
	// pair is a no-op, keeping evaluation idempotent at the storage layer.
	Save(ctx context.Context, unlock *Unlock) error

	// GetByUser returns all unlocks of a user, ordered by unlock time.
	GetByUser(ctx context.Context, userID string) ([]*Unlock, error)

	// GetUnviewed returns the user's unlocks with viewed = false.
	GetUnviewed(ctx context.Context, userID string) ([]*Unlock, error)

	// MarkViewed flips viewed = true for the given keys belonging to the
	// user. Unknown or foreign keys are silently ignored so the
	// operation stays idempotent and side-effect-free on bad input.
	MarkViewed(ctx context.Context, userID string, keys []Key) error

	// GetUnnotified returns unlocks across all users that have not yet
	// been pushed. Consumed by the notification flow.
	GetUnnotified(ctx context.Context, limit int) ([]*Unlock, error)

	// MarkNotified flips notified = true for one unlock.
	MarkNotified(ctx context.Context, userID string, key Key) error

	// DeleteByUser removes all unlocks of a user. Used by full reset.
	DeleteByUser(ctx context.Context, userID string) error
}

package habit

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the storage contract. Implementations live in
// infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the storage operations for habits.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// CRUD Operations
	// ─────────────────────────────────────────────────────────────────────────

	// Create creates a new habit.
	Create(ctx context.Context, h *Habit) error

	// GetByID returns a habit by its ID.
	// Returns ErrHabitNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Habit, error)

	// GetByOwner returns all habits of a user, ordered by position.
	GetByOwner(ctx context.Context, ownerID string) ([]*Habit, error)

	// Update persists habit changes (rename).
	// Returns ErrHabitNotFound if it does not exist.
	Update(ctx context.Context, h *Habit) error

	// DeleteByOwner removes all habits of a user along with their
	// completion records. Used by setup and full reset.
	DeleteByOwner(ctx context.Context, ownerID string) error

	// CountByOwner returns the number of habits a user has.
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

// CompletionRepository defines the storage operations for completion records.
type CompletionRepository interface {
	// Upsert writes a completion record, replacing any existing record
	// for the same (habit, date). Last write wins on conflict.
	Upsert(ctx context.Context, record *CompletionRecord) error

	// Get returns the record for one habit and day.
	// Returns ErrRecordNotFound when the day has no record.
	Get(ctx context.Context, habitID string, date time.Time) (*CompletionRecord, error)

	// GetByHabit returns all records for a habit, ordered by date.
	GetByHabit(ctx context.Context, habitID string) ([]*CompletionRecord, error)

	// GetByOwner returns all records of a user's habits, grouped by habit ID.
	GetByOwner(ctx context.Context, ownerID string) (map[string][]*CompletionRecord, error)

	// GetByOwnerAndDate returns the records of all of a user's habits
	// for one day, keyed by habit ID. Days without records are absent.
	GetByOwnerAndDate(ctx context.Context, ownerID string, date time.Time) (map[string]*CompletionRecord, error)

	// DeleteByOwner removes every record of the user's habits while
	// keeping the habits themselves. Used by challenge reset.
	DeleteByOwner(ctx context.Context, ownerID string) error

	// EarliestDate returns the date of the user's first record, or the
	// zero time when no records exist.
	EarliestDate(ctx context.Context, ownerID string) (time.Time, error)

	// DeleteOutside removes the user's records dated outside [start, end].
	// Returns the number of deleted rows. Used by the cleanup job after a
	// window re-anchor leaves records behind the new start date.
	DeleteOutside(ctx context.Context, ownerID string, start, end time.Time) (int64, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS CACHE
// Caches computed stats snapshots (usually backed by Redis).
// ══════════════════════════════════════════════════════════════════════════════

// StatsCache defines caching operations for stats snapshots.
type StatsCache interface {
	// Get returns the cached snapshot for a user and anchor day,
	// or nil when absent.
	Get(ctx context.Context, userID string, day time.Time) (*UserStats, error)

	// Set stores a snapshot with a TTL.
	Set(ctx context.Context, stats *UserStats, day time.Time, ttl time.Duration) error

	// Invalidate drops all cached snapshots for a user. Called after
	// any write (toggle, setup, reset, import).
	Invalidate(ctx context.Context, userID string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK (for transactions)
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWork groups habit and completion writes into one transaction.
// Import is all-or-nothing: either every habit and record lands, or none.
type UnitOfWork interface {
	// Habits returns the habit repository bound to the transaction.
	Habits() Repository

	// Completions returns the completion repository bound to the transaction.
	Completions() CompletionRepository

	// Commit commits the transaction.
	Commit(ctx context.Context) error

	// Rollback aborts the transaction. Safe to call after Commit.
	Rollback(ctx context.Context) error
}

// UnitOfWorkFactory creates units of work.
type UnitOfWorkFactory interface {
	// Begin starts a new transaction.
	Begin(ctx context.Context) (UnitOfWork, error)
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// HABIT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// HabitRepository implements habit.Repository for PostgreSQL.
type HabitRepository struct {
	q Querier
}

// NewHabitRepository creates a new HabitRepository backed by the pool.
func NewHabitRepository(conn *Connection) *HabitRepository {
	return &HabitRepository{q: conn.Pool()}
}

// newHabitRepositoryTx binds the repository to a transaction.
func newHabitRepositoryTx(tx pgx.Tx) *HabitRepository {
	return &HabitRepository{q: tx}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new habit.
func (r *HabitRepository) Create(ctx context.Context, h *habit.Habit) error {
	query := `
		INSERT INTO habits (id, owner_id, name, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.Exec(ctx, query,
		h.ID,
		h.OwnerID,
		h.Name,
		h.Position,
		h.CreatedAt,
		h.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return habit.ErrDuplicatePosition
		}
		return fmt.Errorf("failed to create habit: %w", err)
	}

	return nil
}

// GetByID returns a habit by its ID.
func (r *HabitRepository) GetByID(ctx context.Context, id string) (*habit.Habit, error) {
	query := `
		SELECT id, owner_id, name, position, created_at, updated_at
		FROM habits
		WHERE id = $1
	`

	row := r.q.QueryRow(ctx, query, id)
	return r.scanHabit(row)
}

// GetByOwner returns all habits of a user, ordered by position.
func (r *HabitRepository) GetByOwner(ctx context.Context, ownerID string) ([]*habit.Habit, error) {
	query := `
		SELECT id, owner_id, name, position, created_at, updated_at
		FROM habits
		WHERE owner_id = $1
		ORDER BY position ASC
	`

	rows, err := r.q.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	return r.scanHabits(rows)
}

// Update persists habit changes.
func (r *HabitRepository) Update(ctx context.Context, h *habit.Habit) error {
	query := `
		UPDATE habits SET
			name = $1,
			position = $2,
			updated_at = $3
		WHERE id = $4
	`

	result, err := r.q.Exec(ctx, query,
		h.Name,
		h.Position,
		time.Now().UTC(),
		h.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}

	if result.RowsAffected() == 0 {
		return habit.ErrHabitNotFound
	}

	return nil
}

// DeleteByOwner removes all habits of a user. Completion records go with
// them through the ON DELETE CASCADE constraint.
func (r *HabitRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	_, err := r.q.Exec(ctx, "DELETE FROM habits WHERE owner_id = $1", ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete habits: %w", err)
	}
	return nil
}

// CountByOwner returns the number of habits a user has.
func (r *HabitRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.q.QueryRow(ctx,
		"SELECT COUNT(*) FROM habits WHERE owner_id = $1",
		ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count habits: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *HabitRepository) scanHabit(row pgx.Row) (*habit.Habit, error) {
	var h habit.Habit

	err := row.Scan(
		&h.ID,
		&h.OwnerID,
		&h.Name,
		&h.Position,
		&h.CreatedAt,
		&h.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, habit.ErrHabitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan habit: %w", err)
	}

	return &h, nil
}

func (r *HabitRepository) scanHabits(rows pgx.Rows) ([]*habit.Habit, error) {
	var habits []*habit.Habit

	for rows.Next() {
		var h habit.Habit

		err := rows.Scan(
			&h.ID,
			&h.OwnerID,
			&h.Name,
			&h.Position,
			&h.CreatedAt,
			&h.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}

		habits = append(habits, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return habits, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CompletionRepository implements habit.CompletionRepository for PostgreSQL.
type CompletionRepository struct {
	q Querier
}

// NewCompletionRepository creates a new CompletionRepository backed by the pool.
func NewCompletionRepository(conn *Connection) *CompletionRepository {
	return &CompletionRepository{q: conn.Pool()}
}

// newCompletionRepositoryTx binds the repository to a transaction.
func newCompletionRepositoryTx(tx pgx.Tx) *CompletionRepository {
	return &CompletionRepository{q: tx}
}

// Upsert writes a completion record. Last write wins on conflict.
func (r *CompletionRepository) Upsert(ctx context.Context, record *habit.CompletionRecord) error {
	query := `
		INSERT INTO completions (habit_id, date, completed, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT(habit_id, date) DO UPDATE SET
			completed = EXCLUDED.completed,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.q.Exec(ctx, query,
		record.HabitID,
		record.Date,
		record.Completed,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert completion: %w", err)
	}

	return nil
}

// Get returns the record for one habit and day.
func (r *CompletionRepository) Get(ctx context.Context, habitID string, date time.Time) (*habit.CompletionRecord, error) {
	query := `
		SELECT habit_id, date, completed, updated_at
		FROM completions
		WHERE habit_id = $1 AND date = $2
	`

	row := r.q.QueryRow(ctx, query, habitID, timeutil.StartOfDay(date))
	return r.scanRecord(row)
}

// GetByHabit returns all records for a habit, ordered by date.
func (r *CompletionRepository) GetByHabit(ctx context.Context, habitID string) ([]*habit.CompletionRecord, error) {
	query := `
		SELECT habit_id, date, completed, updated_at
		FROM completions
		WHERE habit_id = $1
		ORDER BY date ASC
	`

	rows, err := r.q.Query(ctx, query, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

// GetByOwner returns all records of a user's habits, grouped by habit ID.
func (r *CompletionRepository) GetByOwner(ctx context.Context, ownerID string) (map[string][]*habit.CompletionRecord, error) {
	query := `
		SELECT c.habit_id, c.date, c.completed, c.updated_at
		FROM completions c
		JOIN habits h ON h.id = c.habit_id
		WHERE h.owner_id = $1
		ORDER BY c.date ASC
	`

	rows, err := r.q.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions by owner: %w", err)
	}
	defer rows.Close()

	records, err := r.scanRecords(rows)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]*habit.CompletionRecord)
	for _, rec := range records {
		grouped[rec.HabitID] = append(grouped[rec.HabitID], rec)
	}

	return grouped, nil
}

// GetByOwnerAndDate returns the records of all of a user's habits for one day.
func (r *CompletionRepository) GetByOwnerAndDate(ctx context.Context, ownerID string, date time.Time) (map[string]*habit.CompletionRecord, error) {
	query := `
		SELECT c.habit_id, c.date, c.completed, c.updated_at
		FROM completions c
		JOIN habits h ON h.id = c.habit_id
		WHERE h.owner_id = $1 AND c.date = $2
	`

	rows, err := r.q.Query(ctx, query, ownerID, timeutil.StartOfDay(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query completions by day: %w", err)
	}
	defer rows.Close()

	records, err := r.scanRecords(rows)
	if err != nil {
		return nil, err
	}

	byHabit := make(map[string]*habit.CompletionRecord, len(records))
	for _, rec := range records {
		byHabit[rec.HabitID] = rec
	}

	return byHabit, nil
}

// DeleteByOwner removes every record of the user's habits while keeping
// the habits themselves.
func (r *CompletionRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	query := `
		DELETE FROM completions
		WHERE habit_id IN (SELECT id FROM habits WHERE owner_id = $1)
	`

	_, err := r.q.Exec(ctx, query, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete completions: %w", err)
	}

	return nil
}

// EarliestDate returns the date of the user's first record.
func (r *CompletionRepository) EarliestDate(ctx context.Context, ownerID string) (time.Time, error) {
	query := `
		SELECT MIN(c.date)
		FROM completions c
		JOIN habits h ON h.id = c.habit_id
		WHERE h.owner_id = $1
	`

	var earliest *time.Time
	err := r.q.QueryRow(ctx, query, ownerID).Scan(&earliest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query earliest date: %w", err)
	}

	if earliest == nil {
		return time.Time{}, nil
	}

	return timeutil.StartOfDay(*earliest), nil
}

// DeleteOutside removes the user's records dated outside [start, end].
func (r *CompletionRepository) DeleteOutside(ctx context.Context, ownerID string, start, end time.Time) (int64, error) {
	query := `
		DELETE FROM completions
		WHERE habit_id IN (SELECT id FROM habits WHERE owner_id = $1)
		  AND (date < $2 OR date > $3)
	`

	result, err := r.q.Exec(ctx, query, ownerID, timeutil.StartOfDay(start), timeutil.StartOfDay(end))
	if err != nil {
		return 0, fmt.Errorf("failed to delete stray completions: %w", err)
	}

	return result.RowsAffected(), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *CompletionRepository) scanRecord(row pgx.Row) (*habit.CompletionRecord, error) {
	var rec habit.CompletionRecord

	err := row.Scan(
		&rec.HabitID,
		&rec.Date,
		&rec.Completed,
		&rec.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, habit.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan completion: %w", err)
	}

	rec.Date = timeutil.StartOfDay(rec.Date)
	return &rec, nil
}

func (r *CompletionRepository) scanRecords(rows pgx.Rows) ([]*habit.CompletionRecord, error) {
	var records []*habit.CompletionRecord

	for rows.Next() {
		var rec habit.CompletionRecord

		err := rows.Scan(
			&rec.HabitID,
			&rec.Date,
			&rec.Completed,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}

		rec.Date = timeutil.StartOfDay(rec.Date)
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWork binds habit, completion, and unlock repositories to one
// transaction.
type UnitOfWork struct {
	tx          pgx.Tx
	habits      *HabitRepository
	completions *CompletionRepository
	unlocks     *AchievementRepository
	done        bool
}

// Habits returns the habit repository bound to the transaction.
func (u *UnitOfWork) Habits() habit.Repository {
	return u.habits
}

// Completions returns the completion repository bound to the transaction.
func (u *UnitOfWork) Completions() habit.CompletionRepository {
	return u.completions
}

// Achievements returns the unlock repository bound to the transaction.
// Not part of habit.UnitOfWork; callers that need transactional unlock
// writes (import) discover it through an interface assertion.
func (u *UnitOfWork) Achievements() achievement.Repository {
	return u.unlocks
}

// Commit commits the transaction.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true

	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	return nil
}

// Rollback aborts the transaction. Safe to call after Commit.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true

	if err := u.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	return nil
}

// UnitOfWorkFactory creates transaction-bound units of work.
type UnitOfWorkFactory struct {
	conn *Connection
}

// NewUnitOfWorkFactory creates a factory over the connection pool.
func NewUnitOfWorkFactory(conn *Connection) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{conn: conn}
}

// Begin starts a new transaction.
func (f *UnitOfWorkFactory) Begin(ctx context.Context) (habit.UnitOfWork, error) {
	tx, err := f.conn.BeginTx(ctx, DefaultTxOptions())
	if err != nil {
		return nil, err
	}

	return &UnitOfWork{
		tx:          tx,
		habits:      newHabitRepositoryTx(tx),
		completions: newCompletionRepositoryTx(tx),
		unlocks:     newAchievementRepositoryTx(tx),
	}, nil
}

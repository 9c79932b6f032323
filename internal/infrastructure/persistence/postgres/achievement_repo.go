package postgres

import (
	"context"
	"fmt"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRepository implements achievement.Repository for PostgreSQL.
type AchievementRepository struct {
	q Querier
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{q: conn.Pool()}
}

// newAchievementRepositoryTx binds the repository to a transaction.
func newAchievementRepositoryTx(tx pgx.Tx) *AchievementRepository {
	return &AchievementRepository{q: tx}
}

// Save persists an unlock. Writing an existing (user, key) pair is a
// no-op thanks to ON CONFLICT DO NOTHING, keeping evaluation idempotent.
func (r *AchievementRepository) Save(ctx context.Context, unlock *achievement.Unlock) error {
	query := `
		INSERT INTO achievement_unlocks (user_id, achievement_key, unlocked_at, viewed, notified)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT(user_id, achievement_key) DO NOTHING
	`

	_, err := r.q.Exec(ctx, query,
		unlock.UserID,
		string(unlock.Key),
		unlock.UnlockedAt,
		unlock.Viewed,
		unlock.Notified,
	)
	if err != nil {
		return fmt.Errorf("failed to save unlock: %w", err)
	}

	return nil
}

// GetByUser returns all unlocks of a user, ordered by unlock time.
func (r *AchievementRepository) GetByUser(ctx context.Context, userID string) ([]*achievement.Unlock, error) {
	query := `
		SELECT user_id, achievement_key, unlocked_at, viewed, notified
		FROM achievement_unlocks
		WHERE user_id = $1
		ORDER BY unlocked_at ASC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unlocks: %w", err)
	}
	defer rows.Close()

	return r.scanUnlocks(rows)
}

// GetUnviewed returns the user's unlocks with viewed = false.
func (r *AchievementRepository) GetUnviewed(ctx context.Context, userID string) ([]*achievement.Unlock, error) {
	query := `
		SELECT user_id, achievement_key, unlocked_at, viewed, notified
		FROM achievement_unlocks
		WHERE user_id = $1 AND viewed = FALSE
		ORDER BY unlocked_at ASC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unviewed unlocks: %w", err)
	}
	defer rows.Close()

	return r.scanUnlocks(rows)
}

// MarkViewed flips viewed = true for the given keys of the user.
// Keys that do not match an unlock of this user are silently ignored.
func (r *AchievementRepository) MarkViewed(ctx context.Context, userID string, keys []achievement.Key) error {
	if len(keys) == 0 {
		return nil
	}

	rawKeys := make([]string, len(keys))
	for i, k := range keys {
		rawKeys[i] = string(k)
	}

	query := `
		UPDATE achievement_unlocks
		SET viewed = TRUE
		WHERE user_id = $1 AND achievement_key = ANY($2)
	`

	_, err := r.q.Exec(ctx, query, userID, rawKeys)
	if err != nil {
		return fmt.Errorf("failed to mark unlocks viewed: %w", err)
	}

	return nil
}

// GetUnnotified returns unlocks across all users that have not yet been
// pushed, oldest first.
func (r *AchievementRepository) GetUnnotified(ctx context.Context, limit int) ([]*achievement.Unlock, error) {
	query := `
		SELECT user_id, achievement_key, unlocked_at, viewed, notified
		FROM achievement_unlocks
		WHERE notified = FALSE
		ORDER BY unlocked_at ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unnotified unlocks: %w", err)
	}
	defer rows.Close()

	return r.scanUnlocks(rows)
}

// MarkNotified flips notified = true for one unlock.
func (r *AchievementRepository) MarkNotified(ctx context.Context, userID string, key achievement.Key) error {
	query := `
		UPDATE achievement_unlocks
		SET notified = TRUE
		WHERE user_id = $1 AND achievement_key = $2
	`

	result, err := r.q.Exec(ctx, query, userID, string(key))
	if err != nil {
		return fmt.Errorf("failed to mark unlock notified: %w", err)
	}

	if result.RowsAffected() == 0 {
		return achievement.ErrUnlockNotFound
	}

	return nil
}

// DeleteByUser removes all unlocks of a user.
func (r *AchievementRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.q.Exec(ctx, "DELETE FROM achievement_unlocks WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to delete unlocks: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *AchievementRepository) scanUnlocks(rows pgx.Rows) ([]*achievement.Unlock, error) {
	var unlocks []*achievement.Unlock

	for rows.Next() {
		var u achievement.Unlock
		var key string

		err := rows.Scan(
			&u.UserID,
			&key,
			&u.UnlockedAt,
			&u.Viewed,
			&u.Notified,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unlock: %w", err)
		}

		u.Key = achievement.Key(key)
		unlocks = append(unlocks, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return unlocks, nil
}

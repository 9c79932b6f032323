// Package postgres implements the PostgreSQL persistence layer for the
// habit tracker.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE USERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create users table
-- Version: 001

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    username VARCHAR(32) NOT NULL UNIQUE,
    password_hash VARCHAR(100) NOT NULL,
    challenge_start DATE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_username CHECK (char_length(username) >= 3)
);

CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
`

const migration001Down = `
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE HABITS AND COMPLETIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create habits and completions tables
-- Version: 002

CREATE TABLE IF NOT EXISTS habits (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name VARCHAR(100) NOT NULL,
    position INTEGER NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_position CHECK (position >= 1 AND position <= 6),
    UNIQUE(owner_id, position)
);

CREATE INDEX IF NOT EXISTS idx_habits_owner_id ON habits(owner_id);

-- One cell of the 21-day grid. Absence of a row means "not completed".
CREATE TABLE IF NOT EXISTS completions (
    id SERIAL PRIMARY KEY,
    habit_id UUID NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
    date DATE NOT NULL,
    completed BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(habit_id, date)
);

CREATE INDEX IF NOT EXISTS idx_completions_habit_date ON completions(habit_id, date);
CREATE INDEX IF NOT EXISTS idx_completions_date ON completions(date);
`

const migration002Down = `
DROP TABLE IF EXISTS completions;
DROP TABLE IF EXISTS habits;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create achievement unlocks table
-- Version: 003

CREATE TABLE IF NOT EXISTS achievement_unlocks (
    id SERIAL PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    achievement_key VARCHAR(50) NOT NULL,
    unlocked_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    viewed BOOLEAN NOT NULL DEFAULT FALSE,
    notified BOOLEAN NOT NULL DEFAULT FALSE,

    UNIQUE(user_id, achievement_key)
);

CREATE INDEX IF NOT EXISTS idx_unlocks_user_id ON achievement_unlocks(user_id);
CREATE INDEX IF NOT EXISTS idx_unlocks_unviewed ON achievement_unlocks(user_id) WHERE viewed = FALSE;
CREATE INDEX IF NOT EXISTS idx_unlocks_unnotified ON achievement_unlocks(unlocked_at) WHERE notified = FALSE;
`

const migration003Down = `
DROP TABLE IF EXISTS achievement_unlocks;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_users",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_habits_completions",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_achievement_unlocks",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

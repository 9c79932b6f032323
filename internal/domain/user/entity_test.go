package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("  Alice  ", "correct horse battery")
	require.NoError(t, err)

	assert.Equal(t, "alice", u.Username)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "correct horse battery", u.PasswordHash)
	assert.Nil(t, u.ChallengeStart)
}

func TestNewUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"too short username", "ab", "longenough", ErrInvalidUsername},
		{"bad characters", "al!ce", "longenough", ErrInvalidUsername},
		{"leading dash", "-alice", "longenough", ErrInvalidUsername},
		{"short password", "alice", "short", ErrInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.username, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckPassword(t *testing.T) {
	u, err := NewUser("alice", "correct horse battery")
	require.NoError(t, err)

	assert.NoError(t, u.CheckPassword("correct horse battery"))
	assert.ErrorIs(t, u.CheckPassword("wrong"), ErrWrongCredentials)
}

func TestChangePassword(t *testing.T) {
	u, err := NewUser("alice", "first password")
	require.NoError(t, err)

	require.NoError(t, u.ChangePassword("second password"))
	assert.ErrorIs(t, u.CheckPassword("first password"), ErrWrongCredentials)
	assert.NoError(t, u.CheckPassword("second password"))
}

func TestChallengeWindow(t *testing.T) {
	u, err := NewUser("alice", "correct horse battery")
	require.NoError(t, err)

	_, werr := u.Window()
	assert.ErrorIs(t, werr, ErrChallengeNotStarted)
	assert.False(t, u.HasChallenge())

	u.StartChallenge(time.Date(2026, 3, 16, 15, 4, 5, 0, time.UTC))
	require.True(t, u.HasChallenge())

	w, werr := u.Window()
	require.NoError(t, werr)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, 21, w.Days)
}

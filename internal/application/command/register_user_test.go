package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUser_CreatesAccount(t *testing.T) {
	f := newFixture()
	h := NewRegisterUserHandler(f.users, nil)

	result, err := h.Handle(context.Background(), RegisterUserCommand{
		Username: "  Alice  ",
		Password: "correct-horse-battery",
	})

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "alice", result.Username, "usernames are trimmed and lowercased")
	assert.NotEmpty(t, result.UserID)

	stored, err := f.users.GetByID(context.Background(), result.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse-battery", stored.PasswordHash, "plaintext never lands in storage")
}

func TestRegisterUser_RejectsTakenUsername(t *testing.T) {
	f := newFixture()
	h := NewRegisterUserHandler(f.users, nil)

	first, err := h.Handle(context.Background(), RegisterUserCommand{Username: "bob", Password: "long-enough-pass"})
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := h.Handle(context.Background(), RegisterUserCommand{Username: "bob", Password: "another-long-pass"})
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Equal(t, "username already taken", second.Reason)
}

func TestRegisterUser_RejectsBadCredentials(t *testing.T) {
	f := newFixture()
	h := NewRegisterUserHandler(f.users, nil)

	result, err := h.Handle(context.Background(), RegisterUserCommand{Username: "x", Password: "long-enough-pass"})
	require.NoError(t, err)
	assert.False(t, result.Success, "username too short")

	result, err = h.Handle(context.Background(), RegisterUserCommand{Username: "charlie", Password: "short"})
	require.NoError(t, err)
	assert.False(t, result.Success, "password too short")
}

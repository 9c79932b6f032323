// Package user contains the user aggregate: account identity, credential
// handling and the per-user challenge window anchor.
package user

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUserNotFound - no user with the given id or username.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken - the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidUsername - the username fails format validation.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInvalidPassword - the password fails the length policy.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrWrongCredentials - username/password pair does not match.
	ErrWrongCredentials = errors.New("wrong credentials")

	// ErrChallengeNotStarted - the user has no challenge window yet.
	ErrChallengeNotStarted = errors.New("challenge not started")
)

// ══════════════════════════════════════════════════════════════════════════════
// VALIDATION RULES
// ══════════════════════════════════════════════════════════════════════════════

const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt input limit
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// ══════════════════════════════════════════════════════════════════════════════
// USER ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// User is an account with at most one active 21-day challenge. The
// ChallengeStart anchor defines the window all stats are computed over;
// it is nil until the first setup.
type User struct {
	// ID - unique identifier (UUID).
	ID string

	// Username - login name, lowercase, unique.
	Username string

	// PasswordHash - bcrypt hash of the password.
	PasswordHash string

	// ChallengeStart - first day of the current challenge window (UTC
	// midnight). Nil when no challenge has been set up.
	ChallengeStart *time.Time

	// CreatedAt - registration time.
	CreatedAt time.Time

	// UpdatedAt - last modification time.
	UpdatedAt time.Time
}

// NewUser registers a user with a freshly hashed password.
func NewUser(username, password string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateUsername checks the username against the format rules.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return fmt.Errorf("%w: must be %d-%d characters", ErrInvalidUsername, MinUsernameLength, MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: only lowercase letters, digits, '_', '.', '-'", ErrInvalidUsername)
	}
	return nil
}

// ValidatePassword checks the password length policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: minimum %d characters", ErrInvalidPassword, MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: maximum %d characters", ErrInvalidPassword, MaxPasswordLength)
	}
	return nil
}

// CheckPassword compares a candidate against the stored hash.
func (u *User) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrWrongCredentials
	}
	return nil
}

// ChangePassword rehashes and stores a new password.
func (u *User) ChangePassword(password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// StartChallenge anchors a new challenge window at the given day.
func (u *User) StartChallenge(start time.Time) {
	day := timeutil.StartOfDay(start)
	u.ChallengeStart = &day
	u.UpdatedAt = time.Now().UTC()
}

// HasChallenge reports whether a window is anchored.
func (u *User) HasChallenge() bool {
	return u.ChallengeStart != nil
}

// Window returns the user's challenge window.
func (u *User) Window() (habit.Window, error) {
	if u.ChallengeStart == nil {
		return habit.Window{}, ErrChallengeNotStarted
	}
	return habit.NewWindow(*u.ChallengeStart, habit.ChallengeDays), nil
}

// String returns a representation suitable for logging.
func (u *User) String() string {
	return fmt.Sprintf("User{ID: %s, Username: %s}", u.ID, u.Username)
}

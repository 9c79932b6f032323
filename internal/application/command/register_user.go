package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// Creates an account. The challenge window stays closed until the user
// runs setup.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand contains the data to register a user.
type RegisterUserCommand struct {
	// Username is the desired handle (lowercased on creation).
	Username string

	// Password is the plaintext password, hashed before storage.
	Password string
}

// Validate validates the command. Full username and password rules are
// enforced by the user domain; this only rejects the obviously empty.
func (c RegisterUserCommand) Validate() error {
	if c.Username == "" {
		return errors.New("register_user: username is required")
	}
	if c.Password == "" {
		return errors.New("register_user: password is required")
	}
	return nil
}

// RegisterUserResult contains the result of a registration.
type RegisterUserResult struct {
	// Success indicates the account was created.
	Success bool

	// Reason explains a rejected registration.
	Reason string

	// UserID is the new account's ID.
	UserID string

	// Username is the normalized handle.
	Username string

	// CreatedAt is when the account was created.
	CreatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	userRepo user.Repository
	log      *logger.Logger
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(userRepo user.Repository, log *logger.Logger) *RegisterUserHandler {
	if log == nil {
		log = logger.Default()
	}

	return &RegisterUserHandler{
		userRepo: userRepo,
		log:      log.With(logger.Component("register_user")),
	}
}

// Handle executes the register user command.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_user: validation failed: %w", err)
	}

	usr, err := user.NewUser(cmd.Username, cmd.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidUsername), errors.Is(err, user.ErrInvalidPassword):
			return &RegisterUserResult{Success: false, Reason: err.Error()}, nil
		default:
			return nil, fmt.Errorf("register_user: %w", err)
		}
	}

	if err := h.userRepo.Create(ctx, usr); err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			return &RegisterUserResult{Success: false, Reason: "username already taken"}, nil
		}
		return nil, fmt.Errorf("register_user: create user: %w", err)
	}

	h.log.Info("user registered", logger.UserID(usr.ID))

	return &RegisterUserResult{
		Success:   true,
		UserID:    usr.ID,
		Username:  usr.Username,
		CreatedAt: usr.CreatedAt,
	}, nil
}

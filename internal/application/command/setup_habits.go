package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SETUP HABITS COMMAND
// Replaces the user's habit list and opens a fresh challenge window.
// Re-running setup is a full restart: old habits, their records, and the
// window anchor are all replaced.
// ══════════════════════════════════════════════════════════════════════════════

// SetupHabitsCommand contains the data to set up a challenge.
type SetupHabitsCommand struct {
	// UserID is the user setting up their challenge.
	UserID string

	// Names are the habit labels, in display order. Blank entries are
	// dropped before validation, matching a form with optional slots.
	Names []string

	// StartDate anchors the challenge window (defaults to today if zero).
	StartDate time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c SetupHabitsCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("setup_habits: user_id is required")
	}

	names := c.cleanNames()
	if len(names) == 0 {
		return habit.ErrNoHabits
	}
	if len(names) > habit.MaxHabits {
		return habit.ErrTooManyHabits
	}
	return nil
}

// cleanNames trims and drops blank entries, preserving order.
func (c SetupHabitsCommand) cleanNames() []string {
	names := make([]string, 0, len(c.Names))
	for _, n := range c.Names {
		if trimmed := strings.TrimSpace(n); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

// SetupHabitsResult contains the result of a setup.
type SetupHabitsResult struct {
	// Success indicates the challenge was set up.
	Success bool

	// Reason explains a rejected setup.
	Reason string

	// UserID is the user the challenge belongs to.
	UserID string

	// Habits are the created habits, ordered by position.
	Habits []*habit.Habit

	// StartDate is the normalized first day of the window.
	StartDate time.Time

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SetupHabitsHandler handles the SetupHabitsCommand.
type SetupHabitsHandler struct {
	userRepo       user.Repository
	habitRepo      habit.Repository
	statsCache     habit.StatsCache
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewSetupHabitsHandler creates a new SetupHabitsHandler.
func NewSetupHabitsHandler(
	userRepo user.Repository,
	habitRepo habit.Repository,
	statsCache habit.StatsCache,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *SetupHabitsHandler {
	if log == nil {
		log = logger.Default()
	}

	return &SetupHabitsHandler{
		userRepo:       userRepo,
		habitRepo:      habitRepo,
		statsCache:     statsCache,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("setup_habits")),
	}
}

// Handle executes the setup habits command.
func (h *SetupHabitsHandler) Handle(ctx context.Context, cmd SetupHabitsCommand) (*SetupHabitsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("setup_habits: validation failed: %w", err)
	}

	usr, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("setup_habits: load user: %w", err)
	}

	start := cmd.StartDate
	if start.IsZero() {
		start = timeutil.Today()
	}
	start = timeutil.StartOfDay(start)

	names := cmd.cleanNames()

	// Build the new set before touching storage so a bad name aborts with
	// nothing deleted.
	habits := make([]*habit.Habit, 0, len(names))
	for i, name := range names {
		hab, err := habit.NewHabit(habit.NewHabitParams{
			ID:       uuid.New().String(),
			OwnerID:  cmd.UserID,
			Name:     name,
			Position: i + 1,
		})
		if err != nil {
			return nil, fmt.Errorf("setup_habits: habit %d: %w", i+1, err)
		}
		habits = append(habits, hab)
	}
	if err := habit.ValidateSet(habits); err != nil {
		return nil, fmt.Errorf("setup_habits: %w", err)
	}

	// Replace the old set. Deleting habits cascades to their records.
	if err := h.habitRepo.DeleteByOwner(ctx, cmd.UserID); err != nil {
		return nil, fmt.Errorf("setup_habits: clear old habits: %w", err)
	}
	for _, hab := range habits {
		if err := h.habitRepo.Create(ctx, hab); err != nil {
			return nil, fmt.Errorf("setup_habits: create habit %q: %w", hab.Name, err)
		}
	}

	// Anchor the window.
	usr.StartChallenge(start)
	if err := h.userRepo.Update(ctx, usr); err != nil {
		return nil, fmt.Errorf("setup_habits: update user: %w", err)
	}

	if h.statsCache != nil {
		if err := h.statsCache.Invalidate(ctx, cmd.UserID); err != nil {
			h.log.Warn("stats cache invalidation failed",
				logger.UserID(cmd.UserID),
				logger.Err(err),
			)
		}
	}

	event := shared.NewChallengeSetupEvent(cmd.UserID, names, start)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}

	result := &SetupHabitsResult{
		Success:   true,
		UserID:    cmd.UserID,
		Habits:    habits,
		StartDate: start,
		Events:    []shared.Event{event},
	}

	for _, ev := range result.Events {
		_ = h.eventPublisher.Publish(ev)
	}

	h.log.Info("challenge set up",
		logger.UserID(cmd.UserID),
		logger.Int("habits", len(habits)),
		logger.Day(start),
	)

	return result, nil
}

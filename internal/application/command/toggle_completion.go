// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/application/saga"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOGGLE COMPLETION COMMAND
// Flips one habit's done mark for one calendar day. The first touch of an
// unmarked day creates it completed; every further toggle inverts the flag.
// This is the hot path of the whole service.
// ══════════════════════════════════════════════════════════════════════════════

// ToggleCompletionCommand contains the data to toggle a completion.
type ToggleCompletionCommand struct {
	// UserID is the acting user. The habit must belong to them.
	UserID string

	// HabitID is the habit to toggle.
	HabitID string

	// Date is the calendar day to toggle (defaults to today if zero).
	Date time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ToggleCompletionCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("toggle_completion: user_id is required")
	}
	if c.HabitID == "" {
		return errors.New("toggle_completion: habit_id is required")
	}
	return nil
}

// NewAchievement describes one unlock surfaced by a toggle, ready for the
// client toast.
type NewAchievement struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
}

// ToggleCompletionResult contains the result of a toggle.
// A domain-invalid request (unknown habit, foreign habit, date outside the
// window) yields Success=false with a reason, not an error: the client
// shows the reason and moves on.
type ToggleCompletionResult struct {
	// Success indicates the toggle was applied.
	Success bool `json:"success"`

	// Reason explains a failed toggle.
	Reason string `json:"reason,omitempty"`

	// Completed is the state of the mark after the toggle.
	Completed bool `json:"completed"`

	// Date is the normalized day that was toggled.
	Date time.Time `json:"date"`

	// DayCompleted indicates every habit is now done for that day.
	DayCompleted bool `json:"day_completed"`

	// NewAchievements lists unlocks produced by this toggle.
	NewAchievements []NewAchievement `json:"new_achievements"`

	// Events contains domain events generated.
	Events []shared.Event `json:"-"`
}

// failToggle builds a failure result.
func failToggle(reason string) *ToggleCompletionResult {
	return &ToggleCompletionResult{
		Success:         false,
		Reason:          reason,
		NewAchievements: []NewAchievement{},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ToggleCompletionHandler handles the ToggleCompletionCommand.
type ToggleCompletionHandler struct {
	userRepo       user.Repository
	habitRepo      habit.Repository
	completionRepo habit.CompletionRepository
	statsCache     habit.StatsCache
	unlockFlow     *saga.UnlockFlow
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewToggleCompletionHandler creates a new ToggleCompletionHandler.
func NewToggleCompletionHandler(
	userRepo user.Repository,
	habitRepo habit.Repository,
	completionRepo habit.CompletionRepository,
	statsCache habit.StatsCache,
	unlockFlow *saga.UnlockFlow,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *ToggleCompletionHandler {
	if log == nil {
		log = logger.Default()
	}

	return &ToggleCompletionHandler{
		userRepo:       userRepo,
		habitRepo:      habitRepo,
		completionRepo: completionRepo,
		statsCache:     statsCache,
		unlockFlow:     unlockFlow,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("toggle_completion")),
	}
}

// Handle executes the toggle completion command.
func (h *ToggleCompletionHandler) Handle(ctx context.Context, cmd ToggleCompletionCommand) (*ToggleCompletionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("toggle_completion: validation failed: %w", err)
	}

	date := cmd.Date
	if date.IsZero() {
		date = timeutil.Today()
	}
	date = timeutil.StartOfDay(date)

	// Resolve the habit and verify ownership.
	hab, err := h.habitRepo.GetByID(ctx, cmd.HabitID)
	if err != nil {
		if errors.Is(err, habit.ErrHabitNotFound) {
			return failToggle("habit not found"), nil
		}
		return nil, fmt.Errorf("toggle_completion: load habit: %w", err)
	}
	if hab.OwnerID != cmd.UserID {
		// Do not leak whether the habit exists for someone else.
		return failToggle("habit not found"), nil
	}

	// The day must fall inside the user's challenge window.
	usr, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("toggle_completion: load user: %w", err)
	}
	window, err := usr.Window()
	if err != nil {
		if errors.Is(err, user.ErrChallengeNotStarted) {
			return failToggle("challenge not started"), nil
		}
		return nil, fmt.Errorf("toggle_completion: challenge window: %w", err)
	}
	if !window.Contains(date) {
		return failToggle("date outside challenge window"), nil
	}

	// First touch of a day creates it completed; otherwise flip the flag.
	record, err := h.completionRepo.Get(ctx, hab.ID, date)
	switch {
	case errors.Is(err, habit.ErrRecordNotFound):
		record = habit.NewCompletionRecord(hab.ID, date, true)
	case err != nil:
		return nil, fmt.Errorf("toggle_completion: load record: %w", err)
	default:
		record.Toggle()
	}

	if err := h.completionRepo.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("toggle_completion: upsert record: %w", err)
	}

	result := &ToggleCompletionResult{
		Success:         true,
		Completed:       record.Completed,
		Date:            date,
		NewAchievements: []NewAchievement{},
		Events:          make([]shared.Event, 0, 2),
	}

	toggled := shared.NewCompletionToggledEvent(cmd.UserID, hab.ID, date, record.Completed)
	if cmd.CorrelationID != "" {
		toggled.BaseEvent = toggled.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, toggled)

	// Check whether the whole day is now done.
	if record.Completed {
		done, count, err := h.dayFullyCompleted(ctx, cmd.UserID, date)
		if err == nil && done {
			result.DayCompleted = true
			result.Events = append(result.Events, shared.NewDayCompletedEvent(cmd.UserID, date, count))
		}
	}

	// Evaluate achievements synchronously so the response carries the toast.
	flowResult, err := h.unlockFlow.Execute(ctx, saga.UnlockFlowInput{
		UserID:        cmd.UserID,
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		// The toggle itself landed; losing an unlock run only delays the
		// unlock until the next write.
		h.log.Warn("unlock flow failed after toggle",
			logger.UserID(cmd.UserID),
			logger.HabitID(hab.ID),
			logger.Err(err),
		)
	} else {
		for _, u := range flowResult.NewUnlocks {
			def, ok := achievement.GetDefinition(u.Key)
			if !ok {
				continue
			}
			result.NewAchievements = append(result.NewAchievements, NewAchievement{
				Key:         string(def.Key),
				Name:        def.Name,
				Description: def.Description,
				Emoji:       def.Emoji,
			})
		}
	}

	// Stats are stale now.
	if h.statsCache != nil {
		if err := h.statsCache.Invalidate(ctx, cmd.UserID); err != nil {
			h.log.Warn("stats cache invalidation failed",
				logger.UserID(cmd.UserID),
				logger.Err(err),
			)
		}
	}

	for _, event := range result.Events {
		_ = h.eventPublisher.Publish(event)
	}

	return result, nil
}

// dayFullyCompleted reports whether every habit of the user has a completed
// record for the day, along with the habit count.
func (h *ToggleCompletionHandler) dayFullyCompleted(ctx context.Context, userID string, date time.Time) (bool, int, error) {
	habits, err := h.habitRepo.GetByOwner(ctx, userID)
	if err != nil {
		return false, 0, err
	}

	records, err := h.completionRepo.GetByOwnerAndDate(ctx, userID, date)
	if err != nil {
		return false, 0, err
	}

	for _, hab := range habits {
		rec, ok := records[hab.ID]
		if !ok || !rec.Completed {
			return false, len(habits), nil
		}
	}
	return len(habits) > 0, len(habits), nil
}

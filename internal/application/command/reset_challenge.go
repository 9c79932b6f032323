package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET CHALLENGE COMMAND
// Wipes the completion history and re-anchors the window on today. The
// habit list survives a reset; achievements survive unless explicitly
// wiped too.
// ══════════════════════════════════════════════════════════════════════════════

// ResetChallengeCommand contains the data to reset a challenge.
type ResetChallengeCommand struct {
	// UserID is the user resetting their challenge.
	UserID string

	// WipeAchievements also deletes earned unlocks for a truly clean slate.
	WipeAchievements bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ResetChallengeCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("reset_challenge: user_id is required")
	}
	return nil
}

// ResetChallengeResult contains the result of a reset.
type ResetChallengeResult struct {
	// Success indicates the reset was applied.
	Success bool

	// UserID is the user whose challenge was reset.
	UserID string

	// StartDate is the new first day of the window.
	StartDate time.Time

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ResetChallengeHandler handles the ResetChallengeCommand.
type ResetChallengeHandler struct {
	userRepo        user.Repository
	completionRepo  habit.CompletionRepository
	achievementRepo achievement.Repository
	statsCache      habit.StatsCache
	eventPublisher  shared.EventPublisher
	log             *logger.Logger
}

// NewResetChallengeHandler creates a new ResetChallengeHandler.
func NewResetChallengeHandler(
	userRepo user.Repository,
	completionRepo habit.CompletionRepository,
	achievementRepo achievement.Repository,
	statsCache habit.StatsCache,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *ResetChallengeHandler {
	if log == nil {
		log = logger.Default()
	}

	return &ResetChallengeHandler{
		userRepo:        userRepo,
		completionRepo:  completionRepo,
		achievementRepo: achievementRepo,
		statsCache:      statsCache,
		eventPublisher:  eventPublisher,
		log:             log.With(logger.Component("reset_challenge")),
	}
}

// Handle executes the reset challenge command.
func (h *ResetChallengeHandler) Handle(ctx context.Context, cmd ResetChallengeCommand) (*ResetChallengeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("reset_challenge: validation failed: %w", err)
	}

	usr, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("reset_challenge: load user: %w", err)
	}

	if err := h.completionRepo.DeleteByOwner(ctx, cmd.UserID); err != nil {
		return nil, fmt.Errorf("reset_challenge: delete records: %w", err)
	}

	if cmd.WipeAchievements {
		if err := h.achievementRepo.DeleteByUser(ctx, cmd.UserID); err != nil {
			return nil, fmt.Errorf("reset_challenge: delete unlocks: %w", err)
		}
	}

	start := timeutil.Today()
	usr.StartChallenge(start)
	if err := h.userRepo.Update(ctx, usr); err != nil {
		return nil, fmt.Errorf("reset_challenge: update user: %w", err)
	}

	if h.statsCache != nil {
		if err := h.statsCache.Invalidate(ctx, cmd.UserID); err != nil {
			h.log.Warn("stats cache invalidation failed",
				logger.UserID(cmd.UserID),
				logger.Err(err),
			)
		}
	}

	event := shared.NewChallengeResetEvent(cmd.UserID)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}

	result := &ResetChallengeResult{
		Success:   true,
		UserID:    cmd.UserID,
		StartDate: start,
		Events:    []shared.Event{event},
	}

	for _, ev := range result.Events {
		_ = h.eventPublisher.Publish(ev)
	}

	h.log.Info("challenge reset",
		logger.UserID(cmd.UserID),
		logger.Bool("wipe_achievements", cmd.WipeAchievements),
	)

	return result, nil
}

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARK VIEWED COMMAND
// Acknowledges achievement toasts. Unknown keys and keys belonging to
// someone else are silently ignored: acknowledging is never an error.
// ══════════════════════════════════════════════════════════════════════════════

// MarkViewedCommand contains the data to acknowledge unlocks.
type MarkViewedCommand struct {
	// UserID is the acknowledging user.
	UserID string

	// Keys are the achievement keys to mark viewed.
	Keys []string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c MarkViewedCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("mark_viewed: user_id is required")
	}
	return nil
}

// MarkViewedResult contains the result of the acknowledgement.
type MarkViewedResult struct {
	// Success is always true for a well-formed command.
	Success bool

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// MarkViewedHandler handles the MarkViewedCommand.
type MarkViewedHandler struct {
	achievementRepo achievement.Repository
	eventPublisher  shared.EventPublisher
	log             *logger.Logger
}

// NewMarkViewedHandler creates a new MarkViewedHandler.
func NewMarkViewedHandler(
	achievementRepo achievement.Repository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *MarkViewedHandler {
	if log == nil {
		log = logger.Default()
	}

	return &MarkViewedHandler{
		achievementRepo: achievementRepo,
		eventPublisher:  eventPublisher,
		log:             log.With(logger.Component("mark_viewed")),
	}
}

// Handle executes the mark viewed command.
func (h *MarkViewedHandler) Handle(ctx context.Context, cmd MarkViewedCommand) (*MarkViewedResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("mark_viewed: validation failed: %w", err)
	}

	keys := make([]achievement.Key, 0, len(cmd.Keys))
	for _, k := range cmd.Keys {
		keys = append(keys, achievement.Key(k))
	}

	if err := h.achievementRepo.MarkViewed(ctx, cmd.UserID, keys); err != nil {
		return nil, fmt.Errorf("mark_viewed: %w", err)
	}

	result := &MarkViewedResult{
		Success: true,
		Events:  make([]shared.Event, 0, len(keys)),
	}

	for _, key := range keys {
		// Only known keys are worth an event; the storage write already
		// ignored the rest.
		if _, ok := achievement.GetDefinition(key); !ok {
			continue
		}
		event := shared.NewAchievementViewedEvent(cmd.UserID, string(key))
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, event)
	}

	for _, ev := range result.Events {
		_ = h.eventPublisher.Publish(ev)
	}

	return result, nil
}

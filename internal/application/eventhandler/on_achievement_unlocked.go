// Package eventhandler contains subscribers that react to domain events
// published by the command side.
package eventhandler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habit-hub/habit-tracker-hub/config"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
	"github.com/habit-hub/habit-tracker-hub/internal/infrastructure/external/push"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON ACHIEVEMENT UNLOCKED
// Pushes a toast through the relay when an achievement unlocks live, then
// records the delivery. Retroactive (backfill) unlocks arrive pre-notified
// and are skipped here.
// ══════════════════════════════════════════════════════════════════════════════

// OnAchievementUnlocked reacts to AchievementUnlockedEvent.
type OnAchievementUnlocked struct {
	sender          push.Sender
	achievementRepo achievement.Repository
	flags           *config.FeatureFlags
	log             *logger.Logger

	// sendTimeout bounds one relay call; the event bus worker should
	// never hang on a slow relay.
	sendTimeout time.Duration
}

// NewOnAchievementUnlocked creates the handler.
func NewOnAchievementUnlocked(
	sender push.Sender,
	achievementRepo achievement.Repository,
	flags *config.FeatureFlags,
	log *logger.Logger,
) *OnAchievementUnlocked {
	if log == nil {
		log = logger.Default()
	}

	return &OnAchievementUnlocked{
		sender:          sender,
		achievementRepo: achievementRepo,
		flags:           flags,
		log:             log.With(logger.Component("on_achievement_unlocked")),
		sendTimeout:     15 * time.Second,
	}
}

// EventType returns the event type this handler subscribes to.
func (h *OnAchievementUnlocked) EventType() shared.EventType {
	return shared.EventAchievementUnlocked
}

// Handle processes one unlock event. Returned errors are logged by the
// bus; delivery is best-effort and unnotified unlocks are retried by the
// reminder job's sweep.
func (h *OnAchievementUnlocked) Handle(event shared.Event) error {
	unlocked, ok := event.(shared.AchievementUnlockedEvent)
	if !ok {
		return fmt.Errorf("on_achievement_unlocked: unexpected event %T", event)
	}

	if unlocked.Retroactive {
		return nil
	}

	if h.flags != nil && !h.flags.IsEnabled(config.FeatureNotifyAchievement, &config.FeatureContext{UserID: unlocked.UserID}) {
		return nil
	}

	def, ok := achievement.GetDefinition(achievement.Key(unlocked.AchievementKey))
	if !ok {
		return fmt.Errorf("on_achievement_unlocked: unknown key %q", unlocked.AchievementKey)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.sendTimeout)
	defer cancel()

	err := h.sender.Send(ctx, push.Notification{
		UserID: unlocked.UserID,
		Title:  fmt.Sprintf("%s %s", def.Emoji, def.Name),
		Body:   def.Description,
		Tag:    "achievement",
		Data: map[string]interface{}{
			"achievement_key": unlocked.AchievementKey,
		},
	})
	if err != nil {
		if errors.Is(err, push.ErrDisabled) {
			return nil
		}
		return fmt.Errorf("on_achievement_unlocked: send: %w", err)
	}

	if err := h.achievementRepo.MarkNotified(ctx, unlocked.UserID, def.Key); err != nil {
		// The push went out; a failed flag update only risks one duplicate.
		h.log.Warn("mark notified failed",
			logger.UserID(unlocked.UserID),
			logger.AchievementKey(unlocked.AchievementKey),
			logger.Err(err),
		)
	}

	h.log.Info("achievement notification sent",
		logger.UserID(unlocked.UserID),
		logger.AchievementKey(unlocked.AchievementKey),
	)

	return nil
}

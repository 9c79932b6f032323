// Package jobs contains the background jobs run by the scheduler.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habit-hub/habit-tracker-hub/config"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/internal/infrastructure/external/push"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY REMINDER JOB
// Evening nudge: users inside an active window with habits still
// unmarked today get a push through the relay. The job also sweeps
// unlock rows whose live notification was lost.
// ══════════════════════════════════════════════════════════════════════════════

// notifySweepLimit caps how many missed unlock notifications one run
// retries.
const notifySweepLimit = 100

// DailyReminder is the evening reminder job.
type DailyReminder struct {
	userRepo        user.Repository
	habitRepo       habit.Repository
	completionRepo  habit.CompletionRepository
	achievementRepo achievement.Repository
	sender          push.Sender
	flags           *config.FeatureFlags
	log             *logger.Logger
}

// NewDailyReminder creates the job.
func NewDailyReminder(
	userRepo user.Repository,
	habitRepo habit.Repository,
	completionRepo habit.CompletionRepository,
	achievementRepo achievement.Repository,
	sender push.Sender,
	flags *config.FeatureFlags,
	log *logger.Logger,
) *DailyReminder {
	if log == nil {
		log = logger.Default()
	}

	return &DailyReminder{
		userRepo:        userRepo,
		habitRepo:       habitRepo,
		completionRepo:  completionRepo,
		achievementRepo: achievementRepo,
		sender:          sender,
		flags:           flags,
		log:             log.With(logger.Component("daily_reminder")),
	}
}

// Name implements scheduler.Job.
func (j *DailyReminder) Name() string { return "daily_reminder" }

// Description implements scheduler.Job.
func (j *DailyReminder) Description() string {
	return "Push an evening reminder to users with unmarked habits today"
}

// Run implements scheduler.Job.
func (j *DailyReminder) Run(ctx context.Context) error {
	today := timeutil.Today()

	ids, err := j.userRepo.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("daily_reminder: list users: %w", err)
	}

	sent := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ok, err := j.remindUser(ctx, id, today)
		if err != nil {
			// One user's failure never stops the sweep.
			j.log.Warn("reminder failed", logger.UserID(id), logger.Err(err))
			continue
		}
		if ok {
			sent++
		}
	}

	j.log.Info("reminder run complete",
		logger.Int("users", len(ids)),
		logger.Int("sent", sent),
	)

	return j.sweepUnnotified(ctx)
}

// remindUser sends one reminder if the user has unmarked habits today.
func (j *DailyReminder) remindUser(ctx context.Context, userID string, today time.Time) (bool, error) {
	if j.flags != nil && !j.flags.IsEnabled(config.FeatureNotifyDailyReminder, &config.FeatureContext{UserID: userID}) {
		return false, nil
	}

	usr, err := j.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}

	window, err := usr.Window()
	if err != nil {
		if errors.Is(err, user.ErrChallengeNotStarted) {
			return false, nil
		}
		return false, err
	}
	if !window.Contains(today) {
		return false, nil
	}

	habits, err := j.habitRepo.GetByOwner(ctx, userID)
	if err != nil {
		return false, err
	}
	if len(habits) == 0 {
		return false, nil
	}

	records, err := j.completionRepo.GetByOwnerAndDate(ctx, userID, today)
	if err != nil {
		return false, err
	}

	remaining := 0
	for _, hab := range habits {
		rec, ok := records[hab.ID]
		if !ok || !rec.Completed {
			remaining++
		}
	}
	if remaining == 0 {
		return false, nil
	}

	err = j.sender.Send(ctx, push.Notification{
		UserID: userID,
		Title:  "Keep the streak alive",
		Body:   fmt.Sprintf("%d of %d habits still open today (day %d of %d)", remaining, len(habits), window.DayNumber(today), window.Days),
		Tag:    "daily-reminder",
	})
	if err != nil {
		if errors.Is(err, push.ErrDisabled) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// sweepUnnotified retries unlock notifications the live path lost.
func (j *DailyReminder) sweepUnnotified(ctx context.Context) error {
	unlocks, err := j.achievementRepo.GetUnnotified(ctx, notifySweepLimit)
	if err != nil {
		return fmt.Errorf("daily_reminder: load unnotified: %w", err)
	}

	for _, u := range unlocks {
		def, ok := achievement.GetDefinition(u.Key)
		if !ok {
			continue
		}

		err := j.sender.Send(ctx, push.Notification{
			UserID: u.UserID,
			Title:  fmt.Sprintf("%s %s", def.Emoji, def.Name),
			Body:   def.Description,
			Tag:    "achievement",
		})
		if err != nil {
			if errors.Is(err, push.ErrDisabled) {
				return nil
			}
			j.log.Warn("unlock notification retry failed",
				logger.UserID(u.UserID),
				logger.AchievementKey(string(u.Key)),
				logger.Err(err),
			)
			continue
		}

		if err := j.achievementRepo.MarkNotified(ctx, u.UserID, u.Key); err != nil {
			j.log.Warn("mark notified failed",
				logger.UserID(u.UserID),
				logger.AchievementKey(string(u.Key)),
				logger.Err(err),
			)
		}
	}

	return nil
}

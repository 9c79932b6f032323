package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/habit-hub/habit-tracker-hub/config"
	"github.com/habit-hub/habit-tracker-hub/internal/application/saga"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT BACKFILL JOB
// Re-runs the unlock flow for every user, catching unlocks that imported
// data or missed live evaluations left behind. Backfilled unlocks are
// stored pre-viewed and pre-notified so stale toasts never appear.
// ══════════════════════════════════════════════════════════════════════════════

// AchievementBackfill is the retroactive evaluation job.
type AchievementBackfill struct {
	userRepo   user.Repository
	unlockFlow *saga.UnlockFlow
	flags      *config.FeatureFlags
	log        *logger.Logger
}

// NewAchievementBackfill creates the job.
func NewAchievementBackfill(
	userRepo user.Repository,
	unlockFlow *saga.UnlockFlow,
	flags *config.FeatureFlags,
	log *logger.Logger,
) *AchievementBackfill {
	if log == nil {
		log = logger.Default()
	}

	return &AchievementBackfill{
		userRepo:   userRepo,
		unlockFlow: unlockFlow,
		flags:      flags,
		log:        log.With(logger.Component("achievement_backfill")),
	}
}

// Name implements scheduler.Job.
func (j *AchievementBackfill) Name() string { return "achievement_backfill" }

// Description implements scheduler.Job.
func (j *AchievementBackfill) Description() string {
	return "Re-evaluate achievements retroactively for all users"
}

// Run implements scheduler.Job.
func (j *AchievementBackfill) Run(ctx context.Context) error {
	ids, err := j.userRepo.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("achievement_backfill: list users: %w", err)
	}

	unlocked := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if j.flags != nil && !j.flags.IsEnabled(config.FeatureGamificationBackfill, &config.FeatureContext{UserID: id}) {
			continue
		}

		result, err := j.unlockFlow.Execute(ctx, saga.UnlockFlowInput{
			UserID:      id,
			Retroactive: true,
		})
		if err != nil {
			if errors.Is(err, user.ErrChallengeNotStarted) {
				continue
			}
			j.log.Warn("backfill failed for user", logger.UserID(id), logger.Err(err))
			continue
		}

		unlocked += len(result.NewUnlocks)
	}

	j.log.Info("backfill run complete",
		logger.Int("users", len(ids)),
		logger.Int("unlocked", unlocked),
	)

	return nil
}

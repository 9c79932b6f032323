package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLEANUP JOB
// Deletes completion records dated outside the owner's current window.
// Setup and reset re-anchor the window without touching rows from the
// previous run, and stats never read outside the window, so removing
// the strays is safe at any time.
// ══════════════════════════════════════════════════════════════════════════════

// Cleanup is the stray-record cleanup job.
type Cleanup struct {
	userRepo       user.Repository
	completionRepo habit.CompletionRepository
	log            *logger.Logger
}

// NewCleanup creates the job.
func NewCleanup(
	userRepo user.Repository,
	completionRepo habit.CompletionRepository,
	log *logger.Logger,
) *Cleanup {
	if log == nil {
		log = logger.Default()
	}

	return &Cleanup{
		userRepo:       userRepo,
		completionRepo: completionRepo,
		log:            log.With(logger.Component("cleanup")),
	}
}

// Name implements scheduler.Job.
func (j *Cleanup) Name() string { return "cleanup" }

// Description implements scheduler.Job.
func (j *Cleanup) Description() string {
	return "Delete completion records outside each user's current challenge window"
}

// Run implements scheduler.Job.
func (j *Cleanup) Run(ctx context.Context) error {
	ids, err := j.userRepo.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("cleanup: list users: %w", err)
	}

	var removed int64
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		usr, err := j.userRepo.GetByID(ctx, id)
		if err != nil {
			j.log.Warn("cleanup skipped user", logger.UserID(id), logger.Err(err))
			continue
		}

		window, err := usr.Window()
		if err != nil {
			if errors.Is(err, user.ErrChallengeNotStarted) {
				continue
			}
			return fmt.Errorf("cleanup: window for %s: %w", id, err)
		}

		n, err := j.completionRepo.DeleteOutside(ctx, id, window.Start, window.End())
		if err != nil {
			j.log.Warn("cleanup failed for user", logger.UserID(id), logger.Err(err))
			continue
		}
		removed += n
	}

	j.log.Info("cleanup run complete",
		logger.Int("users", len(ids)),
		logger.Int("removed", int(removed)),
	)

	return nil
}

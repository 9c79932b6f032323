// Package saga contains multi-step business processes that orchestrate
// several domain operations in a coordinated manner.
package saga

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
// UNLOCK FLOW SAGA
// Flow: Load State → Compute Snapshot → Evaluate Predicates →
//
//	Persist New Unlocks → Publish Events
//
// Persisting unlocks is the only critical step. Everything after it is
// best-effort: a lost event at worst delays a toast until the next toggle.
// ══════════════════════════════════════════════════════════════════════════════

// UnlockFlowInput contains the data needed to run an unlock evaluation.
type UnlockFlowInput struct {
	// UserID - the user to evaluate.
	UserID string

	// Today - evaluation anchor. Defaults to the current UTC day.
	Today time.Time

	// Retroactive - the run was triggered by the backfill job, not a live
	// toggle. Retroactive unlocks are stored pre-viewed and pre-notified
	// so old toasts never replay.
	Retroactive bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate checks if the input is valid.
func (i UnlockFlowInput) Validate() error {
	if i.UserID == "" {
		return errors.New("unlock_flow: user id is required")
	}
	return nil
}

// UnlockFlowResult contains the outcome of one evaluation run.
type UnlockFlowResult struct {
	// UserID - the evaluated user.
	UserID string

	// NewUnlocks - unlocks produced by this run, in definition table order.
	NewUnlocks []*achievement.Unlock

	// EventsPublished - number of unlock events that reached the bus.
	EventsPublished int

	// ProcessedAt - when the flow completed.
	ProcessedAt time.Time
}

// HasNewUnlocks returns true if the run produced anything.
func (r *UnlockFlowResult) HasNewUnlocks() bool {
	return len(r.NewUnlocks) > 0
}

// UnlockFlowStep identifies a step in the flow.
type UnlockFlowStep string

const (
	StepLoadState      UnlockFlowStep = "load_state"
	StepComputeStats   UnlockFlowStep = "compute_stats"
	StepEvaluate       UnlockFlowStep = "evaluate"
	StepPersistUnlocks UnlockFlowStep = "persist_unlocks"
	StepPublishEvents  UnlockFlowStep = "publish_events"
	StepComplete       UnlockFlowStep = "complete"
)

// unlockFlowState carries intermediate results between steps.
type unlockFlowState struct {
	currentStep UnlockFlowStep
	input       UnlockFlowInput
	today       time.Time

	usr      *user.User
	window   habit.Window
	habits   []*habit.Habit
	sets     map[string]habit.DaySet
	unlocked map[achievement.Key]bool

	snapshot   achievement.Snapshot
	newUnlocks []*achievement.Unlock
	published  int
}

// ══════════════════════════════════════════════════════════════════════════════
// SAGA IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UnlockFlow orchestrates achievement evaluation and granting. Both live
// toggles and the backfill job funnel through here, so the idempotence
// guarantees live in exactly one place.
type UnlockFlow struct {
	userRepo        user.Repository
	habitRepo       habit.Repository
	completionRepo  habit.CompletionRepository
	achievementRepo achievement.Repository
	eventPublisher  shared.EventPublisher

	calculator *habit.StatsCalculator
	evaluator  *achievement.Evaluator
	log        *logger.Logger
}

// NewUnlockFlow creates a new unlock flow saga.
func NewUnlockFlow(
	userRepo user.Repository,
	habitRepo habit.Repository,
	completionRepo habit.CompletionRepository,
	achievementRepo achievement.Repository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *UnlockFlow {
	if log == nil {
		log = logger.Default()
	}

	return &UnlockFlow{
		userRepo:        userRepo,
		habitRepo:       habitRepo,
		completionRepo:  completionRepo,
		achievementRepo: achievementRepo,
		eventPublisher:  eventPublisher,
		calculator:      habit.NewStatsCalculator(),
		evaluator:       achievement.NewEvaluator(),
		log:             log.With(logger.Component("unlock_flow")),
	}
}

// Execute runs the complete evaluation flow for one user.
func (f *UnlockFlow) Execute(ctx context.Context, input UnlockFlowInput) (*UnlockFlowResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	today := input.Today
	if today.IsZero() {
		today = timeutil.Today()
	}

	state := &unlockFlowState{
		currentStep: StepLoadState,
		input:       input,
		today:       timeutil.StartOfDay(today),
	}

	if err := f.stepLoadState(ctx, state); err != nil {
		return nil, f.wrapError(state, err)
	}

	state.currentStep = StepComputeStats
	f.stepComputeSnapshot(state)

	state.currentStep = StepEvaluate
	f.stepEvaluate(state)

	if len(state.newUnlocks) == 0 {
		return f.result(state), nil
	}

	state.currentStep = StepPersistUnlocks
	if err := f.stepPersistUnlocks(ctx, state); err != nil {
		return nil, f.wrapError(state, err)
	}

	// Non-critical from here on.
	state.currentStep = StepPublishEvents
	f.stepPublishEvents(state)

	state.currentStep = StepComplete
	return f.result(state), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SAGA STEPS
// ══════════════════════════════════════════════════════════════════════════════

// stepLoadState loads the user, habits, completion history, and the
// already-unlocked set.
func (f *UnlockFlow) stepLoadState(ctx context.Context, state *unlockFlowState) error {
	usr, err := f.userRepo.GetByID(ctx, state.input.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	state.usr = usr

	window, err := usr.Window()
	if err != nil {
		return fmt.Errorf("challenge window: %w", err)
	}
	state.window = window

	habits, err := f.habitRepo.GetByOwner(ctx, usr.ID)
	if err != nil {
		return fmt.Errorf("load habits: %w", err)
	}
	state.habits = habits

	records, err := f.completionRepo.GetByOwner(ctx, usr.ID)
	if err != nil {
		return fmt.Errorf("load completions: %w", err)
	}

	state.sets = make(map[string]habit.DaySet, len(habits))
	for _, h := range habits {
		state.sets[h.ID] = habit.NewDaySet(records[h.ID])
	}

	unlocks, err := f.achievementRepo.GetByUser(ctx, usr.ID)
	if err != nil {
		return fmt.Errorf("load unlocks: %w", err)
	}
	state.unlocked = achievement.UnlockedSet(unlocks)

	return nil
}

// stepComputeSnapshot derives the stats snapshot the evaluator consumes.
func (f *UnlockFlow) stepComputeSnapshot(state *unlockFlowState) {
	stats := f.calculator.UserStats(state.usr.ID, state.habits, state.sets, state.window, state.today)
	perfectDays := stats.PerfectDays(state.sets, state.window, state.today)
	finished := state.window.IsFinished(state.today)

	state.snapshot = achievement.SnapshotFrom(stats, perfectDays, finished)
}

// stepEvaluate walks the definition table against the snapshot.
func (f *UnlockFlow) stepEvaluate(state *unlockFlowState) {
	now := time.Now().UTC()
	state.newUnlocks = f.evaluator.Evaluate(state.usr.ID, state.snapshot, state.unlocked, now)

	if state.input.Retroactive {
		for _, u := range state.newUnlocks {
			u.MarkViewed()
			u.MarkNotified()
		}
	}
}

// stepPersistUnlocks writes the new unlocks. Save is idempotent on the
// (user, key) pair, so a concurrent toggle racing this run is harmless.
func (f *UnlockFlow) stepPersistUnlocks(ctx context.Context, state *unlockFlowState) error {
	for _, u := range state.newUnlocks {
		if err := f.achievementRepo.Save(ctx, u); err != nil {
			return fmt.Errorf("save unlock %s: %w", u.Key, err)
		}

		f.log.Info("achievement unlocked",
			logger.UserID(u.UserID),
			logger.AchievementKey(string(u.Key)),
			logger.Bool("retroactive", state.input.Retroactive),
		)
	}
	return nil
}

// stepPublishEvents emits one event per unlock.
func (f *UnlockFlow) stepPublishEvents(state *unlockFlowState) {
	if f.eventPublisher == nil {
		return
	}

	for _, u := range state.newUnlocks {
		event := shared.NewAchievementUnlockedEvent(u.UserID, string(u.Key), u.UnlockedAt)
		if state.input.Retroactive {
			event = event.AsRetroactive()
		}
		if state.input.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(state.input.CorrelationID)
		}

		if err := f.eventPublisher.Publish(event); err != nil {
			f.log.Warn("unlock event not published",
				logger.UserID(u.UserID),
				logger.AchievementKey(string(u.Key)),
				logger.Err(err),
			)
			continue
		}
		state.published++
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// result builds the flow result from the final state.
func (f *UnlockFlow) result(state *unlockFlowState) *UnlockFlowResult {
	return &UnlockFlowResult{
		UserID:          state.input.UserID,
		NewUnlocks:      state.newUnlocks,
		EventsPublished: state.published,
		ProcessedAt:     time.Now().UTC(),
	}
}

// wrapError wraps a step failure with saga context.
func (f *UnlockFlow) wrapError(state *unlockFlowState, err error) error {
	return &UnlockFlowError{
		Step:   state.currentStep,
		UserID: state.input.UserID,
		Cause:  err,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// UnlockFlowError represents a failure of a critical flow step.
type UnlockFlowError struct {
	Step   UnlockFlowStep
	UserID string
	Cause  error
}

// Error implements the error interface.
func (e *UnlockFlowError) Error() string {
	return fmt.Sprintf("unlock flow failed at step '%s': %v", e.Step, e.Cause)
}

// Unwrap returns the underlying error.
func (e *UnlockFlowError) Unwrap() error {
	return e.Cause
}

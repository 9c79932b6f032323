package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/habit-hub/habit-tracker-hub/internal/application/dto"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT DATA COMMAND
// Restores a user's challenge from an exported document. The write is
// all-or-nothing: habits and records land in one transaction, or the
// user's existing data stays untouched.
// ══════════════════════════════════════════════════════════════════════════════

// ImportDataCommand contains the data to import.
type ImportDataCommand struct {
	// UserID is the user importing their data.
	UserID string

	// Payload is the raw JSON export document.
	Payload []byte

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ImportDataCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("import_data: user_id is required")
	}
	if len(c.Payload) == 0 {
		return errors.New("import_data: payload is required")
	}
	return nil
}

// ImportDataResult contains the result of an import.
type ImportDataResult struct {
	// Success indicates the import was applied.
	Success bool

	// Reason explains a rejected import.
	Reason string

	// HabitCount is the number of imported habits.
	HabitCount int

	// RecordCount is the number of imported completion records.
	RecordCount int

	// UnlockCount is the number of imported achievement unlocks.
	UnlockCount int

	// Events contains domain events generated.
	Events []shared.Event
}

// failImport builds a rejection result.
func failImport(reason string) *ImportDataResult {
	return &ImportDataResult{Success: false, Reason: reason}
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// transactionalUnlocks is implemented by units of work that can also bind
// unlock writes to the same transaction.
type transactionalUnlocks interface {
	Achievements() achievement.Repository
}

// ImportDataHandler handles the ImportDataCommand.
type ImportDataHandler struct {
	userRepo       user.Repository
	uowFactory     habit.UnitOfWorkFactory
	statsCache     habit.StatsCache
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewImportDataHandler creates a new ImportDataHandler.
func NewImportDataHandler(
	userRepo user.Repository,
	uowFactory habit.UnitOfWorkFactory,
	statsCache habit.StatsCache,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *ImportDataHandler {
	if log == nil {
		log = logger.Default()
	}

	return &ImportDataHandler{
		userRepo:       userRepo,
		uowFactory:     uowFactory,
		statsCache:     statsCache,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("import_data")),
	}
}

// Handle executes the import data command.
func (h *ImportDataHandler) Handle(ctx context.Context, cmd ImportDataCommand) (*ImportDataResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("import_data: validation failed: %w", err)
	}

	// Parse and fully validate before any write. Malformed input is a
	// rejection, not an internal error.
	var doc dto.Document
	if err := json.Unmarshal(cmd.Payload, &doc); err != nil {
		return failImport(fmt.Sprintf("malformed JSON: %v", err)), nil
	}
	if err := doc.Validate(); err != nil {
		return failImport(err.Error()), nil
	}

	usr, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("import_data: load user: %w", err)
	}

	uow, err := h.uowFactory.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("import_data: begin transaction: %w", err)
	}
	defer uow.Rollback(ctx)

	habitCount, recordCount, err := h.importHabits(ctx, uow, cmd.UserID, &doc)
	if err != nil {
		return nil, fmt.Errorf("import_data: %w", err)
	}

	unlockCount := 0
	if txu, ok := uow.(transactionalUnlocks); ok {
		unlockCount, err = h.importUnlocks(ctx, txu.Achievements(), cmd.UserID, &doc)
		if err != nil {
			return nil, fmt.Errorf("import_data: %w", err)
		}
	}

	// Re-anchor the window on the document's start date when present.
	// This runs before commit so a failed user write rolls everything
	// back instead of leaving fresh habits on a stale window.
	if doc.StartDate != "" {
		start, _ := timeutil.ParseDate(doc.StartDate)
		usr.StartChallenge(start)
		if err := h.userRepo.Update(ctx, usr); err != nil {
			return nil, fmt.Errorf("import_data: update user: %w", err)
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("import_data: commit: %w", err)
	}

	if h.statsCache != nil {
		if err := h.statsCache.Invalidate(ctx, cmd.UserID); err != nil {
			h.log.Warn("stats cache invalidation failed",
				logger.UserID(cmd.UserID),
				logger.Err(err),
			)
		}
	}

	event := shared.NewDataImportedEvent(cmd.UserID, habitCount, recordCount)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}

	result := &ImportDataResult{
		Success:     true,
		HabitCount:  habitCount,
		RecordCount: recordCount,
		UnlockCount: unlockCount,
		Events:      []shared.Event{event},
	}

	for _, ev := range result.Events {
		_ = h.eventPublisher.Publish(ev)
	}

	h.log.Info("data imported",
		logger.UserID(cmd.UserID),
		logger.Int("habits", habitCount),
		logger.Int("records", recordCount),
		logger.Int("unlocks", unlockCount),
	)

	return result, nil
}

// importHabits replaces the user's habits and records inside the
// transaction. Returns the imported counts.
func (h *ImportDataHandler) importHabits(ctx context.Context, uow habit.UnitOfWork, userID string, doc *dto.Document) (int, int, error) {
	if err := uow.Habits().DeleteByOwner(ctx, userID); err != nil {
		return 0, 0, fmt.Errorf("clear old habits: %w", err)
	}

	// Habits get fresh IDs on import; document IDs are only keys inside
	// the document, never trusted as globally unique.
	byDocID := make(map[string]string, len(doc.Habits))
	byPosition := make(map[int]string, len(doc.Habits))
	for _, entry := range doc.Habits {
		hab, err := habit.NewHabit(habit.NewHabitParams{
			ID:       uuid.New().String(),
			OwnerID:  userID,
			Name:     entry.Name,
			Position: entry.Position,
		})
		if err != nil {
			return 0, 0, fmt.Errorf("habit at position %d: %w", entry.Position, err)
		}
		if err := uow.Habits().Create(ctx, hab); err != nil {
			return 0, 0, fmt.Errorf("create habit %q: %w", hab.Name, err)
		}
		if entry.ID != "" {
			byDocID[entry.ID] = hab.ID
		}
		byPosition[hab.Position] = hab.ID
	}

	records := 0
	for _, entry := range doc.Completions {
		day, err := timeutil.ParseDate(entry.Date)
		if err != nil {
			return 0, 0, fmt.Errorf("completion date %q: %w", entry.Date, err)
		}

		// habit_id is the primary key; position covers documents written
		// by hand or by older builds.
		habitID := byDocID[entry.HabitID]
		if habitID == "" {
			habitID = byPosition[entry.HabitPosition]
		}

		record := habit.NewCompletionRecord(habitID, day, entry.Completed)
		if err := uow.Completions().Upsert(ctx, record); err != nil {
			return 0, 0, fmt.Errorf("upsert record: %w", err)
		}
		records++
	}

	return len(doc.Habits), records, nil
}

// importUnlocks replaces the user's achievement unlocks with the
// document's set. Imported unlocks are stored pre-notified so the relay
// never pushes about old progress.
func (h *ImportDataHandler) importUnlocks(ctx context.Context, repo achievement.Repository, userID string, doc *dto.Document) (int, error) {
	// Save is an insert-if-absent, so stale unlocks have to go first or
	// the document's viewed flags would never land.
	if err := repo.DeleteByUser(ctx, userID); err != nil {
		return 0, fmt.Errorf("clear old unlocks: %w", err)
	}

	count := 0
	for _, entry := range doc.Unlocks {
		key := achievement.Key(entry.Key)
		if _, ok := achievement.GetDefinition(key); !ok {
			// Unknown keys (from a newer or older build) are skipped, not
			// fatal: the rest of the document is still worth keeping.
			continue
		}

		unlockedAt := entry.UnlockedAt
		if unlockedAt.IsZero() {
			unlockedAt = time.Now().UTC()
		}

		unlock := achievement.NewUnlock(userID, key, unlockedAt)
		if entry.Viewed {
			unlock.MarkViewed()
		}
		unlock.MarkNotified()

		if err := repo.Save(ctx, unlock); err != nil {
			return 0, fmt.Errorf("save unlock %s: %w", key, err)
		}
		count++
	}
	return count, nil
}

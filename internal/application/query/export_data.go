package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/application/dto"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPORT DATA QUERY
// Serializes one user's full state into the portable document. The
// output of export feeds import unchanged, so the two live against the
// same dto.Document shape.
// ══════════════════════════════════════════════════════════════════════════════

// ExportDataQuery contains the parameters for an export.
type ExportDataQuery struct {
	// UserID - the user to export.
	UserID string
}

// Validate checks the query.
func (q *ExportDataQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("export_data: user_id is required")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ExportDataHandler handles the ExportDataQuery.
type ExportDataHandler struct {
	userRepo        user.Repository
	habitRepo       habit.Repository
	completionRepo  habit.CompletionRepository
	achievementRepo achievement.Repository
}

// NewExportDataHandler creates a new ExportDataHandler.
func NewExportDataHandler(
	userRepo user.Repository,
	habitRepo habit.Repository,
	completionRepo habit.CompletionRepository,
	achievementRepo achievement.Repository,
) *ExportDataHandler {
	return &ExportDataHandler{
		userRepo:        userRepo,
		habitRepo:       habitRepo,
		completionRepo:  completionRepo,
		achievementRepo: achievementRepo,
	}
}

// Handle executes the export query.
func (h *ExportDataHandler) Handle(ctx context.Context, q ExportDataQuery) (*dto.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	usr, err := h.userRepo.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("export_data: load user: %w", err)
	}

	habits, err := h.habitRepo.GetByOwner(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("export_data: load habits: %w", err)
	}

	records, err := h.completionRepo.GetByOwner(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("export_data: load records: %w", err)
	}

	unlocks, err := h.achievementRepo.GetByUser(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("export_data: load unlocks: %w", err)
	}

	doc := &dto.Document{
		Version:     dto.FormatVersion,
		ExportedAt:  time.Now().UTC(),
		Habits:      make([]dto.HabitEntry, 0, len(habits)),
		Completions: make([]dto.CompletionEntry, 0),
		Unlocks:     make([]dto.UnlockEntry, 0, len(unlocks)),
	}

	if usr.HasChallenge() {
		doc.StartDate = timeutil.FormatDateStr(*usr.ChallengeStart)
	}

	for _, hab := range habits {
		doc.Habits = append(doc.Habits, dto.HabitEntry{
			ID:       hab.ID,
			Name:     hab.Name,
			Position: hab.Position,
		})

		for _, rec := range records[hab.ID] {
			doc.Completions = append(doc.Completions, dto.CompletionEntry{
				HabitID:       hab.ID,
				HabitPosition: hab.Position,
				Date:          timeutil.FormatDateStr(rec.Date),
				Completed:     rec.Completed,
			})
		}
	}

	for _, u := range unlocks {
		doc.Unlocks = append(doc.Unlocks, dto.UnlockEntry{
			Key:        string(u.Key),
			UnlockedAt: u.UnlockedAt,
			Viewed:     u.Viewed,
		})
	}

	return doc, nil
}

package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DAY QUERY
// One day of the challenge: every habit with its completion state, plus
// prev/next day links clamped to the window. This backs the main daily
// check-off view.
// ══════════════════════════════════════════════════════════════════════════════

// GetDayQuery contains the parameters for a day view request.
type GetDayQuery struct {
	// UserID - the user whose day to load.
	UserID string

	// Date - the day to load (empty = today).
	Date time.Time
}

// Validate checks the query and fills defaults.
func (q *GetDayQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_day: user_id is required")
	}
	if q.Date.IsZero() {
		q.Date = timeutil.Today()
	}
	q.Date = timeutil.StartOfDay(q.Date)
	return nil
}

// DayHabitDTO is one habit's state for the requested day.
type DayHabitDTO struct {
	HabitID  string `json:"habit_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`

	// Completed - the habit is marked done for this day.
	Completed bool `json:"completed"`

	// HasRecord - a record exists (false means the day was never touched).
	HasRecord bool `json:"has_record"`
}

// DayDTO is the day view response.
type DayDTO struct {
	Date string `json:"date"`

	// DayNumber - 1-based position of the day inside the window, 0 when
	// the date falls outside it.
	DayNumber     int  `json:"day_number"`
	ChallengeDays int  `json:"challenge_days"`
	IsToday       bool `json:"is_today"`
	InWindow      bool `json:"in_window"`

	// PrevDate / NextDate - neighboring window days, empty at the edges.
	PrevDate string `json:"prev_date,omitempty"`
	NextDate string `json:"next_date,omitempty"`

	Habits []DayHabitDTO `json:"habits"`

	// AllCompleted - every habit is done for this day.
	AllCompleted bool `json:"all_completed"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetDayHandler handles the GetDayQuery.
type GetDayHandler struct {
	userRepo       user.Repository
	habitRepo      habit.Repository
	completionRepo habit.CompletionRepository
}

// NewGetDayHandler creates a new GetDayHandler.
func NewGetDayHandler(
	userRepo user.Repository,
	habitRepo habit.Repository,
	completionRepo habit.CompletionRepository,
) *GetDayHandler {
	return &GetDayHandler{
		userRepo:       userRepo,
		habitRepo:      habitRepo,
		completionRepo: completionRepo,
	}
}

// Handle executes the day query.
func (h *GetDayHandler) Handle(ctx context.Context, q GetDayQuery) (*DayDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	usr, err := h.userRepo.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_day: load user: %w", err)
	}
	window, err := usr.Window()
	if err != nil {
		return nil, fmt.Errorf("get_day: %w", err)
	}

	habits, err := h.habitRepo.GetByOwner(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_day: load habits: %w", err)
	}

	records, err := h.completionRepo.GetByOwnerAndDate(ctx, q.UserID, q.Date)
	if err != nil {
		return nil, fmt.Errorf("get_day: load records: %w", err)
	}

	dto := &DayDTO{
		Date:          timeutil.FormatDateStr(q.Date),
		DayNumber:     window.DayNumber(q.Date),
		ChallengeDays: window.Days,
		IsToday:       timeutil.IsSameDay(q.Date, timeutil.Today()),
		InWindow:      window.Contains(q.Date),
		Habits:        make([]DayHabitDTO, 0, len(habits)),
	}

	if dto.InWindow {
		if prev := q.Date.AddDate(0, 0, -1); window.Contains(prev) {
			dto.PrevDate = timeutil.FormatDateStr(prev)
		}
		if next := q.Date.AddDate(0, 0, 1); window.Contains(next) {
			dto.NextDate = timeutil.FormatDateStr(next)
		}
	}

	allCompleted := len(habits) > 0
	for _, hab := range habits {
		rec, ok := records[hab.ID]
		completed := ok && rec.Completed
		if !completed {
			allCompleted = false
		}

		dto.Habits = append(dto.Habits, DayHabitDTO{
			HabitID:   hab.ID,
			Name:      hab.Name,
			Position:  hab.Position,
			Completed: completed,
			HasRecord: ok,
		})
	}
	dto.AllCompleted = allCompleted

	return dto, nil
}

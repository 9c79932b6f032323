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
// GET CALENDAR QUERY
// The full 21-column completion grid: one row per habit, one column per
// window day. Window anchor falls back to the earliest record when the
// user never ran setup, so pre-setup history still renders.
// ══════════════════════════════════════════════════════════════════════════════

// GetCalendarQuery contains the parameters for a calendar request.
type GetCalendarQuery struct {
	// UserID - the user whose calendar to build.
	UserID string

	// Date - evaluation anchor for today/future flags (empty = today).
	Date time.Time
}

// Validate checks the query and fills defaults.
func (q *GetCalendarQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_calendar: user_id is required")
	}
	if q.Date.IsZero() {
		q.Date = timeutil.Today()
	}
	q.Date = timeutil.StartOfDay(q.Date)
	return nil
}

// CalendarHabitDTO is one grid row header.
type CalendarHabitDTO struct {
	HabitID  string `json:"habit_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`

	// Cells - one entry per window day, true when completed.
	Cells []bool `json:"cells"`
}

// CalendarDayDTO is one grid column header.
type CalendarDayDTO struct {
	Date      string `json:"date"`
	DayNumber int    `json:"day_number"`
	Weekday   string `json:"weekday"`
	IsToday   bool   `json:"is_today"`
	IsFuture  bool   `json:"is_future"`
}

// CalendarDTO is the calendar response.
type CalendarDTO struct {
	UserID    string `json:"user_id"`
	StartDate string `json:"start_date,omitempty"`

	Days   []CalendarDayDTO   `json:"days"`
	Habits []CalendarHabitDTO `json:"habits"`

	// Empty - the user has no window anchor and no records yet.
	Empty bool `json:"empty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetCalendarHandler handles the GetCalendarQuery.
type GetCalendarHandler struct {
	userRepo       user.Repository
	habitRepo      habit.Repository
	completionRepo habit.CompletionRepository
}

// NewGetCalendarHandler creates a new GetCalendarHandler.
func NewGetCalendarHandler(
	userRepo user.Repository,
	habitRepo habit.Repository,
	completionRepo habit.CompletionRepository,
) *GetCalendarHandler {
	return &GetCalendarHandler{
		userRepo:       userRepo,
		habitRepo:      habitRepo,
		completionRepo: completionRepo,
	}
}

// Handle executes the calendar query.
func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (*CalendarDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	usr, err := h.userRepo.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_calendar: load user: %w", err)
	}

	window, err := h.resolveWindow(ctx, usr)
	if err != nil {
		if errors.Is(err, user.ErrChallengeNotStarted) {
			return &CalendarDTO{UserID: q.UserID, Empty: true}, nil
		}
		return nil, fmt.Errorf("get_calendar: %w", err)
	}

	habits, err := h.habitRepo.GetByOwner(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_calendar: load habits: %w", err)
	}

	records, err := h.completionRepo.GetByOwner(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_calendar: load records: %w", err)
	}

	dates := window.Dates()
	dto := &CalendarDTO{
		UserID:    q.UserID,
		StartDate: timeutil.FormatDateStr(window.Start),
		Days:      make([]CalendarDayDTO, 0, len(dates)),
		Habits:    make([]CalendarHabitDTO, 0, len(habits)),
	}

	for i, day := range dates {
		dto.Days = append(dto.Days, CalendarDayDTO{
			Date:      timeutil.FormatDateStr(day),
			DayNumber: i + 1,
			Weekday:   timeutil.WeekdayName(timeutil.WeekdayIndex(day)),
			IsToday:   timeutil.IsSameDay(day, q.Date),
			IsFuture:  day.After(q.Date),
		})
	}

	for _, hab := range habits {
		set := habit.NewDaySet(records[hab.ID])
		row := CalendarHabitDTO{
			HabitID:  hab.ID,
			Name:     hab.Name,
			Position: hab.Position,
			Cells:    make([]bool, 0, len(dates)),
		}
		for _, day := range dates {
			row.Cells = append(row.Cells, set.Completed(day))
		}
		dto.Habits = append(dto.Habits, row)
	}

	return dto, nil
}

// resolveWindow returns the user's challenge window, falling back to a
// window anchored on the earliest record for accounts predating setup.
func (h *GetCalendarHandler) resolveWindow(ctx context.Context, usr *user.User) (habit.Window, error) {
	window, err := usr.Window()
	if err == nil {
		return window, nil
	}
	if !errors.Is(err, user.ErrChallengeNotStarted) {
		return habit.Window{}, err
	}

	earliest, derr := h.completionRepo.EarliestDate(ctx, usr.ID)
	if derr != nil {
		return habit.Window{}, derr
	}
	if earliest.IsZero() {
		return habit.Window{}, user.ErrChallengeNotStarted
	}

	return habit.NewWindow(earliest, habit.ChallengeDays), nil
}

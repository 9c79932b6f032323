// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STATS QUERY
// Full statistics block: per-habit streaks, completion rates, weekday
// breakdown, and the overall challenge progress. Served from the Redis
// snapshot cache when fresh; recomputed from the records otherwise.
// ══════════════════════════════════════════════════════════════════════════════

// GetStatsQuery contains the parameters for a stats request.
type GetStatsQuery struct {
	// UserID - the user whose stats to compute.
	UserID string

	// Date - evaluation anchor (empty = today).
	Date time.Time
}

// Validate checks the query and fills defaults.
func (q *GetStatsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_stats: user_id is required")
	}
	if q.Date.IsZero() {
		q.Date = timeutil.Today()
	}
	q.Date = timeutil.StartOfDay(q.Date)
	return nil
}

// WeekdayStatDTO is one weekday bucket.
type WeekdayStatDTO struct {
	// Weekday - Monday-based index (Monday=0 .. Sunday=6).
	Weekday int `json:"weekday"`

	// Name - English weekday name.
	Name string `json:"name"`

	// Completed / Total - completed vs elapsed days on this weekday.
	Completed int `json:"completed"`
	Total     int `json:"total"`

	// Rate - completion percentage, one decimal.
	Rate float64 `json:"rate"`
}

// HabitStatsDTO is the stats block for a single habit.
type HabitStatsDTO struct {
	HabitID  string `json:"habit_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`

	CurrentStreak  int     `json:"current_streak"`
	LongestStreak  int     `json:"longest_streak"`
	CompletionRate float64 `json:"completion_rate"`
	TotalCompleted int     `json:"total_completed"`

	Weekdays    []WeekdayStatDTO `json:"weekdays"`
	BestWeekday string           `json:"best_weekday"`
}

// StatsDTO is the full stats response.
type StatsDTO struct {
	UserID string `json:"user_id"`

	// DayNumber - current 1-based challenge day, capped at the window length.
	DayNumber     int `json:"day_number"`
	ChallengeDays int `json:"challenge_days"`
	ElapsedDays   int `json:"elapsed_days"`

	OverallRate    float64 `json:"overall_rate"`
	TotalCompleted int     `json:"total_completed"`
	TotalPossible  int     `json:"total_possible"`

	Habits []HabitStatsDTO `json:"habits"`

	// BestHabit / WorstHabit - habit names ranked by completion rate,
	// empty when the user has no habits.
	BestHabit  string `json:"best_habit,omitempty"`
	WorstHabit string `json:"worst_habit,omitempty"`

	// FromCache - the snapshot was served from the cache.
	FromCache bool `json:"-"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetStatsHandler handles the GetStatsQuery.
type GetStatsHandler struct {
	userRepo       user.Repository
	habitRepo      habit.Repository
	completionRepo habit.CompletionRepository
	statsCache     habit.StatsCache
	calculator     *habit.StatsCalculator
	cacheTTL       time.Duration
	log            *logger.Logger
}

// NewGetStatsHandler creates a new GetStatsHandler.
func NewGetStatsHandler(
	userRepo user.Repository,
	habitRepo habit.Repository,
	completionRepo habit.CompletionRepository,
	statsCache habit.StatsCache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *GetStatsHandler {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if log == nil {
		log = logger.Default()
	}

	return &GetStatsHandler{
		userRepo:       userRepo,
		habitRepo:      habitRepo,
		completionRepo: completionRepo,
		statsCache:     statsCache,
		calculator:     habit.NewStatsCalculator(),
		cacheTTL:       cacheTTL,
		log:            log.With(logger.Component("get_stats")),
	}
}

// Handle executes the stats query.
func (h *GetStatsHandler) Handle(ctx context.Context, q GetStatsQuery) (*StatsDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	usr, err := h.userRepo.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_stats: load user: %w", err)
	}
	window, err := usr.Window()
	if err != nil {
		return nil, fmt.Errorf("get_stats: %w", err)
	}

	fromCache := false
	stats := h.cachedStats(ctx, q.UserID, q.Date)
	if stats != nil {
		fromCache = true
	} else {
		stats, err = h.computeStats(ctx, usr, window, q.Date)
		if err != nil {
			return nil, err
		}

		if h.statsCache != nil {
			if err := h.statsCache.Set(ctx, stats, q.Date, h.cacheTTL); err != nil {
				h.log.Warn("stats cache write failed",
					logger.UserID(q.UserID),
					logger.Err(err),
				)
			}
		}
	}

	dto := h.toDTO(stats, window)
	dto.FromCache = fromCache
	return dto, nil
}

// cachedStats returns the cached snapshot, or nil on miss or cache error.
func (h *GetStatsHandler) cachedStats(ctx context.Context, userID string, day time.Time) *habit.UserStats {
	if h.statsCache == nil {
		return nil
	}

	stats, err := h.statsCache.Get(ctx, userID, day)
	if err != nil {
		h.log.Warn("stats cache read failed",
			logger.UserID(userID),
			logger.Err(err),
		)
		return nil
	}
	return stats
}

// computeStats derives the snapshot from the stored records.
func (h *GetStatsHandler) computeStats(ctx context.Context, usr *user.User, window habit.Window, today time.Time) (*habit.UserStats, error) {
	habits, err := h.habitRepo.GetByOwner(ctx, usr.ID)
	if err != nil {
		return nil, fmt.Errorf("get_stats: load habits: %w", err)
	}

	records, err := h.completionRepo.GetByOwner(ctx, usr.ID)
	if err != nil {
		return nil, fmt.Errorf("get_stats: load completions: %w", err)
	}

	sets := make(map[string]habit.DaySet, len(habits))
	for _, hab := range habits {
		sets[hab.ID] = habit.NewDaySet(records[hab.ID])
	}

	return h.calculator.UserStats(usr.ID, habits, sets, window, today), nil
}

// toDTO maps the domain snapshot to the response shape.
func (h *GetStatsHandler) toDTO(stats *habit.UserStats, window habit.Window) *StatsDTO {
	dto := &StatsDTO{
		UserID:         stats.UserID,
		DayNumber:      stats.DayNumber,
		ChallengeDays:  window.Days,
		ElapsedDays:    stats.ElapsedDays,
		OverallRate:    stats.OverallRate.Float64(),
		TotalCompleted: stats.TotalCompleted,
		TotalPossible:  stats.TotalPossible,
		Habits:         make([]HabitStatsDTO, 0, len(stats.Habits)),
	}

	for _, hs := range stats.Habits {
		habitDTO := HabitStatsDTO{
			HabitID:        hs.HabitID,
			Name:           hs.Name,
			Position:       hs.Position,
			CurrentStreak:  hs.CurrentStreak,
			LongestStreak:  hs.LongestStreak,
			CompletionRate: hs.CompletionRate.Float64(),
			TotalCompleted: hs.TotalCompleted,
			Weekdays:       make([]WeekdayStatDTO, 0, len(hs.Weekdays)),
			BestWeekday:    timeutil.WeekdayName(hs.BestWeekday),
		}
		for _, w := range hs.Weekdays {
			habitDTO.Weekdays = append(habitDTO.Weekdays, WeekdayStatDTO{
				Weekday:   w.Weekday,
				Name:      timeutil.WeekdayName(w.Weekday),
				Completed: w.Completed,
				Total:     w.Total,
				Rate:      w.Rate.Float64(),
			})
		}
		dto.Habits = append(dto.Habits, habitDTO)
	}

	if stats.BestHabit >= 0 {
		dto.BestHabit = stats.Habits[stats.BestHabit].Name
	}
	if stats.WorstHabit >= 0 {
		dto.WorstHabit = stats.Habits[stats.WorstHabit].Name
	}

	return dto
}

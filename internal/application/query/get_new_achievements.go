package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET NEW ACHIEVEMENTS QUERY
// Unviewed unlocks joined with their definitions, oldest first. The
// client shows these as toasts and acknowledges them via mark-viewed.
// ══════════════════════════════════════════════════════════════════════════════

// GetNewAchievementsQuery contains the parameters for the request.
type GetNewAchievementsQuery struct {
	// UserID - the user whose unviewed unlocks to list.
	UserID string
}

// Validate checks the query.
func (q *GetNewAchievementsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_new_achievements: user_id is required")
	}
	return nil
}

// UnlockDTO is one unviewed unlock with its definition.
type UnlockDTO struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Emoji       string    `json:"emoji"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// NewAchievementsDTO is the response.
type NewAchievementsDTO struct {
	UserID       string      `json:"user_id"`
	Achievements []UnlockDTO `json:"achievements"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetNewAchievementsHandler handles the GetNewAchievementsQuery.
type GetNewAchievementsHandler struct {
	achievementRepo achievement.Repository
}

// NewGetNewAchievementsHandler creates a new GetNewAchievementsHandler.
func NewGetNewAchievementsHandler(achievementRepo achievement.Repository) *GetNewAchievementsHandler {
	return &GetNewAchievementsHandler{achievementRepo: achievementRepo}
}

// Handle executes the query.
func (h *GetNewAchievementsHandler) Handle(ctx context.Context, q GetNewAchievementsQuery) (*NewAchievementsDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	unlocks, err := h.achievementRepo.GetUnviewed(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_new_achievements: %w", err)
	}

	dto := &NewAchievementsDTO{
		UserID:       q.UserID,
		Achievements: make([]UnlockDTO, 0, len(unlocks)),
	}

	for _, u := range unlocks {
		def, ok := achievement.GetDefinition(u.Key)
		if !ok {
			// A key from an older build with no current definition: not
			// worth a toast, but not an error either.
			continue
		}
		dto.Achievements = append(dto.Achievements, UnlockDTO{
			Key:         string(def.Key),
			Name:        def.Name,
			Description: def.Description,
			Emoji:       def.Emoji,
			UnlockedAt:  u.UnlockedAt,
		})
	}

	return dto, nil
}

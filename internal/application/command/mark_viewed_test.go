package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
)

func TestMarkViewed_FlipsViewedFlag(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, today(), "Read")
	require.NoError(t, f.achievements.Save(context.Background(),
		achievement.NewUnlock(usr.ID, achievement.KeyFirstStep, today())))

	h := NewMarkViewedHandler(f.achievements, f.bus, nil)
	result, err := h.Handle(context.Background(), MarkViewedCommand{
		UserID: usr.ID,
		Keys:   []string{"first_step"},
	})

	require.NoError(t, err)
	assert.True(t, result.Success)

	unviewed, err := f.achievements.GetUnviewed(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Empty(t, unviewed)

	assert.Len(t, f.bus.OfType(shared.EventAchievementViewed), 1)
}

func TestMarkViewed_IgnoresUnknownKeys(t *testing.T) {
	f := newFixture()
	usr, _ := f.seedUser(t, today(), "Read")

	h := NewMarkViewedHandler(f.achievements, f.bus, nil)
	result, err := h.Handle(context.Background(), MarkViewedCommand{
		UserID: usr.ID,
		Keys:   []string{"not_a_real_key"},
	})

	require.NoError(t, err, "unknown keys are ignored, not errors")
	assert.True(t, result.Success)
	assert.Empty(t, f.bus.OfType(shared.EventAchievementViewed), "no event for unknown keys")
}

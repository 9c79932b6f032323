package eventhandler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
	"github.com/habit-hub/habit-tracker-hub/internal/infrastructure/external/push"
	"github.com/habit-hub/habit-tracker-hub/internal/testutil"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

func TestOnAchievementUnlocked_SendsToastAndMarksNotified(t *testing.T) {
	repo := testutil.NewMemAchievementRepo()
	sender := &testutil.CaptureSender{}
	require.NoError(t, repo.Save(context.Background(),
		achievement.NewUnlock("u1", achievement.KeyFirstStep, timeutil.Today())))

	h := NewOnAchievementUnlocked(sender, repo, nil, nil)
	event := shared.NewAchievementUnlockedEvent("u1", "first_step", timeutil.Today())

	require.NoError(t, h.Handle(event))

	require.Len(t, sender.Notifications, 1)
	n := sender.Notifications[0]
	assert.Equal(t, "u1", n.UserID)
	assert.Contains(t, n.Title, "First Step")
	assert.Equal(t, "achievement", n.Tag)

	unnotified, err := repo.GetUnnotified(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, unnotified)
}

func TestOnAchievementUnlocked_SkipsRetroactive(t *testing.T) {
	sender := &testutil.CaptureSender{}
	h := NewOnAchievementUnlocked(sender, testutil.NewMemAchievementRepo(), nil, nil)

	event := shared.NewAchievementUnlockedEvent("u1", "first_step", timeutil.Today()).AsRetroactive()

	require.NoError(t, h.Handle(event))
	assert.Empty(t, sender.Notifications, "backfill unlocks never toast")
}

func TestOnAchievementUnlocked_DisabledRelayIsNotAnError(t *testing.T) {
	sender := &testutil.CaptureSender{Err: push.ErrDisabled}
	h := NewOnAchievementUnlocked(sender, testutil.NewMemAchievementRepo(), nil, nil)

	event := shared.NewAchievementUnlockedEvent("u1", "first_step", timeutil.Today())
	require.NoError(t, h.Handle(event))
}

func TestOnAchievementUnlocked_UnknownKey(t *testing.T) {
	sender := &testutil.CaptureSender{}
	h := NewOnAchievementUnlocked(sender, testutil.NewMemAchievementRepo(), nil, nil)

	event := shared.NewAchievementUnlockedEvent("u1", "no_such_key", timeutil.Today())
	require.Error(t, h.Handle(event))
	assert.Empty(t, sender.Notifications)
}

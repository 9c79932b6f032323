package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/internal/application/saga"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/internal/testutil"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

type jobWorld struct {
	users        *testutil.MemUserRepo
	habits       *testutil.MemHabitRepo
	completions  *testutil.MemCompletionRepo
	achievements *testutil.MemAchievementRepo
	sender       *testutil.CaptureSender
	bus          *testutil.CapturePublisher
}

func newJobWorld() *jobWorld {
	users := testutil.NewMemUserRepo()
	habits := testutil.NewMemHabitRepo()
	return &jobWorld{
		users:        users,
		habits:       habits,
		completions:  testutil.NewMemCompletionRepo(habits),
		achievements: testutil.NewMemAchievementRepo(),
		sender:       &testutil.CaptureSender{},
		bus:          testutil.NewCapturePublisher(),
	}
}

func (w *jobWorld) seedUser(t *testing.T, start time.Time, habitNames ...string) (*user.User, []*habit.Habit) {
	t.Helper()

	usr, err := user.NewUser("worker"+uuid.NewString()[:8], "long-enough-pass")
	require.NoError(t, err)
	if !start.IsZero() {
		usr.StartChallenge(start)
	}
	w.users.Add(usr)

	habits := make([]*habit.Habit, 0, len(habitNames))
	for i, name := range habitNames {
		h, err := habit.NewHabit(habit.NewHabitParams{
			ID:       uuid.NewString(),
			OwnerID:  usr.ID,
			Name:     name,
			Position: i + 1,
		})
		require.NoError(t, err)
		require.NoError(t, w.habits.Create(context.Background(), h))
		habits = append(habits, h)
	}
	return usr, habits
}

func (w *jobWorld) complete(t *testing.T, habitID string, day time.Time) {
	t.Helper()
	rec := habit.NewCompletionRecord(habitID, day, true)
	require.NoError(t, w.completions.Upsert(context.Background(), rec))
}

// ─────────────────────────────────────────────────────────────────────────────
// Daily reminder
// ─────────────────────────────────────────────────────────────────────────────

func TestDailyReminder_RemindsUsersWithOpenHabits(t *testing.T) {
	w := newJobWorld()
	_, habits := w.seedUser(t, timeutil.Today(), "Read", "Run")
	w.complete(t, habits[0].ID, timeutil.Today())

	job := NewDailyReminder(w.users, w.habits, w.completions, w.achievements, w.sender, nil, nil)
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, w.sender.Notifications, 1)
	n := w.sender.Notifications[0]
	assert.Equal(t, "daily-reminder", n.Tag)
	assert.Contains(t, n.Body, "1 of 2")
}

func TestDailyReminder_SkipsFinishedDaysAndIdleUsers(t *testing.T) {
	w := newJobWorld()

	// All done today: nothing open to remind about.
	_, doneHabits := w.seedUser(t, timeutil.Today(), "Read")
	w.complete(t, doneHabits[0].ID, timeutil.Today())

	// No challenge at all.
	w.seedUser(t, time.Time{}, "Run")

	// Window ended three weeks before today.
	w.seedUser(t, timeutil.Today().AddDate(0, 0, -40), "Row")

	job := NewDailyReminder(w.users, w.habits, w.completions, w.achievements, w.sender, nil, nil)
	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, w.sender.Notifications)
}

func TestDailyReminder_SweepsUnnotifiedUnlocks(t *testing.T) {
	w := newJobWorld()
	usr, habits := w.seedUser(t, timeutil.Today(), "Read")
	w.complete(t, habits[0].ID, timeutil.Today())

	// An unlock whose live notification was lost.
	require.NoError(t, w.achievements.Save(context.Background(),
		achievement.NewUnlock(usr.ID, achievement.KeyFirstStep, timeutil.Today())))

	job := NewDailyReminder(w.users, w.habits, w.completions, w.achievements, w.sender, nil, nil)
	require.NoError(t, job.Run(context.Background()))

	tags := make(map[string]int)
	for _, n := range w.sender.Notifications {
		tags[n.Tag]++
	}
	assert.Equal(t, 1, tags["achievement"], "the sweep retries the lost unlock push")

	unnotified, err := w.achievements.GetUnnotified(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, unnotified)
}

// ─────────────────────────────────────────────────────────────────────────────
// Achievement backfill
// ─────────────────────────────────────────────────────────────────────────────

func TestAchievementBackfill_UnlocksRetroactively(t *testing.T) {
	w := newJobWorld()
	usr, habits := w.seedUser(t, timeutil.Today().AddDate(0, 0, -2), "Read")
	for i := 0; i < 3; i++ {
		w.complete(t, habits[0].ID, timeutil.Today().AddDate(0, 0, -i))
	}

	// A user without a challenge must not abort the run.
	w.seedUser(t, time.Time{})

	flow := saga.NewUnlockFlow(w.users, w.habits, w.completions, w.achievements, w.bus, nil)
	job := NewAchievementBackfill(w.users, flow, nil, nil)
	require.NoError(t, job.Run(context.Background()))

	unlocks, err := w.achievements.GetByUser(context.Background(), usr.ID)
	require.NoError(t, err)
	require.NotEmpty(t, unlocks)
	for _, u := range unlocks {
		assert.True(t, u.Viewed)
		assert.True(t, u.Notified)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Cleanup
// ─────────────────────────────────────────────────────────────────────────────

func TestCleanup_RemovesRecordsOutsideWindow(t *testing.T) {
	w := newJobWorld()
	_, habits := w.seedUser(t, timeutil.Today(), "Read")

	// A stray from a previous run, before the re-anchored window.
	w.complete(t, habits[0].ID, timeutil.Today().AddDate(0, 0, -30))
	w.complete(t, habits[0].ID, timeutil.Today())

	job := NewCleanup(w.users, w.completions, nil)
	require.NoError(t, job.Run(context.Background()))

	records, err := w.completions.GetByHabit(context.Background(), habits[0].ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, timeutil.Today(), records[0].Date)
}

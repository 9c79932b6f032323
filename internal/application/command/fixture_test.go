package command

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/internal/application/saga"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/internal/testutil"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// fixture wires command handlers over in-memory repositories.
type fixture struct {
	users        *testutil.MemUserRepo
	habits       *testutil.MemHabitRepo
	completions  *testutil.MemCompletionRepo
	achievements *testutil.MemAchievementRepo
	cache        *testutil.MemStatsCache
	bus          *testutil.CapturePublisher
	uowFactory   *testutil.MemUnitOfWorkFactory
	unlockFlow   *saga.UnlockFlow
}

func newFixture() *fixture {
	users := testutil.NewMemUserRepo()
	habits := testutil.NewMemHabitRepo()
	completions := testutil.NewMemCompletionRepo(habits)
	achievements := testutil.NewMemAchievementRepo()
	bus := testutil.NewCapturePublisher()

	return &fixture{
		users:        users,
		habits:       habits,
		completions:  completions,
		achievements: achievements,
		cache:        testutil.NewMemStatsCache(),
		bus:          bus,
		uowFactory: &testutil.MemUnitOfWorkFactory{
			HabitRepo:       habits,
			CompletionRepo:  completions,
			AchievementRepo: achievements,
		},
		unlockFlow: saga.NewUnlockFlow(users, habits, completions, achievements, bus, nil),
	}
}

// seedUser creates a user with a challenge anchored at start and the given
// habits.
func (f *fixture) seedUser(t *testing.T, start time.Time, habitNames ...string) (*user.User, []*habit.Habit) {
	t.Helper()

	usr, err := user.NewUser("tester"+uuid.NewString()[:8], "s3cret-password")
	require.NoError(t, err)
	if !start.IsZero() {
		usr.StartChallenge(start)
	}
	f.users.Add(usr)

	habits := make([]*habit.Habit, 0, len(habitNames))
	for i, name := range habitNames {
		h, err := habit.NewHabit(habit.NewHabitParams{
			ID:       uuid.NewString(),
			OwnerID:  usr.ID,
			Name:     name,
			Position: i + 1,
		})
		require.NoError(t, err)
		require.NoError(t, f.habits.Create(context.Background(), h))
		habits = append(habits, h)
	}
	return usr, habits
}

func (f *fixture) toggleHandler() *ToggleCompletionHandler {
	return NewToggleCompletionHandler(f.users, f.habits, f.completions, f.cache, f.unlockFlow, f.bus, nil)
}

func today() time.Time {
	return timeutil.Today()
}

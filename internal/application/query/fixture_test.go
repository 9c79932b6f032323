package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/internal/testutil"
)

// fixture wires query handlers over in-memory repositories.
type fixture struct {
	users        *testutil.MemUserRepo
	habits       *testutil.MemHabitRepo
	completions  *testutil.MemCompletionRepo
	achievements *testutil.MemAchievementRepo
	cache        *testutil.MemStatsCache
}

func newFixture() *fixture {
	users := testutil.NewMemUserRepo()
	habits := testutil.NewMemHabitRepo()
	return &fixture{
		users:        users,
		habits:       habits,
		completions:  testutil.NewMemCompletionRepo(habits),
		achievements: testutil.NewMemAchievementRepo(),
		cache:        testutil.NewMemStatsCache(),
	}
}

func (f *fixture) seedUser(t *testing.T, start time.Time, habitNames ...string) (*user.User, []*habit.Habit) {
	t.Helper()

	usr, err := user.NewUser("viewer"+uuid.NewString()[:8], "long-enough-pass")
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

// complete marks a habit done on the given day.
func (f *fixture) complete(t *testing.T, habitID string, day time.Time) {
	t.Helper()
	rec := habit.NewCompletionRecord(habitID, day, true)
	require.NoError(t, f.completions.Upsert(context.Background(), rec))
}

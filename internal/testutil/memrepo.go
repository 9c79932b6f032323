// Package testutil provides in-memory repository implementations shared
// by application and job tests. They honor the same error contracts as
// the Postgres implementations.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/achievement"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/internal/infrastructure/external/push"
)

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// MemUserRepo is an in-memory user.Repository.
type MemUserRepo struct {
	mu    sync.Mutex
	users map[string]*user.User

	// UpdateErr, when set, is returned by Update to force write failures.
	UpdateErr error
}

// NewMemUserRepo creates an empty repository.
func NewMemUserRepo() *MemUserRepo {
	return &MemUserRepo{users: make(map[string]*user.User)}
}

// Add seeds a user directly, bypassing uniqueness checks.
func (r *MemUserRepo) Add(u *user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *MemUserRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return user.ErrUsernameTaken
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *MemUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (r *MemUserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *MemUserRepo) Update(ctx context.Context, u *user.User) error {
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return user.ErrUserNotFound
	}
	r.users[u.ID] = u
	return nil
}

func (r *MemUserRepo) ListIDs(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MemUserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HABIT + COMPLETION REPOSITORIES
// The two are linked so DeleteByOwner cascades like the Postgres schema.
// ══════════════════════════════════════════════════════════════════════════════

// MemHabitRepo is an in-memory habit.Repository.
type MemHabitRepo struct {
	mu     sync.Mutex
	habits map[string]*habit.Habit

	// Completions, when set, is cascaded on DeleteByOwner.
	Completions *MemCompletionRepo
}

// NewMemHabitRepo creates an empty repository.
func NewMemHabitRepo() *MemHabitRepo {
	return &MemHabitRepo{habits: make(map[string]*habit.Habit)}
}

func (r *MemHabitRepo) Create(ctx context.Context, h *habit.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.habits[h.ID] = h
	return nil
}

func (r *MemHabitRepo) GetByID(ctx context.Context, id string) (*habit.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.habits[id]
	if !ok {
		return nil, habit.ErrHabitNotFound
	}
	return h, nil
}

func (r *MemHabitRepo) GetByOwner(ctx context.Context, ownerID string) ([]*habit.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*habit.Habit
	for _, h := range r.habits {
		if h.OwnerID == ownerID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *MemHabitRepo) Update(ctx context.Context, h *habit.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.habits[h.ID]; !ok {
		return habit.ErrHabitNotFound
	}
	r.habits[h.ID] = h
	return nil
}

func (r *MemHabitRepo) DeleteByOwner(ctx context.Context, ownerID string) error {
	r.mu.Lock()
	var removed []string
	for id, h := range r.habits {
		if h.OwnerID == ownerID {
			removed = append(removed, id)
			delete(r.habits, id)
		}
	}
	r.mu.Unlock()

	if r.Completions != nil {
		for _, id := range removed {
			r.Completions.deleteByHabit(id)
		}
	}
	return nil
}

func (r *MemHabitRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	habits, _ := r.GetByOwner(ctx, ownerID)
	return len(habits), nil
}

// MemCompletionRepo is an in-memory habit.CompletionRepository.
type MemCompletionRepo struct {
	mu      sync.Mutex
	records map[string]map[string]*habit.CompletionRecord

	// Habits resolves ownership for the by-owner queries.
	Habits *MemHabitRepo
}

// NewMemCompletionRepo creates an empty repository bound to a habit repo.
func NewMemCompletionRepo(habits *MemHabitRepo) *MemCompletionRepo {
	r := &MemCompletionRepo{
		records: make(map[string]map[string]*habit.CompletionRecord),
		Habits:  habits,
	}
	if habits != nil {
		habits.Completions = r
	}
	return r
}

func (r *MemCompletionRepo) Upsert(ctx context.Context, record *habit.CompletionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byDate, ok := r.records[record.HabitID]
	if !ok {
		byDate = make(map[string]*habit.CompletionRecord)
		r.records[record.HabitID] = byDate
	}
	byDate[dateKey(record.Date)] = record
	return nil
}

func (r *MemCompletionRepo) Get(ctx context.Context, habitID string, date time.Time) (*habit.CompletionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[habitID][dateKey(date)]
	if !ok {
		return nil, habit.ErrRecordNotFound
	}
	return rec, nil
}

func (r *MemCompletionRepo) GetByHabit(ctx context.Context, habitID string) ([]*habit.CompletionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*habit.CompletionRecord
	for _, rec := range r.records[habitID] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *MemCompletionRepo) GetByOwner(ctx context.Context, ownerID string) (map[string][]*habit.CompletionRecord, error) {
	habits, err := r.Habits.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]*habit.CompletionRecord)
	for _, h := range habits {
		recs, _ := r.GetByHabit(ctx, h.ID)
		if len(recs) > 0 {
			out[h.ID] = recs
		}
	}
	return out, nil
}

func (r *MemCompletionRepo) GetByOwnerAndDate(ctx context.Context, ownerID string, date time.Time) (map[string]*habit.CompletionRecord, error) {
	habits, err := r.Habits.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*habit.CompletionRecord)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range habits {
		if rec, ok := r.records[h.ID][dateKey(date)]; ok {
			out[h.ID] = rec
		}
	}
	return out, nil
}

func (r *MemCompletionRepo) DeleteByOwner(ctx context.Context, ownerID string) error {
	habits, err := r.Habits.GetByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, h := range habits {
		r.deleteByHabit(h.ID)
	}
	return nil
}

func (r *MemCompletionRepo) EarliestDate(ctx context.Context, ownerID string) (time.Time, error) {
	records, err := r.GetByOwner(ctx, ownerID)
	if err != nil {
		return time.Time{}, err
	}
	var earliest time.Time
	for _, recs := range records {
		for _, rec := range recs {
			if earliest.IsZero() || rec.Date.Before(earliest) {
				earliest = rec.Date
			}
		}
	}
	return earliest, nil
}

func (r *MemCompletionRepo) DeleteOutside(ctx context.Context, ownerID string, start, end time.Time) (int64, error) {
	habits, err := r.Habits.GetByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	var removed int64
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range habits {
		for key, rec := range r.records[h.ID] {
			if rec.Date.Before(start) || rec.Date.After(end) {
				delete(r.records[h.ID], key)
				removed++
			}
		}
	}
	return removed, nil
}

func (r *MemCompletionRepo) deleteByHabit(habitID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, habitID)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// MemAchievementRepo is an in-memory achievement.Repository.
type MemAchievementRepo struct {
	mu      sync.Mutex
	unlocks map[string]map[achievement.Key]*achievement.Unlock
}

// NewMemAchievementRepo creates an empty repository.
func NewMemAchievementRepo() *MemAchievementRepo {
	return &MemAchievementRepo{unlocks: make(map[string]map[achievement.Key]*achievement.Unlock)}
}

func (r *MemAchievementRepo) Save(ctx context.Context, unlock *achievement.Unlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byKey, ok := r.unlocks[unlock.UserID]
	if !ok {
		byKey = make(map[achievement.Key]*achievement.Unlock)
		r.unlocks[unlock.UserID] = byKey
	}
	if _, exists := byKey[unlock.Key]; exists {
		return nil
	}
	byKey[unlock.Key] = unlock
	return nil
}

func (r *MemAchievementRepo) GetByUser(ctx context.Context, userID string) ([]*achievement.Unlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*achievement.Unlock
	for _, u := range r.unlocks[userID] {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnlockedAt.Before(out[j].UnlockedAt) })
	return out, nil
}

func (r *MemAchievementRepo) GetUnviewed(ctx context.Context, userID string) ([]*achievement.Unlock, error) {
	all, _ := r.GetByUser(ctx, userID)
	var out []*achievement.Unlock
	for _, u := range all {
		if !u.Viewed {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *MemAchievementRepo) MarkViewed(ctx context.Context, userID string, keys []achievement.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		if u, ok := r.unlocks[userID][key]; ok {
			u.Viewed = true
		}
	}
	return nil
}

func (r *MemAchievementRepo) GetUnnotified(ctx context.Context, limit int) ([]*achievement.Unlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*achievement.Unlock
	for _, byKey := range r.unlocks {
		for _, u := range byKey {
			if !u.Notified {
				out = append(out, u)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnlockedAt.Before(out[j].UnlockedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemAchievementRepo) MarkNotified(ctx context.Context, userID string, key achievement.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.unlocks[userID][key]; ok {
		u.Notified = true
	}
	return nil
}

func (r *MemAchievementRepo) DeleteByUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.unlocks, userID)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS CACHE
// ══════════════════════════════════════════════════════════════════════════════

// MemStatsCache is an in-memory habit.StatsCache that counts invalidations.
type MemStatsCache struct {
	mu            sync.Mutex
	snapshots     map[string]*habit.UserStats
	Invalidations int
}

// NewMemStatsCache creates an empty cache.
func NewMemStatsCache() *MemStatsCache {
	return &MemStatsCache{snapshots: make(map[string]*habit.UserStats)}
}

func (c *MemStatsCache) Get(ctx context.Context, userID string, day time.Time) (*habit.UserStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshots[userID+":"+dateKey(day)], nil
}

func (c *MemStatsCache) Set(ctx context.Context, stats *habit.UserStats, day time.Time, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[stats.UserID+":"+dateKey(day)] = stats
	return nil
}

func (c *MemStatsCache) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidations++
	prefix := userID + ":"
	for key := range c.snapshots {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.snapshots, key)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT PUBLISHER
// ══════════════════════════════════════════════════════════════════════════════

// CapturePublisher records published events for assertions.
type CapturePublisher struct {
	mu     sync.Mutex
	Events []shared.Event
}

// NewCapturePublisher creates an empty publisher.
func NewCapturePublisher() *CapturePublisher {
	return &CapturePublisher{}
}

func (p *CapturePublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

// OfType returns the captured events with the given type.
func (p *CapturePublisher) OfType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.Events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// Passthrough to the in-memory repos. Commit/Rollback only record state;
// transactional isolation is covered by the Postgres implementation.
// ══════════════════════════════════════════════════════════════════════════════

// MemUnitOfWork is a passthrough habit.UnitOfWork over in-memory repos.
type MemUnitOfWork struct {
	HabitRepo       *MemHabitRepo
	CompletionRepo  *MemCompletionRepo
	AchievementRepo *MemAchievementRepo

	Committed  bool
	RolledBack bool
}

func (u *MemUnitOfWork) Habits() habit.Repository                 { return u.HabitRepo }
func (u *MemUnitOfWork) Completions() habit.CompletionRepository  { return u.CompletionRepo }
func (u *MemUnitOfWork) Achievements() achievement.Repository     { return u.AchievementRepo }
func (u *MemUnitOfWork) Commit(ctx context.Context) error         { u.Committed = true; return nil }
func (u *MemUnitOfWork) Rollback(ctx context.Context) error {
	if !u.Committed {
		u.RolledBack = true
	}
	return nil
}

// MemUnitOfWorkFactory creates MemUnitOfWork instances over shared repos.
type MemUnitOfWorkFactory struct {
	HabitRepo       *MemHabitRepo
	CompletionRepo  *MemCompletionRepo
	AchievementRepo *MemAchievementRepo

	Last *MemUnitOfWork
}

func (f *MemUnitOfWorkFactory) Begin(ctx context.Context) (habit.UnitOfWork, error) {
	f.Last = &MemUnitOfWork{
		HabitRepo:       f.HabitRepo,
		CompletionRepo:  f.CompletionRepo,
		AchievementRepo: f.AchievementRepo,
	}
	return f.Last, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PUSH SENDER
// ══════════════════════════════════════════════════════════════════════════════

// CaptureSender records sent notifications.
type CaptureSender struct {
	mu            sync.Mutex
	Notifications []push.Notification

	// Err, when set, is returned by Send.
	Err error
}

func (s *CaptureSender) Send(ctx context.Context, n push.Notification) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Notifications = append(s.Notifications, n)
	return nil
}

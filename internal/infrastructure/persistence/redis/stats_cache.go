package redis

import (
	"context"
	"errors"
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// StatsCache implements habit.StatsCache on top of the generic Cache.
// Snapshots are keyed by user and anchor day so a cached value never
// leaks into the next calendar day.
type StatsCache struct {
	cache *Cache
}

// NewStatsCache creates a new StatsCache.
func NewStatsCache(cache *Cache) *StatsCache {
	return &StatsCache{cache: cache}
}

// Get returns the cached snapshot for a user and anchor day, or nil
// when absent.
func (s *StatsCache) Get(ctx context.Context, userID string, day time.Time) (*habit.UserStats, error) {
	var stats habit.UserStats

	key := StatsKey(userID, timeutil.FormatDateStr(day))
	err := s.cache.Get(ctx, key, &stats)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}

	return &stats, nil
}

// Set stores a snapshot with a TTL.
func (s *StatsCache) Set(ctx context.Context, stats *habit.UserStats, day time.Time, ttl time.Duration) error {
	if stats == nil {
		return nil
	}

	key := StatsKey(stats.UserID, timeutil.FormatDateStr(day))
	return s.cache.Set(ctx, key, stats, ttl)
}

// Invalidate drops all cached snapshots for a user.
func (s *StatsCache) Invalidate(ctx context.Context, userID string) error {
	if err := s.cache.DeleteByPattern(ctx, StatsPattern(userID)); err != nil {
		return err
	}
	return s.cache.Delete(ctx, CalendarKey(userID))
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habit-hub/habit-tracker-hub/internal/application/command"
	"github.com/habit-hub/habit-tracker-hub/internal/application/dto"
	"github.com/habit-hub/habit-tracker-hub/internal/application/query"
	"github.com/habit-hub/habit-tracker-hub/internal/application/saga"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/internal/testutil"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test harness
// ─────────────────────────────────────────────────────────────────────────────

type fakePinger struct{ err error }

func (p *fakePinger) Ping(ctx context.Context) error { return p.err }

type testWorld struct {
	users        *testutil.MemUserRepo
	habits       *testutil.MemHabitRepo
	completions  *testutil.MemCompletionRepo
	achievements *testutil.MemAchievementRepo
	pinger       *fakePinger
	server       *Server
}

func newTestWorld(t *testing.T) *testWorld {
	t.Helper()

	users := testutil.NewMemUserRepo()
	habits := testutil.NewMemHabitRepo()
	completions := testutil.NewMemCompletionRepo(habits)
	achievements := testutil.NewMemAchievementRepo()
	cache := testutil.NewMemStatsCache()
	bus := testutil.NewCapturePublisher()
	uowFactory := &testutil.MemUnitOfWorkFactory{
		HabitRepo:       habits,
		CompletionRepo:  completions,
		AchievementRepo: achievements,
	}
	log := logger.New(logger.Options{Output: io.Discard})
	flow := saga.NewUnlockFlow(users, habits, completions, achievements, bus, log)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0 // not under test here
	cfg.Version = "test"

	pinger := &fakePinger{}
	server := NewServer(cfg, Dependencies{
		RegisterUser:     command.NewRegisterUserHandler(users, log),
		SetupHabits:      command.NewSetupHabitsHandler(users, habits, cache, bus, log),
		ToggleCompletion: command.NewToggleCompletionHandler(users, habits, completions, cache, flow, bus, log),
		ResetChallenge:   command.NewResetChallengeHandler(users, completions, achievements, cache, bus, log),
		ImportData:       command.NewImportDataHandler(users, uowFactory, cache, bus, log),
		MarkViewed:       command.NewMarkViewedHandler(achievements, bus, log),

		GetStats:           query.NewGetStatsHandler(users, habits, completions, cache, time.Minute, log),
		GetDay:             query.NewGetDayHandler(users, habits, completions),
		GetCalendar:        query.NewGetCalendarHandler(users, habits, completions),
		GetNewAchievements: query.NewGetNewAchievementsHandler(achievements),
		ExportData:         query.NewExportDataHandler(users, habits, completions, achievements),

		Database: pinger,
		Logger:   log,
	})

	return &testWorld{
		users:        users,
		habits:       habits,
		completions:  completions,
		achievements: achievements,
		pinger:       pinger,
		server:       server,
	}
}

func (w *testWorld) seedUser(t *testing.T, start time.Time, habitNames ...string) (*user.User, []*habit.Habit) {
	t.Helper()

	usr, err := user.NewUser("web"+uuid.NewString()[:8], "a-decent-password")
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

func (w *testWorld) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	w.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var env JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// ─────────────────────────────────────────────────────────────────────────────
// Health and manifest
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_Health(t *testing.T) {
	w := newTestWorld(t)

	rec := w.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	data := env.Data.(map[string]any)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "test", data["version"])

	w.pinger.err = errors.New("connection refused")
	rec = w.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeEnvelope(t, rec).Data.(map[string]any)
	assert.Equal(t, "degraded", data["status"])
}

func TestServer_ReadyFailsWhenDatabaseIsDown(t *testing.T) {
	w := newTestWorld(t)

	require.Equal(t, http.StatusOK, w.do(t, http.MethodGet, "/ready", nil).Code)

	w.pinger.err = errors.New("connection refused")
	rec := w.do(t, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decodeEnvelope(t, rec).Error.Code)
}

func TestServer_Manifest(t *testing.T) {
	w := newTestWorld(t)

	rec := w.do(t, http.MethodGet, "/manifest.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/manifest+json", rec.Header().Get("Content-Type"))

	var manifest map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &manifest))
	assert.Equal(t, "standalone", manifest["display"])
}

// ─────────────────────────────────────────────────────────────────────────────
// Write side
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_Register(t *testing.T) {
	w := newTestWorld(t)

	rec := w.do(t, http.MethodPost, "/api/v1/users", map[string]string{
		"username": "alice",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)

	// Same username again conflicts.
	rec = w.do(t, http.MethodPost, "/api/v1/users", map[string]string{
		"username": "alice",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "registration_failed", decodeEnvelope(t, rec).Error.Code)
}

func TestServer_RegisterRejectsMalformedBody(t *testing.T) {
	w := newTestWorld(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	w.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_body", decodeEnvelope(t, rec).Error.Code)
}

func TestServer_Toggle(t *testing.T) {
	w := newTestWorld(t)
	usr, habits := w.seedUser(t, timeutil.Today(), "Read")

	rec := w.do(t, http.MethodPost, "/api/v1/toggle", map[string]string{
		"user_id":  usr.ID,
		"habit_id": habits[0].ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)

	// A day outside the window is rejected, not an error.
	rec = w.do(t, http.MethodPost, "/api/v1/toggle", map[string]string{
		"user_id":  usr.ID,
		"habit_id": habits[0].ID,
		"date":     timeutil.FormatDateStr(timeutil.Today().AddDate(0, 0, -5)),
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "toggle_rejected", decodeEnvelope(t, rec).Error.Code)
}

func TestServer_SetupAndReset(t *testing.T) {
	w := newTestWorld(t)
	usr, _ := w.seedUser(t, time.Time{})

	rec := w.do(t, http.MethodPost, "/api/v1/users/"+usr.ID+"/setup", map[string]any{
		"habits": []string{"Read", "Run"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Reset takes an empty body.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/"+usr.ID+"/reset", nil)
	resetRec := httptest.NewRecorder()
	w.server.Handler().ServeHTTP(resetRec, req)
	require.Equal(t, http.StatusOK, resetRec.Code)
	assert.True(t, decodeEnvelope(t, resetRec).Success)
}

func TestServer_ImportRejectsBadDocument(t *testing.T) {
	w := newTestWorld(t)
	usr, _ := w.seedUser(t, time.Time{})

	rec := w.do(t, http.MethodPost, "/api/v1/users/"+usr.ID+"/import", map[string]any{
		"version": 42,
		"habits":  []map[string]any{{"name": "Read", "position": 1}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "import_rejected", decodeEnvelope(t, rec).Error.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Read side
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_StatsUnknownUserIs404(t *testing.T) {
	w := newTestWorld(t)

	rec := w.do(t, http.MethodGet, "/api/v1/users/"+uuid.NewString()+"/stats", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user_not_found", decodeEnvelope(t, rec).Error.Code)
}

func TestServer_DayRejectsGarbageDate(t *testing.T) {
	w := newTestWorld(t)
	usr, _ := w.seedUser(t, timeutil.Today(), "Read")

	rec := w.do(t, http.MethodGet, "/api/v1/users/"+usr.ID+"/day?date=tomorrow", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", decodeEnvelope(t, rec).Error.Code)
}

func TestServer_ExportIsRawDocument(t *testing.T) {
	w := newTestWorld(t)
	usr, _ := w.seedUser(t, timeutil.Today(), "Read")

	rec := w.do(t, http.MethodGet, "/api/v1/users/"+usr.ID+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".json")

	// No envelope: the body itself must be a valid import document.
	var doc dto.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.NoError(t, doc.Validate())
	assert.Equal(t, dto.FormatVersion, doc.Version)
}

func TestServer_RequestIDPropagates(t *testing.T) {
	w := newTestWorld(t)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	rec := httptest.NewRecorder()
	w.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-abc-123", rec.Header().Get("X-Request-ID"))
}

// ─────────────────────────────────────────────────────────────────────────────
// Rate limiter
// ─────────────────────────────────────────────────────────────────────────────

func TestRateLimiter_Allow(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), fmt.Sprintf("request %d should pass", i+1))
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "limits are per key")
}

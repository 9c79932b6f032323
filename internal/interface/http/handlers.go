package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/habit-hub/habit-tracker-hub/internal/application/command"
	"github.com/habit-hub/habit-tracker-hub/internal/application/query"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/shared"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/user"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
	"github.com/habit-hub/habit-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth reports overall service status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	checks := map[string]string{}

	if s.deps.Database != nil {
		if err := s.deps.Database.Ping(r.Context()); err != nil {
			status = "degraded"
			checks["database"] = err.Error()
		} else {
			checks["database"] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"version": s.config.Version,
		"uptime":  s.Uptime().String(),
		"checks":  checks,
	})
}

// handleReady is the readiness probe. Fails when the database is down
// because every endpoint needs it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Database != nil {
		if err := s.deps.Database.Ping(r.Context()); err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive is the liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// PWA MANIFEST
// ══════════════════════════════════════════════════════════════════════════════

// webManifest is served verbatim. The frontend registers it so the app
// installs to the home screen.
var webManifest = map[string]interface{}{
	"name":             "21-Day Habit Tracker",
	"short_name":       "Habits",
	"description":      "Build habits with a 21-day challenge",
	"start_url":        "/",
	"display":          "standalone",
	"background_color": "#ffffff",
	"theme_color":      "#3b82f6",
	"icons": []map[string]string{
		{"src": "/icons/icon-192.png", "sizes": "192x192", "type": "image/png"},
		{"src": "/icons/icon-512.png", "sizes": "512x512", "type": "image/png"},
	},
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/manifest+json")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_ = json.NewEncoder(w).Encode(webManifest)
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMAND HANDLERS (Write Side)
// ══════════════════════════════════════════════════════════════════════════════

// handleRegister creates a new account.
// POST /api/v1/users
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}

	result, err := s.deps.RegisterUser.Handle(r.Context(), command.RegisterUserCommand{
		Username: body.Username,
		Password: body.Password,
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}
	if !result.Success {
		writeJSONError(w, http.StatusConflict, "registration_failed", result.Reason)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleToggle flips one habit's completion for one day.
// POST /api/v1/toggle
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID  string `json:"user_id"`
		HabitID string `json:"habit_id"`
		Date    string `json:"date"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}

	date, ok := s.parseOptionalDate(w, body.Date)
	if !ok {
		return
	}

	result, err := s.deps.ToggleCompletion.Handle(r.Context(), command.ToggleCompletionCommand{
		UserID:        body.UserID,
		HabitID:       body.HabitID,
		Date:          date,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}
	if !result.Success {
		writeJSONError(w, http.StatusUnprocessableEntity, "toggle_rejected", result.Reason)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleSetup replaces the habit list and starts the 21-day window.
// POST /api/v1/users/{id}/setup
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Habits    []string `json:"habits"`
		StartDate string   `json:"start_date"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}

	start, ok := s.parseOptionalDate(w, body.StartDate)
	if !ok {
		return
	}

	result, err := s.deps.SetupHabits.Handle(r.Context(), command.SetupHabitsCommand{
		UserID:        r.PathValue("id"),
		Names:         body.Habits,
		StartDate:     start,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}
	if !result.Success {
		writeJSONError(w, http.StatusUnprocessableEntity, "setup_rejected", result.Reason)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleReset re-anchors the challenge window at today.
// POST /api/v1/users/{id}/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WipeAchievements bool `json:"wipe_achievements"`
	}
	// Empty body is valid: reset with defaults.
	if r.ContentLength > 0 && !s.decodeBody(w, r, &body) {
		return
	}

	result, err := s.deps.ResetChallenge.Handle(r.Context(), command.ResetChallengeCommand{
		UserID:           r.PathValue("id"),
		WipeAchievements: body.WipeAchievements,
		CorrelationID:    getRequestID(r.Context()),
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleImport replaces all user data from an export document.
// POST /api/v1/users/{id}/import
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "failed to read request body")
		return
	}

	result, err := s.deps.ImportData.Handle(r.Context(), command.ImportDataCommand{
		UserID:        r.PathValue("id"),
		Payload:       payload,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}
	if !result.Success {
		writeJSONError(w, http.StatusUnprocessableEntity, "import_rejected", result.Reason)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleMarkViewed acknowledges achievement toasts.
// POST /api/v1/users/{id}/achievements/viewed
func (s *Server) handleMarkViewed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Keys []string `json:"keys"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}

	result, err := s.deps.MarkViewed.Handle(r.Context(), command.MarkViewedCommand{
		UserID:        r.PathValue("id"),
		Keys:          body.Keys,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY HANDLERS (Read Side)
// ══════════════════════════════════════════════════════════════════════════════

// handleGetStats returns streaks, rates, and weekday breakdowns.
// GET /api/v1/users/{id}/stats
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	date, ok := s.parseOptionalDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	stats, err := s.deps.GetStats.Handle(r.Context(), query.GetStatsQuery{
		UserID: r.PathValue("id"),
		Date:   date,
	})
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleGetDay returns one day's checklist.
// GET /api/v1/users/{id}/day?date=YYYY-MM-DD
func (s *Server) handleGetDay(w http.ResponseWriter, r *http.Request) {
	date, ok := s.parseOptionalDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	day, err := s.deps.GetDay.Handle(r.Context(), query.GetDayQuery{
		UserID: r.PathValue("id"),
		Date:   date,
	})
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, day)
}

// handleGetCalendar returns the full 21-day grid.
// GET /api/v1/users/{id}/calendar
func (s *Server) handleGetCalendar(w http.ResponseWriter, r *http.Request) {
	date, ok := s.parseOptionalDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	cal, err := s.deps.GetCalendar.Handle(r.Context(), query.GetCalendarQuery{
		UserID: r.PathValue("id"),
		Date:   date,
	})
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cal)
}

// handleGetNewAchievements returns unlocks the user has not seen yet.
// GET /api/v1/users/{id}/achievements/new
func (s *Server) handleGetNewAchievements(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetNewAchievements.Handle(r.Context(), query.GetNewAchievementsQuery{
		UserID: r.PathValue("id"),
	})
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleExport returns the portable export document as a download.
// GET /api/v1/users/{id}/export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.ExportData.Handle(r.Context(), query.ExportDataQuery{
		UserID: r.PathValue("id"),
	})
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	// Raw document, not the envelope: the file is re-imported as-is.
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"habits-export-%s.json\"", time.Now().UTC().Format("2006-01-02")))
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(doc)
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HANDLER HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body, writing a 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return false
	}
	return true
}

// parseOptionalDate parses a YYYY-MM-DD value, writing a 400 on garbage.
// An empty value yields the zero time, which handlers treat as today.
func (s *Server) parseOptionalDate(w http.ResponseWriter, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	date, err := timeutil.ParseDate(value)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

// isValidationError recognizes input validation failures from the
// application layer. Commands wrap them with "validation failed";
// query Validate methods return the bare error.
func isValidationError(err error) bool {
	if shared.IsValidation(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "validation failed") || strings.Contains(msg, "is required")
}

// writeCommandError maps command errors to HTTP status codes.
func (s *Server) writeCommandError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		writeJSONError(w, http.StatusNotFound, "user_not_found", "user not found")
	case isValidationError(err):
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		s.logger.Error("command failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}

// writeQueryError maps query errors to HTTP status codes.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		writeJSONError(w, http.StatusNotFound, "user_not_found", "user not found")
	case errors.Is(err, user.ErrChallengeNotStarted):
		writeJSONError(w, http.StatusConflict, "challenge_not_started", "challenge has not been set up yet")
	case isValidationError(err):
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		s.logger.Error("query failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}

// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Challenge events
	EventChallengeSetup EventType = "challenge.setup"
	EventChallengeReset EventType = "challenge.reset"

	// Completion events
	EventCompletionToggled EventType = "completion.toggled"
	EventDayCompleted      EventType = "completion.day_completed"

	// Achievement events
	EventAchievementUnlocked EventType = "achievement.unlocked"
	EventAchievementViewed   EventType = "achievement.viewed"

	// Data events
	EventDataImported EventType = "data.imported"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"

	// System events
	EventBackfillCompleted EventType = "system.backfill_completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Challenge Events
// ═══════════════════════════════════════════════════════════════════════════

// ChallengeSetupEvent is emitted when a user configures their habits and starts the challenge.
type ChallengeSetupEvent struct {
	BaseEvent
	UserID     string    `json:"user_id"`
	HabitNames []string  `json:"habit_names"`
	StartDate  time.Time `json:"start_date"`
}

// Payload implements Event interface.
func (e ChallengeSetupEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"habit_names": e.HabitNames,
		"start_date":  e.StartDate.Format("2006-01-02"),
	}
}

// NewChallengeSetupEvent creates a new ChallengeSetupEvent.
func NewChallengeSetupEvent(userID string, habitNames []string, startDate time.Time) ChallengeSetupEvent {
	return ChallengeSetupEvent{
		BaseEvent:  NewBaseEvent(EventChallengeSetup, userID),
		UserID:     userID,
		HabitNames: habitNames,
		StartDate:  startDate,
	}
}

// ChallengeResetEvent is emitted when a user wipes their challenge and starts over.
type ChallengeResetEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
}

// Payload implements Event interface.
func (e ChallengeResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
	}
}

// NewChallengeResetEvent creates a new ChallengeResetEvent.
func NewChallengeResetEvent(userID string) ChallengeResetEvent {
	return ChallengeResetEvent{
		BaseEvent: NewBaseEvent(EventChallengeReset, userID),
		UserID:    userID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Completion Events
// ═══════════════════════════════════════════════════════════════════════════

// CompletionToggledEvent is emitted when a habit's completion flips for a day.
type CompletionToggledEvent struct {
	BaseEvent
	UserID    string    `json:"user_id"`
	HabitID   string    `json:"habit_id"`
	Date      time.Time `json:"date"`
	Completed bool      `json:"completed"`
}

// Payload implements Event interface.
func (e CompletionToggledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"habit_id":  e.HabitID,
		"date":      e.Date.Format("2006-01-02"),
		"completed": e.Completed,
	}
}

// NewCompletionToggledEvent creates a new CompletionToggledEvent.
func NewCompletionToggledEvent(userID, habitID string, date time.Time, completed bool) CompletionToggledEvent {
	return CompletionToggledEvent{
		BaseEvent: NewBaseEvent(EventCompletionToggled, userID),
		UserID:    userID,
		HabitID:   habitID,
		Date:      date,
		Completed: completed,
	}
}

// DayCompletedEvent is emitted when every habit is checked off for a day.
type DayCompletedEvent struct {
	BaseEvent
	UserID     string    `json:"user_id"`
	Date       time.Time `json:"date"`
	HabitCount int       `json:"habit_count"`
}

// Payload implements Event interface.
func (e DayCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"date":        e.Date.Format("2006-01-02"),
		"habit_count": e.HabitCount,
	}
}

// NewDayCompletedEvent creates a new DayCompletedEvent.
func NewDayCompletedEvent(userID string, date time.Time, habitCount int) DayCompletedEvent {
	return DayCompletedEvent{
		BaseEvent:  NewBaseEvent(EventDayCompleted, userID),
		UserID:     userID,
		Date:       date,
		HabitCount: habitCount,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementUnlockedEvent is emitted when a user unlocks an achievement.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID         string    `json:"user_id"`
	AchievementKey string    `json:"achievement_key"`
	UnlockedOn     time.Time `json:"unlocked_on"`
	Retroactive    bool      `json:"retroactive"` // unlocked by backfill, not a live toggle
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"achievement_key": e.AchievementKey,
		"unlocked_on":     e.UnlockedOn.Format("2006-01-02"),
		"retroactive":     e.Retroactive,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, key string, unlockedOn time.Time) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:      NewBaseEvent(EventAchievementUnlocked, userID),
		UserID:         userID,
		AchievementKey: key,
		UnlockedOn:     unlockedOn,
	}
}

// AsRetroactive marks the unlock as produced by the backfill job.
func (e AchievementUnlockedEvent) AsRetroactive() AchievementUnlockedEvent {
	e.Retroactive = true
	return e
}

// AchievementViewedEvent is emitted when a user acknowledges an unlock.
type AchievementViewedEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	AchievementKey string `json:"achievement_key"`
}

// Payload implements Event interface.
func (e AchievementViewedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"achievement_key": e.AchievementKey,
	}
}

// NewAchievementViewedEvent creates a new AchievementViewedEvent.
func NewAchievementViewedEvent(userID, key string) AchievementViewedEvent {
	return AchievementViewedEvent{
		BaseEvent:      NewBaseEvent(EventAchievementViewed, userID),
		UserID:         userID,
		AchievementKey: key,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Data Events
// ═══════════════════════════════════════════════════════════════════════════

// DataImportedEvent is emitted after a successful all-or-nothing import.
type DataImportedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	HabitCount  int    `json:"habit_count"`
	RecordCount int    `json:"record_count"`
}

// Payload implements Event interface.
func (e DataImportedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"habit_count":  e.HabitCount,
		"record_count": e.RecordCount,
	}
}

// NewDataImportedEvent creates a new DataImportedEvent.
func NewDataImportedEvent(userID string, habitCount, recordCount int) DataImportedEvent {
	return DataImportedEvent{
		BaseEvent:   NewBaseEvent(EventDataImported, userID),
		UserID:      userID,
		HabitCount:  habitCount,
		RecordCount: recordCount,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// Package shared contains common domain types, errors and events
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened to a jigsaw session or its countdown.
const (
	// Setup events
	EventTopicAdded      EventType = "jigsaw.topic_added"
	EventTopicUpdated    EventType = "jigsaw.topic_updated"
	EventTopicRemoved    EventType = "jigsaw.topic_removed"
	EventStudentsAdded   EventType = "jigsaw.students_added"
	EventStudentRemoved  EventType = "jigsaw.student_removed"
	EventSessionSettings EventType = "jigsaw.settings_changed"

	// Grouping events
	EventGroupsGenerated EventType = "jigsaw.groups_generated"
	EventPhaseChanged    EventType = "jigsaw.phase_changed"
	EventSessionReset    EventType = "jigsaw.session_reset"

	// Timer events
	EventTimerStarted   EventType = "timer.started"
	EventTimerTicked    EventType = "timer.ticked"
	EventTimerCompleted EventType = "timer.completed"
	EventTimerStopped   EventType = "timer.stopped"
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
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
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

// ═══════════════════════════════════════════════════════════════════════════
// Setup Events
// ═══════════════════════════════════════════════════════════════════════════

// TopicChangedEvent is emitted when a topic is added, updated or removed.
type TopicChangedEvent struct {
	BaseEvent
	TopicID string `json:"topic_id"`
	Title   string `json:"title"`
}

// Payload implements Event interface.
func (e TopicChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"topic_id": e.TopicID,
		"title":    e.Title,
	}
}

// NewTopicChangedEvent creates a new TopicChangedEvent of the given type.
func NewTopicChangedEvent(eventType EventType, sessionID, topicID, title string) TopicChangedEvent {
	return TopicChangedEvent{
		BaseEvent: NewBaseEvent(eventType, sessionID),
		TopicID:   topicID,
		Title:     title,
	}
}

// StudentsChangedEvent is emitted when students join or leave the session.
type StudentsChangedEvent struct {
	BaseEvent
	StudentIDs   []string `json:"student_ids"`
	StudentCount int      `json:"student_count"`
}

// Payload implements Event interface.
func (e StudentsChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_ids":   e.StudentIDs,
		"student_count": e.StudentCount,
	}
}

// NewStudentsChangedEvent creates a new StudentsChangedEvent of the given type.
func NewStudentsChangedEvent(eventType EventType, sessionID string, studentIDs []string, total int) StudentsChangedEvent {
	return StudentsChangedEvent{
		BaseEvent:    NewBaseEvent(eventType, sessionID),
		StudentIDs:   studentIDs,
		StudentCount: total,
	}
}

// SettingsChangedEvent is emitted when session settings change.
type SettingsChangedEvent struct {
	BaseEvent
	MainTopic        string        `json:"main_topic"`
	ExpertDuration   time.Duration `json:"expert_duration"`
	TeachingDuration time.Duration `json:"teaching_duration"`
}

// Payload implements Event interface.
func (e SettingsChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"main_topic":                e.MainTopic,
		"expert_duration_seconds":   int(e.ExpertDuration.Seconds()),
		"teaching_duration_seconds": int(e.TeachingDuration.Seconds()),
	}
}

// NewSettingsChangedEvent creates a new SettingsChangedEvent.
func NewSettingsChangedEvent(sessionID, mainTopic string, expert, teaching time.Duration) SettingsChangedEvent {
	return SettingsChangedEvent{
		BaseEvent:        NewBaseEvent(EventSessionSettings, sessionID),
		MainTopic:        mainTopic,
		ExpertDuration:   expert,
		TeachingDuration: teaching,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Grouping Events
// ═══════════════════════════════════════════════════════════════════════════

// GroupsGeneratedEvent is emitted after topic assignment and home-group partitioning.
type GroupsGeneratedEvent struct {
	BaseEvent
	GroupCount   int   `json:"group_count"`
	StudentCount int   `json:"student_count"`
	TopicCount   int   `json:"topic_count"`
	GroupSizes   []int `json:"group_sizes"`
}

// Payload implements Event interface.
func (e GroupsGeneratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"group_count":   e.GroupCount,
		"student_count": e.StudentCount,
		"topic_count":   e.TopicCount,
		"group_sizes":   e.GroupSizes,
	}
}

// NewGroupsGeneratedEvent creates a new GroupsGeneratedEvent.
func NewGroupsGeneratedEvent(sessionID string, topicCount, studentCount int, sizes []int) GroupsGeneratedEvent {
	return GroupsGeneratedEvent{
		BaseEvent:    NewBaseEvent(EventGroupsGenerated, sessionID),
		GroupCount:   len(sizes),
		StudentCount: studentCount,
		TopicCount:   topicCount,
		GroupSizes:   sizes,
	}
}

// PhaseChangedEvent is emitted when the session moves to another phase.
type PhaseChangedEvent struct {
	BaseEvent
	From           string `json:"from"`
	To             string `json:"to"`
	GroupsReplaced bool   `json:"groups_replaced"`
}

// Payload implements Event interface.
func (e PhaseChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"from":            e.From,
		"to":              e.To,
		"groups_replaced": e.GroupsReplaced,
	}
}

// NewPhaseChangedEvent creates a new PhaseChangedEvent.
func NewPhaseChangedEvent(sessionID, from, to string, groupsReplaced bool) PhaseChangedEvent {
	return PhaseChangedEvent{
		BaseEvent:      NewBaseEvent(EventPhaseChanged, sessionID),
		From:           from,
		To:             to,
		GroupsReplaced: groupsReplaced,
	}
}

// SessionResetEvent is emitted when a session is cleared back to setup.
type SessionResetEvent struct {
	BaseEvent
	PreviousPhase string `json:"previous_phase"`
}

// Payload implements Event interface.
func (e SessionResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous_phase": e.PreviousPhase,
	}
}

// NewSessionResetEvent creates a new SessionResetEvent.
func NewSessionResetEvent(sessionID, previousPhase string) SessionResetEvent {
	return SessionResetEvent{
		BaseEvent:     NewBaseEvent(EventSessionReset, sessionID),
		PreviousPhase: previousPhase,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Timer Events
// ═══════════════════════════════════════════════════════════════════════════

// TimerEvent is emitted by the countdown on start, tick, completion and stop.
type TimerEvent struct {
	BaseEvent
	Phase     string        `json:"phase"`
	Remaining time.Duration `json:"remaining"`
	Total     time.Duration `json:"total"`
}

// Payload implements Event interface.
func (e TimerEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"phase":             e.Phase,
		"remaining_seconds": int(e.Remaining.Seconds()),
		"total_seconds":     int(e.Total.Seconds()),
	}
}

// NewTimerEvent creates a new TimerEvent of the given type.
func NewTimerEvent(eventType EventType, sessionID, phase string, remaining, total time.Duration) TimerEvent {
	return TimerEvent{
		BaseEvent: NewBaseEvent(eventType, sessionID),
		Phase:     phase,
		Remaining: remaining,
		Total:     total,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Contracts
// ═══════════════════════════════════════════════════════════════════════════

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

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }

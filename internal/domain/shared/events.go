// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Events are published after the write that produced them commits.
const (
	// Escalation events
	EventEscalationDecided EventType = "escalation.decided"

	// Level A events
	EventLevelALogged     EventType = "level_a.logged"
	EventLevelAOutcomeSet EventType = "level_a.outcome_set"

	// Level C case events
	EventCaseCreated               EventType = "case.created"
	EventCaseContextPacketComplete EventType = "case.context_packet_completed"
	EventCaseAdminResponseRecorded EventType = "case.admin_response_recorded"
	EventCaseReentryPlanned        EventType = "case.reentry_planned"
	EventCaseMonitoringStarted     EventType = "case.monitoring_started"
	EventCaseCheckInLogged         EventType = "case.check_in_logged"
	EventCaseClosed                EventType = "case.closed"

	// Reminder events raised by the external poller
	EventReentryDue EventType = "reminder.reentry_due"
	EventReviewDue  EventType = "reminder.review_due"
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
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
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
// Escalation Events
// ═══════════════════════════════════════════════════════════════════════════

// EscalationDecidedEvent records the outcome of one decision-tree evaluation.
type EscalationDecidedEvent struct {
	BaseEvent
	StudentID        string   `json:"student_id"`
	DomainID         string   `json:"domain_id"`
	Level            string   `json:"level"`
	Reasons          []string `json:"reasons"`
	IsPatternStudent bool     `json:"is_pattern_student"`
	PriorLevelBCount int      `json:"prior_level_b_count"`
}

// Payload implements Event interface.
func (e EscalationDecidedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":          e.StudentID,
		"domain_id":           e.DomainID,
		"level":               e.Level,
		"reasons":             e.Reasons,
		"is_pattern_student":  e.IsPatternStudent,
		"prior_level_b_count": e.PriorLevelBCount,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Level A Events
// ═══════════════════════════════════════════════════════════════════════════

// LevelALoggedEvent is emitted when a coaching intervention is recorded.
type LevelALoggedEvent struct {
	BaseEvent
	StudentID        string `json:"student_id"`
	DomainID         string `json:"domain_id"`
	StaffID          string `json:"staff_id"`
	InterventionType string `json:"intervention_type"`
	Outcome          string `json:"outcome"`
	IsPatternStudent bool   `json:"is_pattern_student"`
	EscalatedToB     bool   `json:"escalated_to_b"`
}

// Payload implements Event interface.
func (e LevelALoggedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":         e.StudentID,
		"domain_id":          e.DomainID,
		"staff_id":           e.StaffID,
		"intervention_type":  e.InterventionType,
		"outcome":            e.Outcome,
		"is_pattern_student": e.IsPatternStudent,
		"escalated_to_b":     e.EscalatedToB,
	}
}

// LevelAOutcomeSetEvent is emitted when an intervention outcome is corrected.
type LevelAOutcomeSetEvent struct {
	BaseEvent
	Outcome      string `json:"outcome"`
	EscalatedToB bool   `json:"escalated_to_b"`
}

// Payload implements Event interface.
func (e LevelAOutcomeSetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"outcome":        e.Outcome,
		"escalated_to_b": e.EscalatedToB,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Level C Case Events
// ═══════════════════════════════════════════════════════════════════════════

// CaseEvent is emitted on every Level C lifecycle write.
type CaseEvent struct {
	BaseEvent
	StudentID     string `json:"student_id"`
	CaseManagerID string `json:"case_manager_id,omitempty"`
	Status        string `json:"status"`
	CaseType      string `json:"case_type"`
	Detail        string `json:"detail,omitempty"`
}

// Payload implements Event interface.
func (e CaseEvent) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"student_id": e.StudentID,
		"status":     e.Status,
		"case_type":  e.CaseType,
	}
	if e.CaseManagerID != "" {
		p["case_manager_id"] = e.CaseManagerID
	}
	if e.Detail != "" {
		p["detail"] = e.Detail
	}
	return p
}

// ReminderEvent is raised by the poller for a case needing attention on a date.
type ReminderEvent struct {
	BaseEvent
	StudentID     string `json:"student_id"`
	CaseManagerID string `json:"case_manager_id,omitempty"`
	Date          Date   `json:"date"`
	ReviewType    string `json:"review_type,omitempty"`
}

// Payload implements Event interface.
func (e ReminderEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":      e.StudentID,
		"case_manager_id": e.CaseManagerID,
		"date":            e.Date.String(),
		"review_type":     e.ReviewType,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Publishing contracts
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

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }

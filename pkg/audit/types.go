package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication / authorization events
	EventTypeAuthGranted EventType = "auth.granted"
	EventTypeAuthDenied  EventType = "auth.denied"

	// User management events
	EventTypeUserAdded       EventType = "user.added"
	EventTypeUserRemoved     EventType = "user.removed"
	EventTypeUserRoleChanged EventType = "user.role_changed"
	EventTypeUsersImported   EventType = "users.imported"
	EventTypeUsersExported   EventType = "users.exported"

	// Session events
	EventTypeSessionsSwept EventType = "sessions.swept"
)

// Status values for audit events
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

// Event is a single audit trail entry
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	ActorID   string            `json:"actor_id,omitempty"`
	ActorName string            `json:"actor_name,omitempty"`
	TargetID  string            `json:"target_id,omitempty"`
	Status    string            `json:"status"`
	Details   map[string]string `json:"details,omitempty"`
}

// NewEvent creates an event with a fresh id and timestamp.
func NewEvent(eventType EventType, status string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Status:    status,
	}
}

// WithActor sets the acting user.
func (e *Event) WithActor(id, name string) *Event {
	e.ActorID = id
	e.ActorName = name
	return e
}

// WithTarget sets the user the action applied to.
func (e *Event) WithTarget(id string) *Event {
	e.TargetID = id
	return e
}

// WithDetail adds a key/value detail.
func (e *Event) WithDetail(key, value string) *Event {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Logger records audit events. Implementations must be safe for concurrent
// use and must never fail the calling operation: Log errors are the
// implementation's problem to report.
type Logger interface {
	Log(event *Event)
	Close() error
}

// NopLogger discards all events
type NopLogger struct{}

// Log implements Logger
func (NopLogger) Log(*Event) {}

// Close implements Logger
func (NopLogger) Close() error { return nil }

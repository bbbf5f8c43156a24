package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DOCUMENT_READY").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Document lifecycle event codes consumed by the audit trail.
const (
	DocumentUploaded = "DOCUMENT_UPLOADED"
	DocumentReused   = "DOCUMENT_REUSED"
	DocumentReady    = "DOCUMENT_READY"
	DocumentFailed   = "DOCUMENT_FAILED"
	DocumentDeleted  = "DOCUMENT_DELETED"
	DocumentRequeued = "DOCUMENT_REQUEUED"
)

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

package audit

import "time"

// EventType represents the category of audit event
type EventType string

const (
	EventTypeMappingCreate EventType = "mapping.create"
	EventTypeMappingUpdate EventType = "mapping.update"
	EventTypeMappingDelete EventType = "mapping.delete"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
)

// Event is a single audit log entry for a change to the domain mapping table
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Resource information
	Domain   string `json:"domain"`
	IdpAlias string `json:"idp_alias,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	Message      string `json:"message,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

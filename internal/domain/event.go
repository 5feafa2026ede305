package domain

import (
	"encoding/json"
	"time"
)

// EventID is a unique identifier for an activity event.
type EventID string

// String returns the string representation of the EventID.
func (id EventID) String() string {
	return string(id)
}

// EventSeverity represents the severity level of an event.
type EventSeverity string

const (
	EventSeverityInfo    EventSeverity = "info"
	EventSeverityWarning EventSeverity = "warning"
	EventSeverityError   EventSeverity = "error"
)

// EventCategory represents the category of an event for filtering.
type EventCategory string

const (
	EventCategoryPipeline EventCategory = "pipeline"
	EventCategoryCache    EventCategory = "cache"
	EventCategoryFilter   EventCategory = "filter"
	EventCategoryIdentity EventCategory = "identity"
	EventCategoryToken    EventCategory = "token"
	EventCategorySystem   EventCategory = "system"
)

// Event represents one entry of the activity log.
type Event struct {
	ID        EventID         `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Severity  EventSeverity   `json:"severity"`
	Category  EventCategory   `json:"category"`
	Message   string          `json:"message"`
	Source    string          `json:"source,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// EventMetadata is a helper type for building event metadata.
type EventMetadata map[string]interface{}

// ToJSON converts metadata to JSON for storage.
func (m EventMetadata) ToJSON() json.RawMessage {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return data
}

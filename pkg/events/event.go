package events

import (
	"strings"
	"time"
)

// Domain events the relay turns into realtime frames.
const (
	MessageCreated          = "MESSAGE_CREATED"
	MessageDelivered        = "MESSAGE_DELIVERED"
	UnreadCountChanged      = "UNREAD_COUNT_CHANGED"
	NutritionTargetsUpdated = "NUTRITION_TARGETS_UPDATED"
)

const SubjectPrefix = "events."

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "MESSAGE_CREATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

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

func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

// TypeFromSubject strips the stream prefix from a NATS subject.
func TypeFromSubject(subject string) string {
	return strings.TrimPrefix(subject, SubjectPrefix)
}

// String reads a string field from an event payload.
func String(payload map[string]interface{}, key string) string {
	s, _ := payload[key].(string)
	return s
}

// Strings reads a list of strings. JSON-decoded payloads carry []interface{}.
func Strings(payload map[string]interface{}, key string) []string {
	switch v := payload[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

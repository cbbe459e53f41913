// Package protocol defines the JSON frames exchanged over the realtime connection.
// Both the notifier (client) and the relay (server) encode and decode through it.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type EventType string

// Server -> client
const (
	EventAuthOK                 EventType = "auth_ok"
	EventAuthError              EventType = "auth_error"
	EventNewMessage             EventType = "new_message"
	EventMessageDelivered       EventType = "message_delivered"
	EventUnreadUpdate           EventType = "unread_update"
	EventNutritionTargetsUpdate EventType = "nutrition_targets_update"
	EventPong                   EventType = "pong"
	EventError                  EventType = "error"
)

// Client -> server
const (
	FrameAuth = "auth"
	FramePing = "ping"
)

var ErrMalformedFrame = errors.New("malformed frame")

// Known reports whether t belongs to the fixed inbound event set.
func (t EventType) Known() bool {
	switch t {
	case EventAuthOK, EventAuthError, EventNewMessage, EventMessageDelivered,
		EventUnreadUpdate, EventNutritionTargetsUpdate, EventPong, EventError:
		return true
	}
	return false
}

// InboundEvent is one decoded server frame. It is consumed synchronously and never stored.
type InboundEvent struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OutboundFrame is a client frame. Token is only set on the auth frame.
type OutboundFrame struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId,omitempty"`
	Content        string    `json:"content,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type NewMessagePayload struct {
	Message Message `json:"message"`
}

type MessageDeliveredPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

func AuthFrame(token string) OutboundFrame {
	return OutboundFrame{Type: FrameAuth, Token: token}
}

func PingFrame() OutboundFrame {
	return OutboundFrame{Type: FramePing}
}

// DecodeEvent parses one wire frame. Frames that are not JSON objects, carry no type,
// or carry a type outside the fixed set are rejected with ErrMalformedFrame.
func DecodeEvent(data []byte) (InboundEvent, error) {
	var evt InboundEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return InboundEvent{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if evt.Type == "" {
		return InboundEvent{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	if !evt.Type.Known() {
		return InboundEvent{}, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, evt.Type)
	}
	return evt, nil
}

// DecodePayload unmarshals the event payload into out.
func (e InboundEvent) DecodePayload(out any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return fmt.Errorf("%w: %s has no payload", ErrMalformedFrame, e.Type)
	}
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformedFrame, e.Type, err)
	}
	return nil
}

// ConversationID returns the conversation an event is scoped to. Only new_message is
// conversation-scoped for alerting purposes.
func (e InboundEvent) ConversationID() (string, bool) {
	if e.Type != EventNewMessage {
		return "", false
	}
	var p NewMessagePayload
	if err := e.DecodePayload(&p); err != nil {
		return "", false
	}
	if p.Message.ConversationID == "" {
		return "", false
	}
	return p.Message.ConversationID, true
}

// ErrorReason extracts payload.error from auth_error / error frames.
func (e InboundEvent) ErrorReason() string {
	var p ErrorPayload
	if err := e.DecodePayload(&p); err != nil {
		return ""
	}
	return p.Error
}

// Encode builds a server frame. A nil payload produces {"type":...} only.
func Encode(t EventType, payload any) ([]byte, error) {
	evt := InboundEvent{Type: t}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", t, err)
		}
		evt.Payload = raw
	}
	return json.Marshal(evt)
}

package hub

import (
	"encoding/json"
	"time"
)

// Inbound event types, client to hub.
const (
	EventJoinSession  = "join_session"
	EventLeaveSession = "leave_session"
	EventSendMessage  = "send_message"
	EventTyping       = "typing"
)

// Outbound event types, hub to client.
const (
	EventNewMessage = "new_message"
	EventUserTyping = "user_typing"
	EventError      = "error"
)

// InboundEvent is the envelope every client frame decodes into. Join
// and leave carry the session in the envelope; send_message and typing
// carry a typed payload in Data. Token optionally upgrades the
// connection to admin mid-stream.
type InboundEvent struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Token     string          `json:"token,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// MessagePayload is the body of a send_message event.
type MessagePayload struct {
	SessionID  string `json:"sessionId"`
	SenderType string `json:"senderType"`
	SenderID   string `json:"senderId,omitempty"`
	Content    string `json:"content"`
}

// TypingPayload is the body of a typing event and the data of the
// user_typing broadcast.
type TypingPayload struct {
	SessionID string `json:"sessionId"`
	UserType  string `json:"userType"`
	IsTyping  bool   `json:"isTyping"`
}

// ErrorPayload is delivered only to the connection that caused the
// failure.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Event is an outbound frame pushed to connected clients.
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func newEvent(eventType, sessionID string, data interface{}) Event {
	return Event{
		Type:      eventType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

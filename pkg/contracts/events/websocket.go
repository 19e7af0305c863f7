// Package events contains the WebSocket message contracts of the GCTI
// incident dashboard.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Session state changes pushed to the owning browser tab
	MessageTypeSessionEvent MessageType = "session:event"

	// System messages
	MessageTypeSystemStatus MessageType = "system:status"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// SessionEvent is the payload of a session:event message
type SessionEvent struct {
	Event  string `json:"event"`
	Page   string `json:"page,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// ConnectData is the payload of the connect message sent after upgrade
type ConnectData struct {
	ClientID  string `json:"client_id"`
	SessionID string `json:"session_id,omitempty"`
	Version   string `json:"version"`
}

// ErrorData is the payload of an error message
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

// SystemStatusData is the payload of a system:status message
type SystemStatusData struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
	Uptime     string            `json:"uptime"`
	Version    string            `json:"version"`
}

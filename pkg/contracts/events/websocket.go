// Package events defines the WebSocket wire contract between the server
// and the browser dashboard. Everything the hub pushes to a client is an
// Envelope whose Data payload is one of the types below.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Core operational message - the primary event type
	MessageTypeOperationSnapshot MessageType = "operation:snapshot"

	// Dataset change notifications
	MessageTypeDataUpdate MessageType = "data_update"

	// Connection messages
	MessageTypeConnection MessageType = "connection"
	MessageTypeError      MessageType = "error"
)

// Envelope is the outer structure of every message sent to a client.
// Subtype and Action route dataset events in the UI; operation snapshots
// are self-describing and leave both empty.
type Envelope struct {
	Type      MessageType `json:"type"`
	Subtype   string      `json:"subtype,omitempty"`
	Action    string      `json:"action,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// ConnectionPayload greets a freshly registered client.
type ConnectionPayload struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	ClientID string `json:"client_id"`
}

// ErrorPayload reports a failure with a recovery hint the UI can show verbatim.
type ErrorPayload struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Details     string `json:"details"`
	Step        string `json:"step"`
	Recoverable bool   `json:"recoverable"`
	Hint        string `json:"hint"`
}

// RefreshPayload tells clients which views to reload after datasets change.
type RefreshPayload struct {
	Source     string   `json:"source"`
	Components []string `json:"components"`
}

// OperationSnapshot is the complete state of a pipeline run at a point in
// time. It is the only structure used for run progress; clients replace
// their local state with each snapshot instead of patching deltas.
type OperationSnapshot struct {
	OperationID string         `json:"operation_id"`
	Status      string         `json:"status"`       // pending|running|completed|failed|cancelled
	Progress    int            `json:"progress"`     // 0-100
	CurrentStep string         `json:"current_step"` // Current active step name
	Steps       []StepSnapshot `json:"steps"`        // All steps with their status
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// StepSnapshot represents the state of a single step
type StepSnapshot struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Status   string                 `json:"status"`   // pending|running|completed|failed|skipped
	Progress int                    `json:"progress"` // 0-100
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

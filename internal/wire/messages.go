// Package wire defines the WebSocket protocol a form page uses to bind
// its driver fields to the evaluator.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/edidform/internal/binding"
	"github.com/matthewbaird/edidform/internal/visibility"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "ready", "change", "clean", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// ReadyData is the payload for "ready" messages, sent once the page has
// rendered the form.
type ReadyData struct {
	Form visibility.Form `json:"form"`
}

// ChangeData is the payload for "change" messages.
type ChangeData struct {
	Field string          `json:"field"`
	Form  visibility.Form `json:"form"`
}

// CleanData is the payload for "clean" messages, sent before submit.
type CleanData struct {
	Form visibility.Form `json:"form"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "directives", "cleaned", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData is sent on connect.
type SessionData struct {
	SessionID string   `json:"session_id"`
	Form      string   `json:"form"`
	Drivers   []string `json:"drivers"`
}

// DirectivesData carries field directives per section. After the first
// full push only changed directives are sent.
type DirectivesData struct {
	Sections binding.Result `json:"sections"`
	Full     bool           `json:"full"`
}

// CleanedData carries the submit-ready form.
type CleanedData struct {
	Form   visibility.Form         `json:"form"`
	Errors []visibility.FieldError `json:"errors,omitempty"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

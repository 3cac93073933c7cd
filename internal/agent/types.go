// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionExpired is returned when the remote session vanished and
	// the automatic re-initialization already ran for this turn.
	ErrSessionExpired = errors.New("session expired, please resend the message")

	// ErrInitFailed is returned when session initialization fails; fatal
	// for the turn.
	ErrInitFailed = errors.New("agent session initialization failed, please retry")
)

// APIError is a non-2xx response from the agent service.
type APIError struct {
	Op      string // endpoint name, e.g. "chat"
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("agent %s (HTTP %d): %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("agent %s: HTTP %d", e.Op, e.Status)
}

// HTTPStatus exposes the status code to the retry layer.
func (e *APIError) HTTPStatus() int { return e.Status }

// =============================================================================
// SESSION PROTOCOL TYPES
// =============================================================================

// SessionKey identifies a conversation to the backend. The session UUID is
// generated client-side and stays stable for the life of the local session.
type SessionKey struct {
	UserID      string
	MaskID      string
	AgentType   string
	SessionUUID string
}

type initRequest struct {
	UserID      string `json:"user_id"`
	MaskID      string `json:"mask_id"`
	AgentType   string `json:"agent_type"`
	SessionUUID string `json:"session_uuid,omitempty"`
	ForceNew    bool   `json:"force_new"`
}

type initResponse struct {
	SessionID string `json:"session_id"`
}

type recoverRequest struct {
	UserID      string `json:"user_id"`
	MaskID      string `json:"mask_id"`
	AgentType   string `json:"agent_type"`
	SessionID   string `json:"session_id"`
	SessionUUID string `json:"session_uuid,omitempty"`
}

type recoverResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	Recovered bool   `json:"recovered"`
}

type statusResponse struct {
	Success bool `json:"success"`
	Exists  bool `json:"exists"`
}

// ChatRequest is the body of a chat call.
type ChatRequest struct {
	SessionID    string   `json:"session_id"`
	Message      string   `json:"message"`
	FilePaths    []string `json:"file_paths"`
	DeepThinking bool     `json:"deep_thinking"`
}

// =============================================================================
// SUGGESTED QUESTIONS
// =============================================================================

// Question is a single suggested follow-up prompt.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionKind selects which suggestion list is requested.
type QuestionKind string

const (
	// QuestionsDefault are the opening suggestions for a session.
	QuestionsDefault QuestionKind = "default"

	// QuestionsRelated follow from the latest user message.
	QuestionsRelated QuestionKind = "related"
)

type questionsRequest struct {
	SessionID   string `json:"session_id"`
	Type        string `json:"type"`
	UserMessage string `json:"user_message,omitempty"`
}

type questionsResponse struct {
	Success   bool       `json:"success"`
	Questions []Question `json:"questions"`
	Error     string     `json:"error,omitempty"`
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventType classifies a streamed event.
type EventType string

const (
	// EventChunk carries generated text, thinking or answer.
	EventChunk EventType = "chunk"

	// EventToolStatus reports tool call progress.
	EventToolStatus EventType = "tool_status"

	// EventComplete marks successful end of generation.
	EventComplete EventType = "complete"

	// EventError carries a server-side failure.
	EventError EventType = "error"

	// EventDone is the backend's final end-of-stream marker.
	EventDone EventType = "done"
)

// Tool status values observed on EventToolStatus events.
const (
	ToolStatusCalling   = "calling"
	ToolStatusStart     = "tool_start"
	ToolStatusSuccess   = "success"
	ToolStatusSucceeded = "tool_success"
	ToolStatusError     = "error"
	ToolStatusTimeout   = "timeout"
)

// Event is one parsed stream event.
type Event struct {
	Type       EventType `json:"type"`
	Content    string    `json:"content,omitempty"`
	IsThinking bool      `json:"is_thinking,omitempty"`
	ToolStatus string    `json:"tool_status,omitempty"`
	ToolName   string    `json:"tool_name,omitempty"`
	ServerName string    `json:"server_name,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// QualifiedToolName returns "server.tool" when both parts are present,
// the bare tool name otherwise, or "unknown".
func (e *Event) QualifiedToolName() string {
	switch {
	case e.ServerName != "" && e.ToolName != "":
		return e.ServerName + "." + e.ToolName
	case e.ToolName != "":
		return e.ToolName
	default:
		return "unknown"
	}
}

// IsToolRunning reports whether the event marks a tool entering execution.
func (e *Event) IsToolRunning() bool {
	return e.ToolStatus == ToolStatusCalling || e.ToolStatus == ToolStatusStart
}

// IsToolSuccess reports whether the event marks a tool completing.
func (e *Event) IsToolSuccess() bool {
	return e.ToolStatus == ToolStatusSuccess || e.ToolStatus == ToolStatusSucceeded
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the conversation state: the session list, the message
// flow of a turn against the agent service, streaming display composition,
// context windowing, and rolling memory summarization.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// LoadingStage tracks where an in-flight assistant turn is.
type LoadingStage string

const (
	StageNone        LoadingStage = ""
	StageConnecting  LoadingStage = "connecting"
	StageProcessing  LoadingStage = "processing"
	StageGenerating  LoadingStage = "generating"
	StageThinking    LoadingStage = "thinking"
	StageToolCalling LoadingStage = "tool_calling"
	StageError       LoadingStage = "error"
)

// Message is one chat turn. While Streaming is true the content mutates in
// place as stream events arrive; after finalization it only changes if the
// turn is later marked errored.
type Message struct {
	ID        string       `json:"id"`
	Role      string       `json:"role"`
	Content   string       `json:"content"`
	Streaming bool         `json:"streaming,omitempty"`
	IsError   bool         `json:"is_error,omitempty"`
	Stage     LoadingStage `json:"stage,omitempty"`
	Date      time.Time    `json:"date"`
}

// NewMessage creates a message with a fresh id and timestamp.
func NewMessage(role, content string) *Message {
	return &Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
		Date:    time.Now(),
	}
}

// countChars sums the content length of messages, used for the title
// generation threshold.
func countChars(msgs []*Message) int {
	n := 0
	for _, m := range msgs {
		n += len([]rune(m.Content))
	}
	return n
}

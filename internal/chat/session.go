// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/morganforge/fishchat-tui/internal/masks"
	"github.com/morganforge/fishchat-tui/internal/questions"
)

// DefaultTopic is shown until a title is generated.
const DefaultTopic = "New Conversation"

// Stat accumulates rough per-session counters.
type Stat struct {
	CharCount    int `json:"char_count"`
	MessageCount int `json:"message_count"`
}

// Session is one conversation thread.
//
// LastSummarizeIndex and ClearContextIndex are monotonic watermarks into
// Messages: the first marks how far the rolling memory summary reaches, the
// second how far "clear context" cut. AgentSessionID is the remote binding;
// empty means the next turn must initialize before chatting.
type Session struct {
	ID                 string           `json:"id"`
	Topic              string           `json:"topic"`
	Messages           []*Message       `json:"messages"`
	MemoryPrompt       string           `json:"memory_prompt,omitempty"`
	LastSummarizeIndex int              `json:"last_summarize_index"`
	ClearContextIndex  int              `json:"clear_context_index"`
	DeepThinking       bool             `json:"deep_thinking"`
	AgentSessionID     string           `json:"agent_session_id,omitempty"`
	SessionUUID        string           `json:"session_uuid"`
	Suggestions        questions.Cache  `json:"suggestions,omitempty"`
	Mask               masks.Mask       `json:"mask"`
	Stat               Stat             `json:"stat"`
	LastUpdate         time.Time        `json:"last_update"`
}

// NewSession creates an empty session using the given persona.
func NewSession(mask masks.Mask) *Session {
	s := &Session{
		ID:           uuid.NewString(),
		Topic:        DefaultTopic,
		Messages:     []*Message{},
		DeepThinking: true,
		SessionUUID:  uuid.NewString(),
		Mask:         mask,
		LastUpdate:   time.Now(),
	}
	if mask.ID != masks.DefaultMaskID && mask.Name != "" {
		s.Topic = mask.Name
	}
	return s
}

// Fork copies the conversation into a new session with its own identity
// and no remote binding.
func (s *Session) Fork() *Session {
	n := NewSession(s.Mask)
	n.Topic = s.Topic
	n.MemoryPrompt = s.MemoryPrompt
	n.LastSummarizeIndex = s.LastSummarizeIndex
	n.ClearContextIndex = s.ClearContextIndex
	n.DeepThinking = s.DeepThinking
	n.Messages = make([]*Message, len(s.Messages))
	for i, m := range s.Messages {
		cp := *m
		n.Messages[i] = &cp
	}
	return n
}

// ClearContext moves the clear watermark to the end of the history so
// future context windows start fresh. The messages stay visible.
func (s *Session) ClearContext() {
	s.ClearContextIndex = len(s.Messages)
	s.MemoryPrompt = ""
}

// Reset drops the whole history and memory. Watermarks rewind with it.
func (s *Session) Reset() {
	s.Messages = []*Message{}
	s.MemoryPrompt = ""
	s.LastSummarizeIndex = 0
	s.ClearContextIndex = 0
	s.Suggestions.Invalidate()
}

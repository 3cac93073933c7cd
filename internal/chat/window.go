// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// memoryPromptTemplate frames the rolling summary when injected as
// context.
const memoryPromptTemplate = "This is a summary of the conversation so far as your memory:\n"

// memoryMessage wraps the session's rolling summary as a system message,
// or nil when no summary exists.
func (s *Session) memoryMessage() *Message {
	if s.MemoryPrompt == "" {
		return nil
	}
	return &Message{
		ID:      "memory-" + s.ID,
		Role:    RoleSystem,
		Content: memoryPromptTemplate + s.MemoryPrompt,
	}
}

// ContextWindow assembles the bounded message window for an upstream
// model call. The order is fixed: long-term memory summary (when it still
// reaches into the active context), the persona's seeded messages, then
// the most recent non-errored messages oldest-first within the token
// budget. Both the summarize watermark and the clear watermark bound how
// far back the window reaches; the tighter one wins.
func (s *Session) ContextWindow() []*Message {
	cfg := s.Mask.Config
	total := len(s.Messages)

	var window []*Message

	sendMemory := cfg.SendMemory && s.MemoryPrompt != "" && s.LastSummarizeIndex > s.ClearContextIndex
	if sendMemory {
		if m := s.memoryMessage(); m != nil {
			window = append(window, m)
		}
	}

	for _, cm := range s.Mask.Context {
		window = append(window, &Message{ID: cm.ID, Role: cm.Role, Content: cm.Content})
	}

	// Recent messages: start where short-term history or the memory
	// watermark says, never before the clear watermark.
	shortTermStart := max(0, total-cfg.HistoryMessageCount)
	memoryStart := shortTermStart
	if sendMemory {
		memoryStart = min(s.LastSummarizeIndex, shortTermStart)
	}
	start := max(s.ClearContextIndex, memoryStart)

	budget := cfg.MaxTokens
	if budget <= 0 {
		budget = 4000
	}

	var recent []*Message
	tokens := 0
	for i := total - 1; i >= start && tokens < budget; i-- {
		msg := s.Messages[i]
		if msg == nil || msg.IsError {
			continue
		}
		tokens += EstimateTokens(msg.Content)
		recent = append(recent, msg)
	}
	for i := len(recent) - 1; i >= 0; i-- {
		window = append(window, recent[i])
	}
	return window
}

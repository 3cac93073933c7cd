// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"testing"

	"github.com/morganforge/fishchat-tui/internal/masks"
)

func testMask() masks.Mask {
	return masks.Mask{
		ID:        "test",
		Name:      "Test",
		AgentType: "general",
		Context: []masks.ContextMessage{
			{ID: "ctx-0", Role: RoleSystem, Content: "You are terse."},
		},
		Config: masks.ModelConfig{
			HistoryMessageCount: 4,
			CompressThreshold:   1000,
			MaxTokens:           4000,
			SendMemory:          true,
		},
	}
}

func sessionWithMessages(n int) *Session {
	s := NewSession(testMask())
	for i := 0; i < n; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		s.Messages = append(s.Messages, NewMessage(role, fmt.Sprintf("message %d", i)))
	}
	return s
}

func TestContextWindowOrderAndBound(t *testing.T) {
	s := sessionWithMessages(10)

	window := s.ContextWindow()

	// Persona context leads, then at most HistoryMessageCount recent
	// messages oldest-first.
	if window[0].Content != "You are terse." {
		t.Errorf("window[0] = %q, want persona context first", window[0].Content)
	}
	recent := window[1:]
	if len(recent) != 4 {
		t.Fatalf("recent count = %d, want history bound 4", len(recent))
	}
	if recent[0].Content != "message 6" || recent[3].Content != "message 9" {
		t.Errorf("recent = [%q .. %q], want messages 6..9 oldest-first", recent[0].Content, recent[3].Content)
	}
}

func TestContextWindowExcludesErroredMessages(t *testing.T) {
	s := sessionWithMessages(6)
	s.Messages[4].IsError = true
	s.Messages[5].IsError = true

	for _, m := range s.ContextWindow() {
		if m.IsError {
			t.Errorf("errored message %q leaked into the window", m.Content)
		}
	}
}

func TestContextWindowClearWatermark(t *testing.T) {
	s := sessionWithMessages(8)
	s.ClearContextIndex = 6

	for _, m := range s.ContextWindow() {
		if strings.HasPrefix(m.Content, "message ") && (m.Content < "message 6") {
			t.Errorf("message %q predates the clear watermark", m.Content)
		}
	}
}

func TestContextWindowMemoryInclusion(t *testing.T) {
	s := sessionWithMessages(8)
	s.MemoryPrompt = "earlier we discussed tides"
	s.LastSummarizeIndex = 6

	window := s.ContextWindow()
	if !strings.Contains(window[0].Content, "earlier we discussed tides") {
		t.Errorf("window[0] = %q, want memory summary first", window[0].Content)
	}

	// Clearing context past the summarize watermark drops the memory.
	s.ClearContextIndex = 7
	for _, m := range s.ContextWindow() {
		if strings.Contains(m.Content, "earlier we discussed tides") {
			t.Error("memory included despite clear watermark past summarize watermark")
		}
	}
}

func TestContextWindowTokenBudget(t *testing.T) {
	s := sessionWithMessages(0)
	s.Mask.Config.HistoryMessageCount = 100
	s.Mask.Config.MaxTokens = 50
	for i := 0; i < 20; i++ {
		s.Messages = append(s.Messages, NewMessage(RoleUser, strings.Repeat("word ", 20)))
	}

	window := s.ContextWindow()
	// 1 persona message plus however many fit the 50-token budget; each
	// message is ~25 tokens so the window must stay small.
	if len(window) > 5 {
		t.Errorf("window size = %d, want token budget to bound it", len(window))
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Error("empty string should be zero tokens")
	}
	if got := EstimateTokens("abcd"); got != 1 {
		t.Errorf("EstimateTokens(abcd) = %d, want 1", got)
	}
	// CJK weighs more per rune than ASCII letters.
	if EstimateTokens("日本語") <= EstimateTokens("abc") {
		t.Error("CJK should estimate higher than the same count of ASCII letters")
	}
}

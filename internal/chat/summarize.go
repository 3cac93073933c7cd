// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log"
	"strings"

	"github.com/morganforge/fishchat-tui/internal/cloud"
)

// Summarization prompts.
const (
	topicPrompt = "Summarize our conversation as a title of four words or fewer. Reply with the title only, no punctuation, no quotes."

	summarizePrompt = "Briefly summarize the conversation so far for use as future context. Keep it under 200 words."

	// titleMinChars gates title generation until there is enough
	// conversation to name.
	titleMinChars = 50

	// summaryMaxTokens caps the summarizer's own reply.
	summaryMaxTokens = 500
)

// Summarizer maintains each session's rolling memory and auto-generated
// title via the completion client. All failures are logged and dropped;
// summarization never breaks a conversation.
type Summarizer struct {
	client            *cloud.Client
	autoTitle         bool
	compressThreshold int
}

// NewSummarizer creates a summarizer. compressThreshold is the unsummarized
// token count that triggers a memory update.
func NewSummarizer(client *cloud.Client, autoTitle bool, compressThreshold int) *Summarizer {
	if compressThreshold <= 0 {
		compressThreshold = 1000
	}
	return &Summarizer{client: client, autoTitle: autoTitle, compressThreshold: compressThreshold}
}

// MaybeSummarize refreshes the session's title and rolling memory when
// their thresholds are crossed. Safe to call after every finished turn.
func (s *Summarizer) MaybeSummarize(ctx context.Context, store *Store, sessionID string) {
	if s.client == nil || !s.client.IsConfigured() {
		return
	}

	store.mu.Lock()
	sess := store.findLocked(sessionID)
	if sess == nil {
		store.mu.Unlock()
		return
	}
	topic := sess.Topic
	msgs := snapshotMessages(sess.Messages)
	memory := sess.MemoryPrompt
	sendMemory := sess.Mask.Config.SendMemory
	historyCount := sess.Mask.Config.HistoryMessageCount
	summarizeIndex := max(sess.LastSummarizeIndex, sess.ClearContextIndex)
	store.mu.Unlock()

	if s.autoTitle && topic == DefaultTopic && countChars(msgs) >= titleMinChars {
		s.refreshTitle(ctx, store, sessionID, msgs, historyCount)
	}

	if !sendMemory {
		return
	}
	s.refreshMemory(ctx, store, sessionID, msgs, memory, summarizeIndex, historyCount)
}

// RefreshTitle regenerates the title regardless of thresholds, used by the
// explicit UI action.
func (s *Summarizer) RefreshTitle(ctx context.Context, store *Store, sessionID string) {
	if s.client == nil || !s.client.IsConfigured() {
		return
	}
	store.mu.Lock()
	sess := store.findLocked(sessionID)
	if sess == nil {
		store.mu.Unlock()
		return
	}
	msgs := snapshotMessages(sess.Messages)
	historyCount := sess.Mask.Config.HistoryMessageCount
	store.mu.Unlock()

	s.refreshTitle(ctx, store, sessionID, msgs, historyCount)
}

func (s *Summarizer) refreshTitle(ctx context.Context, store *Store, sessionID string, msgs []*Message, historyCount int) {
	recent := tail(msgs, historyCount)
	conv := toCloudMessages(recent)
	conv = append(conv, cloud.NewUserMessage(topicPrompt))

	title, err := s.client.Chat(ctx, conv, 60)
	if err != nil {
		log.Printf("chat: title generation failed: %v", err)
		return
	}
	title = strings.Trim(strings.TrimSpace(title), `"“”`)
	if title == "" {
		return
	}
	store.updateSession(sessionID, func(sess *Session) {
		sess.Topic = title
	})
}

func (s *Summarizer) refreshMemory(ctx context.Context, store *Store, sessionID string, msgs []*Message, memory string, summarizeIndex, historyCount int) {
	if summarizeIndex > len(msgs) {
		summarizeIndex = len(msgs)
	}
	unsummarized := withoutErrors(msgs[summarizeIndex:])
	if estimateMessageTokens(unsummarized) <= s.compressThreshold {
		return
	}
	// Very long backlogs summarize only the recent window.
	if estimateMessageTokens(unsummarized) > 4000 {
		unsummarized = tail(unsummarized, historyCount)
	}

	conv := make([]cloud.ChatMessage, 0, len(unsummarized)+2)
	if memory != "" {
		conv = append(conv, cloud.NewSystemMessage(memoryPromptTemplate+memory))
	}
	conv = append(conv, toCloudMessages(unsummarized)...)
	conv = append(conv, cloud.NewSystemMessage(summarizePrompt))

	watermark := len(msgs)
	summary, err := s.client.Chat(ctx, conv, summaryMaxTokens)
	if err != nil {
		log.Printf("chat: memory summarization failed: %v", err)
		return
	}
	store.updateSession(sessionID, func(sess *Session) {
		// Watermarks only move forward.
		if watermark > sess.LastSummarizeIndex {
			sess.LastSummarizeIndex = watermark
			sess.MemoryPrompt = summary
		}
	})
}

func snapshotMessages(msgs []*Message) []*Message {
	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		cp := *m
		out[i] = &cp
	}
	return out
}

func withoutErrors(msgs []*Message) []*Message {
	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.IsError {
			out = append(out, m)
		}
	}
	return out
}

func tail(msgs []*Message, n int) []*Message {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

func toCloudMessages(msgs []*Message) []cloud.ChatMessage {
	out := make([]cloud.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, cloud.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/morganforge/fishchat-tui/internal/agent"
	"github.com/morganforge/fishchat-tui/internal/cloud"
	"github.com/morganforge/fishchat-tui/internal/masks"
)

func newSummaryBackend(t *testing.T, reply func(prompt string) string) *cloud.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []cloud.ChatMessage `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		last := req.Messages[len(req.Messages)-1].Content
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply(last)}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return cloud.NewClient("sk-test-key-1234").WithBaseURL(srv.URL)
}

func summarizerStore(t *testing.T) *Store {
	t.Helper()
	catalog, err := masks.NewCatalog(filepath.Join(t.TempDir(), "masks"))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return NewStore(agent.NewClient("http://unreachable.invalid"), catalog, nil, "user_test")
}

func TestSummarizerGeneratesTitle(t *testing.T) {
	client := newSummaryBackend(t, func(prompt string) string {
		if strings.Contains(prompt, "title") {
			return "Tide Mechanics"
		}
		return "summary"
	})
	store := summarizerStore(t)
	sum := NewSummarizer(client, true, 1000)

	sess := store.Current()
	store.updateSession(sess.ID, func(sess *Session) {
		sess.Messages = append(sess.Messages,
			NewMessage(RoleUser, strings.Repeat("why do tides happen? ", 3)),
			NewMessage(RoleAssistant, strings.Repeat("the moon pulls the ocean. ", 3)),
		)
	})

	sum.MaybeSummarize(context.Background(), store, sess.ID)
	if got := store.Current().Topic; got != "Tide Mechanics" {
		t.Errorf("topic = %q, want generated title", got)
	}
}

func TestSummarizerSkipsShortConversations(t *testing.T) {
	var calls atomic.Int32
	client := newSummaryBackend(t, func(string) string {
		calls.Add(1)
		return "title"
	})
	store := summarizerStore(t)
	sum := NewSummarizer(client, true, 1000)

	sess := store.Current()
	store.updateSession(sess.ID, func(sess *Session) {
		sess.Messages = append(sess.Messages, NewMessage(RoleUser, "hi"))
	})

	sum.MaybeSummarize(context.Background(), store, sess.ID)
	if calls.Load() != 0 {
		t.Error("short conversations must not trigger the completion API")
	}
}

func TestSummarizerUpdatesMemoryWatermark(t *testing.T) {
	client := newSummaryBackend(t, func(prompt string) string {
		return "rolling summary of the conversation"
	})
	store := summarizerStore(t)
	sum := NewSummarizer(client, false, 10)

	sess := store.Current()
	store.updateSession(sess.ID, func(sess *Session) {
		for i := 0; i < 6; i++ {
			sess.Messages = append(sess.Messages, NewMessage(RoleUser, strings.Repeat("lots of text here. ", 10)))
		}
	})

	sum.MaybeSummarize(context.Background(), store, sess.ID)

	got := store.Current()
	if got.MemoryPrompt != "rolling summary of the conversation" {
		t.Errorf("memory = %q", got.MemoryPrompt)
	}
	if got.LastSummarizeIndex != 6 {
		t.Errorf("watermark = %d, want 6", got.LastSummarizeIndex)
	}

	// A second run with no new messages leaves the watermark alone.
	sum.MaybeSummarize(context.Background(), store, sess.ID)
	if store.Current().LastSummarizeIndex != 6 {
		t.Error("watermark moved without new content")
	}
}

func TestSummarizerUnconfiguredIsNoop(t *testing.T) {
	store := summarizerStore(t)
	sum := NewSummarizer(cloud.NewClient(""), true, 10)

	sess := store.Current()
	store.updateSession(sess.ID, func(sess *Session) {
		sess.Messages = append(sess.Messages, NewMessage(RoleUser, strings.Repeat("text ", 100)))
	})
	sum.MaybeSummarize(context.Background(), store, sess.ID)
	if store.Current().MemoryPrompt != "" {
		t.Error("unconfigured summarizer must do nothing")
	}
}

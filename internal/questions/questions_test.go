// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package questions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/morganforge/fishchat-tui/internal/agent"
)

type fakeFetcher struct {
	calls     int
	questions []agent.Question
	err       error
}

func (f *fakeFetcher) SuggestedQuestions(ctx context.Context, sessionID string, kind agent.QuestionKind, userMessage string) ([]agent.Question, error) {
	f.calls++
	return f.questions, f.err
}

func remoteSet(texts ...string) []agent.Question {
	qs := make([]agent.Question, 0, len(texts))
	for i, t := range texts {
		qs = append(qs, agent.Question{ID: string(rune('a' + i)), Text: t})
	}
	return qs
}

func TestDefaultCachesBySession(t *testing.T) {
	f := &fakeFetcher{questions: remoteSet("q1", "q2")}
	s := NewService(f, time.Hour)
	cache := &Cache{}

	first := s.Default(context.Background(), cache, "sess-1")
	second := s.Default(context.Background(), cache, "sess-1")
	if f.calls != 1 {
		t.Errorf("fetch calls = %d, want 1 (second hit served from cache)", f.calls)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Errorf("sets = %d/%d, want 2/2", len(first), len(second))
	}

	// A different remote session id must not reuse the cache.
	s.Default(context.Background(), cache, "sess-2")
	if f.calls != 2 {
		t.Errorf("fetch calls = %d, want 2 after session change", f.calls)
	}
}

func TestDefaultCacheExpires(t *testing.T) {
	f := &fakeFetcher{questions: remoteSet("q1")}
	s := NewService(f, time.Hour)
	cache := &Cache{}

	s.Default(context.Background(), cache, "sess-1")
	cache.Default.FetchedAt = time.Now().Add(-2 * time.Hour)

	s.Default(context.Background(), cache, "sess-1")
	if f.calls != 2 {
		t.Errorf("fetch calls = %d, want refetch after TTL", f.calls)
	}
}

func TestRelatedValidatesUserMessage(t *testing.T) {
	f := &fakeFetcher{questions: remoteSet("r1")}
	s := NewService(f, time.Hour)
	cache := &Cache{}

	s.Related(context.Background(), cache, "sess-1", "first question")
	s.Related(context.Background(), cache, "sess-1", "first question")
	if f.calls != 1 {
		t.Errorf("fetch calls = %d, want cached repeat", f.calls)
	}

	s.Related(context.Background(), cache, "sess-1", "different question")
	if f.calls != 2 {
		t.Errorf("fetch calls = %d, want refetch for a new message", f.calls)
	}
}

func TestFetchFailureFallsBack(t *testing.T) {
	f := &fakeFetcher{err: errors.New("connection refused")}
	s := NewService(f, time.Hour)
	cache := &Cache{}

	qs := s.Default(context.Background(), cache, "sess-1")
	if len(qs) == 0 {
		t.Fatal("fallback set should never be empty")
	}
	if cache.Default != nil {
		t.Error("fallback sets must not be cached")
	}
}

func TestClipLimitsSetSize(t *testing.T) {
	f := &fakeFetcher{questions: remoteSet("a", "b", "c", "d", "e")}
	s := NewService(f, time.Hour)

	qs := s.Default(context.Background(), &Cache{}, "sess-1")
	if len(qs) != 3 {
		t.Errorf("set size = %d, want clipped to 3", len(qs))
	}
}

func TestFallbackKeywordRouting(t *testing.T) {
	tests := []struct {
		message string
		wantSub string
	}{
		{"tell me about AI agents", "AI"},
		{"help me write some code", "programming"},
		{"how should I study math", "study plan"},
		{"what is the weather like", "concept"},
	}

	for _, tt := range tests {
		qs := Fallback(agent.QuestionsRelated, tt.message)
		if len(qs) != 3 {
			t.Fatalf("Fallback(%q) returned %d questions, want 3", tt.message, len(qs))
		}
		found := false
		for _, q := range qs {
			if strings.Contains(q.Text, tt.wantSub) {
				found = true
			}
			if q.ID == "" || !strings.HasPrefix(q.ID, "fallback-") {
				t.Errorf("question id %q, want fallback- prefix", q.ID)
			}
		}
		if !found {
			t.Errorf("Fallback(%q) = %v, want a question mentioning %q", tt.message, qs, tt.wantSub)
		}
	}
}

func TestInvalidateClearsBothSets(t *testing.T) {
	cache := &Cache{
		Default: &Entry{SessionID: "s", FetchedAt: time.Now()},
		Related: &Entry{SessionID: "s", FetchedAt: time.Now(), UserMessage: "m"},
	}
	cache.Invalidate()
	if cache.Default != nil || cache.Related != nil {
		t.Error("Invalidate should drop both entries")
	}
}

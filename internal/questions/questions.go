// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package questions manages suggested follow-up prompts for chat sessions.
//
// Suggestions come from the agent service and are cached per session with a
// TTL. A cache entry is only served when it belongs to the current remote
// session and, for related questions, to the same user message it was
// generated for. When the service is unreachable a keyword-routed local
// catalog keeps the UI populated.
package questions

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/morganforge/fishchat-tui/internal/agent"
)

// DefaultTTL is how long a cached suggestion set stays fresh.
const DefaultTTL = 30 * time.Minute

// maxQuestions bounds every suggestion set.
const maxQuestions = 3

// Entry is one cached suggestion set.
type Entry struct {
	Questions   []agent.Question `json:"questions"`
	FetchedAt   time.Time        `json:"fetched_at"`
	SessionID   string           `json:"session_id"`
	UserMessage string           `json:"user_message,omitempty"`
}

// Cache holds the per-session suggestion sets. It is embedded in the chat
// session and persisted with it.
type Cache struct {
	Default *Entry `json:"default,omitempty"`
	Related *Entry `json:"related,omitempty"`
}

// fresh reports whether e was fetched within ttl for the given session.
func (e *Entry) fresh(sessionID string, ttl time.Duration) bool {
	if e == nil {
		return false
	}
	if e.SessionID != sessionID {
		return false
	}
	return time.Since(e.FetchedAt) < ttl
}

// ValidDefault returns the cached default set if it is still usable.
func (c *Cache) ValidDefault(sessionID string, ttl time.Duration) ([]agent.Question, bool) {
	if !c.Default.fresh(sessionID, ttl) {
		return nil, false
	}
	return c.Default.Questions, true
}

// ValidRelated returns the cached related set if it is still usable and was
// generated for the same user message.
func (c *Cache) ValidRelated(sessionID, userMessage string, ttl time.Duration) ([]agent.Question, bool) {
	if !c.Related.fresh(sessionID, ttl) {
		return nil, false
	}
	if c.Related.UserMessage != userMessage {
		return nil, false
	}
	return c.Related.Questions, true
}

// Invalidate drops everything, used when the remote session changes.
func (c *Cache) Invalidate() {
	c.Default = nil
	c.Related = nil
}

// Fetcher is the slice of the agent client this package needs.
type Fetcher interface {
	SuggestedQuestions(ctx context.Context, sessionID string, kind agent.QuestionKind, userMessage string) ([]agent.Question, error)
}

// Service fetches suggestions with caching and local fallback. All methods
// succeed; a failed fetch degrades to the catalog.
type Service struct {
	fetcher Fetcher
	ttl     time.Duration
}

// NewService creates a suggestion service. A zero ttl uses DefaultTTL.
func NewService(fetcher Fetcher, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{fetcher: fetcher, ttl: ttl}
}

// Default returns opening suggestions for a session, consulting the cache
// first and updating it after a successful fetch.
func (s *Service) Default(ctx context.Context, cache *Cache, sessionID string) []agent.Question {
	if qs, ok := cache.ValidDefault(sessionID, s.ttl); ok {
		return qs
	}

	qs, err := s.fetcher.SuggestedQuestions(ctx, sessionID, agent.QuestionsDefault, "")
	if err != nil || len(qs) == 0 {
		if err != nil {
			log.Printf("questions: default fetch failed, using catalog: %v", err)
		}
		return Fallback(agent.QuestionsDefault, "")
	}

	qs = clip(qs)
	cache.Default = &Entry{Questions: qs, FetchedAt: time.Now(), SessionID: sessionID}
	return qs
}

// Related returns follow-up suggestions for the given user message.
func (s *Service) Related(ctx context.Context, cache *Cache, sessionID, userMessage string) []agent.Question {
	if qs, ok := cache.ValidRelated(sessionID, userMessage, s.ttl); ok {
		return qs
	}

	qs, err := s.fetcher.SuggestedQuestions(ctx, sessionID, agent.QuestionsRelated, userMessage)
	if err != nil || len(qs) == 0 {
		if err != nil {
			log.Printf("questions: related fetch failed, using catalog: %v", err)
		}
		return Fallback(agent.QuestionsRelated, userMessage)
	}

	qs = clip(qs)
	cache.Related = &Entry{Questions: qs, FetchedAt: time.Now(), SessionID: sessionID, UserMessage: userMessage}
	return qs
}

func clip(qs []agent.Question) []agent.Question {
	if len(qs) > maxQuestions {
		return qs[:maxQuestions]
	}
	return qs
}

// =============================================================================
// LOCAL CATALOG
// =============================================================================

var defaultCatalog = []string{
	"How is AI changing everyday life?",
	"How can I improve my productivity and learning?",
	"Can you share some practical life tips?",
}

// relatedCatalogs routes on keywords in the user's last message.
var relatedCatalogs = []struct {
	keywords  []string
	questions []string
}{
	{
		keywords: []string{"ai", "artificial intelligence", "machine learning"},
		questions: []string{
			"Where is AI applied most widely?",
			"What are the limits of current AI systems?",
			"How can I start learning about AI?",
		},
	},
	{
		keywords: []string{"code", "coding", "program", "software"},
		questions: []string{
			"How can I improve my programming skills?",
			"What fundamentals should I master first?",
			"What are some good engineering practices?",
		},
	},
	{
		keywords: []string{"learn", "study", "education"},
		questions: []string{
			"How do I build an effective study plan?",
			"What are some high-leverage learning techniques?",
			"How do I stay motivated while learning?",
		},
	},
}

var genericRelated = []string{
	"Can you explain that concept in more detail?",
	"Are there real-world examples of this?",
	"Is there anything else related I should know?",
}

// Fallback returns a local suggestion set for when the service is
// unavailable. Related suggestions are picked by keyword from the user's
// message.
func Fallback(kind agent.QuestionKind, userMessage string) []agent.Question {
	texts := defaultCatalog
	if kind == agent.QuestionsRelated {
		texts = genericRelated
		lower := strings.ToLower(userMessage)
		for _, cat := range relatedCatalogs {
			if containsAny(lower, cat.keywords) {
				texts = cat.questions
				break
			}
		}
	}

	qs := make([]agent.Question, 0, len(texts))
	for _, text := range texts {
		qs = append(qs, agent.Question{
			ID:   "fallback-" + uuid.NewString()[:8],
			Text: text,
		})
	}
	return qs
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

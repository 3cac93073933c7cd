// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package masks defines chat personas. A mask bundles an agent type, the
// context messages seeded into every conversation, and per-persona chat
// tuning. Builtin masks ship with the binary; user masks are TOML files
// under the masks directory and reload live.
package masks

// ContextMessage is one seeded message in a mask's opening context.
type ContextMessage struct {
	ID      string `toml:"id" json:"id"`
	Role    string `toml:"role" json:"role"`
	Content string `toml:"content" json:"content"`
}

// ModelConfig carries the per-mask chat tuning.
type ModelConfig struct {
	HistoryMessageCount int     `toml:"history_message_count" json:"history_message_count"`
	CompressThreshold   int     `toml:"compress_threshold" json:"compress_threshold"`
	MaxTokens           int     `toml:"max_tokens" json:"max_tokens"`
	Temperature         float64 `toml:"temperature" json:"temperature"`
	SendMemory          bool    `toml:"send_memory" json:"send_memory"`
}

// Mask is a chat persona. A mask with SyncGlobal set carries no tuning of
// its own; sessions created from it take the global chat settings instead.
type Mask struct {
	ID         string           `toml:"id" json:"id"`
	Name       string           `toml:"name" json:"name"`
	Avatar     string           `toml:"avatar" json:"avatar"`
	AgentType  string           `toml:"agent_type" json:"agent_type"`
	Context    []ContextMessage `toml:"context" json:"context"`
	Config     ModelConfig      `toml:"config" json:"config"`
	SyncGlobal bool             `toml:"sync_global_config" json:"sync_global_config"`
	Builtin    bool             `toml:"-" json:"builtin"`
}

// DefaultMaskID is the persona used when none is chosen.
const DefaultMaskID = "default"

func defaultModelConfig() ModelConfig {
	return ModelConfig{
		HistoryMessageCount: 8,
		CompressThreshold:   1000,
		MaxTokens:           4000,
		Temperature:         0.7,
		SendMemory:          true,
	}
}

// Builtins returns the personas that ship with the binary. The slice is
// freshly allocated on each call so callers may modify it.
func Builtins() []Mask {
	return []Mask{
		{
			ID:        DefaultMaskID,
			Name:      "General Assistant",
			Avatar:    "🤖",
			AgentType: "general",
			Context: []ContextMessage{
				{ID: "default-0", Role: "system", Content: "You are a helpful, knowledgeable assistant. Answer clearly and concisely."},
			},
			Config:     defaultModelConfig(),
			SyncGlobal: true,
			Builtin:    true,
		},
		{
			ID:        "ticket",
			Name:      "Ticket Assistant",
			Avatar:    "🎫",
			AgentType: "ticket",
			Context: []ContextMessage{
				{ID: "ticket-0", Role: "system", Content: "I am a ticket assistant, specializing in querying ticket information, analyzing order data, and generating statistical reports. I can run SQL queries and produce visual charts to make the data easy to read."},
				{ID: "ticket-1", Role: "user", Content: "Can you help me analyze ticket sales?"},
				{ID: "ticket-2", Role: "assistant", Content: "Of course! I can analyze ticket sales data, including sales statistics, order trends, purchase behavior, and revenue reports. Tell me which aspect you want to look at and I will generate the queries and charts."},
			},
			Config: ModelConfig{
				HistoryMessageCount: 16,
				CompressThreshold:   1000,
				MaxTokens:           2000,
				Temperature:         0.3,
				SendMemory:          true,
			},
			Builtin: true,
		},
		{
			ID:        "data-analyst",
			Name:      "Data Analyst",
			Avatar:    "📊",
			AgentType: "chatbi",
			Context: []ContextMessage{
				{ID: "chatbi-0", Role: "system", Content: "You are a business intelligence analyst. Turn questions about business data into queries, explain the results, and point out notable trends."},
			},
			Config: ModelConfig{
				HistoryMessageCount: 12,
				CompressThreshold:   1000,
				MaxTokens:           3000,
				Temperature:         0.3,
				SendMemory:          true,
			},
			Builtin: true,
		},
		{
			ID:        "train-ticket",
			Name:      "Train Ticket Helper",
			Avatar:    "🚆",
			AgentType: "train_ticket",
			Context: []ContextMessage{
				{ID: "train-0", Role: "system", Content: "You help travellers find train tickets: schedules, seat availability, transfers, and booking guidance."},
			},
			Config:     defaultModelConfig(),
			SyncGlobal: true,
			Builtin:    true,
		},
		{
			ID:        "fortune-teller",
			Name:      "Fortune Teller",
			Avatar:    "🔮",
			AgentType: "fortune_teller",
			Context: []ContextMessage{
				{ID: "fortune-0", Role: "system", Content: "You are a playful fortune teller. Offer readings for entertainment and always make clear they are for fun, not advice."},
			},
			Config: ModelConfig{
				HistoryMessageCount: 8,
				CompressThreshold:   1000,
				MaxTokens:           2000,
				Temperature:         0.9,
				SendMemory:          true,
			},
			Builtin: true,
		},
		{
			ID:        "image-creator",
			Name:      "Image Creator",
			Avatar:    "🎨",
			AgentType: "text_to_image",
			Context: []ContextMessage{
				{ID: "image-0", Role: "system", Content: "You turn descriptions into image generation prompts and guide the user toward the picture they have in mind."},
			},
			Config:     defaultModelConfig(),
			SyncGlobal: true,
			Builtin:    true,
		},
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/morganforge/fishchat-tui/internal/chat"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter renders sessions as pretty-printed JSON.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonDocument struct {
	Title     string          `json:"title"`
	Persona   string          `json:"persona"`
	AgentType string          `json:"agent_type"`
	Updated   time.Time       `json:"updated"`
	Exported  time.Time       `json:"exported"`
	Memory    string          `json:"memory,omitempty"`
	Messages  []*chat.Message `json:"messages"`
}

// Export converts a session to JSON.
func (e *JSONExporter) Export(sess *chat.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if len(sess.Messages) == 0 {
		return nil, fmt.Errorf("session has no messages")
	}

	doc := jsonDocument{
		Title:     sess.Topic,
		Persona:   sess.Mask.Name,
		AgentType: sess.Mask.AgentType,
		Updated:   sess.LastUpdate,
		Exported:  time.Now(),
		Memory:    sess.MemoryPrompt,
		Messages:  sess.Messages,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns "json".
func (e *JSONExporter) FileExtension() string { return "json" }

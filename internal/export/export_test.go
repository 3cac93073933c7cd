// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/morganforge/fishchat-tui/internal/chat"
	"github.com/morganforge/fishchat-tui/internal/masks"
)

func exportSession() *chat.Session {
	sess := chat.NewSession(masks.Builtins()[0])
	sess.Topic = "Tides: why/how?"
	sess.Messages = append(sess.Messages,
		chat.NewMessage(chat.RoleUser, "why do tides happen"),
		chat.NewMessage(chat.RoleAssistant, "The moon's gravity pulls the ocean."),
	)
	return sess
}

func TestMarkdownExport(t *testing.T) {
	data, err := NewMarkdownExporter(nil).Export(exportSession())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		`title: "Tides: why/how?"`,
		"# Tides: why/how?",
		"👤 User",
		"🤖 Assistant",
		"The moon's gravity pulls the ocean.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownExportEmptySession(t *testing.T) {
	sess := chat.NewSession(masks.Builtins()[0])
	if _, err := NewMarkdownExporter(nil).Export(sess); err == nil {
		t.Error("empty sessions must not export")
	}
}

func TestJSONExportRoundTrip(t *testing.T) {
	data, err := NewJSONExporter(nil).Export(exportSession())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc["title"] != "Tides: why/how?" {
		t.Errorf("title = %v", doc["title"])
	}
	msgs, ok := doc["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Errorf("messages = %v", doc["messages"])
	}
}

func TestToFileSanitizesName(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := ToFile(exportSession(), NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ToFile: %v", err)
	}
	if strings.ContainsAny(path[len(dir):], `:*?"<>|`) {
		t.Errorf("path %q contains unsafe characters", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
}

func TestNewUnknownFormat(t *testing.T) {
	if _, err := New("docx", nil); err == nil {
		t.Error("unknown formats must error")
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{"empty", "", 10, ""},
		{"shorter than max", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"zero max", "hello", 0, ""},
		{"tiny max", "hello", 2, "he"},
		{"cjk preserved", "你好世界你好世界", 6, "你好世..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.input, tt.maxRunes)
			if got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestTruncateWidth_CJK(t *testing.T) {
	// CJK characters occupy two columns each.
	got := TruncateWidth("你好世界", 4)
	if got != "你好" {
		t.Errorf("TruncateWidth = %q, want %q", got, "你好")
	}
	if w := StringWidth("你好"); w != 4 {
		t.Errorf("StringWidth(你好) = %d, want 4", w)
	}
}

func TestPreview_CollapsesNewlines(t *testing.T) {
	got := Preview("first line\nsecond   line", 80)
	if got != "first line second line" {
		t.Errorf("Preview = %q", got)
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "state.json")

	if err := AtomicWriteFile(path, []byte("v1"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "v1" {
		t.Errorf("content = %q, want %q", data, "v1")
	}

	// Overwrite must fully replace.
	if err := AtomicWriteFile(path, []byte("second version"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile overwrite: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "second version" {
		t.Errorf("content after overwrite = %q", data)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if e.Name() != "state.json" {
			t.Errorf("leftover file: %s", e.Name())
		}
	}
}

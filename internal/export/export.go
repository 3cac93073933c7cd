// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat sessions to shareable files.
package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/morganforge/fishchat-tui/internal/chat"
	"github.com/morganforge/fishchat-tui/internal/util"
)

// =============================================================================
// EXPORTER INTERFACE
// =============================================================================

// Exporter renders a session into one output format.
type Exporter interface {
	// Export converts a session to the output format.
	Export(sess *chat.Session) ([]byte, error)

	// FileExtension returns the extension without the dot.
	FileExtension() string
}

// Options configures an export.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string

	// IncludeMetadata includes the session header (persona, dates, stats).
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool
}

// DefaultOptions returns the default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// New returns the exporter for a format name ("markdown" or "json").
func New(format string, opts *Options) (Exporter, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	switch format {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// ToFile renders the session and writes it atomically under the output
// directory. Returns the written path.
func ToFile(sess *chat.Session, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	data, err := exporter.Export(sess)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s.%s",
		sanitizeFilename(sess.Topic),
		time.Now().Format("20060102_150405"),
		exporter.FileExtension())
	path := filepath.Join(opts.OutputDir, name)

	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// sanitizeFilename makes a session topic safe as a file name on both
// Windows and Unix.
func sanitizeFilename(s string) string {
	runes := []rune(s)
	if len(runes) > 50 {
		runes = runes[:50]
	}

	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			out = append(out, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			out = append(out, '_')
		case r < 32 || r == 127:
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "conversation"
	}
	return string(out)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Terminal rendering of agent replies for the plain CLI paths.
//
// Replies are markdown. Fenced code blocks get chroma syntax highlighting;
// the rest is printed as-is so piped output stays clean.
package cli

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// REPLY RENDERING
// =============================================================================

// RenderReply highlights fenced code blocks in a reply when color is
// enabled. Outside a TTY the text passes through untouched.
func RenderReply(text string) string {
	if !ColorEnabled() {
		return text
	}

	var out strings.Builder
	lines := strings.Split(text, "\n")

	var inBlock bool
	var lang string
	var code []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inBlock {
				out.WriteString(highlightCode(strings.Join(code, "\n"), lang))
				out.WriteString("\n")
				inBlock = false
				code = code[:0]
			} else {
				inBlock = true
				lang = strings.TrimPrefix(trimmed, "```")
			}
			continue
		}
		if inBlock {
			code = append(code, line)
			continue
		}
		out.WriteString(line)
		out.WriteString("\n")
	}
	if inBlock {
		// Unterminated fence, flush what we have.
		out.WriteString(highlightCode(strings.Join(code, "\n"), lang))
		out.WriteString("\n")
	}
	return strings.TrimSuffix(out.String(), "\n")
}

// highlightCode applies chroma syntax highlighting for terminal output.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

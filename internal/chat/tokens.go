// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"golang.org/x/text/unicode/norm"
)

// EstimateTokens approximates the token count of text. It is a windowing
// heuristic, not a tokenizer: letters weigh a quarter token, other ASCII
// half, and everything else (CJK and friends) one and a half. Text is NFC
// normalized first so decomposed accents do not inflate the count.
func EstimateTokens(text string) int {
	var total float64
	for _, r := range norm.NFC.String(text) {
		switch {
		case r >= 'A' && r <= 'z':
			total += 0.25
		case r < 128:
			total += 0.5
		default:
			total += 1.5
		}
	}
	if total != float64(int(total)) {
		return int(total) + 1
	}
	return int(total)
}

// estimateMessageTokens sums the estimate over messages.
func estimateMessageTokens(msgs []*Message) int {
	n := 0
	for _, m := range msgs {
		n += EstimateTokens(m.Content)
	}
	return n
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/morganforge/fishchat-tui/internal/agent"
)

// User-facing failure classifications. A turn that fails after all retries
// gets exactly one of these as its assistant message content, never a raw
// error dump.
const (
	msgSessionExpired = "Session expired, press retry to resend the message"
	msgServerBusy     = "The server is busy, retried several times, please try again later"
	msgConnection     = "Network connection unstable, retried several times, please check your network"
	msgInitFailed     = "Agent service initialization failed, retried several times, please try again later"
	msgNetworkFailed  = "Network connection failed, please contact the administrator"
)

// ClassifyError maps a terminal turn failure to its user-facing text.
func ClassifyError(err error) string {
	if err == nil {
		return msgNetworkFailed
	}

	if errors.Is(err, agent.ErrSessionExpired) {
		return msgSessionExpired
	}
	if errors.Is(err, agent.ErrInitFailed) {
		return msgInitFailed
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return msgNetworkFailed
	}

	var apiErr *agent.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusNotFound:
			return msgSessionExpired
		case apiErr.Status >= http.StatusInternalServerError:
			return msgServerBusy
		default:
			return msgConnection
		}
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "broken pipe"),
		strings.Contains(lower, "eof"),
		strings.Contains(lower, "aborted"):
		return msgNetworkFailed
	}
	return fmt.Sprintf("%s (after multiple retries)", err.Error())
}

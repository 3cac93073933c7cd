// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent implements the client for the remote agent service.
//
// The service owns conversational state keyed by a remote session id; this
// package performs session validation, recovery, initialization, chat
// streaming, and best-effort lifecycle notifications against it, plus the
// suggested-questions endpoint.
//
// Session state machine per session:
//
//	NO_SESSION -> VALIDATING -> {VALID, NEEDS_INIT} -> RECOVERING?
//	           -> INITIALIZED -> CHATTING -> {STREAMING, ERROR}
//
// A chat 404 means the remote session vanished between validation and use:
// the id is cleared and a single automatic re-initialization is attempted
// before the turn fails with ErrSessionExpired.
package agent

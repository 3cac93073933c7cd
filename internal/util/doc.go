// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the fishchat application.
//
// It contains crash-safe file writing (AtomicWriteFile) and UTF-8 aware
// string truncation used by session previews and the TUI.
package util

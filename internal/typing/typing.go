// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package typing implements the typewriter reveal used when displaying
// finished agent responses.
//
// The effect is a pure stepper: the caller owns the clock (a bubbletea tick
// or a ticker) and asks for the visible prefix at each instant. Longer
// responses reveal faster so the wait stays roughly constant, and aborting
// snaps straight to the full text.
package typing

import (
	"context"
	"time"
)

// Options tune a reveal.
type Options struct {
	// BaseSpeed is the minimum reveal rate in runes per second.
	// Zero means DefaultBaseSpeed.
	BaseSpeed float64

	// Adaptive raises the rate for longer texts.
	Adaptive bool

	// MaxLength truncates texts longer than this many runes.
	// Zero means DefaultMaxLength.
	MaxLength int
}

const (
	DefaultBaseSpeed = 40.0
	DefaultMaxLength = 50000

	// TickInterval is the suggested redraw cadence for drivers.
	TickInterval = 16 * time.Millisecond
)

// Speed returns the reveal rate for a text of the given rune length.
func Speed(length int, base float64, adaptive bool) float64 {
	if base <= 0 {
		base = DefaultBaseSpeed
	}
	if !adaptive {
		return base
	}
	switch {
	case length < 100:
		return max(base, 40)
	case length < 500:
		return max(base, 50)
	case length < 2000:
		return max(base, 60)
	default:
		return max(base, 80)
	}
}

// Effect reveals a fixed text one rune at a time.
type Effect struct {
	text         []rune
	pos          int
	delayPerRune time.Duration
	accumulated  time.Duration
	lastTick     time.Time
	started      bool
}

// New prepares a reveal of text. Texts over the length limit are truncated
// with an ellipsis before animating.
func New(text string, opts Options) *Effect {
	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	runes := []rune(text)
	if len(runes) > maxLen {
		runes = append(runes[:maxLen:maxLen], []rune("...")...)
	}

	speed := Speed(len(runes), opts.BaseSpeed, opts.Adaptive)
	return &Effect{
		text:         runes,
		delayPerRune: time.Duration(float64(time.Second) / speed),
	}
}

// Advance moves the reveal to instant now and returns the visible prefix
// and whether the text is fully revealed. Prefixes are monotone: each call
// returns at least as much text as the previous one.
func (e *Effect) Advance(now time.Time) (string, bool) {
	if !e.started {
		e.started = true
		e.lastTick = now
		return string(e.text[:e.pos]), e.pos >= len(e.text)
	}

	e.accumulated += now.Sub(e.lastTick)
	e.lastTick = now

	if add := int(e.accumulated / e.delayPerRune); add > 0 {
		e.pos = min(e.pos+add, len(e.text))
		e.accumulated %= e.delayPerRune
	}
	return string(e.text[:e.pos]), e.pos >= len(e.text)
}

// Finish reveals everything immediately. Used on abort so no content is
// ever lost.
func (e *Effect) Finish() string {
	e.pos = len(e.text)
	return string(e.text)
}

// Current returns the visible prefix without advancing the reveal.
func (e *Effect) Current() string {
	return string(e.text[:e.pos])
}

// Done reports whether the full text is visible.
func (e *Effect) Done() bool {
	return e.pos >= len(e.text)
}

// Run drives a reveal on a ticker, calling onUpdate with each new prefix.
// It returns the final text. Cancelling ctx snaps to the full text, like
// Finish. Used by the plain CLI path where no UI loop exists.
func Run(ctx context.Context, text string, opts Options, onUpdate func(visible string)) string {
	e := New(text, opts)
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	e.Advance(time.Now())
	for {
		select {
		case <-ctx.Done():
			full := e.Finish()
			onUpdate(full)
			return full
		case now := <-ticker.C:
			visible, done := e.Advance(now)
			onUpdate(visible)
			if done {
				return visible
			}
		}
	}
}

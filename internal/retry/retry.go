// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package retry provides exponential-backoff retry for asynchronous
// operations against the agent backend.
//
// A retried operation never panics through the wrapper and never returns a
// bare error: Do always produces a Result describing what happened, and the
// caller decides whether a failed result is fatal.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// =============================================================================
// POLICY
// =============================================================================

// Policy configures retry behavior for a single operation.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	// A permanently failing operation is attempted MaxRetries+1 times.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay (jitter excluded).
	MaxDelay time.Duration

	// BackoffFactor multiplies the delay after each attempt.
	BackoffFactor float64

	// RetryIf decides whether an error is worth retrying.
	// Nil means Retryable.
	RetryIf func(error) bool

	// OnRetry is invoked before each retry with the 1-based retry number
	// and the error that triggered it.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy returns the standard policy for backend calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    3,
		BaseDelay:     time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2,
	}
}

// Preset policies mirroring the operation classes the client performs.
var (
	// Network is the preset for chat and session calls.
	Network = Policy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2}

	// Quick is for lightweight calls such as suggested-question fetches.
	Quick = Policy{MaxRetries: 2, BaseDelay: 500 * time.Millisecond, MaxDelay: 2 * time.Second, BackoffFactor: 1.5}

	// Persistent is for operations that must eventually land, such as
	// state flushes.
	Persistent = Policy{MaxRetries: 10, BaseDelay: 3 * time.Second, MaxDelay: time.Minute, BackoffFactor: 1.8}
)

// =============================================================================
// RESULT
// =============================================================================

// Result records the outcome of a retried operation.
type Result struct {
	// Success is true if some attempt returned nil.
	Success bool

	// Err is the error from the last attempt when Success is false.
	Err error

	// Attempts is the total number of invocations performed.
	Attempts int

	// TotalTime is wall-clock time spent including backoff sleeps.
	TotalTime time.Duration
}

// =============================================================================
// RETRY CONDITIONS
// =============================================================================

// statusError is implemented by errors carrying an HTTP status code.
type statusError interface {
	HTTPStatus() int
}

// retryablePatterns are error-text fragments considered transient.
// String matching is a deliberate fallback: the backend surfaces most
// transport failures as plain error strings.
var retryablePatterns = []string{
	"network",
	"timeout",
	"connection refused",
	"connection reset",
	"temporary",
	"server busy",
	"internal server error",
	"unavailable",
	"eof",
}

// Retryable is the default retry condition: transient network or timeout
// errors, and HTTP 408, 429 or any 5xx status.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var se statusError
	if errors.As(err, &se) {
		code := se.HTTPStatus()
		return code >= 500 || code == 408 || code == 429
	}

	msg := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// =============================================================================
// EXECUTION
// =============================================================================

// maxJitter is the upper bound of the random jitter added to each delay.
const maxJitter = time.Second

// Do executes op under the given policy. After exhausting retries the
// Result carries the last error with Success=false; Do itself never fails.
//
// The context aborts both in-flight attempts (op receives it) and backoff
// sleeps between attempts.
func Do(ctx context.Context, op func(ctx context.Context) error, p Policy) Result {
	if p.BackoffFactor <= 0 {
		p.BackoffFactor = 1
	}
	retryIf := p.RetryIf
	if retryIf == nil {
		retryIf = Retryable
	}

	start := time.Now()
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		attempts = attempt + 1

		err := op(ctx)
		if err == nil {
			return Result{Success: true, Attempts: attempts, TotalTime: time.Since(start)}
		}
		lastErr = err

		if attempt == p.MaxRetries {
			break
		}
		if ctx.Err() != nil || !retryIf(err) {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		delay := backoffDelay(p, attempt)
		select {
		case <-ctx.Done():
			return Result{Success: false, Err: lastErr, Attempts: attempts, TotalTime: time.Since(start)}
		case <-time.After(delay):
		}
	}

	return Result{Success: false, Err: lastErr, Attempts: attempts, TotalTime: time.Since(start)}
}

// Smart first attempts one fast retry with a short flat delay, then falls
// back to a standard backoff policy. This recovers from transient blips
// without paying full backoff latency on every call.
//
// OnRetry and RetryIf from override apply to both phases; numeric fields
// from override replace the phase defaults only when non-zero.
func Smart(ctx context.Context, op func(ctx context.Context) error, override Policy) Result {
	quick := Policy{
		MaxRetries:    1,
		BaseDelay:     500 * time.Millisecond,
		BackoffFactor: 1,
		MaxDelay:      2 * time.Second,
		RetryIf:       override.RetryIf,
		OnRetry:       override.OnRetry,
	}
	res := Do(ctx, op, quick)
	if res.Success || ctx.Err() != nil {
		return res
	}

	standard := Policy{
		MaxRetries:    3,
		BaseDelay:     2 * time.Second,
		BackoffFactor: 2,
		MaxDelay:      15 * time.Second,
		RetryIf:       override.RetryIf,
		OnRetry:       override.OnRetry,
	}
	if override.MaxRetries > 0 {
		standard.MaxRetries = override.MaxRetries
	}
	if override.BaseDelay > 0 {
		standard.BaseDelay = override.BaseDelay
	}
	if override.MaxDelay > 0 {
		standard.MaxDelay = override.MaxDelay
	}
	if override.BackoffFactor > 0 {
		standard.BackoffFactor = override.BackoffFactor
	}

	second := Do(ctx, op, standard)
	second.Attempts += res.Attempts
	second.TotalTime += res.TotalTime
	return second
}

// backoffDelay computes min(MaxDelay, BaseDelay*Factor^attempt) plus random
// jitter up to one second to avoid thundering herds.
func backoffDelay(p Policy, attempt int) time.Duration {
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(attempt)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d + rand.N(maxJitter)
}

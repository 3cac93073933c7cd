// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package admin

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	phc, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(phc, "$argon2id$v=19$"))

	assert.True(t, VerifyPassword("hunter2", phc))
	assert.False(t, VerifyPassword("hunter3", phc))
	assert.False(t, VerifyPassword("", phc))
}

func TestVerifyPasswordSaltsDiffer(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, VerifyPassword("same", a))
	assert.True(t, VerifyPassword("same", b))
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	cases := []string{
		"",
		"not-a-phc-string",
		"$argon2i$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA",
	}
	for _, phc := range cases {
		assert.False(t, VerifyPassword("anything", phc), "hash %q", phc)
	}
}

func TestGateVerify(t *testing.T) {
	phc, err := HashPassword("letmein")
	require.NoError(t, err)

	g := NewGate(phc, "")
	assert.True(t, g.Enabled())
	assert.False(t, g.RequiresTOTP())

	require.NoError(t, g.Verify("letmein", ""))
	assert.ErrorIs(t, g.Verify("wrong", ""), ErrBadCredentials)
}

func TestGateNotConfigured(t *testing.T) {
	g := NewGate("", "")
	assert.False(t, g.Enabled())
	assert.ErrorIs(t, g.Verify("anything", ""), ErrNotConfigured)
}

func TestGateLockout(t *testing.T) {
	phc, err := HashPassword("secret")
	require.NoError(t, err)
	g := NewGate(phc, "")

	for i := 0; i < maxAttempts-1; i++ {
		assert.ErrorIs(t, g.Verify("wrong", ""), ErrBadCredentials)
	}
	assert.ErrorIs(t, g.Verify("wrong", ""), ErrLockedOut)

	// Still locked even with the right password.
	assert.ErrorIs(t, g.Verify("secret", ""), ErrLockedOut)

	// Expire the lockout and verify success resets state.
	g.mu.Lock()
	g.lockedUntil = time.Now().Add(-time.Second)
	g.mu.Unlock()
	require.NoError(t, g.Verify("secret", ""))
}

func TestGateWithTOTP(t *testing.T) {
	phc, err := HashPassword("secret")
	require.NoError(t, err)

	secret, url, err := GenerateTOTPSecret("admin@fishchat")
	require.NoError(t, err)
	assert.Contains(t, url, "otpauth://totp/")

	g := NewGate(phc, secret)
	assert.True(t, g.RequiresTOTP())

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	require.NoError(t, g.Verify("secret", code))

	err = g.Verify("secret", "000000")
	if !errors.Is(err, ErrBadCredentials) && !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected credential failure, got %v", err)
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package admin gates the settings screen behind a password and an
// optional TOTP second factor. The password is stored as an argon2id PHC
// string in the config; no plaintext ever touches disk.
package admin

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/argon2"
)

// argon2id parameters. Interactive-login strength.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Lockout tuning.
const (
	maxAttempts     = 5
	lockoutDuration = 5 * time.Minute
)

var (
	// ErrBadCredentials covers wrong password and wrong TOTP code alike;
	// callers must not reveal which.
	ErrBadCredentials = errors.New("invalid credentials")

	// ErrLockedOut means too many failures; try again later.
	ErrLockedOut = errors.New("too many failed attempts, try again later")

	// ErrNotConfigured means no password hash is set; the gate is open.
	ErrNotConfigured = errors.New("admin gate not configured")
)

// HashPassword derives an argon2id PHC string for storage.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyPassword checks password against a PHC string in constant time.
func VerifyPassword(password, phc string) bool {
	var version int
	var memory, iterations uint32
	var threads uint8
	var saltB64, keyB64 string

	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}
	saltB64, keyB64 = parts[4], parts[5]

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(keyB64)
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// Gate verifies admin credentials with lockout on repeated failure.
type Gate struct {
	mu           sync.Mutex
	passwordHash string
	totpSecret   string
	failures     int
	lockedUntil  time.Time
}

// NewGate creates a gate from the stored hash and optional TOTP secret.
func NewGate(passwordHash, totpSecret string) *Gate {
	return &Gate{passwordHash: passwordHash, totpSecret: totpSecret}
}

// Enabled reports whether a password is configured.
func (g *Gate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.passwordHash != ""
}

// RequiresTOTP reports whether a second factor is configured.
func (g *Gate) RequiresTOTP() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totpSecret != ""
}

// Verify checks the password and, when configured, the TOTP code.
func (g *Gate) Verify(password, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.passwordHash == "" {
		return ErrNotConfigured
	}
	if time.Now().Before(g.lockedUntil) {
		return ErrLockedOut
	}

	ok := VerifyPassword(password, g.passwordHash)
	if ok && g.totpSecret != "" {
		ok = totp.Validate(code, g.totpSecret)
	}
	if !ok {
		g.failures++
		if g.failures >= maxAttempts {
			g.lockedUntil = time.Now().Add(lockoutDuration)
			g.failures = 0
			return ErrLockedOut
		}
		return ErrBadCredentials
	}

	g.failures = 0
	g.lockedUntil = time.Time{}
	return nil
}

// GenerateTOTPSecret mints a new TOTP secret for enrollment and returns
// the secret plus the otpauth URL for QR display.
func GenerateTOTPSecret(account string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "fishchat",
		AccountName: account,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

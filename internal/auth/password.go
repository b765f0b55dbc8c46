// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package auth

import (
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Password policy.
const (
	PasswordMinLength = 8
	PasswordMaxLength = 24
	PasswordSymbols   = "!@#$%"
)

const redacted = "[REDACTED]"

// ErrPasswordMismatch is returned by Password.Verify when the hash does not match.
var ErrPasswordMismatch = errors.New("password does not match")

// Password is a raw password that satisfied the complexity policy at construction.
// It is never persisted; only its hash is.
type Password struct {
	raw string
}

// ParsePassword enforces the password policy on raw. The character classes
// are ASCII only.
func ParsePassword(raw string) (Password, error) {
	n := utf8.RuneCountInString(raw)
	if n < PasswordMinLength || n > PasswordMaxLength {
		return Password{}, oops.Code(CodeInvalidPassword).
			With("min", PasswordMinLength).
			With("max", PasswordMaxLength).
			Errorf("password must be between %d and %d characters", PasswordMinLength, PasswordMaxLength)
	}

	var lower, upper, digit, symbol bool
	for _, r := range raw {
		switch {
		case 'a' <= r && r <= 'z':
			lower = true
		case 'A' <= r && r <= 'Z':
			upper = true
		case '0' <= r && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return Password{}, oops.Code(CodeInvalidPassword).
			Errorf("password must contain a lowercase letter, an uppercase letter, a digit and one of %s", PasswordSymbols)
	}

	return Password{raw: raw}, nil
}

// Hash produces a salted hash of the password.
func (p Password) Hash(h PasswordHasher) (string, error) {
	hash, err := h.Hash(p.raw)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}
	return hash, nil
}

// Verify checks the password against hash. It returns ErrPasswordMismatch on
// mismatch and a server error if hash cannot be parsed.
func (p Password) Verify(h PasswordHasher, hash string) error {
	ok, err := h.Verify(p.raw, hash)
	if err != nil {
		return oops.Code("AUTH_VERIFY_FAILED").Wrap(err)
	}
	if !ok {
		return ErrPasswordMismatch
	}
	return nil
}

// String never reveals the password.
func (p Password) String() string {
	return redacted
}

// GoString never reveals the password.
func (p Password) GoString() string {
	return redacted
}

// LogValue never reveals the password.
func (p Password) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

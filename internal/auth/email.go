// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package auth

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/samber/oops"
)

// emailPattern accepts local@label.label.tld where the final label is at least
// two characters. The match is anchored so partial matches are rejected.
var emailPattern = regexp.MustCompile(`^[\w\-\.]+@([\w-]+\.)+[\w-]{2,}$`)

// Email is a validated, lower-cased email address.
type Email struct {
	value string
}

// ParseEmail validates raw and returns its normalized form.
func ParseEmail(raw string) (Email, error) {
	if raw == "" {
		return Email{}, oops.Code(CodeInvalidEmail).Errorf("email cannot be empty")
	}
	if !emailPattern.MatchString(raw) {
		return Email{}, oops.Code(CodeInvalidEmail).Errorf("please enter a valid email")
	}
	return Email{value: strings.ToLower(raw)}, nil
}

// String returns the normalized address.
func (e Email) String() string {
	return e.value
}

// IsZero reports whether e was not produced by ParseEmail.
func (e Email) IsZero() bool {
	return e.value == ""
}

// LogValue logs the domain only.
func (e Email) LogValue() slog.Value {
	if _, domain, ok := strings.Cut(e.value, "@"); ok {
		return slog.StringValue("*@" + domain)
	}
	return slog.StringValue("")
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned by repositories when an email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

// Error codes surfaced to callers. Each maps to exactly one Kind.
const (
	CodeInvalidEmail       = "AUTH_INVALID_EMAIL"
	CodeInvalidPassword    = "AUTH_INVALID_PASSWORD"
	CodeDuplicateUser      = "AUTH_DUPLICATE_USER"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidToken       = "AUTH_INVALID_TOKEN"
	CodeUnauthorized       = "AUTH_UNAUTHORIZED"
	CodeForbidden          = "AUTH_FORBIDDEN"
)

// Kind classifies an error for transport-level handling.
type Kind int

// Error kinds. KindServer is the zero value so unclassified errors are
// treated as server faults.
const (
	KindServer Kind = iota
	KindValidation
	KindDuplicateUser
	KindBadRequest
	KindInvalidToken
	KindUnauthorized
	KindForbidden
	KindNotFound
)

var kindNames = map[Kind]string{
	KindServer:        "server",
	KindValidation:    "validation",
	KindDuplicateUser: "duplicate_user",
	KindBadRequest:    "bad_request",
	KindInvalidToken:  "invalid_token",
	KindUnauthorized:  "unauthorized",
	KindForbidden:     "forbidden",
	KindNotFound:      "not_found",
}

// String returns the metric/log label for the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "server"
}

// codeKinds holds codes registered by this and other packages.
var codeKinds = map[string]Kind{
	CodeInvalidEmail:       KindValidation,
	CodeInvalidPassword:    KindValidation,
	CodeDuplicateUser:      KindDuplicateUser,
	CodeInvalidCredentials: KindBadRequest,
	CodeInvalidToken:       KindInvalidToken,
	CodeUnauthorized:       KindUnauthorized,
	CodeForbidden:          KindForbidden,
}

// RegisterCode associates an error code with a kind. It is meant to be called
// from package init functions of packages that define their own caller-facing
// codes; it is not safe for concurrent use with KindOf.
func RegisterCode(code string, kind Kind) {
	codeKinds[code] = kind
}

// KindOf returns the kind of err. Errors without a registered oops code are
// KindServer. A nil error is also reported as KindServer; callers check for nil first.
func KindOf(err error) Kind {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindServer
	}
	code, ok := oopsErr.Code().(string)
	if !ok {
		return KindServer
	}
	if kind, found := codeKinds[code]; found {
		return kind
	}
	return KindServer
}

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
}

func errInvalidToken() error {
	return oops.Code(CodeInvalidToken).Errorf("invalid token")
}

func errUnauthorized(reason string) error {
	return oops.Code(CodeUnauthorized).With("reason", reason).Errorf("not logged in")
}

func errForbidden(reason string) error {
	return oops.Code(CodeForbidden).With("reason", reason).Errorf("refresh not permitted")
}

func errDuplicateUser() error {
	return oops.Code(CodeDuplicateUser).Errorf("an account with this email already exists")
}

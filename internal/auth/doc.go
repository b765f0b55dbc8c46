// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

// Package auth provides credential-based authentication for spade.
//
// # Value Types
//
// Raw input enters the package only through fallible constructors:
//   - ParseEmail - validates and lower-cases an email address
//   - ParsePassword - enforces the password complexity policy
//
// Everything downstream takes Email and Password, never raw strings.
// Only password hashes are persisted.
//
// # Tokens
//
// TokenManager issues HS256 access tokens (subject: the account's subject id,
// 1 day) and refresh tokens (subject: the account id, 14 days) with distinct
// secrets. Only a digest of the active refresh token is stored; refresh
// compares the presented token against it, so a later login or a logout
// invalidates earlier refresh tokens.
//
// # Service
//
// Service coordinates registration, login, logout, refresh, credential
// updates and deletion. The credential and the community profile live in
// separate stores; registration and deletion run as a saga whose completed
// steps are compensated when a later step fails.
package auth

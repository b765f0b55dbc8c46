// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Credential is the authentication-store record of an account.
//
// ID is the internal account identity and the subject of refresh tokens.
// SubjectID is the externally visible identity: the subject of access tokens
// and the key of the account's profile in the community store.
type Credential struct {
	ID           uuid.UUID
	Email        Email
	PasswordHash string
	SubjectID    ulid.ULID
	// RefreshTokenHash is the digest of the single active refresh token.
	// Empty means the account is logged out.
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LoggedIn reports whether the credential holds an active refresh token.
func (c *Credential) LoggedIn() bool {
	return c.RefreshTokenHash != ""
}

// CredentialRepository manages credential persistence in the auth store.
type CredentialRepository interface {
	// ExistsByEmail reports whether a credential with the given email exists.
	ExistsByEmail(ctx context.Context, email Email) (bool, error)

	// Create inserts a credential and reads back its timestamps in one
	// transaction. Returns an error wrapping ErrDuplicateEmail if the email
	// is already taken.
	Create(ctx context.Context, c *Credential) error

	// GetByEmail returns ErrNotFound if no credential has the email.
	GetByEmail(ctx context.Context, email Email) (*Credential, error)

	// GetByID returns ErrNotFound if no credential has the id.
	GetByID(ctx context.Context, id uuid.UUID) (*Credential, error)

	// GetBySubject returns ErrNotFound if no credential has the subject id.
	GetBySubject(ctx context.Context, subject ulid.ULID) (*Credential, error)

	// SetRefreshTokenHash replaces the stored refresh-token digest.
	// An empty digest clears it. Returns ErrNotFound if the credential does not exist.
	SetRefreshTokenHash(ctx context.Context, id uuid.UUID, digest string) error

	// UpdateEmail changes only the email. Returns an error wrapping
	// ErrDuplicateEmail on conflict and ErrNotFound if the credential does not exist.
	UpdateEmail(ctx context.Context, id uuid.UUID, email Email) error

	// UpdatePasswordHash changes only the password hash.
	// Returns ErrNotFound if the credential does not exist.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error

	// Delete removes the credential. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProfileFields are the profile attributes supplied at registration.
type ProfileFields struct {
	Username string
	Avatar   string
}

// ProfileProvisioner creates and deletes the community profile that mirrors
// a credential. It owns a separate store, so calls are never part of an
// auth-store transaction.
type ProfileProvisioner interface {
	// CreateProfile creates the profile keyed by subject.
	CreateProfile(ctx context.Context, subject ulid.ULID, fields ProfileFields) error

	// DeleteProfile removes the profile keyed by subject.
	// Returns an error wrapping ErrNotFound if it does not exist.
	DeleteProfile(ctx context.Context, subject ulid.ULID) error
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

// Package postgres implements the auth store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/spademh/spade/internal/auth"
	"github.com/spademh/spade/internal/store"
)

const emailConstraint = "credentials_email_key"

const selectCredential = `
	SELECT id, email, password_hash, subject_id, refresh_token_hash, created_at, updated_at
	FROM credentials
`

// CredentialRepository implements auth.CredentialRepository using PostgreSQL.
type CredentialRepository struct {
	db store.DB
	tx *store.Transactor
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db store.DB) *CredentialRepository {
	return &CredentialRepository{db: db, tx: store.NewTransactor(db)}
}

// ExistsByEmail reports whether a credential with email exists.
func (r *CredentialRepository) ExistsByEmail(ctx context.Context, email auth.Email) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM credentials WHERE email = $1)`, email.String(),
	).Scan(&exists)
	if err != nil {
		return false, oops.Code("CREDENTIAL_EXISTS_FAILED").
			With("operation", "check email").
			With("email", email).
			Wrap(err)
	}
	return exists, nil
}

// Create inserts c and reads back its stored timestamps in one transaction.
// A zero CreatedAt lets the database assign it; a restored snapshot keeps its own.
func (r *CredentialRepository) Create(ctx context.Context, c *auth.Credential) error {
	return r.tx.InTransaction(ctx, func(ctx context.Context) error {
		conn := store.Conn(ctx, r.db)

		_, err := conn.Exec(ctx, `
			INSERT INTO credentials (
				id, email, password_hash, subject_id, refresh_token_hash, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()), COALESCE($7, now()))
		`,
			c.ID,
			c.Email.String(),
			c.PasswordHash,
			c.SubjectID.String(),
			c.RefreshTokenHash,
			optionalTime(c.CreatedAt),
			optionalTime(c.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err, emailConstraint) {
				return oops.Code("CREDENTIAL_EMAIL_TAKEN").
					With("email", c.Email).
					Wrap(auth.ErrDuplicateEmail)
			}
			return oops.Code("CREDENTIAL_CREATE_FAILED").
				With("operation", "insert credential").
				With("subject_id", c.SubjectID.String()).
				Wrap(err)
		}

		err = conn.QueryRow(ctx,
			`SELECT created_at, updated_at FROM credentials WHERE id = $1`, c.ID,
		).Scan(&c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return oops.Code("CREDENTIAL_CREATE_FAILED").
				With("operation", "read back credential").
				With("subject_id", c.SubjectID.String()).
				Wrap(err)
		}
		return nil
	})
}

// GetByEmail retrieves a credential by its normalized email.
func (r *CredentialRepository) GetByEmail(ctx context.Context, email auth.Email) (*auth.Credential, error) {
	row := r.db.QueryRow(ctx, selectCredential+`WHERE email = $1`, email.String())
	cred, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CREDENTIAL_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_GET_FAILED").
			With("operation", "get credential by email").
			With("email", email).
			Wrap(err)
	}
	return cred, nil
}

// GetByID retrieves a credential by account id.
func (r *CredentialRepository) GetByID(ctx context.Context, id uuid.UUID) (*auth.Credential, error) {
	row := r.db.QueryRow(ctx, selectCredential+`WHERE id = $1`, id)
	cred, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CREDENTIAL_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_GET_FAILED").
			With("operation", "get credential by id").
			With("id", id.String()).
			Wrap(err)
	}
	return cred, nil
}

// GetBySubject retrieves a credential by subject id.
func (r *CredentialRepository) GetBySubject(ctx context.Context, subject ulid.ULID) (*auth.Credential, error) {
	row := r.db.QueryRow(ctx, selectCredential+`WHERE subject_id = $1`, subject.String())
	cred, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CREDENTIAL_NOT_FOUND").With("subject_id", subject.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_GET_FAILED").
			With("operation", "get credential by subject").
			With("subject_id", subject.String()).
			Wrap(err)
	}
	return cred, nil
}

// SetRefreshTokenHash replaces the stored refresh-token digest.
func (r *CredentialRepository) SetRefreshTokenHash(ctx context.Context, id uuid.UUID, digest string) error {
	return r.update(ctx, "set refresh token", id,
		`UPDATE credentials SET refresh_token_hash = $2, updated_at = now() WHERE id = $1`, digest)
}

// UpdateEmail changes only the email.
func (r *CredentialRepository) UpdateEmail(ctx context.Context, id uuid.UUID, email auth.Email) error {
	err := r.update(ctx, "update email", id,
		`UPDATE credentials SET email = $2, updated_at = now() WHERE id = $1`, email.String())
	if isUniqueViolation(err, emailConstraint) {
		return oops.Code("CREDENTIAL_EMAIL_TAKEN").With("email", email).Wrap(auth.ErrDuplicateEmail)
	}
	return err
}

// UpdatePasswordHash changes only the password hash.
func (r *CredentialRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.update(ctx, "update password hash", id,
		`UPDATE credentials SET password_hash = $2, updated_at = now() WHERE id = $1`, hash)
}

// Delete removes a credential.
func (r *CredentialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return oops.Code("CREDENTIAL_DELETE_FAILED").
			With("operation", "delete credential").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("CREDENTIAL_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

func (r *CredentialRepository) update(ctx context.Context, operation string, id uuid.UUID, sql string, value string) error {
	result, err := r.db.Exec(ctx, sql, id, value)
	if err != nil {
		return oops.Code("CREDENTIAL_UPDATE_FAILED").
			With("operation", operation).
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("CREDENTIAL_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanCredential scans one credential row. pgx.ErrNoRows is returned
// unchanged for callers to wrap.
func scanCredential(row pgx.Row) (*auth.Credential, error) {
	var (
		id         uuid.UUID
		email      string
		hash       string
		subjectStr string
		digest     string
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&id, &email, &hash, &subjectStr, &digest, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, oops.Code("CREDENTIAL_SCAN_FAILED").With("operation", "scan credential").Wrap(err)
	}

	parsedEmail, err := auth.ParseEmail(email)
	if err != nil {
		return nil, oops.Code("CREDENTIAL_INVALID_EMAIL").With("id", id.String()).Wrap(err)
	}
	subject, err := ulid.Parse(subjectStr)
	if err != nil {
		return nil, oops.Code("CREDENTIAL_INVALID_SUBJECT").
			With("id", id.String()).
			With("subject_id", subjectStr).
			Wrap(err)
	}

	return &auth.Credential{
		ID:               id,
		Email:            parsedEmail,
		PasswordHash:     hash,
		SubjectID:        subject,
		RefreshTokenHash: digest,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == constraint
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Compile-time interface check.
var _ auth.CredentialRepository = (*CredentialRepository)(nil)

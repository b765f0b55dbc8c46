// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

// Package postgres implements the community store on PostgreSQL.
package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/spademh/spade/internal/community"
)

// Constraint names from the community migrations.
const (
	profilePKey     = "user_profiles_pkey"
	postAuthorFKey  = "expression_posts_author_fkey"
	replyAuthorFKey = "replies_author_fkey"
	replyParentFKey = "replies_parent_fkey"
	likeAuthorFKey  = "likes_author_fkey"
)

// violation returns the constraint named by a Postgres error with the given
// SQLSTATE, or "" when err is not one.
func violation(err error, code string) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName
	}
	return ""
}

// missingReference maps a foreign key violation on one of the author or
// parent constraints to the matching not-found error.
func missingReference(err error, id ulid.ULID) error {
	switch violation(err, pgerrcode.ForeignKeyViolation) {
	case postAuthorFKey, replyAuthorFKey, likeAuthorFKey:
		return oops.Code(community.CodeProfileNotFound).With("profile_id", id.String()).Wrap(community.ErrNotFound)
	case replyParentFKey:
		return oops.Code(community.CodePostNotFound).With("post_id", id.String()).Wrap(community.ErrNotFound)
	}
	return nil
}

func parseULID(raw, field string) (ulid.ULID, error) {
	id, err := ulid.Parse(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code("COMMUNITY_INVALID_ID").
			With("operation", "parse "+field).
			With(field, raw).
			Wrap(err)
	}
	return id, nil
}

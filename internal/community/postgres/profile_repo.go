// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/spademh/spade/internal/community"
	"github.com/spademh/spade/internal/store"
)

// ProfileRepository implements community.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	db store.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db store.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a profile.
func (r *ProfileRepository) Create(ctx context.Context, p *community.Profile) error {
	err := store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO user_profiles (id, username, avatar)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, p.ID.String(), p.Username, p.Avatar).Scan(&p.CreatedAt)
	if err != nil {
		if violation(err, pgerrcode.UniqueViolation) == profilePKey {
			return oops.Code(community.CodeDuplicateProfile).
				With("profile_id", p.ID.String()).
				Wrap(community.ErrDuplicateProfile)
		}
		return oops.Code("PROFILE_CREATE_FAILED").
			With("operation", "insert profile").
			With("profile_id", p.ID.String()).
			Wrap(err)
	}
	return nil
}

// Get retrieves a profile and the ids of the posts it liked.
func (r *ProfileRepository) Get(ctx context.Context, id ulid.ULID) (*community.Profile, error) {
	var (
		idStr     string
		username  string
		avatar    string
		createdAt time.Time
		likes     []string
	)
	err := store.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT p.id, p.username, p.avatar, p.created_at,
			ARRAY(
				SELECT l.parent_id FROM likes l
				WHERE l.author = p.id
				ORDER BY l.created_at, l.parent_id
			)
		FROM user_profiles p
		WHERE p.id = $1
	`, id.String()).Scan(&idStr, &username, &avatar, &createdAt, &likes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(community.CodeProfileNotFound).With("profile_id", id.String()).Wrap(community.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PROFILE_GET_FAILED").
			With("operation", "get profile").
			With("profile_id", id.String()).
			Wrap(err)
	}

	profile := &community.Profile{
		Username:  username,
		Avatar:    avatar,
		CreatedAt: createdAt,
		Likes:     make([]ulid.ULID, 0, len(likes)),
	}
	if profile.ID, err = parseULID(idStr, "profile_id"); err != nil {
		return nil, err
	}
	for _, raw := range likes {
		liked, err := parseULID(raw, "post_id")
		if err != nil {
			return nil, err
		}
		profile.Likes = append(profile.Likes, liked)
	}
	return profile, nil
}

// Delete removes a profile. Posts and replies by the profile cascade.
func (r *ProfileRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx, `DELETE FROM user_profiles WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("PROFILE_DELETE_FAILED").
			With("operation", "delete profile").
			With("profile_id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(community.CodeProfileNotFound).With("profile_id", id.String()).Wrap(community.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ community.ProfileRepository = (*ProfileRepository)(nil)

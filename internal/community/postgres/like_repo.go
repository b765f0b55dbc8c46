// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package postgres

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/spademh/spade/internal/community"
	"github.com/spademh/spade/internal/store"
)

// LikeRepository implements community.LikeRepository using PostgreSQL.
type LikeRepository struct {
	db store.DB
}

// NewLikeRepository creates a new LikeRepository.
func NewLikeRepository(db store.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Add records a like. Liking twice is a no-op.
func (r *LikeRepository) Add(ctx context.Context, post, author ulid.ULID) error {
	_, err := store.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO likes (parent_id, author) VALUES ($1, $2)
		ON CONFLICT (parent_id, author) DO NOTHING
	`, post.String(), author.String())
	if err != nil {
		if mapped := missingReference(err, author); mapped != nil {
			return mapped
		}
		return oops.Code("LIKE_ADD_FAILED").
			With("operation", "add like").
			With("post_id", post.String()).
			Wrap(err)
	}
	return nil
}

// Remove withdraws a like. Removing a missing like is a no-op.
func (r *LikeRepository) Remove(ctx context.Context, post, author ulid.ULID) error {
	_, err := store.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM likes WHERE parent_id = $1 AND author = $2`, post.String(), author.String())
	if err != nil {
		return oops.Code("LIKE_REMOVE_FAILED").
			With("operation", "remove like").
			With("post_id", post.String()).
			Wrap(err)
	}
	return nil
}

// DeleteByPost removes every like of a post.
func (r *LikeRepository) DeleteByPost(ctx context.Context, post ulid.ULID) error {
	_, err := store.Conn(ctx, r.db).Exec(ctx, `DELETE FROM likes WHERE parent_id = $1`, post.String())
	if err != nil {
		return oops.Code("LIKE_DELETE_FAILED").
			With("operation", "delete post likes").
			With("post_id", post.String()).
			Wrap(err)
	}
	return nil
}

// DeleteByAuthor removes the likes an author gave and those on the author's posts.
func (r *LikeRepository) DeleteByAuthor(ctx context.Context, author ulid.ULID) error {
	_, err := store.Conn(ctx, r.db).Exec(ctx, `
		DELETE FROM likes
		WHERE author = $1
			OR parent_id IN (SELECT id FROM expression_posts WHERE author = $1)
	`, author.String())
	if err != nil {
		return oops.Code("LIKE_DELETE_FAILED").
			With("operation", "delete author likes").
			With("author", author.String()).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ community.LikeRepository = (*LikeRepository)(nil)

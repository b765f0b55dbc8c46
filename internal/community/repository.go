// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package community

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Transactor runs fn in a community-store transaction. Repository calls made
// with the context passed to fn join that transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProfileRepository manages profile persistence.
type ProfileRepository interface {
	// Create inserts p and sets its CreatedAt. Returns an error wrapping
	// ErrDuplicateProfile if the id is taken.
	Create(ctx context.Context, p *Profile) error

	// Get retrieves a profile with its likes. Returns ErrNotFound if absent.
	Get(ctx context.Context, id ulid.ULID) (*Profile, error)

	// Delete removes a profile. Its posts and replies cascade.
	// Returns ErrNotFound if absent.
	Delete(ctx context.Context, id ulid.ULID) error
}

// PostRepository manages expression post persistence.
type PostRepository interface {
	// Create inserts p and sets its timestamps.
	Create(ctx context.Context, p *Post) error

	// Get retrieves a post with its author and like count, without replies.
	// Returns ErrNotFound if absent.
	Get(ctx context.Context, id ulid.ULID) (*Post, error)

	// Exists reports whether the post exists.
	Exists(ctx context.Context, id ulid.ULID) (bool, error)

	// AuthorOf returns the author of a post, locking the row when called
	// inside a transaction. Returns ErrNotFound if absent.
	AuthorOf(ctx context.Context, id ulid.ULID) (ulid.ULID, error)

	// ListSince returns at most limit posts created after since, newest first.
	ListSince(ctx context.Context, since time.Time, limit int) ([]*Post, error)

	// UpdateContent replaces the content and bumps last_modified.
	// Returns ErrNotFound if absent.
	UpdateContent(ctx context.Context, id ulid.ULID, content Content) error

	// Delete removes a post. Its replies cascade.
	// Returns ErrNotFound if absent.
	Delete(ctx context.Context, id ulid.ULID) error
}

// ReplyRepository manages reply persistence.
type ReplyRepository interface {
	// Create inserts r and sets its timestamps. Returns an error wrapping
	// ErrNotFound if the parent post does not exist.
	Create(ctx context.Context, r *Reply) error

	// ListByParent returns the replies of a post, oldest first.
	ListByParent(ctx context.Context, parent ulid.ULID) ([]Reply, error)

	// AuthorOf returns the author of a reply. Returns ErrNotFound if absent.
	AuthorOf(ctx context.Context, id ulid.ULID) (ulid.ULID, error)

	// Delete removes a reply. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id ulid.ULID) error
}

// LikeRepository manages likes. Both Add and Remove are idempotent.
type LikeRepository interface {
	Add(ctx context.Context, post, author ulid.ULID) error
	Remove(ctx context.Context, post, author ulid.ULID) error

	// DeleteByPost removes every like of a post.
	DeleteByPost(ctx context.Context, post ulid.ULID) error

	// DeleteByAuthor removes the likes an author gave and the likes on the
	// author's posts.
	DeleteByAuthor(ctx context.Context, author ulid.ULID) error
}

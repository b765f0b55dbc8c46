// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/spademh/spade/internal/community"
	"github.com/spademh/spade/internal/store"
)

const selectPost = `
	SELECT post.id, post.title, post.subtitle,
		profile.id, profile.username, profile.avatar,
		post.content_type, post.content_value, post.created_at, post.last_modified,
		(SELECT count(*) FROM likes WHERE likes.parent_id = post.id)
	FROM expression_posts AS post
	JOIN user_profiles AS profile ON profile.id = post.author
`

// PostRepository implements community.PostRepository using PostgreSQL.
type PostRepository struct {
	db store.DB
}

// NewPostRepository creates a new PostRepository.
func NewPostRepository(db store.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a post and reads back its timestamps.
func (r *PostRepository) Create(ctx context.Context, p *community.Post) error {
	err := store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO expression_posts (id, title, subtitle, author, content_type, content_value)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, last_modified
	`,
		p.ID.String(),
		p.Title,
		p.Subtitle,
		p.Author.ID.String(),
		p.Content.Kind,
		p.Content.Value,
	).Scan(&p.CreatedAt, &p.LastModified)
	if err != nil {
		if mapped := missingReference(err, p.Author.ID); mapped != nil {
			return mapped
		}
		return oops.Code("POST_CREATE_FAILED").
			With("operation", "insert post").
			With("post_id", p.ID.String()).
			Wrap(err)
	}
	return nil
}

// Get retrieves a post with its author and like count.
func (r *PostRepository) Get(ctx context.Context, id ulid.ULID) (*community.Post, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, selectPost+`WHERE post.id = $1`, id.String())
	post, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(community.CodePostNotFound).With("post_id", id.String()).Wrap(community.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get post").With("post_id", id.String()).Wrap(err)
	}
	return post, nil
}

// Exists reports whether a post exists.
func (r *PostRepository) Exists(ctx context.Context, id ulid.ULID) (bool, error) {
	var exists bool
	err := store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM expression_posts WHERE id = $1)`, id.String(),
	).Scan(&exists)
	if err != nil {
		return false, oops.Code("POST_EXISTS_FAILED").
			With("operation", "check post").
			With("post_id", id.String()).
			Wrap(err)
	}
	return exists, nil
}

// AuthorOf returns the author of a post and locks the row for the rest of
// the surrounding transaction.
func (r *PostRepository) AuthorOf(ctx context.Context, id ulid.ULID) (ulid.ULID, error) {
	var author string
	err := store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT author FROM expression_posts WHERE id = $1 FOR UPDATE`, id.String(),
	).Scan(&author)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, oops.Code(community.CodePostNotFound).With("post_id", id.String()).Wrap(community.ErrNotFound)
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("POST_GET_FAILED").
			With("operation", "get post author").
			With("post_id", id.String()).
			Wrap(err)
	}
	return parseULID(author, "author")
}

// ListSince returns posts created after since, newest first.
func (r *PostRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]*community.Post, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx,
		selectPost+`WHERE post.created_at > $1 ORDER BY post.created_at DESC, post.id DESC LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, oops.Code("POST_LIST_FAILED").With("operation", "list posts").Wrap(err)
	}
	defer rows.Close()

	posts := make([]*community.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, oops.With("operation", "list posts").Wrap(err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("POST_LIST_FAILED").With("operation", "iterate posts").Wrap(err)
	}
	return posts, nil
}

// UpdateContent replaces the content of a post.
func (r *PostRepository) UpdateContent(ctx context.Context, id ulid.ULID, content community.Content) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx, `
		UPDATE expression_posts
		SET content_type = $2, content_value = $3, last_modified = now()
		WHERE id = $1
	`, id.String(), content.Kind, content.Value)
	if err != nil {
		return oops.Code("POST_UPDATE_FAILED").
			With("operation", "update post content").
			With("post_id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(community.CodePostNotFound).With("post_id", id.String()).Wrap(community.ErrNotFound)
	}
	return nil
}

// Delete removes a post. Its replies cascade.
func (r *PostRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx, `DELETE FROM expression_posts WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("POST_DELETE_FAILED").
			With("operation", "delete post").
			With("post_id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(community.CodePostNotFound).With("post_id", id.String()).Wrap(community.ErrNotFound)
	}
	return nil
}

// scanPost scans one row of selectPost. pgx.ErrNoRows is returned unchanged.
func scanPost(row pgx.Row) (*community.Post, error) {
	var (
		idStr, authorStr string
		likes            int64
		post             community.Post
	)
	err := row.Scan(
		&idStr, &post.Title, &post.Subtitle,
		&authorStr, &post.Author.Username, &post.Author.Avatar,
		&post.Content.Kind, &post.Content.Value, &post.CreatedAt, &post.LastModified,
		&likes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, oops.Code("POST_SCAN_FAILED").With("operation", "scan post").Wrap(err)
	}

	if post.ID, err = parseULID(idStr, "post_id"); err != nil {
		return nil, err
	}
	if post.Author.ID, err = parseULID(authorStr, "author"); err != nil {
		return nil, err
	}
	post.Likes = int(likes)
	post.Replies = []community.Reply{}
	return &post, nil
}

// Compile-time interface check.
var _ community.PostRepository = (*PostRepository)(nil)

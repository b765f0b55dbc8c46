// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/spademh/spade/internal/community"
	"github.com/spademh/spade/internal/store"
)

// ReplyRepository implements community.ReplyRepository using PostgreSQL.
type ReplyRepository struct {
	db store.DB
}

// NewReplyRepository creates a new ReplyRepository.
func NewReplyRepository(db store.DB) *ReplyRepository {
	return &ReplyRepository{db: db}
}

// Create inserts a reply and reads back its timestamps.
func (r *ReplyRepository) Create(ctx context.Context, reply *community.Reply) error {
	err := store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO replies (id, author, parent, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, last_modified
	`,
		reply.ID.String(),
		reply.Author.ID.String(),
		reply.Parent.String(),
		reply.Content,
	).Scan(&reply.CreatedAt, &reply.LastModified)
	if err != nil {
		ref := reply.Author.ID
		if violation(err, pgerrcode.ForeignKeyViolation) == replyParentFKey {
			ref = reply.Parent
		}
		if mapped := missingReference(err, ref); mapped != nil {
			return mapped
		}
		return oops.Code("REPLY_CREATE_FAILED").
			With("operation", "insert reply").
			With("reply_id", reply.ID.String()).
			Wrap(err)
	}
	return nil
}

// ListByParent returns the replies of a post, oldest first.
func (r *ReplyRepository) ListByParent(ctx context.Context, parent ulid.ULID) ([]community.Reply, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx, `
		SELECT reply.id, profile.id, profile.username, profile.avatar,
			reply.content, reply.created_at, reply.last_modified
		FROM replies AS reply
		JOIN user_profiles AS profile ON profile.id = reply.author
		WHERE reply.parent = $1
		ORDER BY reply.created_at, reply.id
	`, parent.String())
	if err != nil {
		return nil, oops.Code("REPLY_LIST_FAILED").
			With("operation", "list replies").
			With("post_id", parent.String()).
			Wrap(err)
	}
	defer rows.Close()

	replies := make([]community.Reply, 0)
	for rows.Next() {
		var (
			idStr, authorStr string
			reply            = community.Reply{Parent: parent}
		)
		if err := rows.Scan(
			&idStr, &authorStr, &reply.Author.Username, &reply.Author.Avatar,
			&reply.Content, &reply.CreatedAt, &reply.LastModified,
		); err != nil {
			return nil, oops.Code("REPLY_SCAN_FAILED").With("operation", "scan reply").Wrap(err)
		}
		if reply.ID, err = parseULID(idStr, "reply_id"); err != nil {
			return nil, err
		}
		if reply.Author.ID, err = parseULID(authorStr, "author"); err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("REPLY_LIST_FAILED").With("operation", "iterate replies").Wrap(err)
	}
	return replies, nil
}

// AuthorOf returns the author of a reply.
func (r *ReplyRepository) AuthorOf(ctx context.Context, id ulid.ULID) (ulid.ULID, error) {
	var author string
	err := store.Conn(ctx, r.db).QueryRow(ctx, `SELECT author FROM replies WHERE id = $1`, id.String()).Scan(&author)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, oops.Code(community.CodeReplyNotFound).With("reply_id", id.String()).Wrap(community.ErrNotFound)
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("REPLY_GET_FAILED").
			With("operation", "get reply author").
			With("reply_id", id.String()).
			Wrap(err)
	}
	return parseULID(author, "author")
}

// Delete removes a reply.
func (r *ReplyRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx, `DELETE FROM replies WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("REPLY_DELETE_FAILED").
			With("operation", "delete reply").
			With("reply_id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(community.CodeReplyNotFound).With("reply_id", id.String()).Wrap(community.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ community.ReplyRepository = (*ReplyRepository)(nil)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package community

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Author is the public view of a profile embedded in posts and replies.
type Author struct {
	ID       ulid.ULID `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
}

// Profile is the community record of an account.
type Profile struct {
	ID       ulid.ULID `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	// Likes holds the ids of the posts this profile liked, oldest first.
	Likes     []ulid.ULID `json:"likes"`
	CreatedAt time.Time   `json:"created_at"`
}

// Author returns the embedded form of the profile.
func (p *Profile) Author() Author {
	return Author{ID: p.ID, Username: p.Username, Avatar: p.Avatar}
}

// Content is the typed body of an expression post. Kind is opaque to the
// server; clients use it to pick a renderer.
type Content struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Post is an expression post.
type Post struct {
	ID       ulid.ULID `json:"id"`
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle,omitempty"`
	Author   Author    `json:"author"`
	Content  Content   `json:"content"`
	// Replies is only populated by Service.GetPost.
	Replies      []Reply   `json:"replies"`
	Likes        int       `json:"likes"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// Reply is a comment on a post.
type Reply struct {
	ID           ulid.ULID `json:"id"`
	Parent       ulid.ULID `json:"parent"`
	Author       Author    `json:"author"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

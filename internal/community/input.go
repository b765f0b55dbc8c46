// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package community

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/oklog/ulid/v2"
)

// Field limits.
const (
	MaxUsernameLen     = 64
	MaxAvatarLen       = 2048
	MaxTitleLen        = 200
	MaxSubtitleLen     = 300
	MaxContentKindLen  = 32
	MaxContentValueLen = 20000
	MaxReplyLen        = 5000
)

// NewProfile is the input of Service.CreateProfile.
type NewProfile struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Validate checks the profile fields.
func (p NewProfile) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(1, MaxUsernameLen)),
		validation.Field(&p.Avatar, validation.Length(0, MaxAvatarLen)),
	)
}

// Validate checks the content kind and value.
func (c Content) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Kind, validation.Required, validation.Length(1, MaxContentKindLen)),
		validation.Field(&c.Value, validation.Required, validation.Length(1, MaxContentValueLen)),
	)
}

// NewPost is the input of Service.CreatePost.
type NewPost struct {
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
	Content  Content `json:"content"`
}

// Validate checks the post fields, including the nested content.
func (p NewPost) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, MaxTitleLen)),
		validation.Field(&p.Subtitle, validation.Length(0, MaxSubtitleLen)),
		validation.Field(&p.Content),
	)
}

// NewReply is the input of Service.AddReply.
type NewReply struct {
	Parent  ulid.ULID `json:"parent"`
	Content string    `json:"content"`
}

// Validate checks the reply body.
func (r NewReply) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, MaxReplyLen)),
	)
}

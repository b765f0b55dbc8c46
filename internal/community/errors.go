// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package community

import (
	"errors"

	"github.com/samber/oops"

	"github.com/spademh/spade/internal/auth"
)

// ErrNotFound is wrapped by repositories when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateProfile is wrapped by repositories when a profile id is taken.
var ErrDuplicateProfile = errors.New("profile already exists")

// Error codes surfaced to callers.
const (
	CodeProfileNotFound = "COMMUNITY_PROFILE_NOT_FOUND"
	CodePostNotFound    = "COMMUNITY_POST_NOT_FOUND"
	CodeReplyNotFound   = "COMMUNITY_REPLY_NOT_FOUND"
	CodeInvalidInput    = "COMMUNITY_INVALID_INPUT"
	CodeNotAuthor       = "COMMUNITY_NOT_AUTHOR"
	// CodeDuplicateProfile stays a server fault: profile ids are fresh
	// subject ids, so a collision is never the caller's doing.
	CodeDuplicateProfile = "COMMUNITY_DUPLICATE_PROFILE"
)

func init() {
	auth.RegisterCode(CodeProfileNotFound, auth.KindNotFound)
	auth.RegisterCode(CodePostNotFound, auth.KindNotFound)
	auth.RegisterCode(CodeReplyNotFound, auth.KindNotFound)
	auth.RegisterCode(CodeInvalidInput, auth.KindValidation)
	auth.RegisterCode(CodeNotAuthor, auth.KindForbidden)
}

func errInvalidInput(err error) error {
	return oops.Code(CodeInvalidInput).With("fields", err.Error()).Wrap(err)
}

func errNotAuthor(resource string) error {
	return oops.Code(CodeNotAuthor).With("resource", resource).Errorf("only the author can modify this %s", resource)
}

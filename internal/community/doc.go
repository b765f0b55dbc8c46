// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

// Package community serves the user-generated content of spade: profiles,
// expression posts, replies and likes.
//
// Profiles are keyed by the subject id of the account that owns them. The
// auth package creates and removes them through Provisioner; every other
// operation takes a subject already resolved by the session transport.
//
// Deletes that span several tables run in one community-store transaction.
// Replies and posts also cascade at the schema level; likes have no foreign
// key on their parent and are removed explicitly.
package community

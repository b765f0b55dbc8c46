// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package community_test

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/spademh/spade/internal/community"
)

type mockProfileRepository struct {
	mock.Mock
}

func (m *mockProfileRepository) Create(ctx context.Context, p *community.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProfileRepository) Get(ctx context.Context, id ulid.ULID) (*community.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*community.Profile), args.Error(1)
}

func (m *mockProfileRepository) Delete(ctx context.Context, id ulid.ULID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockPostRepository struct {
	mock.Mock
}

func (m *mockPostRepository) Create(ctx context.Context, p *community.Post) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPostRepository) Get(ctx context.Context, id ulid.ULID) (*community.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*community.Post), args.Error(1)
}

func (m *mockPostRepository) Exists(ctx context.Context, id ulid.ULID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockPostRepository) AuthorOf(ctx context.Context, id ulid.ULID) (ulid.ULID, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(ulid.ULID), args.Error(1)
}

func (m *mockPostRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]*community.Post, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*community.Post), args.Error(1)
}

func (m *mockPostRepository) UpdateContent(ctx context.Context, id ulid.ULID, content community.Content) error {
	args := m.Called(ctx, id, content)
	return args.Error(0)
}

func (m *mockPostRepository) Delete(ctx context.Context, id ulid.ULID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockReplyRepository struct {
	mock.Mock
}

func (m *mockReplyRepository) Create(ctx context.Context, r *community.Reply) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *mockReplyRepository) ListByParent(ctx context.Context, parent ulid.ULID) ([]community.Reply, error) {
	args := m.Called(ctx, parent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]community.Reply), args.Error(1)
}

func (m *mockReplyRepository) AuthorOf(ctx context.Context, id ulid.ULID) (ulid.ULID, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(ulid.ULID), args.Error(1)
}

func (m *mockReplyRepository) Delete(ctx context.Context, id ulid.ULID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockLikeRepository struct {
	mock.Mock
}

func (m *mockLikeRepository) Add(ctx context.Context, post, author ulid.ULID) error {
	args := m.Called(ctx, post, author)
	return args.Error(0)
}

func (m *mockLikeRepository) Remove(ctx context.Context, post, author ulid.ULID) error {
	args := m.Called(ctx, post, author)
	return args.Error(0)
}

func (m *mockLikeRepository) DeleteByPost(ctx context.Context, post ulid.ULID) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *mockLikeRepository) DeleteByAuthor(ctx context.Context, author ulid.ULID) error {
	args := m.Called(ctx, author)
	return args.Error(0)
}

// txKey marks contexts handed out by fakeTransactor.
type txKey struct{}

// fakeTransactor runs fn inline and counts calls. A repository expectation
// matched with inTx only fires inside a transaction.
type fakeTransactor struct {
	calls int
	err   error
}

func (f *fakeTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(context.WithValue(ctx, txKey{}, true))
}

var inTx = mock.MatchedBy(func(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
})

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package httpapi

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/spademh/spade/internal/auth"
	"github.com/spademh/spade/internal/community"
)

type mockAuth struct {
	mock.Mock
}

func (m *mockAuth) Register(ctx context.Context, reg auth.Registration) (*auth.Tokens, error) {
	args := m.Called(ctx, reg)
	if tokens := args.Get(0); tokens != nil {
		return tokens.(*auth.Tokens), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (*auth.Tokens, error) {
	args := m.Called(ctx, email, password)
	if tokens := args.Get(0); tokens != nil {
		return tokens.(*auth.Tokens), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuth) Logout(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

func (m *mockAuth) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *mockAuth) UpdateEmail(ctx context.Context, accessToken, email string) error {
	return m.Called(ctx, accessToken, email).Error(0)
}

func (m *mockAuth) UpdatePassword(ctx context.Context, accessToken, password string) error {
	return m.Called(ctx, accessToken, password).Error(0)
}

func (m *mockAuth) Delete(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

func (m *mockAuth) Authenticate(ctx context.Context, accessToken string) (ulid.ULID, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(ulid.ULID), args.Error(1)
}

func (m *mockAuth) AccessTTL() int  { return 86400 }
func (m *mockAuth) RefreshTTL() int { return 1209600 }

type mockCommunity struct {
	mock.Mock
}

func (m *mockCommunity) GetProfile(ctx context.Context, id ulid.ULID) (*community.Profile, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*community.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCommunity) CreatePost(ctx context.Context, author ulid.ULID, in community.NewPost) (*community.Post, error) {
	args := m.Called(ctx, author, in)
	if p := args.Get(0); p != nil {
		return p.(*community.Post), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCommunity) GetPost(ctx context.Context, id ulid.ULID) (*community.Post, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*community.Post), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCommunity) RecentPosts(ctx context.Context, limit int) ([]*community.Post, error) {
	args := m.Called(ctx, limit)
	if p := args.Get(0); p != nil {
		return p.([]*community.Post), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCommunity) UpdatePostContent(ctx context.Context, author, id ulid.ULID, content community.Content) (*community.Post, error) {
	args := m.Called(ctx, author, id, content)
	if p := args.Get(0); p != nil {
		return p.(*community.Post), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCommunity) DeletePost(ctx context.Context, author, id ulid.ULID) error {
	return m.Called(ctx, author, id).Error(0)
}

func (m *mockCommunity) SetLike(ctx context.Context, author, post ulid.ULID, liked bool) error {
	return m.Called(ctx, author, post, liked).Error(0)
}

func (m *mockCommunity) AddReply(ctx context.Context, author ulid.ULID, in community.NewReply) (*community.Reply, error) {
	args := m.Called(ctx, author, in)
	if r := args.Get(0); r != nil {
		return r.(*community.Reply), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCommunity) DeleteReply(ctx context.Context, author, id ulid.ULID) error {
	return m.Called(ctx, author, id).Error(0)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

// Package httpapi is the session transport of spade: a JSON API over chi
// that carries tokens in the sat (access) and srt (refresh) cookies.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/spademh/spade/internal/auth"
	"github.com/spademh/spade/internal/community"
	"github.com/spademh/spade/internal/observability"
)

// AuthService is the account surface the transport drives.
type AuthService interface {
	Register(ctx context.Context, reg auth.Registration) (*auth.Tokens, error)
	Login(ctx context.Context, email, password string) (*auth.Tokens, error)
	Logout(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	UpdateEmail(ctx context.Context, accessToken, email string) error
	UpdatePassword(ctx context.Context, accessToken, password string) error
	Delete(ctx context.Context, accessToken string) error
	Authenticate(ctx context.Context, accessToken string) (ulid.ULID, error)
	AccessTTL() int
	RefreshTTL() int
}

// CommunityService is the content surface the transport drives.
type CommunityService interface {
	GetProfile(ctx context.Context, id ulid.ULID) (*community.Profile, error)
	CreatePost(ctx context.Context, author ulid.ULID, in community.NewPost) (*community.Post, error)
	GetPost(ctx context.Context, id ulid.ULID) (*community.Post, error)
	RecentPosts(ctx context.Context, limit int) ([]*community.Post, error)
	UpdatePostContent(ctx context.Context, author, id ulid.ULID, content community.Content) (*community.Post, error)
	DeletePost(ctx context.Context, author, id ulid.ULID) error
	SetLike(ctx context.Context, author, post ulid.ULID, liked bool) error
	AddReply(ctx context.Context, author ulid.ULID, in community.NewReply) (*community.Reply, error)
	DeleteReply(ctx context.Context, author, id ulid.ULID) error
}

var (
	_ AuthService      = (*auth.Service)(nil)
	_ CommunityService = (*community.Service)(nil)
)

// Options configure an API.
type Options struct {
	// CookieSecure marks session cookies Secure. Enable behind TLS.
	CookieSecure bool
	// RequestTimeout bounds each request. Zero disables the timeout.
	RequestTimeout time.Duration
	// Metrics records request counts and latency when set.
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// API serves the auth and community endpoints.
type API struct {
	auth      AuthService
	community CommunityService
	opts      Options
	logger    *slog.Logger
}

// New creates an API.
func New(authSvc AuthService, communitySvc CommunityService, opts Options) (*API, error) {
	if authSvc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if communitySvc == nil {
		return nil, oops.Errorf("community service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &API{auth: authSvc, community: communitySvc, opts: opts, logger: logger}, nil
}

// Handler returns the routed handler.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.observe)
	r.Use(middleware.Recoverer)
	if a.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(a.opts.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Success: false, Message: "method not allowed"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", a.register)
		r.Post("/login", a.login)
		r.Post("/logout", a.logout)
		r.Post("/refresh", a.refresh)
		r.Put("/email", a.updateEmail)
		r.Put("/password", a.updatePassword)
		r.Delete("/account", a.deleteAccount)
	})

	r.Route("/community", func(r chi.Router) {
		r.Get("/posts/recent", a.recentPosts)
		r.Get("/posts/{id}", a.getPost)

		r.Group(func(r chi.Router) {
			r.Use(a.requireSubject)
			r.Get("/profile", a.getProfile)
			r.Post("/posts", a.createPost)
			r.Put("/posts/{id}", a.updatePost)
			r.Delete("/posts/{id}", a.deletePost)
			r.Put("/posts/{id}/like", a.like)
			r.Delete("/posts/{id}/like", a.unlike)
			r.Post("/posts/{id}/replies", a.addReply)
			r.Delete("/replies/{id}", a.deleteReply)
		})
	})

	return r
}

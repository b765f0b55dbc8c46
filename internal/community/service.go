// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package community

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/spademh/spade/internal/auth"
)

var tracer = otel.Tracer("spade/community")

// Recent post window and limits.
const (
	RecentWindow       = 7 * 24 * time.Hour
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

// Repositories groups the stores a Service depends on.
type Repositories struct {
	Profiles ProfileRepository
	Posts    PostRepository
	Replies  ReplyRepository
	Likes    LikeRepository
	Tx       Transactor
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRecentLimit sets the limit RecentPosts applies when the caller gives none.
func WithRecentLimit(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.recentLimit = min(n, MaxRecentLimit)
		}
	}
}

// WithClock overrides the clock used for the recent post window.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides post and reply id generation.
func WithIDGenerator(newID func() ulid.ULID) ServiceOption {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// Service implements the community operations. Callers pass the subject of
// an already authenticated account.
type Service struct {
	profiles ProfileRepository
	posts    PostRepository
	replies  ReplyRepository
	likes    LikeRepository
	tx       Transactor
	logger   *slog.Logger

	recentLimit int
	now         func() time.Time
	newID       func() ulid.ULID
}

// NewService creates a Service that logs to slog.Default().
func NewService(repos Repositories, opts ...ServiceOption) (*Service, error) {
	return NewServiceWithLogger(repos, slog.Default(), opts...)
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(repos Repositories, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	switch {
	case repos.Profiles == nil:
		return nil, oops.Errorf("profile repository is required")
	case repos.Posts == nil:
		return nil, oops.Errorf("post repository is required")
	case repos.Replies == nil:
		return nil, oops.Errorf("reply repository is required")
	case repos.Likes == nil:
		return nil, oops.Errorf("like repository is required")
	case repos.Tx == nil:
		return nil, oops.Errorf("transactor is required")
	case logger == nil:
		return nil, oops.Errorf("logger is required")
	}

	s := &Service{
		profiles:    repos.Profiles,
		posts:       repos.Posts,
		replies:     repos.Replies,
		likes:       repos.Likes,
		tx:          repos.Tx,
		logger:      logger,
		recentLimit: DefaultRecentLimit,
		now:         time.Now,
		newID:       ulid.Make,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateProfile creates the profile keyed by id.
func (s *Service) CreateProfile(ctx context.Context, id ulid.ULID, in NewProfile) (profile *Profile, err error) {
	ctx, span := tracer.Start(ctx, "community.CreateProfile")
	defer func() { finish(span, err) }()

	if err := in.Validate(); err != nil {
		return nil, errInvalidInput(err)
	}

	profile = &Profile{ID: id, Username: in.Username, Avatar: in.Avatar, Likes: []ulid.ULID{}}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, oops.With("operation", "create profile").With("profile_id", id.String()).Wrap(err)
	}
	s.logger.InfoContext(ctx, "profile created", "profile_id", id.String())
	return profile, nil
}

// GetProfile returns a profile with its likes.
func (s *Service) GetProfile(ctx context.Context, id ulid.ULID) (profile *Profile, err error) {
	ctx, span := tracer.Start(ctx, "community.GetProfile")
	defer func() { finish(span, err) }()

	profile, err = s.profiles.Get(ctx, id)
	if err != nil {
		return nil, oops.With("operation", "get profile").Wrap(err)
	}
	return profile, nil
}

// DeleteProfile removes a profile together with its posts, replies and every
// like it gave or received, in one transaction.
func (s *Service) DeleteProfile(ctx context.Context, id ulid.ULID) (err error) {
	ctx, span := tracer.Start(ctx, "community.DeleteProfile")
	defer func() { finish(span, err) }()

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.likes.DeleteByAuthor(ctx, id); err != nil {
			return oops.With("operation", "delete likes").Wrap(err)
		}
		if err := s.profiles.Delete(ctx, id); err != nil {
			return oops.With("operation", "delete profile").Wrap(err)
		}
		return nil
	})
	if err != nil {
		return oops.With("profile_id", id.String()).Wrap(err)
	}
	s.logger.InfoContext(ctx, "profile deleted", "profile_id", id.String())
	return nil
}

// CreatePost publishes a post by author. The author must have a profile.
func (s *Service) CreatePost(ctx context.Context, author ulid.ULID, in NewPost) (post *Post, err error) {
	ctx, span := tracer.Start(ctx, "community.CreatePost")
	defer func() { finish(span, err) }()

	if err := in.Validate(); err != nil {
		return nil, errInvalidInput(err)
	}

	profile, err := s.profiles.Get(ctx, author)
	if err != nil {
		return nil, oops.With("operation", "get author").Wrap(err)
	}

	post = &Post{
		ID:       s.newID(),
		Title:    in.Title,
		Subtitle: in.Subtitle,
		Author:   profile.Author(),
		Content:  in.Content,
		Replies:  []Reply{},
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, oops.With("operation", "create post").With("author", author.String()).Wrap(err)
	}
	s.logger.InfoContext(ctx, "post created", "post_id", post.ID.String(), "author", author.String())
	return post, nil
}

// GetPost returns a post with its replies and like count.
func (s *Service) GetPost(ctx context.Context, id ulid.ULID) (post *Post, err error) {
	ctx, span := tracer.Start(ctx, "community.GetPost")
	defer func() { finish(span, err) }()

	post, err = s.posts.Get(ctx, id)
	if err != nil {
		return nil, oops.With("operation", "get post").Wrap(err)
	}
	replies, err := s.replies.ListByParent(ctx, id)
	if err != nil {
		return nil, oops.With("operation", "list replies").With("post_id", id.String()).Wrap(err)
	}
	post.Replies = replies
	return post, nil
}

// RecentPosts returns posts from the last seven days, newest first. A limit
// of zero or less selects the configured default; larger limits are capped.
func (s *Service) RecentPosts(ctx context.Context, limit int) (posts []*Post, err error) {
	ctx, span := tracer.Start(ctx, "community.RecentPosts")
	defer func() { finish(span, err) }()

	limit = s.clampLimit(limit)
	span.SetAttributes(attribute.Int("limit", limit))

	posts, err = s.posts.ListSince(ctx, s.now().Add(-RecentWindow), limit)
	if err != nil {
		return nil, oops.With("operation", "list recent posts").With("limit", limit).Wrap(err)
	}
	return posts, nil
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.recentLimit
	}
	return min(limit, MaxRecentLimit)
}

// UpdatePostContent replaces the content of a post owned by author.
func (s *Service) UpdatePostContent(ctx context.Context, author, id ulid.ULID, content Content) (post *Post, err error) {
	ctx, span := tracer.Start(ctx, "community.UpdatePostContent")
	defer func() { finish(span, err) }()

	if err := content.Validate(); err != nil {
		return nil, errInvalidInput(err)
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.requirePostAuthor(ctx, author, id); err != nil {
			return err
		}
		return s.posts.UpdateContent(ctx, id, content)
	})
	if err != nil {
		return nil, oops.With("operation", "update post content").With("post_id", id.String()).Wrap(err)
	}
	return s.GetPost(ctx, id)
}

// DeletePost removes a post owned by author with its replies and likes.
func (s *Service) DeletePost(ctx context.Context, author, id ulid.ULID) (err error) {
	ctx, span := tracer.Start(ctx, "community.DeletePost")
	defer func() { finish(span, err) }()

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.requirePostAuthor(ctx, author, id); err != nil {
			return err
		}
		if err := s.likes.DeleteByPost(ctx, id); err != nil {
			return oops.With("operation", "delete likes").Wrap(err)
		}
		return s.posts.Delete(ctx, id)
	})
	if err != nil {
		return oops.With("operation", "delete post").With("post_id", id.String()).Wrap(err)
	}
	s.logger.InfoContext(ctx, "post deleted", "post_id", id.String())
	return nil
}

func (s *Service) requirePostAuthor(ctx context.Context, author, id ulid.ULID) error {
	owner, err := s.posts.AuthorOf(ctx, id)
	if err != nil {
		return err
	}
	if owner != author {
		return errNotAuthor("post")
	}
	return nil
}

// SetLike records or withdraws author's like of a post. Repeating either
// is a no-op.
func (s *Service) SetLike(ctx context.Context, author, post ulid.ULID, liked bool) (err error) {
	ctx, span := tracer.Start(ctx, "community.SetLike")
	defer func() { finish(span, err) }()
	span.SetAttributes(attribute.Bool("liked", liked))

	if !liked {
		if err := s.likes.Remove(ctx, post, author); err != nil {
			return oops.With("operation", "remove like").With("post_id", post.String()).Wrap(err)
		}
		return nil
	}

	exists, err := s.posts.Exists(ctx, post)
	if err != nil {
		return oops.With("operation", "check post").With("post_id", post.String()).Wrap(err)
	}
	if !exists {
		return oops.Code(CodePostNotFound).With("post_id", post.String()).Wrap(ErrNotFound)
	}
	if err := s.likes.Add(ctx, post, author); err != nil {
		return oops.With("operation", "add like").With("post_id", post.String()).Wrap(err)
	}
	return nil
}

// AddReply adds author's reply to a post.
func (s *Service) AddReply(ctx context.Context, author ulid.ULID, in NewReply) (reply *Reply, err error) {
	ctx, span := tracer.Start(ctx, "community.AddReply")
	defer func() { finish(span, err) }()

	if err := in.Validate(); err != nil {
		return nil, errInvalidInput(err)
	}

	profile, err := s.profiles.Get(ctx, author)
	if err != nil {
		return nil, oops.With("operation", "get author").Wrap(err)
	}

	reply = &Reply{
		ID:      s.newID(),
		Parent:  in.Parent,
		Author:  profile.Author(),
		Content: in.Content,
	}
	if err := s.replies.Create(ctx, reply); err != nil {
		return nil, oops.With("operation", "create reply").With("post_id", in.Parent.String()).Wrap(err)
	}
	return reply, nil
}

// DeleteReply removes a reply owned by author.
func (s *Service) DeleteReply(ctx context.Context, author, id ulid.ULID) (err error) {
	ctx, span := tracer.Start(ctx, "community.DeleteReply")
	defer func() { finish(span, err) }()

	owner, err := s.replies.AuthorOf(ctx, id)
	if err != nil {
		return oops.With("operation", "get reply author").Wrap(err)
	}
	if owner != author {
		return errNotAuthor("reply")
	}
	if err := s.replies.Delete(ctx, id); err != nil {
		return oops.With("operation", "delete reply").With("reply_id", id.String()).Wrap(err)
	}
	return nil
}

func finish(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, auth.KindOf(err).String())
	}
	span.End()
}

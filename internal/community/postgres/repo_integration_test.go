// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

//go:build integration

package postgres_test

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/spademh/spade/internal/community"
	"github.com/spademh/spade/internal/community/postgres"
	"github.com/spademh/spade/internal/store"
)

var _ = Describe("community store", func() {
	var (
		ctx context.Context
		svc *community.Service
	)

	count := func(table string) int {
		var n int
		Expect(pool.QueryRow(ctx, `SELECT count(*) FROM `+table).Scan(&n)).To(Succeed())
		return n
	}

	BeforeEach(func() {
		ctx = context.Background()
		_, err := pool.Exec(ctx, `TRUNCATE likes, replies, expression_posts, user_profiles`)
		Expect(err).NotTo(HaveOccurred())

		svc, err = community.NewServiceWithLogger(community.Repositories{
			Profiles: postgres.NewProfileRepository(pool),
			Posts:    postgres.NewPostRepository(pool),
			Replies:  postgres.NewReplyRepository(pool),
			Likes:    postgres.NewLikeRepository(pool),
			Tx:       store.NewTransactor(pool),
		}, slog.New(slog.DiscardHandler))
		Expect(err).NotTo(HaveOccurred())
	})

	newProfile := func(name string) ulid.ULID {
		id := ulid.Make()
		_, err := svc.CreateProfile(ctx, id, community.NewProfile{Username: name})
		Expect(err).NotTo(HaveOccurred())
		return id
	}

	newPost := func(author ulid.ULID, title string) *community.Post {
		post, err := svc.CreatePost(ctx, author, community.NewPost{
			Title:   title,
			Content: community.Content{Kind: "text", Value: "body"},
		})
		Expect(err).NotTo(HaveOccurred())
		return post
	}

	It("rejects a second profile with the same id", func() {
		id := newProfile("sam")
		_, err := svc.CreateProfile(ctx, id, community.NewProfile{Username: "sam"})
		Expect(err).To(MatchError(community.ErrDuplicateProfile))
	})

	It("tracks likes idempotently", func() {
		author := newProfile("author")
		fan := newProfile("fan")
		post := newPost(author, "liked")

		Expect(svc.SetLike(ctx, fan, post.ID, true)).To(Succeed())
		Expect(svc.SetLike(ctx, fan, post.ID, true)).To(Succeed())

		got, err := svc.GetPost(ctx, post.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Likes).To(Equal(1))

		profile, err := svc.GetProfile(ctx, fan)
		Expect(err).NotTo(HaveOccurred())
		Expect(profile.Likes).To(ConsistOf(post.ID))

		Expect(svc.SetLike(ctx, fan, post.ID, false)).To(Succeed())
		Expect(svc.SetLike(ctx, fan, post.ID, false)).To(Succeed())
		Expect(count("likes")).To(BeZero())
	})

	It("returns replies with their post", func() {
		author := newProfile("author")
		post := newPost(author, "thread")

		_, err := svc.AddReply(ctx, author, community.NewReply{Parent: post.ID, Content: "first"})
		Expect(err).NotTo(HaveOccurred())
		_, err = svc.AddReply(ctx, author, community.NewReply{Parent: post.ID, Content: "second"})
		Expect(err).NotTo(HaveOccurred())

		got, err := svc.GetPost(ctx, post.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Replies).To(HaveLen(2))
		Expect(got.Replies[0].Content).To(Equal("first"))

		_, err = svc.AddReply(ctx, author, community.NewReply{Parent: ulid.Make(), Content: "orphan"})
		Expect(err).To(MatchError(community.ErrNotFound))
	})

	It("lists recent posts newest first", func() {
		author := newProfile("author")
		older := newPost(author, "older")
		newer := newPost(author, "newer")
		_, err := pool.Exec(ctx, `UPDATE expression_posts SET created_at = now() - interval '1 hour' WHERE id = $1`, older.ID.String())
		Expect(err).NotTo(HaveOccurred())
		stale := newPost(author, "stale")
		_, err = pool.Exec(ctx, `UPDATE expression_posts SET created_at = now() - interval '8 days' WHERE id = $1`, stale.ID.String())
		Expect(err).NotTo(HaveOccurred())

		posts, err := svc.RecentPosts(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(posts).To(HaveLen(2))
		Expect(posts[0].ID).To(Equal(newer.ID))
		Expect(posts[1].ID).To(Equal(older.ID))
	})

	It("lets only the author edit or delete a post", func() {
		author := newProfile("author")
		other := newProfile("other")
		post := newPost(author, "mine")

		_, err := svc.UpdatePostContent(ctx, other, post.ID, community.Content{Kind: "text", Value: "hijack"})
		Expect(err).To(HaveOccurred())

		time.Sleep(10 * time.Millisecond)
		updated, err := svc.UpdatePostContent(ctx, author, post.ID, community.Content{Kind: "text", Value: "edited"})
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Content.Value).To(Equal("edited"))
		Expect(updated.LastModified).To(BeTemporally(">", post.LastModified))

		Expect(svc.SetLike(ctx, other, post.ID, true)).To(Succeed())
		_, err = svc.AddReply(ctx, other, community.NewReply{Parent: post.ID, Content: "nice"})
		Expect(err).NotTo(HaveOccurred())

		Expect(svc.DeletePost(ctx, other, post.ID)).NotTo(Succeed())
		Expect(svc.DeletePost(ctx, author, post.ID)).To(Succeed())
		Expect(count("expression_posts")).To(BeZero())
		Expect(count("replies")).To(BeZero())
		Expect(count("likes")).To(BeZero())
	})

	It("deletes a profile with everything attached to it", func() {
		author := newProfile("author")
		fan := newProfile("fan")
		post := newPost(author, "soon gone")
		fanPost := newPost(fan, "stays")

		Expect(svc.SetLike(ctx, fan, post.ID, true)).To(Succeed())
		Expect(svc.SetLike(ctx, author, fanPost.ID, true)).To(Succeed())
		_, err := svc.AddReply(ctx, author, community.NewReply{Parent: fanPost.ID, Content: "reply"})
		Expect(err).NotTo(HaveOccurred())

		Expect(svc.DeleteProfile(ctx, author)).To(Succeed())

		Expect(count("user_profiles")).To(Equal(1))
		Expect(count("expression_posts")).To(Equal(1))
		Expect(count("replies")).To(BeZero())
		Expect(count("likes")).To(BeZero())

		Expect(svc.DeleteProfile(ctx, author)).To(MatchError(community.ErrNotFound))
	})
})

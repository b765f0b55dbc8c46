// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/samber/oops"

	"github.com/spademh/spade/internal/community"
)

type replyRequest struct {
	Content string `json:"content"`
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := a.community.GetProfile(r.Context(), subjectFrom(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, profile)
}

func (a *API) recentPosts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			a.fail(w, r, oops.Code(community.CodeInvalidInput).With("limit", raw).Wrap(err))
			return
		}
		limit = n
	}
	posts, err := a.community.RecentPosts(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, posts)
}

func (a *API) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	post, err := a.community.GetPost(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, post)
}

func (a *API) createPost(w http.ResponseWriter, r *http.Request) {
	var req community.NewPost
	if err := decode(r, w, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	post, err := a.community.CreatePost(r.Context(), subjectFrom(r.Context()), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, post)
}

func (a *API) updatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req community.Content
	if err := decode(r, w, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	post, err := a.community.UpdatePostContent(r.Context(), subjectFrom(r.Context()), id, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, post)
}

func (a *API) deletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.community.DeletePost(r.Context(), subjectFrom(r.Context()), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) like(w http.ResponseWriter, r *http.Request)   { a.setLike(w, r, true) }
func (a *API) unlike(w http.ResponseWriter, r *http.Request) { a.setLike(w, r, false) }

func (a *API) setLike(w http.ResponseWriter, r *http.Request, liked bool) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.community.SetLike(r.Context(), subjectFrom(r.Context()), id, liked); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) addReply(w http.ResponseWriter, r *http.Request) {
	parent, err := pathID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req replyRequest
	if err := decode(r, w, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	reply, err := a.community.AddReply(r.Context(), subjectFrom(r.Context()),
		community.NewReply{Parent: parent, Content: req.Content})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, reply)
}

func (a *API) deleteReply(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.community.DeleteReply(r.Context(), subjectFrom(r.Context()), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

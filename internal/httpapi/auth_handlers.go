// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package httpapi

import (
	"net/http"

	"github.com/spademh/spade/internal/auth"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, w, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	tokens, err := a.auth.Register(r.Context(), auth.Registration{
		Email:    req.Email,
		Password: req.Password,
		Profile:  auth.ProfileFields{Username: req.Username, Avatar: req.Avatar},
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.setSession(w, tokens)

	subject, err := a.auth.Authenticate(r.Context(), tokens.Access)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	profile, err := a.community.GetProfile(r.Context(), subject)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, profile)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, w, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	tokens, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.setSession(w, tokens)
	respond(w, http.StatusOK, nil)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	token, err := accessToken(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.auth.Logout(r.Context(), token); err != nil {
		a.fail(w, r, err)
		return
	}
	a.clearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	token, err := refreshToken(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	access, err := a.auth.Refresh(r.Context(), token)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	http.SetCookie(w, a.sessionCookie(AccessCookie, access, a.auth.AccessTTL()))
	respond(w, http.StatusOK, nil)
}

func (a *API) updateEmail(w http.ResponseWriter, r *http.Request) {
	token, err := accessToken(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req emailRequest
	if err := decode(r, w, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.auth.UpdateEmail(r.Context(), token, req.Email); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) updatePassword(w http.ResponseWriter, r *http.Request) {
	token, err := accessToken(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req passwordRequest
	if err := decode(r, w, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.auth.UpdatePassword(r.Context(), token, req.Password); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteAccount(w http.ResponseWriter, r *http.Request) {
	token, err := accessToken(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.auth.Delete(r.Context(), token); err != nil {
		a.fail(w, r, err)
		return
	}
	a.clearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package httpapi

import (
	"errors"
	"net/http"

	"github.com/samber/oops"

	"github.com/spademh/spade/internal/auth"
)

// Session cookie names.
const (
	AccessCookie  = "sat"
	RefreshCookie = "srt"
)

func (a *API) sessionCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.opts.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (a *API) setSession(w http.ResponseWriter, tokens *auth.Tokens) {
	http.SetCookie(w, a.sessionCookie(AccessCookie, tokens.Access, a.auth.AccessTTL()))
	http.SetCookie(w, a.sessionCookie(RefreshCookie, tokens.Refresh, a.auth.RefreshTTL()))
}

func (a *API) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, a.sessionCookie(AccessCookie, "", -1))
	http.SetCookie(w, a.sessionCookie(RefreshCookie, "", -1))
}

func accessToken(r *http.Request) (string, error) {
	c, err := r.Cookie(AccessCookie)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && c.Value == "") {
		return "", oops.Code(auth.CodeUnauthorized).Errorf("missing access token")
	}
	if err != nil {
		return "", oops.Code(auth.CodeUnauthorized).Wrap(err)
	}
	return c.Value, nil
}

func refreshToken(r *http.Request) (string, error) {
	c, err := r.Cookie(RefreshCookie)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && c.Value == "") {
		return "", oops.Code(auth.CodeForbidden).Errorf("missing refresh token")
	}
	if err != nil {
		return "", oops.Code(auth.CodeForbidden).Wrap(err)
	}
	return c.Value, nil
}

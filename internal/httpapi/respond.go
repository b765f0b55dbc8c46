// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/spademh/spade/internal/auth"
	"github.com/spademh/spade/internal/community"
	"github.com/spademh/spade/pkg/errutil"
)

// maxBodyBytes caps request bodies. Post content is the largest field.
const maxBodyBytes = 64 << 10

// Transport error codes.
const (
	CodeMalformedBody = "HTTP_MALFORMED_BODY"
	CodeInvalidID     = "HTTP_INVALID_ID"
)

func init() {
	auth.RegisterCode(CodeMalformedBody, auth.KindBadRequest)
	auth.RegisterCode(CodeInvalidID, auth.KindBadRequest)
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var kindStatus = map[auth.Kind]int{
	auth.KindValidation:    http.StatusBadRequest,
	auth.KindBadRequest:    http.StatusBadRequest,
	auth.KindDuplicateUser: http.StatusConflict,
	auth.KindInvalidToken:  http.StatusUnauthorized,
	auth.KindUnauthorized:  http.StatusUnauthorized,
	auth.KindForbidden:     http.StatusForbidden,
	auth.KindNotFound:      http.StatusNotFound,
	auth.KindServer:        http.StatusInternalServerError,
}

var kindMessage = map[auth.Kind]string{
	auth.KindValidation:    "invalid input",
	auth.KindBadRequest:    "bad request",
	auth.KindDuplicateUser: "user already exists",
	auth.KindInvalidToken:  "invalid token",
	auth.KindUnauthorized:  "unauthorized",
	auth.KindForbidden:     "forbidden",
	auth.KindNotFound:      "not found",
	auth.KindServer:        "internal server error",
}

// codeMessage refines the kind message for codes a client can act on.
var codeMessage = map[string]string{
	auth.CodeInvalidEmail:         "invalid email address",
	auth.CodeInvalidPassword:      "password does not meet requirements",
	auth.CodeInvalidCredentials:   "invalid email or password",
	community.CodeProfileNotFound: "profile not found",
	community.CodePostNotFound:    "post not found",
	community.CodeReplyNotFound:   "reply not found",
	community.CodeNotAuthor:       "only the author may change this",
	CodeMalformedBody:             "malformed request body",
	CodeInvalidID:                 "invalid id",
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	return kindStatus[auth.KindOf(err)]
}

func messageOf(err error) string {
	if msg, ok := codeMessage[errutil.Code(err)]; ok {
		return msg
	}
	return kindMessage[auth.KindOf(err)]
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// fail writes the fixed message for err. Only server errors are logged;
// the others are the caller's fault and already described by the status.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		errutil.LogError(r.Context(), a.logger, "request failed", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
	writeJSON(w, status, envelope{Success: false, Message: messageOf(err)})
}

func decode(r *http.Request, w http.ResponseWriter, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return oops.Code(CodeMalformedBody).Wrap(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return oops.Code(CodeMalformedBody).Errorf("request body has trailing data")
	}
	return nil
}

func pathID(r *http.Request) (ulid.ULID, error) {
	raw := chi.URLParam(r, "id")
	id, err := ulid.ParseStrict(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeInvalidID).With("id", raw).Wrap(err)
	}
	return id, nil
}

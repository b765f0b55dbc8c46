// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

//go:build integration

package auth_test

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/spademh/spade/internal/httpapi"
)

const (
	email    = "a@b.com"
	password = "Abcdef1!"
)

type response struct {
	status  int
	cookies map[string]*http.Cookie
	body    map[string]any
}

func call(method, path, body string, cookies ...*http.Cookie) response {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(env.ctx, method, env.server.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}

	resp, err := env.server.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()

	out := response{status: resp.StatusCode, cookies: map[string]*http.Cookie{}}
	for _, c := range resp.Cookies() {
		out.cookies[c.Name] = c
	}
	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	if len(raw) > 0 {
		Expect(json.Unmarshal(raw, &out.body)).To(Succeed())
	}
	return out
}

func register(username string) response {
	return call(http.MethodPost, "/auth/register",
		`{"email":"`+email+`","password":"`+password+`","username":"`+username+`","avatar":"https://img.example/a.png"}`)
}

func login(pw string) response {
	return call(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+pw+`"}`)
}

var _ = Describe("Account lifecycle", func() {
	BeforeEach(func() {
		env.reset()
	})

	It("registers, logs out, rejects stale refresh tokens and accepts fresh ones", func() {
		By("registering")
		reg := register("ada")
		Expect(reg.status).To(Equal(http.StatusCreated))
		Expect(reg.body["data"]).To(HaveKeyWithValue("username", "ada"))
		Expect(reg.cookies).To(HaveKey(httpapi.AccessCookie))
		Expect(reg.cookies).To(HaveKey(httpapi.RefreshCookie))
		Expect(env.count("credentials")).To(Equal(1))
		Expect(env.count("user_profiles")).To(Equal(1))
		firstRefresh := reg.cookies[httpapi.RefreshCookie]

		By("failing a wrong-password login without issuing tokens")
		bad := login("Wrong1!xx")
		Expect(bad.status).To(Equal(http.StatusBadRequest))
		Expect(bad.body).To(HaveKeyWithValue("message", "invalid email or password"))
		Expect(bad.cookies).To(BeEmpty())

		By("logging out")
		out := call(http.MethodPost, "/auth/logout", "", reg.cookies[httpapi.AccessCookie])
		Expect(out.status).To(Equal(http.StatusNoContent))
		var digest string
		Expect(env.pool.QueryRow(env.ctx,
			`SELECT refresh_token_hash FROM credentials WHERE email = $1`, email).Scan(&digest)).To(Succeed())
		Expect(digest).To(BeEmpty())

		By("refusing the pre-logout refresh token")
		stale := call(http.MethodPost, "/auth/refresh", "", firstRefresh)
		Expect(stale.status).To(Equal(http.StatusForbidden))

		By("refreshing with the token of a new login")
		again := login(password)
		Expect(again.status).To(Equal(http.StatusOK))
		secondRefresh := again.cookies[httpapi.RefreshCookie]
		Expect(secondRefresh).NotTo(BeNil())
		Expect(secondRefresh.Value).NotTo(Equal(firstRefresh.Value))

		fresh := call(http.MethodPost, "/auth/refresh", "", secondRefresh)
		Expect(fresh.status).To(Equal(http.StatusOK))
		Expect(fresh.cookies).To(HaveKey(httpapi.AccessCookie))

		By("still refusing the first refresh token")
		Expect(call(http.MethodPost, "/auth/refresh", "", firstRefresh).status).To(Equal(http.StatusForbidden))
	})

	It("rejects a second registration of the same email", func() {
		Expect(register("ada").status).To(Equal(http.StatusCreated))

		dup := register("ada2")

		Expect(dup.status).To(Equal(http.StatusConflict))
		Expect(env.count("credentials")).To(Equal(1))
		Expect(env.count("user_profiles")).To(Equal(1))
	})

	It("removes the credential when the profile cannot be created", func() {
		res := register(strings.Repeat("x", 200))

		Expect(res.status).To(Equal(http.StatusBadRequest))
		Expect(res.cookies).To(BeEmpty())
		Expect(env.count("credentials")).To(Equal(0))
		Expect(env.count("user_profiles")).To(Equal(0))

		Expect(register("ada").status).To(Equal(http.StatusCreated))
	})

	It("updates the email and password of a session", func() {
		reg := register("ada")
		sat := reg.cookies[httpapi.AccessCookie]

		Expect(call(http.MethodPut, "/auth/password", `{"password":"Newpass1!"}`, sat).status).
			To(Equal(http.StatusNoContent))
		Expect(login(password).status).To(Equal(http.StatusBadRequest))
		Expect(login("Newpass1!").status).To(Equal(http.StatusOK))

		Expect(call(http.MethodPut, "/auth/email", `{"email":"Ada@Example.com"}`, sat).status).
			To(Equal(http.StatusNoContent))
		moved := call(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"Newpass1!"}`)
		Expect(moved.status).To(Equal(http.StatusOK))
	})

	It("rejects requests without a session", func() {
		Expect(call(http.MethodGet, "/community/profile", "").status).To(Equal(http.StatusUnauthorized))
		Expect(call(http.MethodPost, "/auth/refresh", "").status).To(Equal(http.StatusForbidden))
	})
})

var _ = Describe("Community over the session", func() {
	BeforeEach(func() {
		env.reset()
	})

	It("posts, likes and replies, then removes everything with the account", func() {
		reg := register("ada")
		sat := reg.cookies[httpapi.AccessCookie]

		created := call(http.MethodPost, "/community/posts",
			`{"title":"First","content":{"kind":"markdown","value":"# hello"}}`, sat)
		Expect(created.status).To(Equal(http.StatusCreated))
		postID := created.body["data"].(map[string]any)["id"].(string)

		Expect(call(http.MethodPut, "/community/posts/"+postID+"/like", "", sat).status).To(Equal(http.StatusNoContent))
		Expect(call(http.MethodPut, "/community/posts/"+postID+"/like", "", sat).status).To(Equal(http.StatusNoContent))
		Expect(call(http.MethodPost, "/community/posts/"+postID+"/replies", `{"content":"nice"}`, sat).status).
			To(Equal(http.StatusCreated))

		post := call(http.MethodGet, "/community/posts/"+postID, "")
		Expect(post.status).To(Equal(http.StatusOK))
		data := post.body["data"].(map[string]any)
		Expect(data["likes"]).To(BeNumerically("==", 1))
		Expect(data["replies"]).To(HaveLen(1))

		profile := call(http.MethodGet, "/community/profile", "", sat)
		Expect(profile.body["data"]).To(HaveKeyWithValue("likes", ConsistOf(postID)))

		recent := call(http.MethodGet, "/community/posts/recent?limit=5", "")
		Expect(recent.status).To(Equal(http.StatusOK))
		Expect(recent.body["data"]).To(HaveLen(1))

		Expect(call(http.MethodDelete, "/auth/account", "", sat).status).To(Equal(http.StatusNoContent))
		Expect(env.count("credentials")).To(Equal(0))
		Expect(env.count("user_profiles")).To(Equal(0))
		Expect(env.count("expression_posts")).To(Equal(0))
		Expect(env.count("replies")).To(Equal(0))
		Expect(env.count("likes")).To(Equal(0))
		Expect(call(http.MethodGet, "/community/posts/"+postID, "").status).To(Equal(http.StatusNotFound))
	})
})

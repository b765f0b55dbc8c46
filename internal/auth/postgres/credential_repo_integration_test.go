// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/spademh/spade/internal/auth"
	"github.com/spademh/spade/internal/auth/postgres"
)

var _ = Describe("CredentialRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.CredentialRepository
	)

	newCredential := func(raw string) *auth.Credential {
		email, err := auth.ParseEmail(raw)
		Expect(err).NotTo(HaveOccurred())
		return &auth.Credential{
			ID:               uuid.New(),
			Email:            email,
			PasswordHash:     "hash",
			SubjectID:        ulid.Make(),
			RefreshTokenHash: "digest",
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewCredentialRepository(pool)
		_, err := pool.Exec(ctx, `TRUNCATE credentials`)
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates and reads back a credential", func() {
		cred := newCredential("round@example.com")
		Expect(repo.Create(ctx, cred)).To(Succeed())
		Expect(cred.CreatedAt).NotTo(BeZero())

		for _, lookup := range []func() (*auth.Credential, error){
			func() (*auth.Credential, error) { return repo.GetByEmail(ctx, cred.Email) },
			func() (*auth.Credential, error) { return repo.GetByID(ctx, cred.ID) },
			func() (*auth.Credential, error) { return repo.GetBySubject(ctx, cred.SubjectID) },
		} {
			got, err := lookup()
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(cred.ID))
			Expect(got.SubjectID).To(Equal(cred.SubjectID))
			Expect(got.RefreshTokenHash).To(Equal("digest"))
		}

		exists, err := repo.ExistsByEmail(ctx, cred.Email)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())
	})

	It("keeps the creation time of a restored snapshot", func() {
		cred := newCredential("restore@example.com")
		cred.CreatedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		cred.UpdatedAt = cred.CreatedAt
		Expect(repo.Create(ctx, cred)).To(Succeed())
		Expect(cred.CreatedAt.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))).To(BeTrue())
	})

	It("rejects a duplicate email", func() {
		Expect(repo.Create(ctx, newCredential("dup@example.com"))).To(Succeed())

		err := repo.Create(ctx, newCredential("dup@example.com"))
		Expect(err).To(MatchError(auth.ErrDuplicateEmail))

		other := newCredential("other@example.com")
		Expect(repo.Create(ctx, other)).To(Succeed())
		dup, err := auth.ParseEmail("dup@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.UpdateEmail(ctx, other.ID, dup)).To(MatchError(auth.ErrDuplicateEmail))
	})

	It("sets and clears the refresh token digest", func() {
		cred := newCredential("digest@example.com")
		Expect(repo.Create(ctx, cred)).To(Succeed())

		Expect(repo.SetRefreshTokenHash(ctx, cred.ID, "")).To(Succeed())
		got, err := repo.GetByID(ctx, cred.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.LoggedIn()).To(BeFalse())

		Expect(repo.SetRefreshTokenHash(ctx, cred.ID, "next")).To(Succeed())
		got, err = repo.GetByID(ctx, cred.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.RefreshTokenHash).To(Equal("next"))
	})

	It("updates only the password hash", func() {
		cred := newCredential("hash@example.com")
		Expect(repo.Create(ctx, cred)).To(Succeed())

		Expect(repo.UpdatePasswordHash(ctx, cred.ID, "rehashed")).To(Succeed())
		got, err := repo.GetByID(ctx, cred.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.PasswordHash).To(Equal("rehashed"))
		Expect(got.Email).To(Equal(cred.Email))
	})

	It("reports missing rows as not found", func() {
		missing := uuid.New()
		Expect(repo.Delete(ctx, missing)).To(MatchError(auth.ErrNotFound))
		Expect(repo.SetRefreshTokenHash(ctx, missing, "x")).To(MatchError(auth.ErrNotFound))
		_, err := repo.GetBySubject(ctx, ulid.Make())
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("deletes a credential", func() {
		cred := newCredential("gone@example.com")
		Expect(repo.Create(ctx, cred)).To(Succeed())
		Expect(repo.Delete(ctx, cred.ID)).To(Succeed())

		exists, err := repo.ExistsByEmail(ctx, cred.Email)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})
})

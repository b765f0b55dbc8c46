// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

//go:build integration

package store_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/spademh/spade/internal/store"
)

func tableExists(name string) bool {
	ctx := context.Background()
	pool, err := store.Connect(ctx, connStr, store.DefaultConnectOptions)
	Expect(err).NotTo(HaveOccurred())
	defer pool.Close()

	var exists bool
	err = pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+name).Scan(&exists)
	Expect(err).NotTo(HaveOccurred())
	return exists
}

var _ = Describe("Migrator", Ordered, func() {
	var auth, community *store.Migrator

	BeforeAll(func() {
		var err error
		auth, err = store.NewMigrator(connStr, store.AuthSchema)
		Expect(err).NotTo(HaveOccurred())
		community, err = store.NewMigrator(connStr, store.CommunitySchema)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		Expect(auth.Close()).To(Succeed())
		Expect(community.Close()).To(Succeed())
	})

	It("starts at version zero", func() {
		version, dirty, err := auth.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())
	})

	It("applies each schema independently", func() {
		Expect(auth.Up()).To(Succeed())
		Expect(tableExists("credentials")).To(BeTrue())
		Expect(tableExists("user_profiles")).To(BeFalse())

		pending, err := community.PendingMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(Equal([]uint{1, 2}))

		Expect(community.Up()).To(Succeed())
		Expect(tableExists("expression_posts")).To(BeTrue())
		Expect(tableExists("likes")).To(BeTrue())

		version, _, err := community.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
	})

	It("keeps separate version tables", func() {
		Expect(tableExists("auth_schema_migrations")).To(BeTrue())
		Expect(tableExists("community_schema_migrations")).To(BeTrue())
	})

	It("steps down and up", func() {
		Expect(community.Steps(-1)).To(Succeed())
		Expect(tableExists("expression_posts")).To(BeFalse())
		Expect(tableExists("user_profiles")).To(BeTrue())

		Expect(community.Steps(1)).To(Succeed())
		Expect(tableExists("expression_posts")).To(BeTrue())
	})

	It("rolls a schema all the way down without touching the other", func() {
		Expect(community.Down()).To(Succeed())
		Expect(tableExists("user_profiles")).To(BeFalse())
		Expect(tableExists("credentials")).To(BeTrue())

		applied, err := community.AppliedMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(applied).To(BeEmpty())
	})

	It("forces a version without running migrations", func() {
		Expect(community.Force(1)).To(Succeed())

		version, dirty, err := community.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))
		Expect(dirty).To(BeFalse())
		Expect(tableExists("user_profiles")).To(BeFalse())
	})
})

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

// txKey scopes a carried transaction to the handle that began it, so a
// context from one store never joins a transaction on another.
type txKey struct {
	db any
}

// Transactor runs functions inside a database transaction. The active pgx.Tx
// travels in the context so repository methods called with that context join it.
type Transactor struct {
	db DB
}

// NewTransactor creates a Transactor backed by db.
func NewTransactor(db DB) *Transactor {
	return &Transactor{db: db}
}

// InTransaction begins a transaction, stores it in context, and calls fn.
// If fn returns nil the transaction is committed, otherwise it is rolled back.
// A context that already carries a transaction is reused, so calls nest.
func (t *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	key := txKey{db: t.db}
	if _, ok := ctx.Value(key).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(context.WithValue(ctx, key, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

// Conn returns the transaction carried by ctx when it was begun on db, or db
// itself otherwise.
func Conn(ctx context.Context, db Querier) Querier {
	if tx, ok := ctx.Value(txKey{db: db}).(pgx.Tx); ok {
		return tx
	}
	return db
}

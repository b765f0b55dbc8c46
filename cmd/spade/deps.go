// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package main

import (
	"context"
	"net"

	"github.com/spademh/spade/internal/config"
	"github.com/spademh/spade/internal/observability"
	"github.com/spademh/spade/internal/store"
)

// Database is a connection pool the server queries and probes.
// *pgxpool.Pool satisfies it.
type Database interface {
	store.DB
	Ping(ctx context.Context) error
	Close()
}

// ObservabilityServer wraps the metrics and health endpoint server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Migrator applies one schema's migrations. *store.Migrator satisfies it.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// Connect opens a database pool.
	// Default: store.Connect with store.DefaultConnectOptions
	Connect func(ctx context.Context, dsn string) (Database, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) ObservabilityServer

	// Listen creates the HTTP API listener.
	// Default: net.Listen
	Listen func(network, address string) (net.Listener, error)

	// Environ returns the environment secrets are read from.
	// Default: config.Environ
	Environ func() map[string]string

	// MigratorFactory creates a migrator for --auto-migrate.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string, schema store.Schema) (Migrator, error)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.Connect == nil {
		out.Connect = func(ctx context.Context, dsn string) (Database, error) {
			return store.Connect(ctx, dsn, store.DefaultConnectOptions)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	if out.Listen == nil {
		out.Listen = net.Listen
	}
	if out.Environ == nil {
		out.Environ = config.Environ
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = newStoreMigrator
	}
	return &out
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// Environ returns the environment database URLs are read from.
	// Default: config.Environ
	Environ func() map[string]string

	// MigratorFactory creates a migrator for one schema.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string, schema store.Schema) (Migrator, error)
}

func (d *MigrateDeps) withDefaults() *MigrateDeps {
	out := MigrateDeps{}
	if d != nil {
		out = *d
	}
	if out.Environ == nil {
		out.Environ = config.Environ
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = newStoreMigrator
	}
	return &out
}

func newStoreMigrator(databaseURL string, schema store.Schema) (Migrator, error) {
	m, err := store.NewMigrator(databaseURL, schema)
	if err != nil {
		return nil, err
	}
	return m, nil
}

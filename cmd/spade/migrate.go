// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package main

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/spademh/spade/internal/config"
	"github.com/spademh/spade/internal/store"
)

type migrateOptions struct {
	*rootOptions
	schema string
	deps   *MigrateDeps
}

// newMigrateCmd creates the migrate command and its subcommands.
func newMigrateCmd(root *rootOptions, deps *MigrateDeps) *cobra.Command {
	opts := &migrateOptions{rootOptions: root, deps: deps.withDefaults()}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply, roll back or inspect the auth and community schema migrations.
AUTH_DB_URL and COMMUNITY_DB_URL select the databases. Without --schema,
up and status cover every schema.`,
	}
	cmd.PersistentFlags().StringVar(&opts.schema, "schema", "", "limit to one schema (auth, community)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.each(false, func(m Migrator, schema store.Schema) error {
				if err := m.Up(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("schema", schema.Name).With("operation", "up").Wrap(err)
				}
				cmd.Printf("%s: migrations applied\n", schema.Name)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration of each schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.each(true, func(m Migrator, schema store.Schema) error {
				if err := m.Steps(-1); err != nil {
					return oops.Code("MIGRATION_FAILED").With("schema", schema.Name).With("operation", "down").Wrap(err)
				}
				cmd.Printf("%s: rolled back one migration\n", schema.Name)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Roll back every migration of the selected schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.schema == "" {
				return oops.Code("SCHEMA_REQUIRED").Errorf("reset requires --schema")
			}
			return opts.each(true, func(m Migrator, schema store.Schema) error {
				if err := m.Down(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("schema", schema.Name).With("operation", "reset").Wrap(err)
				}
				cmd.Printf("%s: all migrations rolled back\n", schema.Name)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.each(false, printStatus(cmd))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the recorded version without running migrations",
		Long: `Set the recorded migration version of one schema and clear its dirty
flag. Use after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.schema == "" {
				return oops.Code("SCHEMA_REQUIRED").Errorf("force requires --schema")
			}
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return opts.each(false, func(m Migrator, schema store.Schema) error {
				if err := m.Force(version); err != nil {
					return oops.Code("MIGRATION_FAILED").With("schema", schema.Name).With("operation", "force").Wrap(err)
				}
				cmd.Printf("%s: version forced to %d\n", schema.Name, version)
				return nil
			})
		},
	})

	return cmd
}

// each runs fn against every selected schema. Rollbacks visit schemas in
// reverse order.
func (o *migrateOptions) each(reverse bool, fn func(Migrator, store.Schema) error) error {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return err
	}
	dbs, err := config.LoadDatabases(o.deps.Environ())
	if err != nil {
		return err
	}
	schemas, err := selectSchemas(o.schema)
	if err != nil {
		return err
	}
	if reverse {
		for i, j := 0, len(schemas)-1; i < j; i, j = i+1, j-1 {
			schemas[i], schemas[j] = schemas[j], schemas[i]
		}
	}

	for _, schema := range schemas {
		if err := o.run(dbs, schema, fn); err != nil {
			return err
		}
	}
	return nil
}

func (o *migrateOptions) run(dbs *config.Databases, schema store.Schema, fn func(Migrator, store.Schema) error) error {
	m, err := o.deps.MigratorFactory(databaseURL(dbs, schema), schema)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("schema", schema.Name).Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "schema", schema.Name, "error", closeErr)
		}
	}()
	return fn(m, schema)
}

func printStatus(cmd *cobra.Command) func(Migrator, store.Schema) error {
	return func(m Migrator, schema store.Schema) error {
		version, dirty, err := m.Version()
		if err != nil {
			return oops.Code("MIGRATION_STATUS_FAILED").With("schema", schema.Name).Wrap(err)
		}
		applied, err := m.AppliedMigrations()
		if err != nil {
			return oops.Code("MIGRATION_STATUS_FAILED").With("schema", schema.Name).Wrap(err)
		}
		pending, err := m.PendingMigrations()
		if err != nil {
			return oops.Code("MIGRATION_STATUS_FAILED").With("schema", schema.Name).Wrap(err)
		}

		state := "clean"
		if dirty {
			state = "dirty"
		}
		cmd.Printf("%s: version %d (%s), %d applied, %d pending\n",
			schema.Name, version, state, len(applied), len(pending))
		for _, v := range pending {
			name, err := store.MigrationName(schema, v)
			if err != nil || name == "" {
				name = strconv.FormatUint(uint64(v), 10)
			}
			cmd.Printf("  pending %s\n", name)
		}
		return nil
	}
}

func selectSchemas(name string) ([]store.Schema, error) {
	if name == "" {
		return append([]store.Schema(nil), store.Schemas...), nil
	}
	schema, err := store.SchemaByName(name)
	if err != nil {
		return nil, err
	}
	return []store.Schema{schema}, nil
}

func databaseURL(dbs *config.Databases, schema store.Schema) string {
	if schema == store.CommunitySchema {
		return dbs.CommunityURL
	}
	return dbs.AuthURL
}

// parseForceVersion parses a migration version. golang-migrate uses -1 for
// "no version".
func parseForceVersion(s string) (int, error) {
	trimmed := strings.TrimSpace(s)
	version, err := strconv.Atoi(trimmed)
	if err != nil || version < -1 {
		return 0, oops.Code("INVALID_VERSION").With("version", s).Errorf("invalid migration version %q", s)
	}
	return version, nil
}

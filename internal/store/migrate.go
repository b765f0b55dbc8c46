// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package store

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	// Register pgx/v5 database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/auth/*.sql migrations/community/*.sql
var migrationsFS embed.FS

// Schema identifies one store's migration set. Each schema records its
// version in its own table so both stores can share a database in development.
type Schema struct {
	Name  string
	Table string
}

// The two stores of a spade deployment.
var (
	AuthSchema      = Schema{Name: "auth", Table: "auth_schema_migrations"}
	CommunitySchema = Schema{Name: "community", Table: "community_schema_migrations"}
)

// Schemas lists every known schema in migration order.
var Schemas = []Schema{AuthSchema, CommunitySchema}

// SchemaByName returns the schema called name.
func SchemaByName(name string) (Schema, error) {
	for _, s := range Schemas {
		if s.Name == name {
			return s, nil
		}
	}
	return Schema{}, oops.Code("UNKNOWN_SCHEMA").With("schema", name).Errorf("unknown schema %q", name)
}

func (s Schema) dir() string {
	return path.Join("migrations", s.Name)
}

// Version lists are cached per schema since the embedded FS is immutable.
var (
	versionsMu    sync.Mutex
	versionsCache = map[string][]uint{}
)

// migrateIface abstracts golang-migrate for testing. The real golang-migrate
// library requires a database connection, making unit tests slow and brittle.
type migrateIface interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migrator wraps golang-migrate for one schema.
type Migrator struct {
	m      migrateIface
	schema Schema
}

// NewMigrator creates a Migrator for schema against databaseURL.
// postgres:// and postgresql:// URLs are rewritten to the pgx5:// scheme the
// golang-migrate pgx/v5 driver expects.
func NewMigrator(databaseURL string, schema Schema) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, schema.dir())
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").
			With("operation", "create migration source").
			With("schema", schema.Name).
			Wrap(err)
	}

	migrateURL, err := migrationURL(databaseURL, schema)
	if err != nil {
		_ = source.Close() //nolint:errcheck // cleanup for embedded FS; URL error takes precedence
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL)
	if err != nil {
		_ = source.Close() //nolint:errcheck // cleanup for embedded FS; init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").
			With("operation", "initialize migrator").
			With("schema", schema.Name).
			Wrap(err)
	}

	return &Migrator{m: m, schema: schema}, nil
}

// migrationURL converts databaseURL to the pgx5 scheme and pins the schema's
// version table.
func migrationURL(databaseURL string, schema Schema) (string, error) {
	u := databaseURL
	if rest, found := strings.CutPrefix(u, "postgres://"); found {
		u = "pgx5://" + rest
	} else if rest, found := strings.CutPrefix(u, "postgresql://"); found {
		u = "pgx5://" + rest
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return "", oops.Code("MIGRATION_INIT_FAILED").With("operation", "parse database url").Wrap(err)
	}
	q := parsed.Query()
	q.Set("x-migrations-table", schema.Table)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// Schema returns the schema the migrator manages.
func (m *Migrator) Schema() Schema {
	return m.schema
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_UP_FAILED").With("schema", m.schema.Name).Wrap(err)
	}
	return nil
}

// Down rolls back all migrations of the schema. It drops every table the
// schema owns.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_DOWN_FAILED").With("schema", m.schema.Name).Wrap(err)
	}
	return nil
}

// Steps applies n migrations. Positive n migrates up, negative n migrates down.
func (m *Migrator) Steps(n int) error {
	if n == 0 {
		return nil
	}
	if err := m.m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_STEPS_FAILED").With("schema", m.schema.Name).With("steps", n).Wrap(err)
	}
	return nil
}

// Version returns the current migration version and dirty state.
// Returns version 0 with dirty=false if no migrations have been applied.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").With("schema", m.schema.Name).Wrap(err)
	}
	return version, dirty, nil
}

// Force sets the migration version without running migrations. Use it only to
// recover from a dirty state after fixing the database by hand.
func (m *Migrator) Force(version int) error {
	if version < 0 {
		return oops.Code("INVALID_VERSION").Errorf("version must be non-negative, got %d", version)
	}
	if err := m.m.Force(version); err != nil {
		return oops.Code("MIGRATION_FORCE_FAILED").With("schema", m.schema.Name).With("version", version).Wrap(err)
	}
	return nil
}

// Close releases resources.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil && dbErr != nil {
		return oops.Code("MIGRATION_CLOSE_FAILED").
			With("component", "both").
			Errorf("source: %v; database: %v", srcErr, dbErr)
	}
	if srcErr != nil {
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "source").Wrap(srcErr)
	}
	if dbErr != nil {
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "database").Wrap(dbErr)
	}
	return nil
}

// migrationVersions returns the sorted versions embedded for schema.
// The returned slice is a copy.
func migrationVersions(schema Schema) ([]uint, error) {
	versionsMu.Lock()
	defer versionsMu.Unlock()

	cached, ok := versionsCache[schema.Name]
	if !ok {
		loaded, err := loadMigrationVersions(schema)
		if err != nil {
			return nil, err
		}
		versionsCache[schema.Name] = loaded
		cached = loaded
	}
	result := make([]uint, len(cached))
	copy(result, cached)
	return result, nil
}

// loadMigrationVersions parses NNNNNN_name.up.sql file names. Files that do
// not match are logged and skipped; TestMigrationsFS_EmbeddedFiles keeps the
// embedded set well formed.
func loadMigrationVersions(schema Schema) ([]uint, error) {
	entries, err := migrationsFS.ReadDir(schema.dir())
	if err != nil {
		return nil, oops.Code("MIGRATION_LIST_FAILED").
			With("operation", "read migrations dir").
			With("schema", schema.Name).
			Wrap(err)
	}

	versionSet := make(map[uint]struct{})
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		var version uint
		if _, err := fmt.Sscanf(name, "%06d", &version); err != nil {
			slog.Warn("migration file name doesn't match expected format, skipping",
				"schema", schema.Name,
				"filename", name,
				"expected_format", "NNNNNN_name.up.sql",
				"error", err)
			continue
		}
		versionSet[version] = struct{}{}
	}

	versions := make([]uint, 0, len(versionSet))
	for v := range versionSet {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

// MigrationName returns the NNNNNN_name of a schema's migration, or "" when
// the version is unknown.
func MigrationName(schema Schema, version uint) (string, error) {
	entries, err := migrationsFS.ReadDir(schema.dir())
	if err != nil {
		return "", oops.Code("MIGRATION_READ_FAILED").
			With("operation", "read migrations dir").
			With("schema", schema.Name).
			Wrap(err)
	}

	prefix := fmt.Sprintf("%06d_", version)
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".up.sql") {
			return strings.TrimSuffix(name, ".up.sql"), nil
		}
	}
	return "", nil
}

// PendingMigrations returns the versions Up would apply, in ascending order.
func (m *Migrator) PendingMigrations() ([]uint, error) {
	current, _, err := m.Version()
	if err != nil {
		return nil, oops.With("operation", "get pending migrations").Wrap(err)
	}

	all, err := migrationVersions(m.schema)
	if err != nil {
		return nil, oops.With("operation", "get pending migrations").Wrap(err)
	}

	var pending []uint
	for _, v := range all {
		if v > current {
			pending = append(pending, v)
		}
	}
	return pending, nil
}

// AppliedMigrations returns the applied versions in ascending order.
func (m *Migrator) AppliedMigrations() ([]uint, error) {
	current, _, err := m.Version()
	if err != nil {
		return nil, oops.With("operation", "get applied migrations").Wrap(err)
	}
	if current == 0 {
		return nil, nil
	}

	all, err := migrationVersions(m.schema)
	if err != nil {
		return nil, oops.With("operation", "get applied migrations").Wrap(err)
	}

	var applied []uint
	for _, v := range all {
		if v <= current {
			applied = append(applied, v)
		}
	}
	return applied, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

// Package config loads spade's runtime configuration. Tunables come from an
// optional YAML file overridden by command flags; secrets and database URLs
// come only from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Defaults for the serve flags.
const (
	DefaultHTTPAddr             = "127.0.0.1:8000"
	DefaultMetricsAddr          = "127.0.0.1:9100"
	DefaultLogFormat            = "json"
	DefaultLogLevel             = "info"
	DefaultRequestTimeout       = 15 * time.Second
	DefaultShutdownTimeout      = 10 * time.Second
	DefaultRecentPostsLimit     = 20
	DefaultCompensationAttempts = 3
)

// MinSecretLen is the shortest accepted token signing secret, in bytes.
const MinSecretLen = 32

// Config is the full serve configuration.
type Config struct {
	HTTPAddr             string        `koanf:"http_addr"`
	MetricsAddr          string        `koanf:"metrics_addr"`
	LogFormat            string        `koanf:"log_format"`
	LogLevel             string        `koanf:"log_level"`
	CookieSecure         bool          `koanf:"cookie_secure"`
	RequestTimeout       time.Duration `koanf:"request_timeout"`
	ShutdownTimeout      time.Duration `koanf:"shutdown_timeout"`
	RecentPostsLimit     int           `koanf:"recent_posts_limit"`
	CompensationAttempts uint64        `koanf:"compensation_attempts"`

	Tokens    Tokens    `koanf:"-"`
	Databases Databases `koanf:"-"`
}

// Tokens holds the token signing secrets.
type Tokens struct {
	AccessSecret  string `env:"ACCESS_TOKEN_SECRET,required,notEmpty"`
	RefreshSecret string `env:"REFRESH_TOKEN_SECRET,required,notEmpty"`
}

// Databases holds the connection URLs of the two stores. They may point at
// the same database; each store keeps its own migration history.
type Databases struct {
	AuthURL      string `env:"AUTH_DB_URL,required,notEmpty"`
	CommunityURL string `env:"COMMUNITY_DB_URL,required,notEmpty"`
}

// RegisterFlags defines the serve flags on flags. Their defaults are the
// configuration defaults.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("http-addr", DefaultHTTPAddr, "HTTP API listen address")
	flags.String("metrics-addr", DefaultMetricsAddr, "metrics and health listen address (empty disables)")
	flags.String("log-format", DefaultLogFormat, "log format (json, text)")
	flags.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.Bool("cookie-secure", false, "mark session cookies Secure")
	flags.Duration("request-timeout", DefaultRequestTimeout, "per-request timeout")
	flags.Duration("shutdown-timeout", DefaultShutdownTimeout, "graceful shutdown timeout")
	flags.Int("recent-posts-limit", DefaultRecentPostsLimit, "default number of recent posts returned")
	flags.Uint64("compensation-attempts", DefaultCompensationAttempts, "attempts per failed saga compensation")
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return oops.Code("CONFIG_DOTENV_FAILED").With("path", path).Wrap(err)
		}
	}
	return nil
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	return env.ToMap(os.Environ())
}

// Load builds a Config from the YAML file at path (optional when empty),
// then flags, then environ, and validates the result.
func Load(flags *pflag.FlagSet, path string, environ map[string]string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
	}

	// Unchanged flags only fill keys the file left unset.
	provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	if err := env.ParseWithOptions(&cfg.Tokens, env.Options{Environment: environ}); err != nil {
		return nil, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}
	databases, err := LoadDatabases(environ)
	if err != nil {
		return nil, err
	}
	cfg.Databases = *databases

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabases reads only the database URLs. Commands that never sign
// tokens use it instead of Load.
func LoadDatabases(environ map[string]string) (*Databases, error) {
	var dbs Databases
	if err := env.ParseWithOptions(&dbs, env.Options{Environment: environ}); err != nil {
		return nil, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}
	return &dbs, nil
}

// Validate checks ranges and the token secrets.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.LogFormat, validation.Required, validation.In("json", "text")),
		validation.Field(&c.LogLevel, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.RequestTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.ShutdownTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RecentPostsLimit, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.CompensationAttempts, validation.Required, validation.Min(uint64(1)), validation.Max(uint64(10))),
		validation.Field(&c.Tokens),
	)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}

// Validate requires two distinct secrets of at least MinSecretLen bytes.
func (t Tokens) Validate() error {
	err := validation.ValidateStruct(&t,
		validation.Field(&t.AccessSecret, validation.Required, validation.Length(MinSecretLen, 0)),
		validation.Field(&t.RefreshSecret, validation.Required, validation.Length(MinSecretLen, 0)),
	)
	if err != nil {
		return err
	}
	if t.AccessSecret == t.RefreshSecret {
		return errors.New("access and refresh secrets must differ")
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/spademh/spade/internal/auth"
	authpg "github.com/spademh/spade/internal/auth/postgres"
	"github.com/spademh/spade/internal/community"
	communitypg "github.com/spademh/spade/internal/community/postgres"
	"github.com/spademh/spade/internal/config"
	"github.com/spademh/spade/internal/httpapi"
	"github.com/spademh/spade/internal/logging"
	"github.com/spademh/spade/internal/observability"
	"github.com/spademh/spade/internal/store"
	"github.com/spademh/spade/internal/xdg"
)

const readHeaderTimeout = 5 * time.Second

type serveOptions struct {
	*rootOptions
	autoMigrate bool
	deps        *ServeDeps
}

// newServeCmd creates the serve subcommand.
func newServeCmd(root *rootOptions, deps *ServeDeps) *cobra.Command {
	opts := &serveOptions{rootOptions: root, deps: deps.withDefaults()}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the JSON API server together with the metrics and health endpoints.
Token secrets and database URLs are read from the environment
(ACCESS_TOKEN_SECRET, REFRESH_TOKEN_SECRET, AUTH_DB_URL, COMMUNITY_DB_URL).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, opts)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&opts.autoMigrate, "auto-migrate", false, "apply pending migrations before serving")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts *serveOptions) error {
	deps := opts.deps

	err := config.LoadDotEnv(opts.envFile)
	if err != nil {
		return err
	}
	configFile := opts.configFile
	if configFile == "" {
		if configFile, err = xdg.DefaultConfigFile(); err != nil {
			return err
		}
	}
	cfg, err := config.Load(cmd.Flags(), configFile, deps.Environ())
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.SetDefault("spade", version, cfg.LogFormat, level, cmd.ErrOrStderr())

	logger.Info("starting spade",
		"http_addr", cfg.HTTPAddr,
		"metrics_addr", cfg.MetricsAddr,
		"log_format", cfg.LogFormat,
		"log_level", cfg.LogLevel)

	if opts.autoMigrate {
		if err := autoMigrate(&cfg.Databases, deps.MigratorFactory); err != nil {
			return err
		}
	}

	authDB, err := deps.Connect(ctx, cfg.Databases.AuthURL)
	if err != nil {
		return oops.With("operation", "connect to auth database").Wrap(err)
	}
	defer authDB.Close()

	communityDB, err := deps.Connect(ctx, cfg.Databases.CommunityURL)
	if err != nil {
		return oops.With("operation", "connect to community database").Wrap(err)
	}
	defer communityDB.Close()

	logger.Info("connected to databases")

	authSvc, communitySvc, err := buildServices(cfg, authDB, communityDB, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	var obsServer ObservabilityServer
	var obsErrCh <-chan error
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, func(ctx context.Context) error {
			if err := authDB.Ping(ctx); err != nil {
				return oops.With("database", "auth").Wrap(err)
			}
			if err := communityDB.Ping(ctx); err != nil {
				return oops.With("database", "community").Wrap(err)
			}
			return nil
		})
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		metrics = obsServer.Metrics()
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	api, err := httpapi.New(authSvc, communitySvc, httpapi.Options{
		CookieSecure:   cfg.CookieSecure,
		RequestTimeout: cfg.RequestTimeout,
		Metrics:        metrics,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	listener, err := deps.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		stopObservability(obsServer, cfg.ShutdownTimeout, logger)
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTPAddr).Wrap(err)
	}

	server := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	serveErrCh := make(chan error, 1)
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			serveErrCh <- serveErr
		}
		close(serveErrCh)
	}()

	cmd.Println("spade is serving on " + listener.Addr().String())
	logger.Info("http server listening", "addr", listener.Addr().String())

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case serveErr := <-serveErrCh:
		runErr = oops.Code("HTTP_SERVE_FAILED").Wrap(serveErr)
	case obsErr, ok := <-obsErrCh:
		if ok {
			runErr = oops.Code("OBSERVABILITY_SERVE_FAILED").Wrap(obsErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	stopObservability(obsServer, cfg.ShutdownTimeout, logger)

	logger.Info("shutdown complete")
	return runErr
}

// buildServices wires the repositories and services of both stores.
func buildServices(cfg *config.Config, authDB, communityDB Database, logger *slog.Logger) (*auth.Service, *community.Service, error) {
	communitySvc, err := community.NewServiceWithLogger(community.Repositories{
		Profiles: communitypg.NewProfileRepository(communityDB),
		Posts:    communitypg.NewPostRepository(communityDB),
		Replies:  communitypg.NewReplyRepository(communityDB),
		Likes:    communitypg.NewLikeRepository(communityDB),
		Tx:       store.NewTransactor(communityDB),
	}, logger, community.WithRecentLimit(cfg.RecentPostsLimit))
	if err != nil {
		return nil, nil, oops.With("operation", "create community service").Wrap(err)
	}

	tokens, err := auth.NewTokenManager([]byte(cfg.Tokens.AccessSecret), []byte(cfg.Tokens.RefreshSecret))
	if err != nil {
		return nil, nil, err
	}

	authSvc, err := auth.NewServiceWithLogger(
		authpg.NewCredentialRepository(authDB),
		community.NewProvisioner(communitySvc),
		auth.NewArgon2idHasher(),
		tokens,
		logger,
		auth.WithCompensationAttempts(cfg.CompensationAttempts),
	)
	if err != nil {
		return nil, nil, oops.With("operation", "create auth service").Wrap(err)
	}

	return authSvc, communitySvc, nil
}

// autoMigrate applies pending migrations of every schema.
func autoMigrate(dbs *config.Databases, factory func(string, store.Schema) (Migrator, error)) error {
	for _, schema := range store.Schemas {
		m, err := factory(databaseURL(dbs, schema), schema)
		if err != nil {
			return oops.Code("MIGRATION_INIT_FAILED").With("schema", schema.Name).Wrap(err)
		}
		upErr := m.Up()
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "schema", schema.Name, "error", closeErr)
		}
		if upErr != nil {
			return oops.Code("AUTO_MIGRATION_FAILED").With("schema", schema.Name).Wrap(upErr)
		}
		slog.Info("migrations applied", "schema", schema.Name)
	}
	return nil
}

func stopObservability(server ObservabilityServer, timeout time.Duration, logger *slog.Logger) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

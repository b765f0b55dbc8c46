// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package main

import (
	"github.com/spf13/cobra"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configFile string
	envFile    string
}

// NewRootCmd creates the root command for the spade CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil, nil)
}

func newRootCmd(serveDeps *ServeDeps, migrateDeps *MigrateDeps) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "spade",
		Short: "Spade - accounts and community server",
		Long: `Spade serves account registration, cookie-based sessions and a small
community of posts, replies and likes over a JSON API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment (skipped when missing)")

	cmd.AddCommand(newServeCmd(opts, serveDeps))
	cmd.AddCommand(newMigrateCmd(opts, migrateDeps))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("spade %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

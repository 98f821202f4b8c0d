// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/unitroller/cmd/unitroller/cli"
	"github.com/bureau-foundation/unitroller/lib/version"
	"github.com/bureau-foundation/unitroller/node"
)

func serveCommand() *cli.Command {
	var conn connection
	var persist bool

	return &cli.Command{
		Name:    "serve",
		Summary: "Run a node on a Unix socket",
		Description: `Run a node until interrupted.

The node restores node.snapshot_file when it exists. Otherwise it applies
deployment.file to an empty host, or starts empty when no deployment is
configured. With node.persist (or --persist) the committed state is
written back to the snapshot file on shutdown.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			conn.addFlags(flagSet)
			flagSet.BoolVar(&persist, "persist", false, "write a snapshot on shutdown")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			cfg, err := loadConfig(conn.ConfigPath)
			if err != nil {
				return err
			}
			if conn.SocketPath != "" {
				cfg.Node.SocketPath = conn.SocketPath
			}
			if persist {
				cfg.Node.Persist = true
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := cfg.EnsurePaths(); err != nil {
				return err
			}

			level, err := cli.ParseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}
			logger := cli.NewLogger(os.Stderr, level, cfg.Log.Format)
			logger.Info("starting unitroller node",
				append(version.Fields(),
					"environment", cfg.Environment,
					"socket", cfg.Node.SocketPath,
				)...,
			)

			ctx, cancel := commandContext()
			defer cancel()

			n, err := node.Open(ctx, cfg, nil, logger)
			if err != nil {
				return err
			}
			return n.Serve(ctx, cfg.Node.SocketPath)
		},
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the unitroller command tree.
//
// "serve" runs a node from a configuration file. Every other command
// is a client of a running node's socket, found through --socket or
// the node.socket_path of the configuration named by --config or
// UNITROLLER_CONFIG. Results are written to stdout as JSON.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/unitroller/cmd/unitroller/cli"
	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/config"
	"github.com/bureau-foundation/unitroller/lib/version"
	"github.com/bureau-foundation/unitroller/node"
)

// Root builds the complete command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "unitroller",
		Description: `unitroller: an admin-governed transparent upgrade proxy.

A node hosts the proxy and its implementation modules on a local
execution host. Control of the proxy passes through two-step handoffs:
the admin proposes a pending admin or implementation, and the proposed
party accepts.`,
		Subcommands: []*cli.Command{
			serveCommand(),
			statusCommand(),
			stateCommand(),
			adminCommand(),
			implementationCommand(),
			callCommand(),
			logsCommand(),
			simulateCommand(),
			snapshotCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Fprintf(cli.Stdout, "unitroller %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Run a node from a configuration file",
				Command:     "unitroller serve --config ~/.config/unitroller.yaml",
			},
			{
				Description: "Show the proxy's admin and implementation",
				Command:     "unitroller state",
			},
			{
				Description: "Hand the proxy to a timelock",
				Command:     "unitroller admin propose 0x939bD8d64c0A9583A7Dcea9933f7b21697ab6396 --from deployer",
			},
			{
				Description: "Dry-run a governance proposal against the node's state",
				Command:     "unitroller simulate vip-104.yaml",
			},
		},
	}
}

// connection locates a running node.
type connection struct {
	ConfigPath string
	SocketPath string
}

func (c *connection) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.ConfigPath, "config", "", "configuration file (default $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&c.SocketPath, "socket", "", "node socket path (overrides the configuration)")
}

func (c *connection) client() (*node.Client, error) {
	if c.SocketPath != "" {
		return node.NewClient(c.SocketPath), nil
	}
	cfg, err := loadConfig(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	return node.NewClient(cfg.Node.SocketPath), nil
}

// proxy returns the explicit proxy address, or the node's own when
// raw is empty.
func (c *connection) proxy(ctx context.Context, client *node.Client, raw string) (address.Address, error) {
	if raw != "" {
		return address.Parse(raw)
	}
	status, err := client.Status(ctx)
	if err != nil {
		return address.Zero, err
	}
	if status.Proxy.IsZero() {
		return address.Zero, errors.New("node hosts no proxy; pass --proxy")
	}
	return status.Proxy, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// parseAccount accepts a hex address or an account label.
func parseAccount(raw string) (address.Address, error) {
	if raw == "" {
		return address.Zero, errors.New("empty account")
	}
	if parsed, err := address.Parse(raw); err == nil {
		return parsed, nil
	}
	if len(raw) > 2 && (raw[:2] == "0x" || raw[:2] == "0X") {
		return address.Zero, fmt.Errorf("account %q looks like an address but does not parse", raw)
	}
	return address.FromLabel(raw), nil
}

// commandContext is cancelled by SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

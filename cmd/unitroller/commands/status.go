// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/unitroller/cmd/unitroller/cli"
	"github.com/bureau-foundation/unitroller/lib/address"
)

func statusCommand() *cli.Command {
	var conn connection

	return &cli.Command{
		Name:    "status",
		Summary: "Show the node's block height and proxy",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			conn.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			client, err := conn.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			status, err := client.Status(ctx)
			if err != nil {
				return err
			}
			return cli.WriteJSON(status)
		},
	}
}

func stateCommand() *cli.Command {
	var conn connection
	var asYAML bool

	return &cli.Command{
		Name:    "state",
		Summary: "Show a proxy's admin and implementation slots",
		Usage:   "unitroller state [proxy] [flags]",
		Description: `Print the four control slots of a proxy: admin, pending admin,
implementation, and pending implementation. Without an argument the
node's own proxy is read.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("state", pflag.ContinueOnError)
			conn.addFlags(flagSet)
			flagSet.BoolVar(&asYAML, "yaml", false, "print YAML instead of JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("expected at most one proxy address, got %d arguments", len(args))
			}
			unitroller := address.Zero
			if len(args) == 1 {
				parsed, err := address.Parse(args[0])
				if err != nil {
					return err
				}
				unitroller = parsed
			}

			client, err := conn.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			state, err := client.State(ctx, unitroller)
			if err != nil {
				return err
			}
			if asYAML {
				encoder := yaml.NewEncoder(cli.Stdout)
				defer encoder.Close()
				return encoder.Encode(state)
			}
			return cli.WriteJSON(state)
		},
	}
}

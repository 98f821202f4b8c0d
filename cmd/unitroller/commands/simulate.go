// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/unitroller/cmd/unitroller/cli"
	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/node"
)

func simulateCommand() *cli.Command {
	var conn connection
	var executor string
	var retargets []string

	return &cli.Command{
		Name:    "simulate",
		Summary: "Dry-run a governance proposal",
		Usage:   "unitroller simulate <proposal.yaml> [flags]",
		Description: `Run a proposal's pre-checks, actions, and post-checks against a fork
of the node's state. The node's own state is never changed.

The proposal executes as --executor, which defaults to the proxy's
current admin. --retarget rewrites a target address throughout the
proposal, for proposals written against another network.

Exits 1 when any check fails, an action is rejected, or the proposal
aborts.`,
		Examples: []cli.Example{
			{
				Description: "Simulate VIP-104 against a local deployment of the mainnet proxy",
				Command:     "unitroller simulate vip-104.yaml --retarget 0xfD36E2c2a6789Db23113685031d7F16329158384=$(unitroller status | jq -r .proxy)",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
			conn.addFlags(flagSet)
			flagSet.StringVar(&executor, "executor", "", "executing account: address or label (default: the proxy's admin)")
			flagSet.StringArrayVar(&retargets, "retarget", nil, "FROM=TO address rewrite (repeatable)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected one proposal file")
			}
			proposal, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			request := node.SimulateRequest{Proposal: proposal}
			for _, raw := range retargets {
				entry, err := parseRetarget(raw)
				if err != nil {
					return err
				}
				request.Retarget = append(request.Retarget, entry)
			}

			client, err := conn.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			if executor != "" {
				request.Executor, err = parseAccount(executor)
				if err != nil {
					return fmt.Errorf("--executor: %w", err)
				}
			} else {
				state, err := client.State(ctx, address.Zero)
				if err != nil {
					return err
				}
				request.Executor = state.Admin
			}

			response, err := client.Simulate(ctx, request)
			if err != nil {
				return err
			}
			if err := cli.WriteJSON(response); err != nil {
				return err
			}
			if !response.Passed {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func parseRetarget(raw string) (node.Retarget, error) {
	from, to, ok := strings.Cut(raw, "=")
	if !ok {
		return node.Retarget{}, fmt.Errorf("--retarget %q: expected FROM=TO", raw)
	}
	fromAddress, err := address.Parse(from)
	if err != nil {
		return node.Retarget{}, fmt.Errorf("--retarget %q: %w", raw, err)
	}
	toAddress, err := address.Parse(to)
	if err != nil {
		return node.Retarget{}, fmt.Errorf("--retarget %q: %w", raw, err)
	}
	return node.Retarget{From: fromAddress, To: toAddress}, nil
}

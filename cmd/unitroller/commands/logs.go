// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/unitroller/cmd/unitroller/cli"
	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/host"
)

// eventOutput is a host.Event with its payload in diagnostic notation.
type eventOutput struct {
	Block   uint64          `json:"block"`
	Address address.Address `json:"address"`
	Name    string          `json:"name"`
	Data    string          `json:"data"`
}

func logsCommand() *cli.Command {
	var conn connection
	var emitter string
	var names []string
	var fromBlock, toBlock uint64

	return &cli.Command{
		Name:    "logs",
		Summary: "List committed events",
		Description: `Print committed events in block order. Filters combine: an event
must match the emitter, one of the names, and the block range. Events
of aborted transactions are never committed.`,
		Examples: []cli.Example{
			{
				Description: "Every implementation change of the node's proxy",
				Command:     "unitroller logs --name NewImplementation --name NewPendingImplementation",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("logs", pflag.ContinueOnError)
			conn.addFlags(flagSet)
			flagSet.StringVar(&emitter, "address", "", "emitting address")
			flagSet.StringSliceVar(&names, "name", nil, "event name (repeatable)")
			flagSet.Uint64Var(&fromBlock, "from-block", 0, "first block")
			flagSet.Uint64Var(&toBlock, "to-block", 0, "last block (0 for the head)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			filter := host.LogFilter{Names: names, FromBlock: fromBlock, ToBlock: toBlock}
			if emitter != "" {
				parsed, err := address.Parse(emitter)
				if err != nil {
					return fmt.Errorf("--address: %w", err)
				}
				filter.Address = parsed
			}

			client, err := conn.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			events, err := client.Logs(ctx, filter)
			if err != nil {
				return err
			}
			output := make([]eventOutput, len(events))
			for i, event := range events {
				output[i] = eventOutput{
					Block:   event.Block,
					Address: event.Address,
					Name:    event.Name,
					Data:    diagnose(event.Data),
				}
			}
			return cli.WriteJSON(output)
		},
	}
}

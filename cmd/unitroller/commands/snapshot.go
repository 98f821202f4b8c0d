// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/unitroller/cmd/unitroller/cli"
	"github.com/bureau-foundation/unitroller/node"
)

func snapshotCommand() *cli.Command {
	var conn connection
	var request node.SnapshotRequest

	return &cli.Command{
		Name:    "snapshot",
		Summary: "Write the node's committed state to a file",
		Description: `Ask the node to export its committed state. The path is on the node's
filesystem and defaults to node.snapshot_file. Compression is none, lz4,
or zstd and defaults to node.compression. The printed digest covers the
uncompressed state.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("snapshot", pflag.ContinueOnError)
			conn.addFlags(flagSet)
			flagSet.StringVar(&request.Path, "path", "", "output path on the node (default: node.snapshot_file)")
			flagSet.StringVar(&request.Compression, "compression", "", "none, lz4, or zstd (default: node.compression)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			client, err := conn.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			response, err := client.Snapshot(ctx, request)
			if err != nil {
				return err
			}
			return cli.WriteJSON(response)
		},
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command unitroller runs and administers an upgrade proxy node.
package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/unitroller/cmd/unitroller/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (a rejected handoff, a
		// failing simulation) return an error carrying the exit code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/unitroller/cmd/unitroller/cli"
	"github.com/bureau-foundation/unitroller/node"
	"github.com/bureau-foundation/unitroller/proxy"
)

// administrativeOutput reports one handoff step. A rejected step exits
// 1 after printing; a reverted one is an error.
type administrativeOutput struct {
	Signature   string                 `json:"signature"`
	Code        string                 `json:"code"`
	Failure     string                 `json:"failure,omitempty"`
	Transaction node.TransactionResult `json:"transaction"`
	State       proxy.State            `json:"state"`
}

// handoff is one of the two-step handoffs: admin or implementation.
type handoff struct {
	name       string
	aliases    []string
	candidate  string
	propose    string
	accept     string
	acceptedBy string
}

func adminCommand() *cli.Command {
	return handoffCommand(handoff{
		name:       "admin",
		candidate:  "account",
		propose:    proxy.SignatureSetPendingAdmin,
		accept:     proxy.SignatureAcceptAdmin,
		acceptedBy: "the pending admin",
	})
}

func implementationCommand() *cli.Command {
	return handoffCommand(handoff{
		name:       "implementation",
		aliases:    []string{"impl"},
		candidate:  "module",
		propose:    proxy.SignatureSetPendingImplementation,
		accept:     proxy.SignatureAcceptImplementation,
		acceptedBy: "the pending implementation (usually through its become entry point)",
	})
}

func handoffCommand(h handoff) *cli.Command {
	return &cli.Command{
		Name:    h.name,
		Aliases: h.aliases,
		Summary: fmt.Sprintf("Propose or accept a new %s", h.name),
		Description: fmt.Sprintf(`Two-step %s handoff.

"propose" must come from the current admin and records the candidate
as pending. "accept" must come from %s.
A rejected step leaves the proxy unchanged, prints the failure code,
and exits 1.`, h.name, h.acceptedBy),
		Subcommands: []*cli.Command{
			h.proposeCommand(),
			h.acceptCommand(),
		},
	}
}

func (h handoff) proposeCommand() *cli.Command {
	var conn connection
	var from, proxyAddress string

	return &cli.Command{
		Name:    "propose",
		Summary: fmt.Sprintf("Record a pending %s (admin only)", h.name),
		Usage:   fmt.Sprintf("unitroller %s propose <%s> --from <account> [flags]", h.name, h.candidate),
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("propose", pflag.ContinueOnError)
			conn.addFlags(flagSet)
			flagSet.StringVar(&from, "from", "", "sending account: address or label (required)")
			flagSet.StringVar(&proxyAddress, "proxy", "", "proxy address (default: the node's proxy)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected one %s argument", h.candidate)
			}
			candidate, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			return h.administer(&conn, from, proxyAddress, h.propose, candidate)
		},
	}
}

func (h handoff) acceptCommand() *cli.Command {
	var conn connection
	var from, proxyAddress string

	return &cli.Command{
		Name:    "accept",
		Summary: fmt.Sprintf("Accept the pending %s", h.name),
		Usage:   fmt.Sprintf("unitroller %s accept --from <account> [flags]", h.name),
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("accept", pflag.ContinueOnError)
			conn.addFlags(flagSet)
			flagSet.StringVar(&from, "from", "", "sending account: address or label (required)")
			flagSet.StringVar(&proxyAddress, "proxy", "", "proxy address (default: the node's proxy)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			return h.administer(&conn, from, proxyAddress, h.accept)
		},
	}
}

func (h handoff) administer(conn *connection, from, proxyAddress, signature string, args ...any) error {
	if from == "" {
		return fmt.Errorf("--from is required")
	}
	sender, err := parseAccount(from)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	client, err := conn.client()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	target, err := conn.proxy(ctx, client, proxyAddress)
	if err != nil {
		return err
	}
	result, transaction, err := client.Administer(ctx, sender, target, signature, args...)
	if err != nil {
		return err
	}
	state, err := client.State(ctx, target)
	if err != nil {
		return err
	}

	output := administrativeOutput{
		Signature:   signature,
		Code:        result.Code.String(),
		Transaction: transaction,
		State:       state,
	}
	if !result.OK() {
		output.Failure = result.String()
	}
	if err := cli.WriteJSON(output); err != nil {
		return err
	}
	if !result.OK() {
		return &cli.ExitError{Code: 1}
	}
	return nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/unitroller/cmd/unitroller/cli"
	"github.com/bureau-foundation/unitroller/lib/codec"
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/lib/selector"
	"github.com/bureau-foundation/unitroller/node"
)

type callOutput struct {
	Signature   string                  `json:"signature"`
	Return      string                  `json:"return,omitempty"`
	Transaction *node.TransactionResult `json:"transaction,omitempty"`

	// Set only for a reverted view.
	Reverted     bool   `json:"reverted,omitempty"`
	RevertReason string `json:"revert_reason,omitempty"`
	RevertData   []byte `json:"revert_data,omitempty"`
}

func callCommand() *cli.Command {
	var conn connection
	var from, to string
	var view bool

	return &cli.Command{
		Name:    "call",
		Summary: "Call an entry point through the proxy",
		Usage:   "unitroller call <signature> [args...] --from <account> [flags]",
		Description: `Pack a call from a signature and arguments and send it to the proxy
(or --to). Each argument is read as JSON when it parses as JSON and as a
plain string otherwise, so addresses and decimal integers can be passed
bare, arrays as ["0x…","0x…"], and scaled amounts as
{"units":"0.45","decimals":18}.

With --view the call is read-only and its return value is printed.
Otherwise a transaction is mined. An abort on either path is printed
with its revert reason and raw payload and exits 1.`,
		Examples: []cli.Example{
			{
				Description: "Read the borrow cap of a market",
				Command:     "unitroller call 'borrowCaps(address)' 0xC5D3466aA484B040eE977073fcF337f2c00071c1 --view",
			},
			{
				Description: "Set a collateral factor as the admin",
				Command:     `unitroller call '_setCollateralFactor(address,uint256)' 0xC5D3466aA484B040eE977073fcF337f2c00071c1 '{"units":"0.45","decimals":18}' --from timelock`,
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("call", pflag.ContinueOnError)
			conn.addFlags(flagSet)
			flagSet.StringVar(&from, "from", "", "sending account: address or label (required unless --view)")
			flagSet.StringVar(&to, "to", "", "called address (default: the node's proxy)")
			flagSet.BoolVar(&view, "view", false, "read-only call")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("expected a signature")
			}
			input, err := packArguments(args[0], args[1:])
			if err != nil {
				return err
			}
			sender := from
			if sender == "" {
				if !view {
					return fmt.Errorf("--from is required")
				}
				sender = "viewer"
			}
			caller, err := parseAccount(sender)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}

			client, err := conn.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			target, err := conn.proxy(ctx, client, to)
			if err != nil {
				return err
			}

			output := callOutput{Signature: args[0]}
			if view {
				returned, err := client.View(ctx, caller, target, input)
				var revert *host.RevertError
				if errors.As(err, &revert) {
					output.Reverted = true
					output.RevertReason, _ = host.RevertReason(revert)
					output.RevertData = revert.Data
					if err := cli.WriteJSON(output); err != nil {
						return err
					}
					return &cli.ExitError{Code: 1}
				}
				if err != nil {
					return err
				}
				output.Return = diagnose(returned)
				return cli.WriteJSON(output)
			}

			transaction, err := client.Call(ctx, caller, target, input)
			if err != nil {
				return err
			}
			output.Transaction = &transaction
			if len(transaction.Return) > 0 {
				output.Return = diagnose(transaction.Return)
			}
			if err := cli.WriteJSON(output); err != nil {
				return err
			}
			if transaction.Reverted {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// packArguments coerces command-line arguments to the signature's
// parameter types and packs the call.
func packArguments(rawSignature string, rawArgs []string) ([]byte, error) {
	signature, err := selector.ParseSignature(rawSignature)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(rawArgs))
	for i, raw := range rawArgs {
		values[i] = parseArgument(raw)
	}
	coerced, err := selector.CoerceAll(signature, values)
	if err != nil {
		return nil, err
	}
	return selector.Pack(signature.String(), coerced...)
}

func parseArgument(raw string) any {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil || decoder.More() {
		return raw
	}
	return value
}

func diagnose(data []byte) string {
	text, err := codec.Diagnose(data)
	if err != nil {
		return fmt.Sprintf("h'%x'", data)
	}
	return text
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package governance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/errorreporter"
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/proxy"
)

// Executor runs proposals from the governance account.
type Executor struct {
	// Account is the sender of every action, normally the timelock
	// holding admin rights on the proxy.
	Account address.Address

	Logger *slog.Logger
}

// ActionResult is the outcome of one committed action.
type ActionResult struct {
	Index     int
	Target    address.Address
	Signature string
	Return    []byte

	// Result is set for administrative entry points (signature names
	// starting with "_" that return a code). A nonzero code means the
	// target rejected the action without aborting.
	Result *errorreporter.Result

	Events []host.Event
}

// Rejected reports whether the action returned a nonzero code.
func (r ActionResult) Rejected() bool {
	return r.Result != nil && !r.Result.OK()
}

// Execution is the outcome of an executed proposal. When the proposal
// aborted, Actions holds the actions that ran before the abort; their
// effects were rolled back with it.
type Execution struct {
	Receipt *host.Receipt
	Actions []ActionResult
}

// Rejected returns the actions that returned a nonzero code.
func (e *Execution) Rejected() []ActionResult {
	var result []ActionResult
	for _, action := range e.Actions {
		if action.Rejected() {
			result = append(result, action)
		}
	}
	return result
}

// ActionError reports the action whose abort rolled back a proposal.
type ActionError struct {
	Index     int
	Signature string
	Err       error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %d (%s): %v", e.Index, e.Signature, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Execute runs every action of proposal in one atomic batch. An abort
// in any action is returned as an *ActionError and nothing the
// proposal did persists.
func (e *Executor) Execute(ctx context.Context, h *host.Host, proposal *Proposal) (*Execution, error) {
	logger := e.logger().With("proposal", proposal.Meta.Title, "account", e.Account)
	execution := &Execution{}

	receipt, err := h.Batch(ctx, e.Account, func(tx *host.Tx) error {
		for i, action := range proposal.Actions {
			input, err := action.Calldata()
			if err != nil {
				return &ActionError{Index: i, Signature: action.Signature, Err: err}
			}
			before := len(tx.Logs())
			output, err := tx.Call(action.Target, input)
			if err != nil {
				return &ActionError{Index: i, Signature: action.Signature, Err: err}
			}
			events := tx.Logs()[before:]

			result := ActionResult{
				Index:     i,
				Target:    action.Target,
				Signature: action.Signature,
				Return:    output,
				Events:    events,
			}
			if returnsCode(action.Signature, output) {
				decoded, err := proxy.DecodeResult(output, events, action.Target)
				if err != nil {
					logger.Debug("action return is not a result code",
						"index", i,
						"signature", action.Signature,
						"error", err,
					)
				} else {
					result.Result = &decoded
				}
			}
			if result.Rejected() {
				logger.Warn("action rejected",
					"index", i,
					"signature", action.Signature,
					"code", result.Result.Code,
					"failure", result.Result.Failure,
				)
			}
			execution.Actions = append(execution.Actions, result)
		}
		return nil
	})
	execution.Receipt = receipt
	if err != nil {
		logger.Info("proposal aborted", "error", err)
		return execution, err
	}

	logger.Info("proposal executed",
		"block", receipt.Block,
		"actions", len(execution.Actions),
		"rejected", len(execution.Rejected()),
	)
	return execution, nil
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// returnsCode reports whether an action's return data should be read
// as an administrative code: comptroller-style entry points are
// prefixed with an underscore and return a single integer.
func returnsCode(signature string, output []byte) bool {
	return strings.HasPrefix(signature, "_") && len(output) > 0
}

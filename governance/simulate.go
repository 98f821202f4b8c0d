// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package governance

import (
	"context"

	"github.com/bureau-foundation/unitroller/lib/host"
)

// Simulation is the report of a proposal run against a fork.
type Simulation struct {
	Block     uint64        `json:"block"`
	Pre       []CheckResult `json:"pre"`
	Post      []CheckResult `json:"post"`
	Execution *Execution    `json:"-"`

	// Error is the abort that rolled the proposal back, if any.
	Error string `json:"error,omitempty"`

	// Rejected lists the indexes of actions that returned a nonzero
	// administrative code.
	Rejected []int `json:"rejected,omitempty"`
}

// Passed reports whether every check passed, the proposal committed,
// and no action was rejected.
func (s *Simulation) Passed() bool {
	if s.Error != "" || len(s.Rejected) > 0 {
		return false
	}
	for _, results := range [][]CheckResult{s.Pre, s.Post} {
		for _, result := range results {
			if !result.Passed {
				return false
			}
		}
	}
	return true
}

// Simulate runs proposal against a fork of h. Pre-checks see the fork
// before execution and post-checks see it after; a failed pre-check
// does not stop execution. h itself is never modified.
func (e *Executor) Simulate(ctx context.Context, h *host.Host, proposal *Proposal) (*Simulation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fork := h.Fork()
	simulation := &Simulation{Block: fork.BlockNumber()}

	simulation.Pre = EvaluateAll(ctx, fork, e.Account, proposal.Checks.Pre)

	execution, err := e.Execute(ctx, fork, proposal)
	simulation.Execution = execution
	if err != nil {
		simulation.Error = err.Error()
	} else {
		for _, action := range execution.Rejected() {
			simulation.Rejected = append(simulation.Rejected, action.Index)
		}
	}

	simulation.Post = EvaluateAll(ctx, fork, e.Account, proposal.Checks.Post)
	return simulation, nil
}

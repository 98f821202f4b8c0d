// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package governance executes batched administrative proposals
// against a host and verifies them on a fork before they run for real.
//
// A [Proposal] is authored as a JSONC file: metadata, a list of
// actions (target, signature, parameters), and optional pre- and
// post-execution checks. Parameters are written loosely in JSON and
// coerced to the types named by the action's signature, so a
// collateral factor can be written as {"units": "0.45", "decimals": 18}
// instead of an 18-digit integer.
//
// [Executor.Execute] runs every action as one atomic host batch from
// the executor's account (the timelock that holds proxy admin rights).
// Actions that return an administrative code are not aborted by a
// nonzero code: the code and its Failure record are reported per
// action in [ActionResult], and callers decide what a rejected
// sub-action means. An abort in any action rolls back the whole
// proposal.
//
// [Simulate] forks the host, evaluates pre-checks, executes, and
// evaluates post-checks. The host it was given is never modified.
package governance

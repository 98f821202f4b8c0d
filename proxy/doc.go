// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package proxy implements the Unitroller: a stable-address upgrade
// proxy whose logic lives in a replaceable implementation module and
// whose administrative authority is transferred through two-phase
// handoffs.
//
// The proxy owns four control slots at fixed positions: admin,
// pendingAdmin, implementation, and pendingImplementation. [Deploy]
// writes admin = deployer; the other three start unset (the zero
// address).
//
// Both handoffs follow the same shape. The current admin proposes a
// candidate (any address, including zero, and overwriting any earlier
// proposal). The candidate then accepts: for admin transfer the
// candidate account calls _acceptAdmin; for an implementation upgrade
// the candidate module itself calls _acceptImplementation, normally
// from its own become entry point. Acceptance moves the pending value
// into the active slot and clears the pending slot.
//
// Check failures on these entry points never abort. They emit a
// Failure event through lib/errorreporter and return the nonzero code
// (UNAUTHORIZED) with no state change. Callers that treat "did not
// abort" as success are wrong; [Client] surfaces the code as an
// [errorreporter.Result] so it cannot be missed.
//
// Every other entry point is forwarded by [host.Frame.DelegateCall] to
// the active implementation: the module runs against the proxy's
// storage with the original caller, and its return data or abort comes
// back unchanged. The control slots are protected from writes by the
// delegated module. With no implementation set, every forwarded call
// aborts with [ErrNoImplementation].
package proxy

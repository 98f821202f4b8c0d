// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/errorreporter"
	"github.com/bureau-foundation/unitroller/lib/host"
)

// The protocol functions below run inside the proxy's own frame.
// Their Result is the entry point's outcome; their error is an abort
// (a storage or emit failure, e.g. inside a read-only call) that must
// be propagated.

// ProposeNewAdmin nominates candidate as the next admin. Only the
// current admin may nominate. An existing nomination is overwritten.
func ProposeNewAdmin(frame *host.Frame, candidate address.Address) (errorreporter.Result, error) {
	store := NewStore(frame)
	if frame.Caller() != store.Admin() {
		return errorreporter.Fail(frame, errorreporter.Unauthorized, errorreporter.SetPendingAdminOwnerCheck)
	}

	old := store.PendingAdmin()
	if err := store.SetPendingAdmin(candidate); err != nil {
		return errorreporter.Result{}, err
	}
	if err := frame.Emit(EventNewPendingAdmin, Transition{Old: old, New: candidate}); err != nil {
		return errorreporter.Result{}, err
	}
	return errorreporter.Success(), nil
}

// AcceptAdmin completes an admin handoff. Only a set pendingAdmin,
// calling for itself, may accept.
func AcceptAdmin(frame *host.Frame) (errorreporter.Result, error) {
	store := NewStore(frame)
	pending := store.PendingAdmin()
	if pending.IsZero() || frame.Caller() != pending {
		return errorreporter.Fail(frame, errorreporter.Unauthorized, errorreporter.AcceptAdminPendingAdminCheck)
	}

	oldAdmin := store.Admin()
	if err := store.SetAdmin(pending); err != nil {
		return errorreporter.Result{}, err
	}
	if err := store.SetPendingAdmin(address.Zero); err != nil {
		return errorreporter.Result{}, err
	}
	if err := frame.Emit(EventNewAdmin, Transition{Old: oldAdmin, New: pending}); err != nil {
		return errorreporter.Result{}, err
	}
	if err := frame.Emit(EventNewPendingAdmin, Transition{Old: pending, New: address.Zero}); err != nil {
		return errorreporter.Result{}, err
	}
	return errorreporter.Success(), nil
}

// ProposeNewImplementation nominates candidate as the next
// implementation. Only the admin may nominate; the nomination
// overwrites any earlier one.
func ProposeNewImplementation(frame *host.Frame, candidate address.Address) (errorreporter.Result, error) {
	store := NewStore(frame)
	if frame.Caller() != store.Admin() {
		return errorreporter.Fail(frame, errorreporter.Unauthorized, errorreporter.SetPendingImplementationOwnerCheck)
	}

	old := store.PendingImplementation()
	if err := store.SetPendingImplementation(candidate); err != nil {
		return errorreporter.Result{}, err
	}
	if err := frame.Emit(EventNewPendingImplementation, Transition{Old: old, New: candidate}); err != nil {
		return errorreporter.Result{}, err
	}
	return errorreporter.Success(), nil
}

// AcceptImplementation activates the pending implementation. The
// caller must be the pending candidate itself; a rejected attempt
// leaves the nomination in place.
func AcceptImplementation(frame *host.Frame) (errorreporter.Result, error) {
	store := NewStore(frame)
	pending := store.PendingImplementation()
	if pending.IsZero() || frame.Caller() != pending {
		return errorreporter.Fail(frame, errorreporter.Unauthorized, errorreporter.AcceptPendingImplementationAddressCheck)
	}

	oldImplementation := store.Implementation()
	if err := store.SetImplementation(pending); err != nil {
		return errorreporter.Result{}, err
	}
	if err := store.SetPendingImplementation(address.Zero); err != nil {
		return errorreporter.Result{}, err
	}
	if err := frame.Emit(EventNewImplementation, Transition{Old: oldImplementation, New: pending}); err != nil {
		return errorreporter.Result{}, err
	}
	if err := frame.Emit(EventNewPendingImplementation, Transition{Old: pending, New: address.Zero}); err != nil {
		return errorreporter.Result{}, err
	}
	return errorreporter.Success(), nil
}

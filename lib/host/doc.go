// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package host is the execution substrate the upgrade proxy and its
// logic modules run on.
//
// A [Host] holds contract accounts (code plus a slot-addressed storage
// map), per-account deployment nonces, a block counter, and the
// committed event log. Every state-changing entry point
// ([Host.Deploy], [Host.Transact], [Host.Batch]) takes the host lock
// for the whole top-level execution, so there is exactly one global
// order of calls and no call ever observes another half-applied.
//
// Contracts implement [Contract] and see the world through a [Frame]:
// the caller, the storage context (Self), the code being run (Code),
// storage access, event emission, and nested calls. [Frame.Call] runs
// another contract in its own storage with Self as the caller.
// [Frame.DelegateCall] runs another contract's code in the current
// storage context with the current caller preserved, which is how the
// proxy hosts its logic module. A delegated frame can be given a set
// of protected slots that the delegated code may read but never write.
//
// Every frame is atomic. A frame whose contract returns an error has
// all of its storage writes and events rolled back through the
// execution journal before the error reaches the caller. The error
// itself is returned unchanged, so a [RevertError] payload raised
// three frames deep reaches the top-level caller byte for byte.
//
// [Host.View] runs a read-only call: stores and emits fail with
// [ErrReadOnly] and no block is produced. [Host.Fork] copies the whole
// state into an independent Host for pre-flight simulation, and
// [Host.Export] / [Import] move state through a framed, digest-checked,
// optionally compressed CBOR snapshot.
package host

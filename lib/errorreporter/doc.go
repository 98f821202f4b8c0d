// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package errorreporter implements the non-aborting failure convention
// used by administrative entry points.
//
// Administrative checks (wrong caller, missing pending nomination,
// unlisted market on an admin setter) do not abort the call. The entry
// point emits a structured Failure event carrying an [Error] kind, a
// [FailureInfo] naming the exact check that failed, and an auxiliary
// detail word, and then returns normally with the nonzero error code as
// its return value. Nothing is written to storage.
//
// This lets a governance batch keep executing after a rejected
// sub-action, and it means callers must inspect the returned code: a
// call that did not abort is not necessarily a call that succeeded.
//
// Every other failure (anything a forwarded logic module raises, any
// call into a proxy with no implementation) aborts through lib/host and
// is a Go error, never a [Result].
//
// The numbering of both enums is part of the observable interface.
// Tooling that reads Failure events off a snapshot or a socket compares
// raw integers, so new values are only ever appended.
package errorreporter

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package errorreporter

import "fmt"

// EventFailure is the event name under which failures are emitted.
const EventFailure = "Failure"

// Failure is the structured failure record carried by a Failure event.
type Failure struct {
	Kind   Error       `cbor:"error"`
	Info   FailureInfo `cbor:"info"`
	Detail uint64      `cbor:"detail"`
}

// Error implements error so a Failure can travel through errors.As
// when a caller chooses to treat a rejection as fatal.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s (%s, detail %d)", f.Kind, f.Info, f.Detail)
}

// Result is the tagged outcome of an administrative entry point: NoError
// with a nil Failure, or a nonzero code with the record that was
// emitted.
type Result struct {
	Code    Error
	Failure *Failure
}

// Success is the Result of an entry point whose checks all passed.
func Success() Result { return Result{} }

// OK reports whether the entry point succeeded.
func (r Result) OK() bool { return r.Code == NoError }

// Err returns the Failure as an error, or nil on success. A Result
// decoded from a bare return code (no event available) still yields a
// non-nil error.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	if r.Failure != nil {
		return r.Failure
	}
	return &Failure{Kind: r.Code}
}

// String renders the Result for logs.
func (r Result) String() string {
	if r.OK() {
		return NoError.String()
	}
	return r.Err().Error()
}

// Emitter receives failure events. lib/host frames implement it.
type Emitter interface {
	Emit(name string, payload any) error
}

// Fail emits a Failure with a zero detail and returns the matching
// Result. The returned error is non-nil only when the emitter itself
// failed (for example, inside a read-only call), in which case the
// caller must abort.
func Fail(emitter Emitter, kind Error, info FailureInfo) (Result, error) {
	return FailOpaque(emitter, kind, info, 0)
}

// FailOpaque is Fail with an auxiliary detail word, typically an
// error code returned by a nested call.
func FailOpaque(emitter Emitter, kind Error, info FailureInfo, detail uint64) (Result, error) {
	failure := &Failure{Kind: kind, Info: info, Detail: detail}
	if err := emitter.Emit(EventFailure, failure); err != nil {
		return Result{}, fmt.Errorf("emitting %s failure: %w", info, err)
	}
	return Result{Code: kind, Failure: failure}, nil
}

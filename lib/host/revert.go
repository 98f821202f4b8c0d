// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/unitroller/lib/selector"
)

var (
	// ErrReadOnly is returned by Store and Emit inside a View.
	ErrReadOnly = errors.New("state modification in read-only call")

	// ErrProtectedSlot is returned when delegated code writes a slot
	// its delegating frame protected.
	ErrProtectedSlot = errors.New("write to protected slot")

	// ErrCallDepth is returned when nested calls exceed maxDepth.
	ErrCallDepth = errors.New("call depth exceeded")
)

// maxDepth bounds nested Call and DelegateCall chains.
const maxDepth = 1024

// errorSignature is the revert payload layout for string reasons.
const errorSignature = "Error(string)"

// RevertError is an explicit abort carrying an opaque payload. Callers
// that propagate it must not wrap or rewrite it: the payload is
// relayed verbatim to the top-level caller.
type RevertError struct {
	Data []byte
}

func (e *RevertError) Error() string {
	if reason, ok := decodeReason(e.Data); ok {
		return "execution reverted: " + reason
	}
	if len(e.Data) == 0 {
		return "execution reverted"
	}
	return fmt.Sprintf("execution reverted (%d byte payload)", len(e.Data))
}

// Revert returns a RevertError whose payload encodes reason.
func Revert(reason string) error {
	return &RevertError{Data: selector.MustPack(errorSignature, reason)}
}

// RevertReason extracts the string reason from a RevertError anywhere
// in err's chain. It returns false for other errors and for payloads
// that are not string reasons.
func RevertReason(err error) (string, bool) {
	var revert *RevertError
	if !errors.As(err, &revert) {
		return "", false
	}
	return decodeReason(revert.Data)
}

func decodeReason(data []byte) (string, bool) {
	id, payload, err := selector.Split(data)
	if err != nil || id != selector.FromSignature(errorSignature) {
		return "", false
	}
	var reason string
	if err := selector.Unpack(payload, &reason); err != nil {
		return "", false
	}
	return reason, true
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import "github.com/bureau-foundation/unitroller/lib/address"

// Event names emitted by the proxy. Failure events use
// errorreporter.EventFailure.
const (
	EventNewAdmin                 = "NewAdmin"
	EventNewPendingAdmin          = "NewPendingAdmin"
	EventNewImplementation        = "NewImplementation"
	EventNewPendingImplementation = "NewPendingImplementation"
)

// Transition is the payload of every New* event: the slot value before
// and after the change.
type Transition struct {
	Old address.Address `cbor:"old" json:"old"`
	New address.Address `cbor:"new" json:"new"`
}

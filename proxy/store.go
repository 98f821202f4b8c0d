// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/host"
)

// Control slot positions. These are the proxy's storage layout and are
// fixed for its lifetime; logic modules lay out their own state in
// derived slots that never overlap these.
var (
	SlotAdmin                 = host.SlotIndex(0)
	SlotPendingAdmin          = host.SlotIndex(1)
	SlotImplementation        = host.SlotIndex(2)
	SlotPendingImplementation = host.SlotIndex(3)
)

// ControlSlots returns the four control slots, in layout order.
func ControlSlots() []host.Slot {
	return []host.Slot{SlotAdmin, SlotPendingAdmin, SlotImplementation, SlotPendingImplementation}
}

// State is a read of all four control slots.
type State struct {
	Admin                 address.Address `cbor:"admin"                  json:"admin"                  yaml:"admin"`
	PendingAdmin          address.Address `cbor:"pending_admin"          json:"pending_admin"          yaml:"pending_admin"`
	Implementation        address.Address `cbor:"implementation"         json:"implementation"         yaml:"implementation"`
	PendingImplementation address.Address `cbor:"pending_implementation" json:"pending_implementation" yaml:"pending_implementation"`
}

// Store reads and writes the control slots of the proxy whose storage
// a frame addresses. Delegated module code may construct a Store to
// read the admin; its writes fail with host.ErrProtectedSlot.
type Store struct {
	frame *host.Frame
}

// NewStore returns a Store over frame's storage context.
func NewStore(frame *host.Frame) Store {
	return Store{frame: frame}
}

// Admin returns the account allowed to make nominations.
func (s Store) Admin() address.Address {
	return s.frame.LoadAddress(SlotAdmin)
}

// PendingAdmin returns the nominated admin, or the zero address.
func (s Store) PendingAdmin() address.Address {
	return s.frame.LoadAddress(SlotPendingAdmin)
}

// Implementation returns the active logic module, or the zero address
// before the first upgrade.
func (s Store) Implementation() address.Address {
	return s.frame.LoadAddress(SlotImplementation)
}

// PendingImplementation returns the nominated logic module, or the
// zero address.
func (s Store) PendingImplementation() address.Address {
	return s.frame.LoadAddress(SlotPendingImplementation)
}

// SetAdmin writes the admin slot.
func (s Store) SetAdmin(value address.Address) error {
	return s.frame.StoreAddress(SlotAdmin, value)
}

// SetPendingAdmin writes the pending admin slot. The zero address
// clears it.
func (s Store) SetPendingAdmin(value address.Address) error {
	return s.frame.StoreAddress(SlotPendingAdmin, value)
}

// SetImplementation writes the implementation slot.
func (s Store) SetImplementation(value address.Address) error {
	return s.frame.StoreAddress(SlotImplementation, value)
}

// SetPendingImplementation writes the pending implementation slot. The
// zero address clears it.
func (s Store) SetPendingImplementation(value address.Address) error {
	return s.frame.StoreAddress(SlotPendingImplementation, value)
}

// State reads all four slots.
func (s Store) State() State {
	return State{
		Admin:                 s.Admin(),
		PendingAdmin:          s.PendingAdmin(),
		Implementation:        s.Implementation(),
		PendingImplementation: s.PendingImplementation(),
	}
}

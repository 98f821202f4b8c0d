// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/codec"
)

// Frame is one executing call.
type Frame struct {
	exec      *execution
	caller    address.Address
	self      address.Address
	code      address.Address
	depth     int
	protected map[Slot]struct{}
}

// Caller is the account that made this call. Delegated frames keep
// the caller of the delegating frame.
func (f *Frame) Caller() address.Address { return f.caller }

// Self is the storage context: the account whose storage Load and
// Store address and to which emitted events are attributed.
func (f *Frame) Self() address.Address { return f.self }

// Code is the account whose code is running. It differs from Self in
// a delegated frame.
func (f *Frame) Code() address.Address { return f.code }

// Delegated reports whether this frame runs borrowed code.
func (f *Frame) Delegated() bool { return f.code != f.self }

// Block is the block this call executes in.
func (f *Frame) Block() uint64 { return f.exec.block }

// Time is the block timestamp.
func (f *Frame) Time() time.Time { return f.exec.time }

// Context returns the context of the top-level execution.
func (f *Frame) Context() context.Context { return f.exec.ctx }

// ReadOnly reports whether this frame runs inside a View.
func (f *Frame) ReadOnly() bool { return f.exec.readOnly }

// Load returns a copy of the raw value at slot, or nil if unset.
func (f *Frame) Load(slot Slot) []byte {
	acct, ok := f.exec.host.accounts[f.self]
	if !ok {
		return nil
	}
	return bytes.Clone(acct.storage[slot])
}

// Store writes value at slot. An empty value clears the slot.
func (f *Frame) Store(slot Slot, value []byte) error {
	if f.exec.readOnly {
		return ErrReadOnly
	}
	if _, ok := f.protected[slot]; ok {
		return fmt.Errorf("%w %s in %s", ErrProtectedSlot, slot, f.self)
	}
	f.exec.setStorage(f.self, slot, value)
	return nil
}

// LoadAddress reads an address slot. Unset slots read as the zero
// address.
func (f *Frame) LoadAddress(slot Slot) address.Address {
	return address.FromBytes(f.Load(slot))
}

// StoreAddress writes an address slot. Writing the zero address clears
// it.
func (f *Frame) StoreAddress(slot Slot, value address.Address) error {
	if value.IsZero() {
		return f.Store(slot, nil)
	}
	return f.Store(slot, value.Bytes())
}

// LoadValue decodes a CBOR slot into v. It reports false, leaving v
// untouched, when the slot is unset.
func (f *Frame) LoadValue(slot Slot, v any) (bool, error) {
	raw := f.Load(slot)
	if len(raw) == 0 {
		return false, nil
	}
	if err := codec.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decoding slot %s: %w", slot, err)
	}
	return true, nil
}

// StoreValue encodes v as CBOR into slot.
func (f *Frame) StoreValue(slot Slot, v any) error {
	raw, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding slot %s: %w", slot, err)
	}
	return f.Store(slot, raw)
}

// Emit records an event attributed to Self. The payload is CBOR
// encoded immediately.
func (f *Frame) Emit(name string, payload any) error {
	if f.exec.readOnly {
		return ErrReadOnly
	}
	data, err := codec.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", name, err)
	}
	f.exec.emit(Event{Address: f.self, Name: name, Data: data, Block: f.exec.block})
	return nil
}

// Call invokes target with Self as the caller. Calls to accounts
// without code succeed with empty return data.
func (f *Frame) Call(target address.Address, input []byte) ([]byte, error) {
	return f.exec.call(f.self, target, input, f.depth+1)
}

// DelegateCall runs the code deployed at code in this frame's storage
// context, with this frame's caller. Slots listed in protected (and
// any already protected in this frame) cannot be written by the
// delegated code. Delegating to an account without code succeeds with
// empty return data.
func (f *Frame) DelegateCall(code address.Address, input []byte, protected ...Slot) ([]byte, error) {
	acct, ok := f.exec.host.accounts[code]
	if !ok {
		return nil, nil
	}
	child := &Frame{
		exec:      f.exec,
		caller:    f.caller,
		self:      f.self,
		code:      code,
		depth:     f.depth + 1,
		protected: mergeProtected(f.protected, protected),
	}
	return f.exec.run(child, acct.code, input)
}

func mergeProtected(inherited map[Slot]struct{}, added []Slot) map[Slot]struct{} {
	if len(added) == 0 {
		return inherited
	}
	result := make(map[Slot]struct{}, len(inherited)+len(added))
	for slot := range inherited {
		result[slot] = struct{}{}
	}
	for _, slot := range added {
		result[slot] = struct{}{}
	}
	return result
}

// Logger returns the host logger for diagnostics emitted by contract
// code. Logging is not part of state and is not rolled back.
func (f *Frame) Logger() *slog.Logger { return f.exec.host.logger }

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/codec"
	"github.com/bureau-foundation/unitroller/lib/errorreporter"
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/lib/selector"
)

// CodeName identifies Unitroller code in snapshots and registries.
const CodeName = "Unitroller"

// Entry point signatures.
const (
	SignatureSetPendingAdmin          = "_setPendingAdmin(address)"
	SignatureAcceptAdmin              = "_acceptAdmin()"
	SignatureSetPendingImplementation = "_setPendingImplementation(address)"
	SignatureAcceptImplementation     = "_acceptImplementation()"
	SignatureAdmin                    = "admin()"
	SignaturePendingAdmin             = "pendingAdmin()"
	SignatureImplementation           = "comptrollerImplementation()"
	SignaturePendingImplementation    = "pendingComptrollerImplementation()"
)

var (
	selectorSetPendingAdmin          = selector.FromSignature(SignatureSetPendingAdmin)
	selectorAcceptAdmin              = selector.FromSignature(SignatureAcceptAdmin)
	selectorSetPendingImplementation = selector.FromSignature(SignatureSetPendingImplementation)
	selectorAcceptImplementation     = selector.FromSignature(SignatureAcceptImplementation)
	selectorAdmin                    = selector.FromSignature(SignatureAdmin)
	selectorPendingAdmin             = selector.FromSignature(SignaturePendingAdmin)
	selectorImplementation           = selector.FromSignature(SignatureImplementation)
	selectorPendingImplementation    = selector.FromSignature(SignaturePendingImplementation)
)

// ErrNoImplementation is the abort raised by every forwarded call while
// no implementation is active.
var ErrNoImplementation = host.Revert("unitroller: no implementation")

// Unitroller is the proxy contract. It holds no Go state: everything
// lives in the storage of the account it is deployed at.
type Unitroller struct{}

// CodeName implements host.Named.
func (Unitroller) CodeName() string { return CodeName }

// Deploy deploys a Unitroller from deployer and sets deployer as its
// admin.
func Deploy(ctx context.Context, h *host.Host, deployer address.Address) (address.Address, error) {
	deployed, err := h.Deploy(ctx, deployer, Unitroller{}, func(frame *host.Frame) error {
		return NewStore(frame).SetAdmin(frame.Caller())
	})
	if err != nil {
		return address.Zero, fmt.Errorf("deploying unitroller: %w", err)
	}
	return deployed, nil
}

// Execute dispatches the administrative entry points and accessors and
// forwards everything else to the active implementation. Input too
// short to carry a selector is forwarded as well.
func (u Unitroller) Execute(frame *host.Frame, input []byte) ([]byte, error) {
	id, payload, err := selector.Split(input)
	if err != nil {
		return forward(frame, input)
	}

	switch id {
	case selectorSetPendingAdmin:
		candidate, err := unpackAddress(payload, SignatureSetPendingAdmin)
		if err != nil {
			return nil, err
		}
		return respond(frame, SignatureSetPendingAdmin, candidate)(ProposeNewAdmin(frame, candidate))

	case selectorAcceptAdmin:
		return respond(frame, SignatureAcceptAdmin, address.Zero)(AcceptAdmin(frame))

	case selectorSetPendingImplementation:
		candidate, err := unpackAddress(payload, SignatureSetPendingImplementation)
		if err != nil {
			return nil, err
		}
		return respond(frame, SignatureSetPendingImplementation, candidate)(ProposeNewImplementation(frame, candidate))

	case selectorAcceptImplementation:
		return respond(frame, SignatureAcceptImplementation, address.Zero)(AcceptImplementation(frame))

	case selectorAdmin:
		return codec.Marshal(NewStore(frame).Admin())
	case selectorPendingAdmin:
		return codec.Marshal(NewStore(frame).PendingAdmin())
	case selectorImplementation:
		return codec.Marshal(NewStore(frame).Implementation())
	case selectorPendingImplementation:
		return codec.Marshal(NewStore(frame).PendingImplementation())
	}

	return forward(frame, input)
}

// forward runs input against the implementation in the proxy's storage
// context. The result, success or abort, is returned untouched.
func forward(frame *host.Frame, input []byte) ([]byte, error) {
	implementation := NewStore(frame).Implementation()
	if implementation.IsZero() {
		return nil, ErrNoImplementation
	}
	return frame.DelegateCall(implementation, input, ControlSlots()...)
}

func unpackAddress(payload []byte, signature string) (address.Address, error) {
	var candidate address.Address
	if err := selector.Unpack(payload, &candidate); err != nil {
		return address.Zero, host.Revert(fmt.Sprintf("unitroller: %s: %v", signature, err))
	}
	return candidate, nil
}

// respond logs the outcome of an administrative entry point and
// encodes its code as the return data.
func respond(frame *host.Frame, signature string, candidate address.Address) func(errorreporter.Result, error) ([]byte, error) {
	return func(result errorreporter.Result, err error) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		logger := frame.Logger().With(
			"component", "unitroller",
			"proxy", frame.Self(),
			"caller", frame.Caller(),
			"entry", signature,
		)
		if !candidate.IsZero() {
			logger = logger.With("candidate", candidate)
		}
		if result.OK() {
			logger.Debug("administrative change applied", "block", frame.Block())
		} else {
			logger.Info("administrative change rejected", "failure", result.Failure)
		}
		return EncodeCode(result.Code)
	}
}

// EncodeCode encodes an administrative return code.
func EncodeCode(code errorreporter.Error) ([]byte, error) {
	return codec.Marshal(uint64(code))
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package echo is a logic module that returns its arguments. It is
// the smallest implementation that exercises the proxy's hosting
// contract: becoming the implementation, argument and return data
// relay for each parameter kind, and revert relay.
package echo

import (
	"fmt"
	"math/big"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/codec"
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/lib/selector"
)

// CodeName identifies EchoTypes code in snapshots and registries.
const CodeName = "EchoTypesComptroller"

// RevertReason is the payload reverty aborts with.
const RevertReason = "gotcha sucka"

var (
	selectorBecome    = selector.FromSignature("becomeBrains(address)")
	selectorReverty   = selector.FromSignature("reverty()")
	selectorAddresses = selector.FromSignature("addresses(address)")
	selectorStringy   = selector.FromSignature("stringy(string)")
	selectorBooly     = selector.FromSignature("booly(bool)")
	selectorListOInts = selector.FromSignature("listOInts(uint256[])")

	acceptImplementation = selector.MustPack("_acceptImplementation()")
)

// EchoTypes is the echo module.
type EchoTypes struct{}

// CodeName implements host.Named.
func (EchoTypes) CodeName() string { return CodeName }

// Execute implements host.Contract.
func (EchoTypes) Execute(frame *host.Frame, input []byte) ([]byte, error) {
	id, payload, err := selector.Split(input)
	if err != nil {
		return nil, host.Revert("echo: unknown selector")
	}

	switch id {
	case selectorBecome:
		var proxy address.Address
		if err := selector.Unpack(payload, &proxy); err != nil {
			return nil, host.Revert("echo: " + err.Error())
		}
		return nil, become(frame, proxy)

	case selectorReverty:
		return nil, host.Revert(RevertReason)

	case selectorAddresses:
		var value address.Address
		return echoOne(payload, &value)
	case selectorStringy:
		var value string
		return echoOne(payload, &value)
	case selectorBooly:
		var value bool
		return echoOne(payload, &value)
	case selectorListOInts:
		var value []*big.Int
		return echoOne(payload, &value)
	}
	return nil, host.Revert("echo: unknown selector")
}

func echoOne[T any](payload []byte, value *T) ([]byte, error) {
	if err := selector.Unpack(payload, value); err != nil {
		return nil, host.Revert("echo: " + err.Error())
	}
	return codec.Marshal(*value)
}

// become accepts the pending implementation slot of proxy on this
// module's behalf.
func become(frame *host.Frame, proxy address.Address) error {
	output, err := frame.Call(proxy, acceptImplementation)
	if err != nil {
		return err
	}
	var code uint64
	if err := codec.Unmarshal(output, &code); err != nil {
		return fmt.Errorf("decoding _acceptImplementation result: %w", err)
	}
	if code != 0 {
		return host.Revert("change not authorized")
	}
	return nil
}

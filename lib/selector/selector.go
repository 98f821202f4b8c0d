// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package selector

import (
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/bureau-foundation/unitroller/lib/codec"
)

// Length is the size of a selector in bytes.
const Length = 4

// ErrShortInput is returned by Split when the input cannot hold a
// selector.
var ErrShortInput = errors.New("calldata shorter than a selector")

// Selector is the 4-byte entry point identifier at the start of
// calldata.
type Selector [Length]byte

// FromSignature returns the selector for a canonical signature such as
// "_setCollateralFactor(address,uint256)".
func FromSignature(signature string) Selector {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(signature))
	var result Selector
	copy(result[:], hasher.Sum(nil))
	return result
}

// String returns the 0x-prefixed hex form.
func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// Pack returns calldata for this selector with the given arguments.
func (s Selector) Pack(args ...any) ([]byte, error) {
	if args == nil {
		// A nil slice would encode as CBOR null; entry points with no
		// parameters still receive an empty array.
		args = []any{}
	}
	encoded, err := codec.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("packing arguments for %s: %w", s, err)
	}
	input := make([]byte, 0, Length+len(encoded))
	input = append(input, s[:]...)
	return append(input, encoded...), nil
}

// Pack returns calldata for signature with the given arguments.
func Pack(signature string, args ...any) ([]byte, error) {
	input, err := FromSignature(signature).Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", signature, err)
	}
	return input, nil
}

// MustPack is Pack for arguments known to be encodable (addresses,
// integers, strings). Panics on encoding failure.
func MustPack(signature string, args ...any) []byte {
	input, err := Pack(signature, args...)
	if err != nil {
		panic(err)
	}
	return input
}

// Split separates calldata into its selector and argument payload.
func Split(input []byte) (Selector, []byte, error) {
	if len(input) < Length {
		return Selector{}, nil, ErrShortInput
	}
	var result Selector
	copy(result[:], input[:Length])
	return result, input[Length:], nil
}

// Unpack decodes an argument payload into targets, which must be
// pointers. The payload must hold exactly len(targets) arguments. An
// empty payload is accepted when no targets are given.
func Unpack(payload []byte, targets ...any) error {
	if len(payload) == 0 {
		if len(targets) == 0 {
			return nil
		}
		return fmt.Errorf("expected %d arguments, got none", len(targets))
	}

	var raw []codec.RawMessage
	if err := codec.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("decoding argument array: %w", err)
	}
	if len(raw) != len(targets) {
		return fmt.Errorf("expected %d arguments, got %d", len(targets), len(raw))
	}
	for i, target := range targets {
		if err := codec.Unmarshal(raw[i], target); err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return nil
}

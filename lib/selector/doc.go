// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package selector identifies contract entry points and packs call
// arguments.
//
// Every call into a contract starts with a 4-byte [Selector]: the first
// four bytes of the Keccak-256 hash of the entry point's canonical
// signature, such as "_setPendingImplementation(address)". Using the
// same derivation as Solidity keeps selectors recognizable to anyone
// reading an audit trail from the original deployment.
//
// The argument payload that follows the selector is a CBOR array (see
// lib/codec), not the Solidity ABI. [Pack] builds calldata, [Split]
// separates a selector from its arguments, and [Unpack] decodes the
// argument array into typed Go values.
//
// [ParseSignature] and [Coerce] convert loosely typed values from JSON
// or YAML (governance proposals, deployment files) into the Go types a
// signature expects: address.Address for address, *big.Int for the
// integer types, and typed slices for arrays.
package selector

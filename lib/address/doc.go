// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package address provides the account identity type shared by the
// execution host, the upgrade proxy, and the governance and deployment
// tooling built on top of them.
//
// An [Address] is a 20-byte value. The zero value is the "unset"
// address: the proxy stores it in a control slot to mean "no pending
// nomination" or "no active implementation".
//
// Addresses are never chosen by callers. Contract addresses come from
// [Derive] (deployer plus deployment nonce), and externally owned
// accounts used by configuration and tests come from [FromLabel]. Both
// use BLAKE3 keyed hashing with fixed domain keys, so the same inputs
// produce the same address on every machine and the two domains can
// never collide.
//
// The canonical text form is lowercase hex with a 0x prefix. Address
// implements encoding.TextMarshaler, so it serializes as a string in
// CBOR (via lib/codec), JSON, and YAML.
package address

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by every
// layer of the upgrade proxy stack.
//
// CBOR is the wire format for everything that crosses a component
// boundary inside the system:
//
//   - calldata arguments and return data (lib/selector packs the
//     argument array after the 4-byte selector),
//   - event payloads emitted by contracts (lib/host),
//   - storage values written by logic modules,
//   - the node's Unix socket protocol (lib/service),
//   - exported state snapshots.
//
// JSON is used only at the human edges: governance proposal files and
// CLI --json output.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. Two
// contracts that write the same logical value write identical bytes,
// which keeps snapshot digests stable.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Integers wider than 64 bits travel as *big.Int. Values that fit in a
// uint64 are encoded as plain CBOR integers; larger values use bignum
// tags. When decoding into an untyped target, bignums decode as
// *big.Int.
package codec

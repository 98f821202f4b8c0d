// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Slot is a storage key within one account.
type Slot [32]byte

// SlotIndex returns the slot at a fixed small position. Positions are
// part of a contract's storage layout and must never be reassigned.
func SlotIndex(position uint64) Slot {
	var result Slot
	binary.BigEndian.PutUint64(result[24:], position)
	return result
}

var slotDomainKey = [32]byte{
	'u', 'n', 'i', 't', 'r', 'o', 'l', 'l', 'e', 'r', '.', 'h', 'o', 's', 't', '.',
	's', 'l', 'o', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// DeriveSlot returns a slot for a keyed storage entry: a mapping
// element ("markets", market address) or a namespaced variable
// ("marketregistry.treasury"). Derived slots live in the full 256-bit
// space and do not collide with SlotIndex positions.
func DeriveSlot(namespace string, keys ...[]byte) Slot {
	hasher, err := blake3.NewKeyed(slotDomainKey[:])
	if err != nil {
		panic("host: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	writeLengthPrefixed(hasher, []byte(namespace))
	for _, key := range keys {
		writeLengthPrefixed(hasher, key)
	}
	var result Slot
	copy(result[:], hasher.Sum(nil))
	return result
}

func writeLengthPrefixed(hasher *blake3.Hasher, data []byte) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(data)))
	hasher.Write(length[:])
	hasher.Write(data)
}

// String returns the 0x-prefixed hex form.
func (s Slot) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

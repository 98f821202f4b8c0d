// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// Length is the size of an address in bytes.
const Length = 20

// Address identifies an account on the execution host: either a
// deployed contract or an externally owned account.
type Address [Length]byte

// Zero is the unset address.
var Zero Address

// domainKey is a 32-byte BLAKE3 key. Changing a domain key changes
// every address derived in that domain.
type domainKey [32]byte

var (
	deployDomainKey = domainKey{
		'u', 'n', 'i', 't', 'r', 'o', 'l', 'l', 'e', 'r', '.', 'a', 'd', 'd', 'r', 'e',
		's', 's', '.', 'd', 'e', 'p', 'l', 'o', 'y', 0, 0, 0, 0, 0, 0, 0,
	}

	labelDomainKey = domainKey{
		'u', 'n', 'i', 't', 'r', 'o', 'l', 'l', 'e', 'r', '.', 'a', 'd', 'd', 'r', 'e',
		's', 's', '.', 'l', 'a', 'b', 'e', 'l', 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// Parse decodes a hex address. The 0x prefix is optional and hex
// digits are case-insensitive.
func Parse(raw string) (Address, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if len(trimmed) != 2*Length {
		return Address{}, fmt.Errorf("address %q: expected %d hex digits, got %d", raw, 2*Length, len(trimmed))
	}
	var result Address
	if _, err := hex.Decode(result[:], []byte(trimmed)); err != nil {
		return Address{}, fmt.Errorf("address %q: %w", raw, err)
	}
	return result, nil
}

// MustParse is Parse for compile-time constants. Panics on invalid
// input.
func MustParse(raw string) Address {
	result, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return result
}

// FromBytes converts a raw storage value into an address. Values
// longer than 20 bytes keep their rightmost 20 bytes; shorter values
// are left-padded with zeros. An empty value is the zero address.
func FromBytes(raw []byte) Address {
	var result Address
	if len(raw) > Length {
		raw = raw[len(raw)-Length:]
	}
	copy(result[Length-len(raw):], raw)
	return result
}

// Derive returns the address of the nonce-th contract deployed by
// deployer.
func Derive(deployer Address, nonce uint64) Address {
	var input [Length + 8]byte
	copy(input[:Length], deployer[:])
	binary.BigEndian.PutUint64(input[Length:], nonce)
	return keyedAddress(deployDomainKey, input[:])
}

// FromLabel returns the externally owned account named by label.
// Labels are case-sensitive.
func FromLabel(label string) Address {
	return keyedAddress(labelDomainKey, []byte(label))
}

func keyedAddress(key domainKey, data []byte) Address {
	// NewKeyed only fails for keys that are not 32 bytes.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("address: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var result Address
	copy(result[:], hasher.Sum(nil))
	return result
}

// IsZero reports whether a is the unset address.
func (a Address) IsZero() bool { return a == Zero }

// Bytes returns a copy of the raw 20 bytes.
func (a Address) Bytes() []byte {
	result := make([]byte, Length)
	copy(result, a[:])
	return result
}

// String returns the lowercase 0x-prefixed hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Short returns an abbreviated form for log lines ("0x1234…abcd").
func (a Address) Short() string {
	full := hex.EncodeToString(a[:])
	return "0x" + full[:4] + "…" + full[len(full)-4:]
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

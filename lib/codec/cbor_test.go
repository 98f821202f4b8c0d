// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/bureau-foundation/unitroller/lib/address"
)

type transition struct {
	Old address.Address `cbor:"old"`
	New address.Address `cbor:"new"`
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{
		"treasury": address.FromLabel("treasury"),
		"cap":      big.NewInt(7_500_000),
		"listed":   true,
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(value)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestAddressEncodesAsText(t *testing.T) {
	original := transition{Old: address.Zero, New: address.FromLabel("module")}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"`+original.New.String()+`"`) {
		t.Errorf("notation %s does not carry the address as text", notation)
	}

	var decoded transition
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestBigIntBeyondUint64(t *testing.T) {
	// 7,500,000 * 10^18 does not fit in a uint64.
	capValue, _ := new(big.Int).SetString("7500000000000000000000000", 10)

	data, err := Marshal(capValue)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var typed *big.Int
	if err := Unmarshal(data, &typed); err != nil {
		t.Fatalf("Unmarshal into *big.Int: %v", err)
	}
	if typed.Cmp(capValue) != 0 {
		t.Errorf("typed decode = %s, want %s", typed, capValue)
	}

	var untyped any
	if err := Unmarshal(data, &untyped); err != nil {
		t.Fatalf("Unmarshal into any: %v", err)
	}
	pointer, ok := untyped.(*big.Int)
	if !ok {
		t.Fatalf("untyped decode produced %T, want *big.Int", untyped)
	}
	if pointer.Cmp(capValue) != 0 {
		t.Errorf("untyped decode = %s, want %s", pointer, capValue)
	}
}

func TestSmallBigIntEncodesAsInteger(t *testing.T) {
	fromBig, err := Marshal(big.NewInt(42))
	if err != nil {
		t.Fatalf("Marshal big: %v", err)
	}
	fromUint, err := Marshal(uint64(42))
	if err != nil {
		t.Fatalf("Marshal uint: %v", err)
	}
	if !bytes.Equal(fromBig, fromUint) {
		t.Errorf("small big.Int encoded as %x, plain integer is %x", fromBig, fromUint)
	}
}

func TestEncoderDecoderStream(t *testing.T) {
	values := []transition{
		{Old: address.Zero, New: address.FromLabel("a")},
		{Old: address.FromLabel("a"), New: address.Zero},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, value := range values {
		if err := encoder.Encode(value); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range values {
		var got transition
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if got != want {
			t.Errorf("value %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	var value transition
	if err := Unmarshal([]byte{0xff, 0xfe}, &value); err == nil {
		t.Error("expected error decoding garbage")
	}
}

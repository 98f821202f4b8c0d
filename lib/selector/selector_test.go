// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package selector

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/bureau-foundation/unitroller/lib/address"
)

func TestFromSignatureMatchesKeccakSelectors(t *testing.T) {
	// Well-known selectors from deployed ERC-20 and proxy contracts.
	for signature, want := range map[string]string{
		"transfer(address,uint256)": "0xa9059cbb",
		"balanceOf(address)":        "0x70a08231",
		"admin()":                   "0xf851a440",
		"implementation()":          "0x5c60da1b",
	} {
		if got := FromSignature(signature).String(); got != want {
			t.Errorf("FromSignature(%q) = %s, want %s", signature, got, want)
		}
	}
}

func TestPackSplitUnpack(t *testing.T) {
	market := address.FromLabel("vTRX")
	factor, _ := new(big.Int).SetString("450000000000000000", 10)

	input, err := Pack("_setCollateralFactor(address,uint256)", market, factor)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	selector, payload, err := Split(input)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if selector != FromSignature("_setCollateralFactor(address,uint256)") {
		t.Errorf("selector = %s", selector)
	}

	var gotMarket address.Address
	var gotFactor *big.Int
	if err := Unpack(payload, &gotMarket, &gotFactor); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if gotMarket != market {
		t.Errorf("market = %s, want %s", gotMarket, market)
	}
	if gotFactor.Cmp(factor) != 0 {
		t.Errorf("factor = %s, want %s", gotFactor, factor)
	}
}

func TestPackWithoutArguments(t *testing.T) {
	input, err := Pack("_acceptImplementation()")
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	_, payload, err := Split(input)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if err := Unpack(payload); err != nil {
		t.Errorf("Unpack with no targets: %v", err)
	}

	var extra address.Address
	if err := Unpack(payload, &extra); err == nil {
		t.Error("Unpack of empty array into one target succeeded")
	}
}

func TestSplitShortInput(t *testing.T) {
	if _, _, err := Split([]byte{0x01, 0x02}); !errors.Is(err, ErrShortInput) {
		t.Errorf("Split(2 bytes) error = %v, want ErrShortInput", err)
	}
}

func TestUnpackArityMismatch(t *testing.T) {
	input := MustPack("f(address,address)", address.FromLabel("a"), address.FromLabel("b"))
	_, payload, _ := Split(input)

	var only address.Address
	if err := Unpack(payload, &only); err == nil {
		t.Error("Unpack with too few targets succeeded")
	}
}

func TestParseSignature(t *testing.T) {
	signature, err := ParseSignature("_setMarketBorrowCaps(address[], uint256[])")
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if signature.Name != "_setMarketBorrowCaps" {
		t.Errorf("Name = %q", signature.Name)
	}
	if len(signature.Params) != 2 || !signature.Params[0].Array || signature.Params[1].Base != "uint256" {
		t.Errorf("Params = %+v", signature.Params)
	}
	if signature.String() != "_setMarketBorrowCaps(address[],uint256[])" {
		t.Errorf("canonical form = %q", signature.String())
	}

	short, err := ParseSignature("f(uint)")
	if err != nil {
		t.Fatalf("ParseSignature(f(uint)): %v", err)
	}
	if short.String() != "f(uint256)" {
		t.Errorf("uint alias canonicalized to %q", short.String())
	}
}

func TestParseSignatureRejects(t *testing.T) {
	for _, raw := range []string{
		"noParens",
		"(address)",
		"f(address",
		"f(uint7)",
		"f(uint512)",
		"f(address[][])",
		"f(tuple)",
	} {
		if _, err := ParseSignature(raw); err == nil {
			t.Errorf("ParseSignature(%q) succeeded", raw)
		}
	}
}

func TestCoerceFromJSON(t *testing.T) {
	signature, err := ParseSignature("_setMarketBorrowCaps(address[],uint256[])")
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}

	var params []any
	raw := `[
		["0xc5d3466aa484b040ee977073fcf337f2c00071c1", "0x334b3ecb4dca3593bccc3c7ebd1a1c1d1780fbf1"],
		["8000000000000", {"units": "7500000", "decimals": 18}]
	]`
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		t.Fatalf("json: %v", err)
	}

	coerced, err := CoerceAll(signature, params)
	if err != nil {
		t.Fatalf("CoerceAll: %v", err)
	}

	markets, ok := coerced[0].([]address.Address)
	if !ok || len(markets) != 2 {
		t.Fatalf("markets coerced to %T %v", coerced[0], coerced[0])
	}
	caps, ok := coerced[1].([]*big.Int)
	if !ok || len(caps) != 2 {
		t.Fatalf("caps coerced to %T %v", coerced[1], coerced[1])
	}
	if caps[0].String() != "8000000000000" {
		t.Errorf("caps[0] = %s", caps[0])
	}
	if caps[1].String() != "7500000000000000000000000" {
		t.Errorf("caps[1] = %s", caps[1])
	}
}

func TestCoerceRejects(t *testing.T) {
	cases := []struct {
		value any
		typ   Type
	}{
		{"not-an-address", Type{Base: "address"}},
		{"-1", Type{Base: "uint256"}},
		{1.5, Type{Base: "uint256"}},
		{"yes", Type{Base: "bool"}},
		{"0xabc", Type{Base: "address", Array: true}},
	}
	for _, c := range cases {
		if _, err := Coerce(c.value, c.typ); err == nil {
			t.Errorf("Coerce(%v, %s) succeeded", c.value, c.typ)
		}
	}
}

func TestCoerceBoundsIntegerWidth(t *testing.T) {
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	overUint256 := new(big.Int).Lsh(big.NewInt(1), 256)
	huge := new(big.Int).Lsh(big.NewInt(1), 300)

	cases := []struct {
		value any
		base  string
		ok    bool
	}{
		{"255", "uint8", true},
		{"256", "uint8", false},
		{"1000", "uint8", false},
		{"0", "uint8", true},
		{"-1", "uint8", false},
		{"127", "int8", true},
		{"128", "int8", false},
		{"-128", "int8", true},
		{"-129", "int8", false},
		{"-1000", "int8", false},
		{maxUint256, "uint256", true},
		{overUint256, "uint256", false},
		{huge, "uint256", false},
		{new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255)), "int256", true},
		{new(big.Int).Lsh(big.NewInt(1), 255), "int256", false},
		{map[string]any{"units": "1", "decimals": 3}, "uint8", false},
		{map[string]any{"units": "0.25", "decimals": 3}, "uint8", true},
	}
	for _, c := range cases {
		_, err := Coerce(c.value, Type{Base: c.base})
		if c.ok && err != nil {
			t.Errorf("Coerce(%v, %s): %v", c.value, c.base, err)
		}
		if !c.ok && err == nil {
			t.Errorf("Coerce(%v, %s) succeeded, want out of range", c.value, c.base)
		}
	}

	// Arrays bound each element.
	if _, err := Coerce([]any{"1", "300"}, Type{Base: "uint8", Array: true}); err == nil {
		t.Error("Coerce accepted a uint8[] element above 255")
	}
}

func TestParseUnits(t *testing.T) {
	for _, c := range []struct {
		value    string
		decimals int
		want     string
	}{
		{"0.2", 18, "200000000000000000"},
		{"0.45", 18, "450000000000000000"},
		{"5000000", 6, "5000000000000"},
		{".5", 1, "5"},
		{"-1.5", 2, "-150"},
	} {
		got, err := ParseUnits(c.value, c.decimals)
		if err != nil {
			t.Errorf("ParseUnits(%q, %d): %v", c.value, c.decimals, err)
			continue
		}
		if got.String() != c.want {
			t.Errorf("ParseUnits(%q, %d) = %s, want %s", c.value, c.decimals, got, c.want)
		}
	}

	if _, err := ParseUnits("0.123", 2); err == nil {
		t.Error("ParseUnits accepted excess precision")
	}
	for _, raw := range []string{"--5", "-+5", "+5", "-", "", ".", "1.-5", "5-"} {
		if got, err := ParseUnits(raw, 3); err == nil {
			t.Errorf("ParseUnits(%q, 3) = %s, want an error", raw, got)
		}
	}
}

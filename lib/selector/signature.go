// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package selector

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/bureau-foundation/unitroller/lib/address"
)

// Type is one parameter type in a signature.
type Type struct {
	// Base is the element type: "address", "bool", "string", "bytes",
	// or an integer type ("uint256", "uint8", "int256", ...).
	Base string

	// Array is true for one-dimensional dynamic arrays ("address[]").
	Array bool
}

// String returns the canonical form used in signatures.
func (t Type) String() string {
	if t.Array {
		return t.Base + "[]"
	}
	return t.Base
}

// IsInteger reports whether the element type is a signed or unsigned
// integer.
func (t Type) IsInteger() bool {
	return strings.HasPrefix(t.Base, "uint") || strings.HasPrefix(t.Base, "int")
}

// Signature is a parsed entry point signature.
type Signature struct {
	Name   string
	Params []Type
}

// String returns the canonical signature text.
func (s Signature) String() string {
	parts := make([]string, len(s.Params))
	for i, param := range s.Params {
		parts[i] = param.String()
	}
	return s.Name + "(" + strings.Join(parts, ",") + ")"
}

// Selector returns the selector of the canonical signature.
func (s Signature) Selector() Selector {
	return FromSignature(s.String())
}

// ParseSignature parses "name(type,type[],...)". Whitespace around
// types is ignored; the canonical form has none.
func ParseSignature(raw string) (Signature, error) {
	open := strings.IndexByte(raw, '(')
	if open <= 0 || !strings.HasSuffix(raw, ")") {
		return Signature{}, fmt.Errorf("signature %q: expected name(types)", raw)
	}
	name := strings.TrimSpace(raw[:open])
	if strings.ContainsAny(name, " \t,()[]") {
		return Signature{}, fmt.Errorf("signature %q: invalid name %q", raw, name)
	}

	inner := strings.TrimSpace(raw[open+1 : len(raw)-1])
	result := Signature{Name: name}
	if inner == "" {
		return result, nil
	}
	for _, part := range strings.Split(inner, ",") {
		parsed, err := parseType(strings.TrimSpace(part))
		if err != nil {
			return Signature{}, fmt.Errorf("signature %q: %w", raw, err)
		}
		result.Params = append(result.Params, parsed)
	}
	return result, nil
}

func parseType(raw string) (Type, error) {
	var result Type
	if strings.HasSuffix(raw, "[]") {
		result.Array = true
		raw = strings.TrimSuffix(raw, "[]")
	}
	if strings.Contains(raw, "[") {
		return Type{}, fmt.Errorf("type %q: only one-dimensional dynamic arrays are supported", raw)
	}
	switch raw {
	case "address", "bool", "string", "bytes":
		result.Base = raw
		return result, nil
	case "uint", "int":
		result.Base = raw + "256"
		return result, nil
	}
	for _, prefix := range []string{"uint", "int"} {
		if !strings.HasPrefix(raw, prefix) {
			continue
		}
		bits, err := strconv.Atoi(strings.TrimPrefix(raw, prefix))
		if err != nil || bits < 8 || bits > 256 || bits%8 != 0 {
			return Type{}, fmt.Errorf("type %q: invalid integer width", raw)
		}
		result.Base = raw
		return result, nil
	}
	return Type{}, fmt.Errorf("unsupported type %q", raw)
}

// Coerce converts a loosely typed value decoded from JSON or YAML into
// the Go value packed for typ:
//
//	address   → address.Address (from a hex string)
//	uintN/intN → *big.Int (from an integer, a decimal string, or
//	             {"units": "0.45", "decimals": 18})
//	bool      → bool
//	string    → string
//	bytes     → []byte (from a 0x hex string)
//
// Arrays map element-wise to []address.Address, []*big.Int, []bool,
// []string, or [][]byte.
func Coerce(value any, typ Type) (any, error) {
	if !typ.Array {
		return coerceScalar(value, typ.Base)
	}

	elements, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected a list, got %T", typ, value)
	}
	switch {
	case typ.Base == "address":
		return coerceSlice[address.Address](elements, typ.Base)
	case typ.Base == "bool":
		return coerceSlice[bool](elements, typ.Base)
	case typ.Base == "string":
		return coerceSlice[string](elements, typ.Base)
	case typ.Base == "bytes":
		return coerceSlice[[]byte](elements, typ.Base)
	case typ.IsInteger():
		return coerceSlice[*big.Int](elements, typ.Base)
	}
	return nil, fmt.Errorf("unsupported type %s", typ)
}

// CoerceAll coerces one value per signature parameter.
func CoerceAll(signature Signature, values []any) ([]any, error) {
	if len(values) != len(signature.Params) {
		return nil, fmt.Errorf("%s: expected %d parameters, got %d",
			signature, len(signature.Params), len(values))
	}
	result := make([]any, len(values))
	for i, value := range values {
		coerced, err := Coerce(value, signature.Params[i])
		if err != nil {
			return nil, fmt.Errorf("%s parameter %d: %w", signature, i, err)
		}
		result[i] = coerced
	}
	return result, nil
}

func coerceSlice[T any](elements []any, base string) ([]T, error) {
	result := make([]T, len(elements))
	for i, element := range elements {
		coerced, err := coerceScalar(element, base)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		typed, ok := coerced.(T)
		if !ok {
			return nil, fmt.Errorf("element %d: coerced to %T", i, coerced)
		}
		result[i] = typed
	}
	return result, nil
}

func coerceScalar(value any, base string) (any, error) {
	switch base {
	case "address":
		switch typed := value.(type) {
		case string:
			return address.Parse(typed)
		case address.Address:
			return typed, nil
		}
		return nil, fmt.Errorf("address: expected a hex string, got %T", value)

	case "bool":
		if typed, ok := value.(bool); ok {
			return typed, nil
		}
		return nil, fmt.Errorf("bool: got %T", value)

	case "string":
		if typed, ok := value.(string); ok {
			return typed, nil
		}
		return nil, fmt.Errorf("string: got %T", value)

	case "bytes":
		switch typed := value.(type) {
		case []byte:
			return typed, nil
		case string:
			decoded, err := hex.DecodeString(strings.TrimPrefix(typed, "0x"))
			if err != nil {
				return nil, fmt.Errorf("bytes: %w", err)
			}
			return decoded, nil
		}
		return nil, fmt.Errorf("bytes: expected a hex string, got %T", value)
	}

	if !(Type{Base: base}).IsInteger() {
		return nil, fmt.Errorf("unsupported type %s", base)
	}
	integer, err := coerceInteger(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", base, err)
	}
	if err := checkWidth(base, integer); err != nil {
		return nil, err
	}
	return integer, nil
}

// checkWidth bounds value by its declared type: uintN holds
// [0, 2^N) and intN holds [-2^(N-1), 2^(N-1)).
func checkWidth(base string, value *big.Int) error {
	unsigned := strings.HasPrefix(base, "uint")
	bits, err := strconv.Atoi(strings.TrimPrefix(strings.TrimPrefix(base, "u"), "int"))
	if err != nil || bits < 8 || bits > 256 || bits%8 != 0 {
		return fmt.Errorf("type %q: invalid integer width", base)
	}
	if unsigned {
		if value.Sign() < 0 {
			return fmt.Errorf("%s: negative value %s", base, value)
		}
		if value.BitLen() > bits {
			return fmt.Errorf("%s: value %s does not fit in %d bits", base, value, bits)
		}
		return nil
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	if value.Cmp(limit) >= 0 || value.Cmp(new(big.Int).Neg(limit)) < 0 {
		return fmt.Errorf("%s: value %s does not fit in %d bits", base, value, bits)
	}
	return nil
}

func coerceInteger(value any) (*big.Int, error) {
	switch typed := value.(type) {
	case *big.Int:
		return new(big.Int).Set(typed), nil
	case int:
		return big.NewInt(int64(typed)), nil
	case int64:
		return big.NewInt(typed), nil
	case uint64:
		return new(big.Int).SetUint64(typed), nil
	case float64:
		if typed != math.Trunc(typed) || math.Abs(typed) > 1<<53 {
			return nil, fmt.Errorf("number %v is not an exact integer; use a decimal string", typed)
		}
		return big.NewInt(int64(typed)), nil
	case json.Number:
		return parseDecimal(typed.String())
	case string:
		return parseDecimal(typed)
	case map[string]any:
		return parseUnitsObject(typed)
	}
	return nil, fmt.Errorf("expected an integer, got %T", value)
}

func parseDecimal(raw string) (*big.Int, error) {
	result, ok := new(big.Int).SetString(strings.ReplaceAll(raw, "_", ""), 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal integer %q", raw)
	}
	return result, nil
}

func parseUnitsObject(object map[string]any) (*big.Int, error) {
	units, ok := object["units"].(string)
	if !ok {
		return nil, fmt.Errorf(`units object requires a string "units" field`)
	}
	decimals, err := coerceInteger(object["decimals"])
	if err != nil {
		return nil, fmt.Errorf("units object decimals: %w", err)
	}
	if !decimals.IsInt64() || decimals.Int64() < 0 || decimals.Int64() > 77 {
		return nil, fmt.Errorf("units object decimals %s out of range", decimals)
	}
	return ParseUnits(units, int(decimals.Int64()))
}

// ParseUnits converts a decimal string with a fractional part into an
// integer scaled by 10^decimals: ParseUnits("0.45", 18) is 45e16.
// Fractions with more digits than decimals are rejected rather than
// truncated.
func ParseUnits(value string, decimals int) (*big.Int, error) {
	raw := value
	negative := strings.HasPrefix(value, "-")
	value = strings.TrimPrefix(value, "-")
	if value == "" || value == "." || strings.ContainsAny(value, "+-") {
		return nil, fmt.Errorf("invalid units value %q", raw)
	}

	whole, fraction, _ := strings.Cut(value, ".")
	if len(fraction) > decimals {
		return nil, fmt.Errorf("%q has more than %d decimal places", value, decimals)
	}
	if whole == "" {
		whole = "0"
	}
	digits := whole + fraction + strings.Repeat("0", decimals-len(fraction))
	result, err := parseDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("units %q: %w", value, err)
	}
	if negative {
		result.Neg(result)
	}
	return result, nil
}

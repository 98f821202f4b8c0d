// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package governance

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/codec"
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/lib/selector"
)

// CheckResult is the outcome of evaluating one Check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`

	// Got and Want are CBOR diagnostic notation.
	Got  string `json:"got,omitempty"`
	Want string `json:"want,omitempty"`

	// Error is set when the check could not be evaluated.
	Error string `json:"error,omitempty"`
}

func (c Check) calldata() ([]byte, error) {
	return encodeCall(c.Signature, c.Params)
}

// expected returns the canonical CBOR encoding of Equals.
func (c Check) expected() ([]byte, error) {
	signature, err := selector.ParseSignature("returns(" + c.Returns + ")")
	if err != nil {
		return nil, fmt.Errorf("returns: %w", err)
	}
	if len(signature.Params) != 1 {
		return nil, fmt.Errorf("returns must name exactly one type, got %q", c.Returns)
	}
	value, err := selector.Coerce(c.Equals, signature.Params[0])
	if err != nil {
		return nil, fmt.Errorf("equals: %w", err)
	}
	return codec.Marshal(value)
}

// actual extracts the compared value from a call's return data and
// re-encodes it canonically.
func (c Check) actual(output []byte) ([]byte, error) {
	if c.Field == "" {
		var value any
		if err := codec.Unmarshal(output, &value); err != nil {
			return nil, fmt.Errorf("decoding return data: %w", err)
		}
		return codec.Marshal(value)
	}
	var fields map[string]codec.RawMessage
	if err := codec.Unmarshal(output, &fields); err != nil {
		return nil, fmt.Errorf("decoding return data as a record: %w", err)
	}
	field, ok := fields[c.Field]
	if !ok {
		return nil, fmt.Errorf("return data has no field %q", c.Field)
	}
	var value any
	if err := codec.Unmarshal(field, &value); err != nil {
		return nil, fmt.Errorf("decoding field %q: %w", c.Field, err)
	}
	return codec.Marshal(value)
}

// Evaluate runs the check against h as a read-only call from caller.
func (c Check) Evaluate(ctx context.Context, h *host.Host, caller address.Address) CheckResult {
	result := CheckResult{Name: c.Name}
	fail := func(err error) CheckResult {
		result.Error = err.Error()
		return result
	}

	input, err := c.calldata()
	if err != nil {
		return fail(err)
	}
	want, err := c.expected()
	if err != nil {
		return fail(err)
	}
	result.Want = diagnose(want)

	output, err := h.View(ctx, caller, c.Target, input)
	if err != nil {
		return fail(fmt.Errorf("%s: %w", c.Signature, err))
	}
	got, err := c.actual(output)
	if err != nil {
		return fail(err)
	}
	result.Got = diagnose(got)
	result.Passed = bytes.Equal(got, want)
	return result
}

func diagnose(data []byte) string {
	text, err := codec.Diagnose(data)
	if err != nil {
		return fmt.Sprintf("h'%x'", data)
	}
	return text
}

// EvaluateAll runs checks in order.
func EvaluateAll(ctx context.Context, h *host.Host, caller address.Address, checks []Check) []CheckResult {
	results := make([]CheckResult, len(checks))
	for i, check := range checks {
		results[i] = check.Evaluate(ctx, h, caller)
	}
	return results
}

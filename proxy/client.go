// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/codec"
	"github.com/bureau-foundation/unitroller/lib/errorreporter"
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/lib/selector"
)

// Client issues proxy entry points as host transactions.
//
// Administrative methods return three things: the entry point's
// Result (a nonzero code means the change was rejected and nothing was
// written), the receipt, and an error only when the transaction
// aborted.
type Client struct {
	host  *host.Host
	proxy address.Address
}

// NewClient returns a Client for the proxy deployed at proxy.
func NewClient(h *host.Host, proxy address.Address) *Client {
	return &Client{host: h, proxy: proxy}
}

// Address returns the proxy address.
func (c *Client) Address() address.Address { return c.proxy }

// ProposeNewAdmin calls _setPendingAdmin(candidate) from from.
func (c *Client) ProposeNewAdmin(ctx context.Context, from, candidate address.Address) (errorreporter.Result, *host.Receipt, error) {
	return c.administer(ctx, from, SignatureSetPendingAdmin, candidate)
}

// AcceptAdmin calls _acceptAdmin() from from.
func (c *Client) AcceptAdmin(ctx context.Context, from address.Address) (errorreporter.Result, *host.Receipt, error) {
	return c.administer(ctx, from, SignatureAcceptAdmin)
}

// ProposeNewImplementation calls _setPendingImplementation(candidate)
// from from.
func (c *Client) ProposeNewImplementation(ctx context.Context, from, candidate address.Address) (errorreporter.Result, *host.Receipt, error) {
	return c.administer(ctx, from, SignatureSetPendingImplementation, candidate)
}

// AcceptImplementation calls _acceptImplementation() from from. It
// only succeeds when from is the pending implementation; modules
// normally accept from their own become entry point instead.
func (c *Client) AcceptImplementation(ctx context.Context, from address.Address) (errorreporter.Result, *host.Receipt, error) {
	return c.administer(ctx, from, SignatureAcceptImplementation)
}

func (c *Client) administer(ctx context.Context, from address.Address, signature string, args ...any) (errorreporter.Result, *host.Receipt, error) {
	input, err := selector.Pack(signature, args...)
	if err != nil {
		return errorreporter.Result{}, nil, err
	}
	receipt, err := c.host.Transact(ctx, from, c.proxy, input)
	if err != nil {
		return errorreporter.Result{}, receipt, err
	}
	result, err := DecodeResult(receipt.Return, receipt.Logs, c.proxy)
	if err != nil {
		return errorreporter.Result{}, receipt, fmt.Errorf("%s: %w", signature, err)
	}
	return result, receipt, nil
}

// State reads the four control slots through the accessor entry
// points.
func (c *Client) State(ctx context.Context) (State, error) {
	var state State
	for _, read := range []struct {
		signature string
		target    *address.Address
	}{
		{SignatureAdmin, &state.Admin},
		{SignaturePendingAdmin, &state.PendingAdmin},
		{SignatureImplementation, &state.Implementation},
		{SignaturePendingImplementation, &state.PendingImplementation},
	} {
		value, err := c.readAddress(ctx, read.signature)
		if err != nil {
			return State{}, err
		}
		*read.target = value
	}
	return state, nil
}

func (c *Client) readAddress(ctx context.Context, signature string) (address.Address, error) {
	output, err := c.host.View(ctx, address.Zero, c.proxy, selector.MustPack(signature))
	if err != nil {
		return address.Zero, fmt.Errorf("%s: %w", signature, err)
	}
	var value address.Address
	if err := codec.Unmarshal(output, &value); err != nil {
		return address.Zero, fmt.Errorf("%s: decoding: %w", signature, err)
	}
	return value, nil
}

// Call sends arbitrary calldata through the proxy as a transaction.
// The error is the forwarded abort, unchanged.
func (c *Client) Call(ctx context.Context, from address.Address, input []byte) (*host.Receipt, error) {
	return c.host.Transact(ctx, from, c.proxy, input)
}

// View sends arbitrary calldata through the proxy read-only.
func (c *Client) View(ctx context.Context, from address.Address, input []byte) ([]byte, error) {
	return c.host.View(ctx, from, c.proxy, input)
}

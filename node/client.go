// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/errorreporter"
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/lib/selector"
	"github.com/bureau-foundation/unitroller/lib/service"
	"github.com/bureau-foundation/unitroller/proxy"
)

// Client calls a node's socket actions.
type Client struct {
	service *service.ServiceClient
}

// NewClient returns a client for the node listening on socketPath.
func NewClient(socketPath string) *Client {
	return &Client{service: service.NewServiceClient(socketPath)}
}

// Status returns the node's status.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var response StatusResponse
	err := c.service.Call(ctx, "status", nil, &response)
	return response, err
}

// Call executes a transaction. A reverted transaction is not an
// error: check TransactionResult.Reverted.
func (c *Client) Call(ctx context.Context, from, to address.Address, input []byte) (TransactionResult, error) {
	var response TransactionResult
	err := c.service.Call(ctx, "call", callFields(from, to, input), &response)
	return response, err
}

// View runs a read-only call and returns its output. A revert is
// returned as a *host.RevertError carrying the payload unchanged.
func (c *Client) View(ctx context.Context, from, to address.Address, input []byte) ([]byte, error) {
	var response ViewResponse
	if err := c.service.Call(ctx, "view", callFields(from, to, input), &response); err != nil {
		return nil, err
	}
	if response.Reverted {
		return nil, &host.RevertError{Data: response.RevertData}
	}
	return response.Return, nil
}

func callFields(from, to address.Address, input []byte) map[string]any {
	return map[string]any{"from": from, "to": to, "input": input}
}

// Administer calls an administrative entry point on target and
// decodes its code and Failure record. A revert is returned as an
// error.
func (c *Client) Administer(ctx context.Context, from, target address.Address, signature string, args ...any) (errorreporter.Result, TransactionResult, error) {
	input, err := selector.Pack(signature, args...)
	if err != nil {
		return errorreporter.Result{}, TransactionResult{}, err
	}
	transaction, err := c.Call(ctx, from, target, input)
	if err != nil {
		return errorreporter.Result{}, transaction, err
	}
	if transaction.Reverted {
		return errorreporter.Result{}, transaction, fmt.Errorf("%s reverted: %s", signature, transaction.Error)
	}
	result, err := proxy.DecodeResult(transaction.Return, transaction.Logs, target)
	if err != nil {
		return errorreporter.Result{}, transaction, fmt.Errorf("%s: %w", signature, err)
	}
	return result, transaction, nil
}

// State reads a proxy's control slots. A zero proxy selects the
// node's own.
func (c *Client) State(ctx context.Context, unitroller address.Address) (proxy.State, error) {
	var state proxy.State
	err := c.service.Call(ctx, "state", map[string]any{"proxy": unitroller}, &state)
	return state, err
}

// Logs returns committed events matching filter.
func (c *Client) Logs(ctx context.Context, filter host.LogFilter) ([]host.Event, error) {
	var events []host.Event
	err := c.service.Call(ctx, "logs", map[string]any{
		"address":    filter.Address,
		"names":      filter.Names,
		"from_block": filter.FromBlock,
		"to_block":   filter.ToBlock,
	}, &events)
	return events, err
}

// Simulate runs a proposal file's contents against a fork of the
// node's state.
func (c *Client) Simulate(ctx context.Context, request SimulateRequest) (SimulateResponse, error) {
	var response SimulateResponse
	err := c.service.Call(ctx, "simulate", map[string]any{
		"proposal": request.Proposal,
		"executor": request.Executor,
		"retarget": request.Retarget,
	}, &response)
	return response, err
}

// Snapshot asks the node to write a snapshot.
func (c *Client) Snapshot(ctx context.Context, request SnapshotRequest) (SnapshotResponse, error) {
	var response SnapshotResponse
	err := c.service.Call(ctx, "snapshot", map[string]any{
		"path":        request.Path,
		"compression": request.Compression,
	}, &response)
	return response, err
}

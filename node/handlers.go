// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/unitroller/governance"
	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/codec"
	"github.com/bureau-foundation/unitroller/lib/host"
	"github.com/bureau-foundation/unitroller/lib/version"
	"github.com/bureau-foundation/unitroller/proxy"
)

func decodeRequest[T any](raw []byte) (T, error) {
	var request T
	if err := codec.Unmarshal(raw, &request); err != nil {
		return request, fmt.Errorf("invalid request: %w", err)
	}
	return request, nil
}

func (n *Node) handleStatus(ctx context.Context, raw []byte) (any, error) {
	return StatusResponse{
		UptimeSeconds: n.clock.Now().Sub(n.startedAt).Seconds(),
		Block:         n.host.BlockNumber(),
		Proxy:         n.proxy,
		Version:       version.Info(),
	}, nil
}

// handleCall executes a transaction. An abort is a transaction
// outcome, so it is reported in the result rather than as a request
// error.
func (n *Node) handleCall(ctx context.Context, raw []byte) (any, error) {
	request, err := decodeRequest[CallRequest](raw)
	if err != nil {
		return nil, err
	}
	if request.To.IsZero() {
		return nil, errors.New("missing required field: to")
	}
	receipt, err := n.host.Transact(ctx, request.From, request.To, request.Input)
	if receipt == nil {
		return nil, err
	}
	return newTransactionResult(receipt), nil
}

// handleView runs a read-only call. A revert travels back as a
// ViewResponse so its payload survives the socket.
func (n *Node) handleView(ctx context.Context, raw []byte) (any, error) {
	request, err := decodeRequest[CallRequest](raw)
	if err != nil {
		return nil, err
	}
	if request.To.IsZero() {
		return nil, errors.New("missing required field: to")
	}
	output, err := n.host.View(ctx, request.From, request.To, request.Input)
	if err != nil {
		var revert *host.RevertError
		if !errors.As(err, &revert) {
			return nil, err
		}
		return ViewResponse{Reverted: true, RevertData: revert.Data}, nil
	}
	return ViewResponse{Return: output}, nil
}

func (n *Node) handleState(ctx context.Context, raw []byte) (any, error) {
	request, err := decodeRequest[StateRequest](raw)
	if err != nil {
		return nil, err
	}
	target := request.Proxy
	if target.IsZero() {
		target = n.proxy
	}
	if target.IsZero() {
		return nil, errors.New("no proxy given and the node has none")
	}
	return proxy.NewClient(n.host, target).State(ctx)
}

func (n *Node) handleLogs(ctx context.Context, raw []byte) (any, error) {
	request, err := decodeRequest[LogsRequest](raw)
	if err != nil {
		return nil, err
	}
	events := n.host.Logs(host.LogFilter{
		Address:   request.Address,
		Names:     request.Names,
		FromBlock: request.FromBlock,
		ToBlock:   request.ToBlock,
	})
	if events == nil {
		events = []host.Event{}
	}
	return events, nil
}

func (n *Node) handleSimulate(ctx context.Context, raw []byte) (any, error) {
	request, err := decodeRequest[SimulateRequest](raw)
	if err != nil {
		return nil, err
	}
	proposal, err := governance.Parse(request.Proposal)
	if err != nil {
		return nil, err
	}
	if len(request.Retarget) > 0 {
		mapping := make(map[address.Address]address.Address, len(request.Retarget))
		for _, entry := range request.Retarget {
			mapping[entry.From] = entry.To
		}
		proposal.Retarget(mapping)
	}

	executor := &governance.Executor{Account: request.Executor, Logger: n.logger}
	simulation, err := executor.Simulate(ctx, n.host, proposal)
	if err != nil {
		return nil, err
	}
	n.logger.Info("proposal simulated",
		"title", proposal.Meta.Title,
		"passed", simulation.Passed(),
		"block", simulation.Block,
	)
	return newSimulateResponse(simulation), nil
}

func (n *Node) handleSnapshot(ctx context.Context, raw []byte) (any, error) {
	request, err := decodeRequest[SnapshotRequest](raw)
	if err != nil {
		return nil, err
	}
	path := request.Path
	if path == "" {
		path = n.snapshotFile
	}
	compression := n.compression
	if request.Compression != "" {
		if compression, err = host.ParseCompression(request.Compression); err != nil {
			return nil, err
		}
	}
	return n.WriteSnapshot(path, compression)
}

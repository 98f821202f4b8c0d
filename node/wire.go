// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"errors"
	"time"

	"github.com/bureau-foundation/unitroller/governance"
	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/host"
)

// StatusResponse is the response to the "status" action.
type StatusResponse struct {
	UptimeSeconds float64         `cbor:"uptime_seconds" json:"uptime_seconds"`
	Block         uint64          `cbor:"block" json:"block"`
	Proxy         address.Address `cbor:"proxy" json:"proxy"`
	Version       string          `cbor:"version" json:"version"`
}

// CallRequest carries the fields of the "call" and "view" actions.
type CallRequest struct {
	From  address.Address `cbor:"from" json:"from"`
	To    address.Address `cbor:"to" json:"to"`
	Input []byte          `cbor:"input" json:"input"`
}

// TransactionResult is a receipt in wire form. An aborted transaction
// has Reverted set and Error holding the abort. RevertData is the
// abort's payload exactly as the failing code produced it.
type TransactionResult struct {
	ID     string          `cbor:"id" json:"id"`
	Block  uint64          `cbor:"block" json:"block"`
	Time   time.Time       `cbor:"time" json:"time"`
	From   address.Address `cbor:"from" json:"from"`
	To     address.Address `cbor:"to" json:"to"`
	Return []byte          `cbor:"return,omitempty" json:"return,omitempty"`
	Logs   []host.Event    `cbor:"logs,omitempty" json:"logs,omitempty"`

	Reverted     bool   `cbor:"reverted,omitempty" json:"reverted,omitempty"`
	Error        string `cbor:"error,omitempty" json:"error,omitempty"`
	RevertReason string `cbor:"revert_reason,omitempty" json:"revert_reason,omitempty"`
	RevertData   []byte `cbor:"revert_data,omitempty" json:"revert_data,omitempty"`
}

func newTransactionResult(receipt *host.Receipt) TransactionResult {
	result := TransactionResult{
		ID:     receipt.ID.String(),
		Block:  receipt.Block,
		Time:   receipt.Time,
		From:   receipt.From,
		To:     receipt.To,
		Return: receipt.Return,
		Logs:   receipt.Logs,
	}
	if receipt.Err != nil {
		result.Reverted = true
		result.Error = receipt.Err.Error()
		result.RevertReason, _ = host.RevertReason(receipt.Err)
		result.RevertData = revertData(receipt.Err)
	}
	return result
}

// ViewResponse is the response to the "view" action. A view that
// aborted with a RevertError has Reverted set and RevertData holding
// the payload; any other failure is a request error.
type ViewResponse struct {
	Return     []byte `cbor:"return,omitempty" json:"return,omitempty"`
	Reverted   bool   `cbor:"reverted,omitempty" json:"reverted,omitempty"`
	RevertData []byte `cbor:"revert_data,omitempty" json:"revert_data,omitempty"`
}

func revertData(err error) []byte {
	var revert *host.RevertError
	if !errors.As(err, &revert) {
		return nil
	}
	return revert.Data
}

// StateRequest names the proxy for the "state" action. A zero Proxy
// selects the node's own.
type StateRequest struct {
	Proxy address.Address `cbor:"proxy" json:"proxy"`
}

// LogsRequest is a host.LogFilter in wire form.
type LogsRequest struct {
	Address   address.Address `cbor:"address" json:"address"`
	Names     []string        `cbor:"names,omitempty" json:"names,omitempty"`
	FromBlock uint64          `cbor:"from_block" json:"from_block"`
	ToBlock   uint64          `cbor:"to_block" json:"to_block"`
}

// Retarget maps one proposal target to another.
type Retarget struct {
	From address.Address `cbor:"from" json:"from"`
	To   address.Address `cbor:"to" json:"to"`
}

// SimulateRequest carries a proposal file's contents and the account
// that executes it.
type SimulateRequest struct {
	Proposal []byte          `cbor:"proposal" json:"proposal"`
	Executor address.Address `cbor:"executor" json:"executor"`

	// Retarget rewrites action and check targets before simulating,
	// for proposals written against another network's addresses.
	Retarget []Retarget `cbor:"retarget,omitempty" json:"retarget,omitempty"`
}

// ActionOutcome summarizes one executed proposal action.
type ActionOutcome struct {
	Index     int             `cbor:"index" json:"index"`
	Target    address.Address `cbor:"target" json:"target"`
	Signature string          `cbor:"signature" json:"signature"`
	Code      string          `cbor:"code,omitempty" json:"code,omitempty"`
	Failure   string          `cbor:"failure,omitempty" json:"failure,omitempty"`
	Events    int             `cbor:"events" json:"events"`
}

// SimulateResponse is a governance.Simulation in wire form.
type SimulateResponse struct {
	Block    uint64                   `cbor:"block" json:"block"`
	Passed   bool                     `cbor:"passed" json:"passed"`
	Pre      []governance.CheckResult `cbor:"pre" json:"pre"`
	Post     []governance.CheckResult `cbor:"post" json:"post"`
	Actions  []ActionOutcome          `cbor:"actions" json:"actions"`
	Error    string                   `cbor:"error,omitempty" json:"error,omitempty"`
	Rejected []int                    `cbor:"rejected,omitempty" json:"rejected,omitempty"`
}

func newSimulateResponse(simulation *governance.Simulation) SimulateResponse {
	response := SimulateResponse{
		Block:    simulation.Block,
		Passed:   simulation.Passed(),
		Pre:      simulation.Pre,
		Post:     simulation.Post,
		Error:    simulation.Error,
		Rejected: simulation.Rejected,
	}
	if simulation.Execution == nil {
		return response
	}
	for _, action := range simulation.Execution.Actions {
		outcome := ActionOutcome{
			Index:     action.Index,
			Target:    action.Target,
			Signature: action.Signature,
			Events:    len(action.Events),
		}
		if action.Result != nil {
			outcome.Code = action.Result.Code.String()
			if action.Result.Failure != nil {
				outcome.Failure = action.Result.Failure.Error()
			}
		}
		response.Actions = append(response.Actions, outcome)
	}
	return response
}

// SnapshotRequest asks the node to export its state to Path on the
// node's filesystem. An empty Path uses the configured snapshot file
// and an empty Compression the configured compression.
type SnapshotRequest struct {
	Path        string `cbor:"path,omitempty" json:"path,omitempty"`
	Compression string `cbor:"compression,omitempty" json:"compression,omitempty"`
}

// SnapshotResponse describes a written snapshot.
type SnapshotResponse struct {
	Path   string `cbor:"path" json:"path"`
	Block  uint64 `cbor:"block" json:"block"`
	Digest string `cbor:"digest" json:"digest"`
}

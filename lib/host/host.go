// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/unitroller/lib/address"
	"github.com/bureau-foundation/unitroller/lib/clock"
)

// Contract is deployable code. Execute receives the raw calldata and
// returns raw return data. Any error aborts the frame.
type Contract interface {
	Execute(frame *Frame, input []byte) ([]byte, error)
}

// Named is implemented by contracts that can be restored from a
// snapshot. The name is the CodeRegistry key.
type Named interface {
	CodeName() string
}

// Options configures a Host.
type Options struct {
	// Clock supplies block timestamps. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives per-transaction debug records. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Host is the execution substrate. All methods are safe for
// concurrent use; executions are serialized.
type Host struct {
	mu     sync.Mutex
	clock  clock.Clock
	logger *slog.Logger

	accounts  map[address.Address]*account
	nonces    map[address.Address]uint64
	block     uint64
	blockTime time.Time
	logs      []Event
}

type account struct {
	code    Contract
	storage map[Slot][]byte
}

// New returns an empty Host at block zero.
func New(options Options) *Host {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Host{
		clock:    options.Clock,
		logger:   options.Logger,
		accounts: make(map[address.Address]*account),
		nonces:   make(map[address.Address]uint64),
	}
}

// Deploy creates code at the next address derived from deployer and
// runs constructor (if non-nil) in the new account's context with
// deployer as the caller. A constructor error leaves no trace: no
// account, no nonce increment, no block.
func (h *Host) Deploy(ctx context.Context, deployer address.Address, code Contract, constructor func(*Frame) error) (address.Address, error) {
	if code == nil {
		return address.Zero, errors.New("deploying nil contract")
	}
	if err := ctx.Err(); err != nil {
		return address.Zero, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	exec := h.begin(ctx, false)
	nonce := h.nonces[deployer]
	created := address.Derive(deployer, nonce)
	if _, exists := h.accounts[created]; exists {
		return address.Zero, fmt.Errorf("deploy address %s already has code", created)
	}
	exec.setNonce(deployer, nonce+1)
	exec.createAccount(created, code)

	if constructor != nil {
		frame := &Frame{exec: exec, caller: deployer, self: created, code: created}
		if err := constructor(frame); err != nil {
			exec.revert(checkpoint{})
			return address.Zero, fmt.Errorf("constructing %s: %w", codeName(code), err)
		}
	}

	receipt := h.commit(exec, deployer, created, nil, nil)
	h.logger.Debug("contract deployed",
		"code", codeName(code),
		"address", created,
		"deployer", deployer,
		"block", receipt.Block,
	)
	return created, nil
}

// Transact executes one top-level call from an externally owned
// account. The returned error is the abort (if any) that rolled the
// call back; the receipt is returned either way.
func (h *Host) Transact(ctx context.Context, from, to address.Address, input []byte) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	exec := h.begin(ctx, false)
	output, err := exec.call(from, to, input, 0)
	receipt := h.commit(exec, from, to, output, err)
	h.logger.Debug("transaction executed",
		"from", from,
		"to", to,
		"block", receipt.Block,
		"events", len(receipt.Logs),
		"error", err,
	)
	return receipt, err
}

// Tx issues calls inside a Batch.
type Tx struct {
	exec *execution
	from address.Address
}

// Call executes one call from the batch sender. A failing call rolls
// back only its own effects; the batch function decides whether the
// failure aborts the batch by returning it.
func (t *Tx) Call(to address.Address, input []byte) ([]byte, error) {
	return t.exec.call(t.from, to, input, 0)
}

// View executes a read-only call against the batch's uncommitted
// state.
func (t *Tx) View(to address.Address, input []byte) ([]byte, error) {
	previous := t.exec.readOnly
	t.exec.readOnly = true
	defer func() { t.exec.readOnly = previous }()
	return t.exec.call(t.from, to, input, 0)
}

// Logs returns the events emitted so far in the batch.
func (t *Tx) Logs() []Event {
	return append([]Event(nil), t.exec.logs...)
}

// Block returns the block the batch will commit as.
func (t *Tx) Block() uint64 { return t.exec.block }

// Batch runs fn as a single atomic transaction from from. If fn
// returns an error every call it made is rolled back and the error is
// returned unchanged.
func (h *Host) Batch(ctx context.Context, from address.Address, fn func(*Tx) error) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	exec := h.begin(ctx, false)
	err := fn(&Tx{exec: exec, from: from})
	receipt := h.commit(exec, from, address.Zero, nil, err)
	h.logger.Debug("batch executed",
		"from", from,
		"block", receipt.Block,
		"events", len(receipt.Logs),
		"error", err,
	)
	return receipt, err
}

// View executes a read-only call. Nothing it does is kept and no block
// is produced.
func (h *Host) View(ctx context.Context, from, to address.Address, input []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	exec := &execution{
		ctx:      ctx,
		host:     h,
		readOnly: true,
		block:    h.block,
		time:     h.clock.Now(),
	}
	output, err := exec.call(from, to, input, 0)
	exec.revert(checkpoint{})
	return output, err
}

// Logs returns committed events matching filter, oldest first.
func (h *Host) Logs(filter LogFilter) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	var result []Event
	for _, event := range h.logs {
		if filter.matches(event) {
			result = append(result, event)
		}
	}
	return result
}

// BlockNumber returns the last committed block.
func (h *Host) BlockNumber() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.block
}

// Code returns the contract deployed at target.
func (h *Host) Code(target address.Address) (Contract, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	acct, ok := h.accounts[target]
	if !ok {
		return nil, false
	}
	return acct.code, true
}

// StorageAt reads a raw slot outside any execution. Tooling uses it to
// inspect control slots without going through an entry point.
func (h *Host) StorageAt(target address.Address, slot Slot) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	acct, ok := h.accounts[target]
	if !ok {
		return nil
	}
	return bytes.Clone(acct.storage[slot])
}

// Nonce returns the number of deployments made by deployer.
func (h *Host) Nonce(deployer address.Address) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nonces[deployer]
}

// Logger returns the host's logger.
func (h *Host) Logger() *slog.Logger { return h.logger }

func (h *Host) begin(ctx context.Context, readOnly bool) *execution {
	return &execution{
		ctx:      ctx,
		host:     h,
		readOnly: readOnly,
		block:    h.block + 1,
		time:     h.clock.Now(),
	}
}

// commit mines the execution's block. On failure the execution is
// rolled back first, so a reverted transaction occupies a block but
// leaves no state and no events.
func (h *Host) commit(exec *execution, from, to address.Address, output []byte, err error) *Receipt {
	receipt := &Receipt{
		ID:    uuid.New(),
		Block: exec.block,
		Time:  exec.time,
		From:  from,
		To:    to,
		Err:   err,
	}
	if err != nil {
		exec.revert(checkpoint{})
	} else {
		receipt.Return = output
		receipt.Logs = exec.logs
		h.logs = append(h.logs, exec.logs...)
	}
	h.block = exec.block
	h.blockTime = exec.time
	return receipt
}

func codeName(code Contract) string {
	if named, ok := code.(Named); ok {
		return named.CodeName()
	}
	return fmt.Sprintf("%T", code)
}
